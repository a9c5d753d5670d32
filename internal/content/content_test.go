package content

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefault(t *testing.T) {
	p, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "Alex", p.Name)
	assert.Equal(t, "Portfolio", p.Brand)
	assert.Len(t, p.Roles, 3)
	assert.Len(t, p.Skills, 3)
	assert.Len(t, p.Projects, 6)
	assert.Contains(t, string(p.Bio), "<strong>fast, accessible</strong>")
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "me.yaml")
	doc := "name: Sam\nabout:\n  bio: hi *there*\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Sam", p.Name)
	assert.Equal(t, "Portfolio", p.Brand, "brand defaults when omitted")
	assert.Contains(t, string(p.Bio), "<em>there</em>")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read content")
}

func TestValidate(t *testing.T) {
	doc := `
skills:
  - name: ""
    items:
      - {name: Go, level: 140}
projects:
  - description: untitled
`
	_, err := Parse([]byte(doc))
	require.ErrorIs(t, err, ErrInvalid)
	msg := err.Error()
	for _, want := range []string{"name is required", "skill group name is required", `skill "Go": level 140`, "project 1: title is required"} {
		assert.True(t, strings.Contains(msg, want), "missing %q in %q", want, msg)
	}
}

func TestRenderMarkdownSanitises(t *testing.T) {
	html, err := RenderMarkdown("hello <script>alert(1)</script> [x](javascript:alert(1))")
	require.NoError(t, err)
	assert.NotContains(t, string(html), "<script>")
	assert.NotContains(t, string(html), "javascript:")
	assert.Contains(t, string(html), "hello")
}
