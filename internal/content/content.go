// Package content loads the copy shown on the portfolio page.
package content

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"os"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"
)

//go:embed portfolio.yaml
var defaultDocument []byte

// ErrInvalid wraps validation failures of a content document.
var ErrInvalid = errors.New("invalid content")

type Portfolio struct {
	Name         string       `yaml:"name"`
	Brand        string       `yaml:"brand"`
	Tagline      string       `yaml:"tagline"`
	Intro        string       `yaml:"intro"`
	Roles        []string     `yaml:"roles"`
	Avatar       string       `yaml:"avatar"`
	About        About        `yaml:"about"`
	Skills       []SkillGroup `yaml:"skills"`
	Technologies []string     `yaml:"technologies"`
	Projects     []Project    `yaml:"projects"`
	Contact      Contact      `yaml:"contact"`
	Social       []Link       `yaml:"social"`

	// Bio is About.Bio rendered to sanitised HTML.
	Bio template.HTML `yaml:"-"`
}

type About struct {
	Heading string `yaml:"heading"`
	Image   string `yaml:"image"`
	Bio     string `yaml:"bio"`
	Facts   []Fact `yaml:"facts"`
}

// Fact is one of the small highlight cards next to the bio.
type Fact struct {
	Title     string `yaml:"title"`
	Primary   string `yaml:"primary"`
	Secondary string `yaml:"secondary"`
}

type SkillGroup struct {
	Name  string  `yaml:"name"`
	Icon  string  `yaml:"icon"`
	Items []Skill `yaml:"items"`
}

// Skill level is a percentage used as the width of its bar.
type Skill struct {
	Name  string `yaml:"name"`
	Level int    `yaml:"level"`
}

type Project struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Image       string   `yaml:"image"`
	Tech        []string `yaml:"tech"`
	Link        string   `yaml:"link"`
}

type Contact struct {
	Blurb    string `yaml:"blurb"`
	Email    string `yaml:"email"`
	Phone    string `yaml:"phone"`
	Location string `yaml:"location"`
}

type Link struct {
	Name string `yaml:"name"`
	Icon string `yaml:"icon"`
	URL  string `yaml:"url"`
}

// Load reads the portfolio document at path, or the built-in one when path
// is empty, validates it and renders the bio.
func Load(path string) (*Portfolio, error) {
	raw := defaultDocument
	if path = strings.TrimSpace(path); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read content %s: %w", path, err)
		}
		raw = b
	}
	return Parse(raw)
}

// Parse decodes a portfolio document.
func Parse(raw []byte) (*Portfolio, error) {
	var p Portfolio
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	bio, err := RenderMarkdown(p.About.Bio)
	if err != nil {
		return nil, fmt.Errorf("render bio: %w", err)
	}
	p.Bio = bio
	if p.Brand == "" {
		p.Brand = "Portfolio"
	}
	return &p, nil
}

// Validate checks the fields the page cannot render without.
func (p *Portfolio) Validate() error {
	var problems []string
	if strings.TrimSpace(p.Name) == "" {
		problems = append(problems, "name is required")
	}
	for _, g := range p.Skills {
		if strings.TrimSpace(g.Name) == "" {
			problems = append(problems, "skill group name is required")
		}
		for _, s := range g.Items {
			if s.Level < 0 || s.Level > 100 {
				problems = append(problems, fmt.Sprintf("skill %q: level %d out of range [0,100]", s.Name, s.Level))
			}
		}
	}
	for i, pr := range p.Projects {
		if strings.TrimSpace(pr.Title) == "" {
			problems = append(problems, fmt.Sprintf("project %d: title is required", i+1))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

var (
	markdown = goldmark.New(goldmark.WithExtensions(extension.Linkify, extension.Strikethrough))
	policy   = bluemonday.UGCPolicy()
)

// RenderMarkdown converts markdown to sanitised HTML.
func RenderMarkdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return template.HTML(policy.SanitizeBytes(buf.Bytes())), nil
}
