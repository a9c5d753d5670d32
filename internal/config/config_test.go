package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("PORT", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.DefaultAdminCredentials())
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portfolio.yaml")
	doc := `
addr: ":9000"
mode: release
view_ttl: 10m
analytics:
  db_path: /tmp/a.db
admin:
  username: zach
  password: s3cret
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	t.Setenv("PORT", "")
	t.Setenv("PORTFOLIO_LOG_LEVEL", "debug")
	t.Setenv("PORTFOLIO_ANALYTICS__ENABLED", "false")
	t.Setenv("PORTFOLIO_MAX_VIEWS", "250")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "release", cfg.Mode)
	assert.Equal(t, 10*time.Minute, cfg.ViewTTL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 250, cfg.MaxViews)
	assert.False(t, cfg.Analytics.Enabled)
	assert.Equal(t, "/tmp/a.db", cfg.Analytics.DBPath)
	assert.False(t, cfg.DefaultAdminCredentials())
	require.NoError(t, cfg.Validate())
}

func TestPortOverridesAddr(t *testing.T) {
	t.Setenv("PORT", "3000")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.Addr)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"empty addr":    func(c *Config) { c.Addr = "" },
		"bad mode":      func(c *Config) { c.Mode = "prod" },
		"zero ttl":      func(c *Config) { c.ViewTTL = 0 },
		"zero sweep":    func(c *Config) { c.SweepInterval = 0 },
		"no view cap":   func(c *Config) { c.MaxViews = 0 },
		"negative line": func(c *Config) { c.ReferenceLine = -1 },
		"no db path":    func(c *Config) { c.Analytics.DBPath = "" },
		"no retention":  func(c *Config) { c.Analytics.Retention = 0 },
		"no password":   func(c *Config) { c.Admin.Password = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
