// Package config loads server settings from an optional YAML file overlaid
// with PORTFOLIO_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "PORTFOLIO_"

type Config struct {
	Addr        string `koanf:"addr"`
	Mode        string `koanf:"mode"`
	LogLevel    string `koanf:"log_level"`
	ContentPath string `koanf:"content_path"`

	ViewTTL       time.Duration `koanf:"view_ttl"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
	MaxViews      int           `koanf:"max_views"`

	// ReferenceLine is the viewport offset used to pick the active section.
	ReferenceLine float64 `koanf:"reference_line"`

	Analytics Analytics `koanf:"analytics"`
	Admin     Admin     `koanf:"admin"`
}

type Analytics struct {
	Enabled   bool          `koanf:"enabled"`
	DBPath    string        `koanf:"db_path"`
	Retention time.Duration `koanf:"retention"`
}

type Admin struct {
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

// Default returns development defaults.
func Default() *Config {
	return &Config{
		Addr:          ":8080",
		Mode:          "debug",
		LogLevel:      "info",
		ViewTTL:       30 * time.Minute,
		SweepInterval: time.Minute,
		MaxViews:      10000,
		ReferenceLine: 100,
		Analytics: Analytics{
			Enabled:   true,
			DBPath:    "data/portfolio.db",
			Retention: 365 * 24 * time.Hour,
		},
		Admin: Admin{
			Username: "admin",
			Password: "admin123",
		},
	}
}

// Load reads path (when it exists) then overlays environment overrides such
// as PORTFOLIO_ADDR or PORTFOLIO_ANALYTICS__DB_PATH. A bare PORT variable
// sets the listen port.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Addr = ":" + port
	}
	return cfg, nil
}

var validModes = map[string]bool{"debug": true, "release": true, "test": true}

// Validate checks that the configuration contains usable values.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if !validModes[c.Mode] {
		return fmt.Errorf("invalid mode %q: must be one of debug, release, test", c.Mode)
	}
	if c.ViewTTL <= 0 {
		return fmt.Errorf("view_ttl must be positive")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("sweep_interval must be positive")
	}
	if c.MaxViews <= 0 {
		return fmt.Errorf("max_views must be positive")
	}
	if c.ReferenceLine < 0 {
		return fmt.Errorf("reference_line must be non-negative")
	}
	if c.Analytics.Enabled {
		if c.Analytics.DBPath == "" {
			return fmt.Errorf("analytics.db_path is required when analytics is enabled")
		}
		if c.Analytics.Retention <= 0 {
			return fmt.Errorf("analytics.retention must be positive")
		}
	}
	if c.Admin.Username == "" || c.Admin.Password == "" {
		return fmt.Errorf("admin credentials are required")
	}
	return nil
}

// DefaultAdminCredentials reports whether the development admin login is in use.
func (c *Config) DefaultAdminCredentials() bool {
	d := Default().Admin
	return c.Admin.Username == d.Username && c.Admin.Password == d.Password
}
