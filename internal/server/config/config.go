// Package config handles configuration for the proxy server: defaults,
// an optional JSON file, .env / environment variables and command-line flags,
// applied in that order.
package config

import (
	"fmt"
	"time"
)

// Config holds runtime settings for the server.
//
// DatabaseDSN selects the backend: postgres:// or postgresql:// URLs use pgx,
// anything else is treated as an SQLite file path.
type Config struct {
	HTTPAddr    string
	DatabaseDSN string
	SecretKey   string

	APIHost string
	APIKey  string

	SeedUsername string
	SeedPassword string

	MaxLoginAttempts int
	LockDuration     time.Duration

	MaxReferenceImages     int
	MaxReferenceImageBytes int64

	UpstreamTimeout time.Duration
	SessionTTL      time.Duration

	// AutoLoginDefault makes unauthenticated requests act as SeedUsername.
	AutoLoginDefault bool
}

// LoadDefaults populates Config with development defaults.
// SecretKey and SeedPassword must be overridden outside development.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":5000"
	c.DatabaseDSN = "data/app.db"
	c.SecretKey = "change-me"
	c.APIHost = "https://api.grsai.com"
	c.APIKey = ""
	c.SeedUsername = "admin"
	c.SeedPassword = "banana123"
	c.MaxLoginAttempts = 5
	c.LockDuration = 10 * time.Minute
	c.MaxReferenceImages = 3
	c.MaxReferenceImageBytes = 5 * 1024 * 1024
	c.UpstreamTimeout = 120 * time.Second
	c.SessionTTL = 24 * time.Hour
	c.AutoLoginDefault = false
}

// LoadConfig builds a Config from defaults, then the JSON file named by
// -c/-config, then the environment (after loading .env or -env-file), and
// finally the remaining command-line flags. args excludes the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJSON(cfg, args); err != nil {
		return nil, fmt.Errorf("json config: %w", err)
	}
	if err := parseEnv(cfg, args); err != nil {
		return nil, fmt.Errorf("env config: %w", err)
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.HTTPAddr == "":
		return fmt.Errorf("http address is empty")
	case c.DatabaseDSN == "":
		return fmt.Errorf("database dsn is empty")
	case c.SecretKey == "":
		return fmt.Errorf("secret key is empty")
	case c.APIHost == "":
		return fmt.Errorf("api host is empty")
	case c.MaxLoginAttempts < 1:
		return fmt.Errorf("max login attempts must be positive, got %d", c.MaxLoginAttempts)
	case c.LockDuration <= 0:
		return fmt.Errorf("lock duration must be positive")
	case c.MaxReferenceImages < 0:
		return fmt.Errorf("max reference images must not be negative")
	case c.MaxReferenceImageBytes <= 0:
		return fmt.Errorf("max reference image bytes must be positive")
	case c.UpstreamTimeout <= 0:
		return fmt.Errorf("upstream timeout must be positive")
	case c.SessionTTL <= 0:
		return fmt.Errorf("session ttl must be positive")
	}
	return nil
}
