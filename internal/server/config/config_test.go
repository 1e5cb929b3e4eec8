package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"HTTP_ADDR", "PORT", "DATABASE_DSN", "DB_PATH", "APP_SECRET_KEY",
	"NANO_BANANA_HOST", "NANO_BANANA_API_KEY", "APP_USERNAME", "APP_PASSWORD",
	"MAX_LOGIN_ATTEMPTS", "LOCK_MINUTES", "MAX_REFERENCE_IMAGES",
	"MAX_REFERENCE_IMAGE_BYTES", "UPSTREAM_TIMEOUT_SECONDS", "SESSION_TTL_HOURS",
	"AUTO_LOGIN_DEFAULT",
}

// clearEnv unsets every recognised variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		k := k // per-iteration copy (go 1.21 loop semantics)
		if v, ok := os.LookupEnv(k); ok {
			require.NoError(t, os.Unsetenv(k))
			t.Cleanup(func() { _ = os.Setenv(k, v) })
		}
	}
}

func defaults() *Config {
	c := &Config{}
	c.LoadDefaults()
	return c
}

func TestLoadDefaults(t *testing.T) {
	want := &Config{
		HTTPAddr:               ":5000",
		DatabaseDSN:            "data/app.db",
		SecretKey:              "change-me",
		APIHost:                "https://api.grsai.com",
		SeedUsername:           "admin",
		SeedPassword:           "banana123",
		MaxLoginAttempts:       5,
		LockDuration:           10 * time.Minute,
		MaxReferenceImages:     3,
		MaxReferenceImageBytes: 5 * 1024 * 1024,
		UpstreamTimeout:        120 * time.Second,
		SessionTTL:             24 * time.Hour,
	}

	assert.Empty(t, cmp.Diff(want, defaults()))
}

func TestLoadConfig_NoSources(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	c, err := LoadConfig(nil)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(defaults(), c))
}

func TestLoadConfig_Precedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	chdir(t, dir)

	path := writeTempJSON(t, dir, "cfg.json", map[string]any{
		"http_addr":          ":7000",
		"secret_key":         "from-json",
		"max_login_attempts": 7,
	})
	t.Setenv("APP_SECRET_KEY", "from-env")
	t.Setenv("MAX_LOGIN_ATTEMPTS", "9")

	c, err := LoadConfig([]string{"-c", path, "-m", "2"})
	require.NoError(t, err)

	assert.Equal(t, ":7000", c.HTTPAddr)
	assert.Equal(t, "from-env", c.SecretKey)
	assert.Equal(t, 2, c.MaxLoginAttempts)
}

func TestLoadConfig_InvalidValue(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	_, err := LoadConfig([]string{"-m", "0"})
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"empty addr", func(c *Config) { c.HTTPAddr = "" }},
		{"empty dsn", func(c *Config) { c.DatabaseDSN = "" }},
		{"empty secret", func(c *Config) { c.SecretKey = "" }},
		{"empty host", func(c *Config) { c.APIHost = "" }},
		{"zero attempts", func(c *Config) { c.MaxLoginAttempts = 0 }},
		{"zero lock", func(c *Config) { c.LockDuration = 0 }},
		{"negative images", func(c *Config) { c.MaxReferenceImages = -1 }},
		{"zero image bytes", func(c *Config) { c.MaxReferenceImageBytes = 0 }},
		{"zero timeout", func(c *Config) { c.UpstreamTimeout = 0 }},
		{"zero ttl", func(c *Config) { c.SessionTTL = 0 }},
	}

	require.NoError(t, defaults().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := defaults()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
