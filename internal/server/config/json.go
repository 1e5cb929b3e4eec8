package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/keyproxy/internal/flagx"
)

// Duration accepts either a Go duration string ("90s", "10m") or an integer
// number of nanoseconds when unmarshalled from JSON.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch x := v.(type) {
	case float64:
		d.Duration = time.Duration(x)
	case string:
		p, err := time.ParseDuration(x)
		if err != nil {
			return err
		}
		d.Duration = p
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
	return nil
}

// JsonConfig is the on-disk form. Absent fields leave the current value alone.
type JsonConfig struct {
	HTTPAddr               *string   `json:"http_addr"`
	DatabaseDSN            *string   `json:"database_dsn"`
	SecretKey              *string   `json:"secret_key"`
	APIHost                *string   `json:"api_host"`
	APIKey                 *string   `json:"api_key"`
	SeedUsername           *string   `json:"seed_username"`
	SeedPassword           *string   `json:"seed_password"`
	MaxLoginAttempts       *int      `json:"max_login_attempts"`
	LockDuration           *Duration `json:"lock_duration"`
	MaxReferenceImages     *int      `json:"max_reference_images"`
	MaxReferenceImageBytes *int64    `json:"max_reference_image_bytes"`
	UpstreamTimeout        *Duration `json:"upstream_timeout"`
	SessionTTL             *Duration `json:"session_ttl"`
	AutoLoginDefault       *bool     `json:"auto_login_default"`
}

// parseJSON overlays the file named by -c/-config, if any.
func parseJSON(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return err
	}

	setIf(&config.HTTPAddr, c.HTTPAddr)
	setIf(&config.DatabaseDSN, c.DatabaseDSN)
	setIf(&config.SecretKey, c.SecretKey)
	setIf(&config.APIHost, c.APIHost)
	setIf(&config.APIKey, c.APIKey)
	setIf(&config.SeedUsername, c.SeedUsername)
	setIf(&config.SeedPassword, c.SeedPassword)
	setIf(&config.MaxLoginAttempts, c.MaxLoginAttempts)
	setIf(&config.MaxReferenceImages, c.MaxReferenceImages)
	setIf(&config.MaxReferenceImageBytes, c.MaxReferenceImageBytes)
	setIf(&config.AutoLoginDefault, c.AutoLoginDefault)
	if c.LockDuration != nil {
		config.LockDuration = c.LockDuration.Duration
	}
	if c.UpstreamTimeout != nil {
		config.UpstreamTimeout = c.UpstreamTimeout.Duration
	}
	if c.SessionTTL != nil {
		config.SessionTTL = c.SessionTTL.Duration
	}
	return nil
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
