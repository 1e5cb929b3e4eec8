package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/dmitrijs2005/keyproxy/internal/flagx"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const defaultEnvFile = ".env"

// EnvConfig lists the recognised environment variables. Nil means unset.
type EnvConfig struct {
	HTTPAddr               *string `envconfig:"HTTP_ADDR"`
	Port                   *string `envconfig:"PORT"`
	DatabaseDSN            *string `envconfig:"DATABASE_DSN"`
	DBPath                 *string `envconfig:"DB_PATH"`
	SecretKey              *string `envconfig:"APP_SECRET_KEY"`
	APIHost                *string `envconfig:"NANO_BANANA_HOST"`
	APIKey                 *string `envconfig:"NANO_BANANA_API_KEY"`
	SeedUsername           *string `envconfig:"APP_USERNAME"`
	SeedPassword           *string `envconfig:"APP_PASSWORD"`
	MaxLoginAttempts       *int    `envconfig:"MAX_LOGIN_ATTEMPTS"`
	LockMinutes            *int    `envconfig:"LOCK_MINUTES"`
	MaxReferenceImages     *int    `envconfig:"MAX_REFERENCE_IMAGES"`
	MaxReferenceImageBytes *int64  `envconfig:"MAX_REFERENCE_IMAGE_BYTES"`
	UpstreamTimeoutSeconds *int    `envconfig:"UPSTREAM_TIMEOUT_SECONDS"`
	SessionTTLHours        *int    `envconfig:"SESSION_TTL_HOURS"`
	AutoLoginDefault       *bool   `envconfig:"AUTO_LOGIN_DEFAULT"`
}

// parseEnv loads the .env file (or the one named by -env-file) without
// overriding variables already present, then overlays the environment.
func parseEnv(config *Config, args []string) error {
	path := flagx.EnvFilePath(args)
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}

	if err := godotenv.Load(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	e := &EnvConfig{}
	if err := envconfig.Process("", e); err != nil {
		return err
	}

	applyEnv(config, e)
	return nil
}

func applyEnv(config *Config, e *EnvConfig) {
	if e.Port != nil && *e.Port != "" {
		config.HTTPAddr = ":" + *e.Port
	}
	setIf(&config.HTTPAddr, e.HTTPAddr)

	if e.DBPath != nil && *e.DBPath != "" {
		config.DatabaseDSN = *e.DBPath
	}
	setIf(&config.DatabaseDSN, e.DatabaseDSN)

	setIf(&config.SecretKey, e.SecretKey)
	setIf(&config.APIHost, e.APIHost)
	setIf(&config.APIKey, e.APIKey)
	setIf(&config.SeedUsername, e.SeedUsername)
	setIf(&config.SeedPassword, e.SeedPassword)
	setIf(&config.MaxLoginAttempts, e.MaxLoginAttempts)
	setIf(&config.MaxReferenceImages, e.MaxReferenceImages)
	setIf(&config.MaxReferenceImageBytes, e.MaxReferenceImageBytes)
	setIf(&config.AutoLoginDefault, e.AutoLoginDefault)

	if e.LockMinutes != nil {
		config.LockDuration = time.Duration(*e.LockMinutes) * time.Minute
	}
	if e.UpstreamTimeoutSeconds != nil {
		config.UpstreamTimeout = time.Duration(*e.UpstreamTimeoutSeconds) * time.Second
	}
	if e.SessionTTLHours != nil {
		config.SessionTTL = time.Duration(*e.SessionTTLHours) * time.Hour
	}
}
