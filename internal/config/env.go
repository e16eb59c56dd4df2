package config

import (
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// EnvPrefix prefixes every environment variable, e.g.
// FOCUSRANK_RECOMMENDER_NUMBER_OF_WINDOWS or FOCUSRANK_WEB_PORT
const EnvPrefix = "FOCUSRANK"

// LoadFromEnv loads configuration from environment variables.
// Environment variables override the values already in cfg; unset variables
// leave them untouched.
func LoadFromEnv(cfg *Config) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return errors.Wrap(err, "failed to load config from environment")
	}
	return nil
}

// New creates a Config from defaults, the optional TOML file at path and the
// environment, in that order, and validates it
func New(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = Load(path); err != nil {
			return nil, err
		}
	}
	if err := LoadFromEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}
