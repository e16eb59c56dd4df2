package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// DefaultPath is where the CLI looks for a config file when none is given
const DefaultPath = "~/.config/focusrank/config.toml"

// Load reads the TOML file at path over the defaults.
// A missing file is not an error: the defaults are returned.
func Load(path string) (*Config, error) {
	expandedPath, err := ExpandPath(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to expand config path")
	}

	cfg := Default()
	data, err := os.ReadFile(expandedPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrap(err, "failed to read config")
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config %s", expandedPath)
	}

	if cfg.Database.Path, err = ExpandPath(cfg.Database.Path); err != nil {
		return nil, errors.Wrap(err, "failed to expand database path")
	}
	return cfg, nil
}

// Save writes cfg as TOML to path, creating the directory if needed
func Save(cfg *Config, path string) error {
	expandedPath, err := ExpandPath(path)
	if err != nil {
		return errors.Wrap(err, "failed to expand config path")
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to encode config")
	}
	if err := os.MkdirAll(filepath.Dir(expandedPath), 0755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}
	return errors.Wrap(os.WriteFile(expandedPath, data, 0644), "failed to write config")
}

// ExpandPath expands a leading ~ to the home directory
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, path[1:]), nil
}
