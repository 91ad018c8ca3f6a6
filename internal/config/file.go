package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// AppName is used for the config directory name.
const AppName = "projecthub"

// DefaultPath returns $XDG_CONFIG_HOME/projecthub/config.yaml.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// LoadFile builds a RuntimeConfig from defaults, the YAML file at path and
// the environment. A missing file is not an error; keys absent from the file
// keep their defaults.
func LoadFile(path string) (*RuntimeConfig, error) {
	cfg := DefaultRuntimeConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	cfg.loadFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Load reads the config file at path (DefaultPath when empty) into Global.
func Load(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	cfg, err := LoadFile(path)
	if err != nil {
		return err
	}
	*Global = *cfg
	return nil
}

// Save writes c to path as YAML, creating the directory if needed.
func (c *RuntimeConfig) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate rejects values that would stall the daemon.
func (c *RuntimeConfig) Validate() error {
	switch {
	case c.HTTP.Timeout <= 0:
		return errors.New("http.timeout must be positive")
	case c.Sync.DefaultInterval < 0:
		return errors.New("sync.default_interval must not be negative")
	case c.Sync.HorizonMonths < 1:
		return errors.New("sync.horizon_months must be at least 1")
	case c.Sync.MaxOccurrences < 1:
		return errors.New("sync.max_occurrences must be at least 1")
	case c.Sync.MaxConcurrent < 1:
		return errors.New("sync.max_concurrent must be at least 1")
	case c.Sync.MaxFeedBytes < 1:
		return errors.New("sync.max_feed_bytes must be positive")
	}
	return nil
}
