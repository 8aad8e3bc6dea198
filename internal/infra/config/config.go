// Package config provides configuration loading from YAML files.
package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	History HistoryConfig `yaml:"history"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Addr           string   `yaml:"addr" default:":8080"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// HistoryConfig represents history store configuration.
type HistoryConfig struct {
	Path     string `yaml:"path" default:"data/history"`
	InMemory bool   `yaml:"in_memory"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"omitempty,oneof=debug info warn warning error"`
	Output string `yaml:"output" default:"stdout"`
}

// Load loads configuration from a YAML file. A missing file is not an
// error: defaults apply. Environment variables take precedence over
// file values for deploy-sensitive fields.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	case os.IsNotExist(err):
		// Fall through to defaults.
	default:
		return nil, errors.Wrap(err, "failed to read config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("PLAYALONG_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("PLAYALONG_HISTORY_PATH"); v != "" {
		c.History.Path = v
	}
	if v := os.Getenv("PLAYALONG_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}
