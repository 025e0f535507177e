// Package config loads process configuration from the environment and the
// engine policy from an optional CUE file.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendPebble = "pebble"
	BackendMemory = "memory"
)

// Config is the process configuration. Command-line flags override it.
type Config struct {
	// DB is the SQLite file or Pebble directory.
	DB       string `env:"AGS_DB"        envDefault:"ags.db"`
	Backend  string `env:"AGS_BACKEND"   envDefault:"sqlite"`
	Policy   string `env:"AGS_POLICY"`
	LogLevel string `env:"AGS_LOG_LEVEL" envDefault:"info"`
	Format   string `env:"AGS_FORMAT"    envDefault:"text"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads and validates Config from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated fields.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendSQLite, BackendPebble, BackendMemory:
	default:
		return fmt.Errorf("invalid backend %q (want sqlite, pebble or memory)", c.Backend)
	}
	switch c.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid format %q (want text or json)", c.Format)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level %q", s)
}
