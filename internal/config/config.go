// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config is the process configuration. Command-line flags override it.
type Config struct {
	// DB is the SQLite store path.
	DB string `env:"RESUMABLE_DB" envDefault:"resumable.db"`
	// Dev enables development diagnostics and indented snapshots.
	Dev bool `env:"RESUMABLE_DEV" envDefault:"false"`
	// LogLevel is one of debug, info, warn or error.
	LogLevel string `env:"RESUMABLE_LOG_LEVEL" envDefault:"warn"`
	// LogFormat is text or json.
	LogFormat string `env:"RESUMABLE_LOG_FORMAT" envDefault:"text"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load returns the Config of the current environment.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if _, err := cfg.Level(); err != nil {
		return Config{}, err
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return Config{}, fmt.Errorf("parse env: RESUMABLE_LOG_FORMAT: unknown format %q", cfg.LogFormat)
	}
	return cfg, nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("parse env: RESUMABLE_LOG_LEVEL: %w", err)
	}
	return level, nil
}

// Logger builds a logger writing to w in LogFormat at LogLevel.
func (c Config) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := c.Level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
