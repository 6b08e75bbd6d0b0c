// Package config loads engine configuration from defaults, an optional YAML
// file, and FAE_* environment variables, in that order of precedence
// (environment wins).
package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"
)

// Config is the engine configuration.
type Config struct {
	// Root is the directory searches run against.
	Root string `yaml:"root" env:"FAE_ROOT"`
	// Watch enables live re-search on filesystem changes.
	Watch bool `yaml:"watch" env:"FAE_WATCH"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" env:"FAE_LOG_LEVEL"`
	// IgnoreDirs are directory names excluded from searching.
	IgnoreDirs []string `yaml:"ignore_dirs"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Root:       ".",
		LogLevel:   "info",
		IgnoreDirs: []string{".git", "node_modules", "target", "vendor"},
	}
}

// Load builds the configuration: defaults, then the YAML file at path if
// non-empty, then the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	// envdecode errors only on missing required fields; none are required.
	_ = envdecode.Decode(&cfg)

	if cfg.Root == "" {
		cfg.Root = "."
	}
	return cfg, nil
}

// SlogLevel maps the configured level name to a slog.Level, defaulting to
// info for unknown names.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
