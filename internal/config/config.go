// Package config resolves server settings with flag > env > file > default
// precedence. The YAML file is optional; a missing file is not an error
// unless a path was given explicitly.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all server settings.
type Config struct {
	// Addr is the HTTP listen address (default ":8080").
	Addr string `yaml:"addr"`

	// DBPath is the SQLite database file (default "data/synergysphere.db").
	DBPath string `yaml:"db_path"`

	// StaticDir is the directory with the built frontend, empty for API-only.
	StaticDir string `yaml:"static_dir"`

	// SessionDays is the session lifetime in days (default 30).
	SessionDays int `yaml:"session_days"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Addr:        ":8080",
		DBPath:      "data/synergysphere.db",
		StaticDir:   "web/dist",
		SessionDays: 30,
	}
}

// Load reads the optional YAML file on top of the defaults, then applies
// environment overrides. Flag values are applied by the caller afterwards.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) && path == DefaultPath {
				return applyEnv(cfg), nil
			}
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	return applyEnv(cfg), nil
}

// DefaultPath is probed when no -config flag is given.
const DefaultPath = "synergysphere.yaml"

func applyEnv(cfg Config) Config {
	cfg.Addr = envOrDefault("SYNERGY_ADDR", cfg.Addr)
	cfg.DBPath = envOrDefault("SYNERGY_DB_PATH", cfg.DBPath)
	cfg.StaticDir = envOrDefault("SYNERGY_STATIC_DIR", cfg.StaticDir)
	if raw := os.Getenv("SYNERGY_SESSION_DAYS"); raw != "" {
		if days, err := strconv.Atoi(raw); err == nil && days > 0 {
			cfg.SessionDays = days
		}
	}
	return cfg
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
