// Package config loads runtime settings from the environment and an
// optional .env file. All keys take a MEDSCHED_ prefix, so the store
// path for example is MEDSCHED_STORE_PATH.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Config holds every runtime setting of the application.
type Config struct {
	// StorePath is the SQLite database file. The directory is created
	// on first open if needed.
	StorePath string `mapstructure:"STORE_PATH"`

	// ExportDir receives exported documents.
	ExportDir string `mapstructure:"EXPORT_DIR"`

	// RecomputeInterval is the periodic recompute cadence.
	RecomputeInterval time.Duration `mapstructure:"RECOMPUTE_INTERVAL"`

	// RetryDelay is the wait before retrying a failed recompute pass.
	RetryDelay time.Duration `mapstructure:"RETRY_DELAY"`

	LogLevel string `mapstructure:"LOG_LEVEL"`
	LogJSON  bool   `mapstructure:"LOG_JSON"`
}

// Load reads configuration from the environment, falling back to a
// .env file in the working directory and then to built-in defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.SetEnvPrefix("MEDSCHED")
	v.AutomaticEnv()

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	v.SetDefault("STORE_PATH", filepath.Join(home, ".medsched", "meds.db"))
	v.SetDefault("EXPORT_DIR", filepath.Join(home, "Downloads"))
	v.SetDefault("RECOMPUTE_INTERVAL", time.Hour)
	v.SetDefault("RETRY_DELAY", 30*time.Second)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_JSON", false)

	// Bind env vars explicitly so Unmarshal picks them up.
	for _, key := range []string{
		"STORE_PATH", "EXPORT_DIR", "RECOMPUTE_INTERVAL",
		"RETRY_DELAY", "LOG_LEVEL", "LOG_JSON",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	// A missing .env file is fine; the environment and defaults cover
	// everything.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.StorePath == "" {
		return fmt.Errorf("STORE_PATH must not be empty")
	}
	if c.ExportDir == "" {
		return fmt.Errorf("EXPORT_DIR must not be empty")
	}
	if c.RecomputeInterval <= 0 {
		return fmt.Errorf("RECOMPUTE_INTERVAL must be positive, got %s", c.RecomputeInterval)
	}
	if c.RetryDelay <= 0 {
		return fmt.Errorf("RETRY_DELAY must be positive, got %s", c.RetryDelay)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return nil
}
