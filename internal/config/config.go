// Package config defines service configuration structures and loading hooks.
package config

import (
	"fmt"
	"runtime"
	"strings"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// APIKey guards the recalculation trigger.
	APIKey string `koanf:"api_key"`

	// Tau is the volatility change constraint of the rating engine.
	Tau float64 `koanf:"tau"`

	// Tolerance bounds the volatility iteration.
	Tolerance float64 `koanf:"tolerance"`

	// MaxIterations caps the volatility iteration.
	MaxIterations int `koanf:"max_iterations"`

	// Starting state of newly registered competitors.
	DefaultRating          float64 `koanf:"default_rating"`
	DefaultRatingDeviation float64 `koanf:"default_rating_deviation"`
	DefaultVolatility      float64 `koanf:"default_volatility"`

	// QueueSize bounds the in-memory match queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of workers recording matches.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many match IDs are remembered for idempotency.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// StoreDriver selects the competitor store: memory or postgres.
	StoreDriver string `koanf:"store_driver"`

	// DatabaseURL is the PostgreSQL DSN used by the postgres driver.
	DatabaseURL string `koanf:"database_url"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		LogFormat:              "text",
		Addr:                   ":9080",
		Tau:                    0.3,
		Tolerance:              1e-6,
		MaxIterations:          100,
		DefaultRating:          1500,
		DefaultRatingDeviation: 350,
		DefaultVolatility:      0.06,
		QueueSize:              10_000,
		WorkerCount:            runtime.NumCPU(),
		DedupeSize:             100_000,
		MaxLeaderboardLimit:    100,
		StoreDriver:            DriverMemory,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.APIKey) == "":
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrMissingAPIKey)
	case c.Tau <= 0:
		return fmt.Errorf("%w: tau must be positive", ErrInvalidConfig)
	case c.Tolerance <= 0:
		return fmt.Errorf("%w: tolerance must be positive", ErrInvalidConfig)
	case c.MaxIterations < 1:
		return fmt.Errorf("%w: max_iterations must be at least 1", ErrInvalidConfig)
	case c.DefaultRatingDeviation <= 0 || c.DefaultVolatility <= 0:
		return fmt.Errorf("%w: default rating deviation and volatility must be positive", ErrInvalidConfig)
	case c.MaxLeaderboardLimit < 1:
		return fmt.Errorf("%w: max_leaderboard_limit must be at least 1", ErrInvalidConfig)
	}
	switch c.StoreDriver {
	case DriverMemory:
	case DriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("%w: database_url is required for the postgres driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: %w %q", ErrInvalidConfig, ErrUnknownDriver, c.StoreDriver)
	}
	return nil
}
