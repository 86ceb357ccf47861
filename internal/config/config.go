// Package config holds runtime settings for the lattice command,
// populated from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Config is the process-wide configuration. Every field can be set
// through an environment variable; unset fields keep their defaults.
type Config struct {
	// LogLevel selects the zap level: debug, info, warn or error.
	LogLevel string `env:"LATTICE_LOG_LEVEL" envDefault:"info"`

	// Model is the path of the network description file.
	Model string `env:"LATTICE_MODEL"`

	// BatchSize is the leading axis prepended to every tensor shape.
	BatchSize int `env:"LATTICE_BATCH_SIZE" envDefault:"1"`

	// Training runs the forward pass in training mode, which updates
	// batch-norm running statistics.
	Training bool `env:"LATTICE_TRAINING" envDefault:"false"`

	// MetricsAddr, when non-empty, serves Prometheus metrics on this
	// address under /metrics.
	MetricsAddr string `env:"LATTICE_METRICS_ADDR"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.BatchSize < 1 {
		return nil, fmt.Errorf("batch size must be at least 1, got %d", cfg.BatchSize)
	}
	return cfg, nil
}
