// Package config holds runtime configuration for the transaction manager
// simulator.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for the simulator.
type Config struct {
	// SiteCount is the number of logical sites (spec default: 10).
	SiteCount int
	// VariableCount is the number of integer variables x1..xN (spec default: 20).
	VariableCount int
	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string
	// MetricsAddr, if non-empty, is the host:port the CLI serves /metrics on.
	MetricsAddr string
}

// Default returns a configuration with the universe sizes the spec fixes.
func Default() *Config {
	return &Config{
		SiteCount:     10,
		VariableCount: 20,
		LogLevel:      "info",
		MetricsAddr:   "",
	}
}

// LoadFromEnv loads configuration from environment variables, falling back
// to Default() for anything unset.
func LoadFromEnv() *Config {
	cfg := Default()

	if v := os.Getenv("TXSIM_SITE_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SiteCount = n
		}
	}
	if v := os.Getenv("TXSIM_VARIABLE_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.VariableCount = n
		}
	}
	if v := os.Getenv("TXSIM_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TXSIM_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}

	return cfg
}

// Validate checks that the configuration describes a usable universe.
func (c *Config) Validate() error {
	if c.SiteCount <= 0 {
		return fmt.Errorf("site count must be positive: %d", c.SiteCount)
	}
	if c.VariableCount <= 0 {
		return fmt.Errorf("variable count must be positive: %d", c.VariableCount)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}
	return nil
}

// String returns a formatted description of the configuration.
func (c *Config) String() string {
	return fmt.Sprintf(`Simulator Configuration:
  Sites:          %d
  Variables:      %d
  Log Level:      %s
  Metrics Addr:   %q`,
		c.SiteCount, c.VariableCount, c.LogLevel, c.MetricsAddr)
}
