// Package worker provides the scheduling runtime around the pipeline: cron
// configuration, health endpoints, and job metrics.
package worker

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
)

// Config controls the worker runtime.
type Config struct {
	// CronSchedule is the five-field cron expression for pipeline cycles.
	CronSchedule string

	// Timezone is the IANA timezone name the schedule is evaluated in.
	Timezone string

	// CycleTimeout bounds one pipeline cycle.
	CycleTimeout time.Duration

	// HealthPort serves the liveness/readiness endpoints.
	HealthPort int

	// MetricsPort serves the Prometheus metrics endpoint.
	MetricsPort int
}

// DefaultConfig returns the default worker configuration: one cycle per day
// at 06:00 UTC.
func DefaultConfig() Config {
	return Config{
		CronSchedule: "0 6 * * *",
		Timezone:     "UTC",
		CycleTimeout: 30 * time.Minute,
		HealthPort:   9091,
		MetricsPort:  9090,
	}
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if _, err := cron.ParseStandard(c.CronSchedule); err != nil {
		return fmt.Errorf("cron schedule %q: %w", c.CronSchedule, err)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	if c.CycleTimeout <= 0 {
		return fmt.Errorf("cycle timeout must be positive, got %v", c.CycleTimeout)
	}
	if c.HealthPort < 1024 || c.HealthPort > 65535 {
		return fmt.Errorf("health port %d out of range 1024-65535", c.HealthPort)
	}
	if c.MetricsPort < 1024 || c.MetricsPort > 65535 {
		return fmt.Errorf("metrics port %d out of range 1024-65535", c.MetricsPort)
	}
	return nil
}

// LoadConfigFromEnv loads the worker configuration from environment
// variables, falling back to defaults on invalid values. Scheduling must not
// be blocked by a bad override, so this fails open with a warning.
//
// Environment variables:
//   - CRON_SCHEDULE (default "0 6 * * *")
//   - WORKER_TIMEZONE (default "UTC")
//   - CYCLE_TIMEOUT, duration string (default "30m")
//   - WORKER_HEALTH_PORT (default 9091)
//   - WORKER_METRICS_PORT (default 9090)
func LoadConfigFromEnv(logger *slog.Logger) Config {
	cfg := DefaultConfig()

	if v := os.Getenv("CRON_SCHEDULE"); v != "" {
		if _, err := cron.ParseStandard(v); err != nil {
			logger.Warn("invalid CRON_SCHEDULE, using default",
				slog.String("value", v),
				slog.String("default", cfg.CronSchedule),
				slog.Any("error", err))
		} else {
			cfg.CronSchedule = v
		}
	}

	if v := os.Getenv("WORKER_TIMEZONE"); v != "" {
		if _, err := time.LoadLocation(v); err != nil {
			logger.Warn("invalid WORKER_TIMEZONE, using default",
				slog.String("value", v),
				slog.String("default", cfg.Timezone),
				slog.Any("error", err))
		} else {
			cfg.Timezone = v
		}
	}

	if v := os.Getenv("CYCLE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			logger.Warn("invalid CYCLE_TIMEOUT, using default",
				slog.String("value", v),
				slog.Duration("default", cfg.CycleTimeout))
		} else {
			cfg.CycleTimeout = d
		}
	}

	cfg.HealthPort = loadEnvPort(logger, "WORKER_HEALTH_PORT", cfg.HealthPort)
	cfg.MetricsPort = loadEnvPort(logger, "WORKER_METRICS_PORT", cfg.MetricsPort)

	return cfg
}

func loadEnvPort(logger *slog.Logger, key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	port, err := strconv.Atoi(v)
	if err != nil || port < 1024 || port > 65535 {
		logger.Warn("invalid port, using default",
			slog.String("env_key", key),
			slog.String("value", v),
			slog.Int("default", fallback))
		return fallback
	}
	return port
}
