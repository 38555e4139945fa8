package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"blog-tweeter/internal/pkg/config"

	"github.com/robfig/cron/v3"
)

// Environment keys read by LoadConfig.
const (
	EnvPollInterval = "POLL_INTERVAL"
	EnvCycleTimeout = "CYCLE_TIMEOUT"
	EnvRunOnStart   = "RUN_ON_START"
	EnvHealthPort   = "WORKER_HEALTH_PORT"
)

// Bounds for the poll interval.
const (
	MinPollInterval = time.Minute
	MaxPollInterval = 168 * time.Hour
)

// Config holds the scheduling parameters of the announce loop.
//
// Configuration sources:
//   - A config.Source (flags, environment, .env, config file) via LoadConfig
//   - Default values via DefaultConfig
//
// Every field has a default, so a bad value never prevents the bot from
// starting: LoadConfig logs a warning and keeps the default instead.
type Config struct {
	// Interval is the wait between the end of one cycle and the start of the next.
	// Range: 1m-168h
	// Default: 2h
	Interval time.Duration

	// CycleTimeout bounds a single cycle (poll, check, publish).
	// Default: 5m
	CycleTimeout time.Duration

	// RunOnStart runs the first cycle immediately instead of after one interval.
	// Default: true
	RunOnStart bool

	// HealthPort is the port of the health check server. 0 disables it.
	// Range: 0 or 1024-65535
	// Default: 9091
	HealthPort int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Interval:     2 * time.Hour,
		CycleTimeout: 5 * time.Minute,
		RunOnStart:   true,
		HealthPort:   9091,
	}
}

// Validate checks every field and returns all failures joined together.
func (c *Config) Validate() error {
	var errs []error

	if err := ValidateInterval(c.Interval); err != nil {
		errs = append(errs, fmt.Errorf("poll interval: %w", err))
	}

	if err := config.ValidatePositiveDuration(c.CycleTimeout); err != nil {
		errs = append(errs, fmt.Errorf("cycle timeout: %w", err))
	}

	if err := config.ValidatePort(c.HealthPort); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %w", errors.Join(errs...))
	}
	return nil
}

// ValidateInterval checks the range of a poll interval and that it survives
// cron's whole-second rounding unchanged.
func ValidateInterval(d time.Duration) error {
	if err := config.ValidateDuration(d, MinPollInterval, MaxPollInterval); err != nil {
		return err
	}
	if every := cron.Every(d); every.Delay != d {
		return fmt.Errorf("must be a whole number of seconds, got %v", d)
	}
	return nil
}

// LoadConfig reads the scheduling configuration from src.
//
// It uses a fail-open strategy: an unparsable or out-of-range value is
// replaced by its default, a warning is logged and the fallback is recorded
// in metrics. LoadConfig therefore always returns a usable Config.
//
// metrics may be nil.
func LoadConfig(src config.Source, logger *slog.Logger, metrics *WorkerMetrics) Config {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConfig()
	cfg := defaults
	fallbackActive := false

	record := func(field string, warnings []string) {
		fallbackActive = true
		for _, w := range warnings {
			logger.Warn("configuration fallback applied",
				slog.String("field", field),
				slog.String("warning", w))
		}
		if metrics != nil {
			metrics.RecordFallback(field)
		}
	}

	interval := config.LoadDuration(src, EnvPollInterval, defaults.Interval, ValidateInterval)
	cfg.Interval = interval.Value
	if interval.FallbackApplied {
		record(EnvPollInterval, interval.Warnings)
	}

	timeout := config.LoadDuration(src, EnvCycleTimeout, defaults.CycleTimeout, config.ValidatePositiveDuration)
	cfg.CycleTimeout = timeout.Value
	if timeout.FallbackApplied {
		record(EnvCycleTimeout, timeout.Warnings)
	}

	runOnStart := config.LoadBool(src, EnvRunOnStart, defaults.RunOnStart)
	cfg.RunOnStart = runOnStart.Value
	if runOnStart.FallbackApplied {
		record(EnvRunOnStart, runOnStart.Warnings)
	}

	port := config.LoadInt(src, EnvHealthPort, defaults.HealthPort, config.ValidatePort)
	cfg.HealthPort = port.Value
	if port.FallbackApplied {
		record(EnvHealthPort, port.Warnings)
	}

	if metrics != nil {
		metrics.SetFallbackActive(fallbackActive)
		metrics.RecordLoadTimestamp()
	}

	logger.Info("scheduler configuration loaded",
		slog.Duration("interval", cfg.Interval),
		slog.Duration("cycle_timeout", cfg.CycleTimeout),
		slog.Bool("run_on_start", cfg.RunOnStart),
		slog.Int("health_port", cfg.HealthPort),
		slog.Bool("fallback_active", fallbackActive))

	return cfg
}
