package core

import (
	"errors"
	"fmt"
	"time"
)

// LogFormat selects the slog handler.
type LogFormat string

const (
	// LogFormatText uses slog.TextHandler.
	LogFormatText LogFormat = "text"
	// LogFormatJSON uses slog.JSONHandler.
	LogFormatJSON LogFormat = "json"
)

// IsValid reports whether f is a recognized LogFormat value.
func (f LogFormat) IsValid() bool {
	return f == LogFormatText || f == LogFormatJSON
}

// Config holds the orchestrator configuration.
//
// All fields are immutable after construction via NewOrchestrator.
type Config struct {
	// Host is the bind address of the cache server. Empty binds all
	// interfaces.
	Host string
	// Port is the cache server listen port.
	Port int
	// CachePath is the engine storage root. Empty resolves to "."+CacheModule.
	CachePath string
	// CacheModule names the engine module.
	CacheModule string
	// Workers is the requested number of worker processes. Negative values
	// are clamped to zero by the topology decision.
	Workers int
	// MonitorParentPID is the process to watch. Zero disables the watchdog.
	MonitorParentPID int
	// WatchdogInterval is the probe cadence of the watchdog.
	WatchdogInterval time.Duration
	// WorkerLogDir receives per-worker stdout/stderr files. Empty makes
	// workers inherit the master's stdio.
	WorkerLogDir string
	// WorkerStopTimeout bounds the stop of each worker.
	WorkerStopTimeout time.Duration
	// MetricsPort serves Prometheus metrics from the master. Zero disables it.
	MetricsPort int
	// Version is reported in the startup banner.
	Version string
}

// ResolvedCachePath returns CachePath, or the module default when empty.
func (c Config) ResolvedCachePath() string {
	if c.CachePath != "" {
		return c.CachePath
	}
	return "." + c.CacheModule
}

// Validate checks all Config invariants and returns an error describing
// every violation found. It uses errors.Join to report multiple issues at
// once.
func (c Config) Validate() error {
	var errs []error

	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be between 0 and 65535, got %d", c.Port))
	}
	if c.CacheModule == "" {
		errs = append(errs, errors.New("cache module must not be empty"))
	}
	if c.MonitorParentPID < 0 {
		errs = append(errs, fmt.Errorf("monitored parent pid must not be negative, got %d", c.MonitorParentPID))
	}
	if c.WatchdogInterval <= 0 {
		errs = append(errs, fmt.Errorf("watchdog interval must be greater than 0, got %s", c.WatchdogInterval))
	}
	if c.WorkerStopTimeout <= 0 {
		errs = append(errs, fmt.Errorf("worker stop timeout must be greater than 0, got %s", c.WorkerStopTimeout))
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		errs = append(errs, fmt.Errorf("metrics port must be between 0 and 65535, got %d", c.MetricsPort))
	}
	if c.MetricsPort != 0 && c.MetricsPort == c.Port {
		errs = append(errs, fmt.Errorf("metrics port must differ from the cache server port %d", c.Port))
	}

	return errors.Join(errs...)
}
