package cacheserver

import (
	"context"
	"time"
)

// ConfigSnapshot holds a copy of serverConfig fields for test assertions.
// Exported only via export_test.go so that the _test package can verify
// option closures actually mutate the config without accessing internals.
type ConfigSnapshot struct {
	Host              string
	Port              int
	CachePath         string
	CacheModule       string
	Workers           int
	MonitorParentPID  int
	WatchdogInterval  time.Duration
	WorkerLogDir      string
	WorkerStopTimeout time.Duration
	MetricsPort       int
	Version           string
	HasConsoleInput   bool
}

// ApplyOptionsForTesting creates a default serverConfig, applies the given
// options, and returns a ConfigSnapshot of the result.
func ApplyOptionsForTesting(opts ...Option) ConfigSnapshot {
	cfg := newServerConfig(opts...)
	return ConfigSnapshot{
		Host:              cfg.Host,
		Port:              cfg.Port,
		CachePath:         cfg.CachePath,
		CacheModule:       cfg.CacheModule,
		Workers:           cfg.Workers,
		MonitorParentPID:  cfg.MonitorParentPID,
		WatchdogInterval:  cfg.WatchdogInterval,
		WorkerLogDir:      cfg.WorkerLogDir,
		WorkerStopTimeout: cfg.WorkerStopTimeout,
		MetricsPort:       cfg.MetricsPort,
		Version:           cfg.Version,
		HasConsoleInput:   cfg.deps.Reader != nil,
	}
}

// RunWithEnvForTesting runs like Run but reads the role from env instead of
// the process environment.
func RunWithEnvForTesting(ctx context.Context, env map[string]string, opts ...Option) error {
	return run(ctx, newServerConfig(opts...), func(k string) string { return env[k] })
}
