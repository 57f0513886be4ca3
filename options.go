package cacheserver

import (
	"fmt"
	"io"
	"time"

	"github.com/giantswarm/cacheserver/internal/console"
)

// requirePositive panics if v <= 0 with a descriptive message.
func requirePositive[T int | time.Duration](name string, v T) {
	if v <= 0 {
		panic(fmt.Sprintf("cacheserver: %s must be greater than 0, got %v", name, v))
	}
}

// requireNonEmpty panics if s is empty with a descriptive message.
func requireNonEmpty(name, s string) {
	if s == "" {
		panic(fmt.Sprintf("cacheserver: %s must not be empty", name))
	}
}

// requirePort panics if p is not a valid TCP port. Zero selects an
// ephemeral port.
func requirePort(name string, p int) {
	if p < 0 || p > 65535 {
		panic(fmt.Sprintf("cacheserver: %s must be between 0 and 65535, got %d", name, p))
	}
}

// Option configures Run. Each With* function returns an Option that sets a
// specific field.
//
// Several With* functions panic on invalid input (out of range ports, empty
// paths, non-positive durations). Option values normally come from constants
// or already validated flags, so an invalid value is a programmer error.
type Option func(*serverConfig)

// WithPort sets the cache server listen port. Zero picks an ephemeral port,
// which is only useful in tests.
//
// Default: 8126.
//
// Panics if port is outside 0..65535.
func WithPort(port int) Option {
	requirePort("port", port)
	return func(c *serverConfig) {
		c.Port = port
	}
}

// WithHost sets the bind address. An empty host binds all interfaces.
func WithHost(host string) Option {
	return func(c *serverConfig) {
		c.Host = host
	}
}

// WithWorkers sets the requested number of worker processes. Negative values
// are treated as zero. Workers are only spawned when the cache module
// supports clustering.
//
// Default: DefaultWorkers().
func WithWorkers(n int) Option {
	return func(c *serverConfig) {
		c.Workers = n
	}
}

// WithCachePath sets the engine storage root.
//
// Default: "." followed by the cache module name.
//
// Panics if path is empty.
func WithCachePath(path string) Option {
	requireNonEmpty("cache path", path)
	return func(c *serverConfig) {
		c.CachePath = path
	}
}

// WithCacheModule selects the engine module by name ("sqlite" or "badger").
//
// Default: "sqlite".
//
// Panics if name is empty.
func WithCacheModule(name string) Option {
	requireNonEmpty("cache module", name)
	return func(c *serverConfig) {
		c.CacheModule = name
	}
}

// WithMonitorParentProcess makes the process exit with status 1 once pid
// no longer exists. Zero disables monitoring.
//
// Panics if pid < 0.
func WithMonitorParentProcess(pid int) Option {
	if pid < 0 {
		panic(fmt.Sprintf("cacheserver: monitored parent pid must not be negative, got %d", pid))
	}
	return func(c *serverConfig) {
		c.MonitorParentPID = pid
	}
}

// WithWatchdogInterval sets how often the monitored parent is probed.
//
// Default: 1s.
//
// Panics if d <= 0.
func WithWatchdogInterval(d time.Duration) Option {
	requirePositive("watchdog interval", d)
	return func(c *serverConfig) {
		c.WatchdogInterval = d
	}
}

// WithWorkerLogDir writes each worker's stdout and stderr to
// worker-<id>-stdout.log and worker-<id>-stderr.log under dir instead of
// the master's stdio.
//
// Panics if dir is empty.
func WithWorkerLogDir(dir string) Option {
	requireNonEmpty("worker log dir", dir)
	return func(c *serverConfig) {
		c.WorkerLogDir = dir
	}
}

// WithWorkerStopTimeout bounds how long the master waits for a worker to
// exit after SIGTERM.
//
// Default: 10s.
//
// Panics if d <= 0.
func WithWorkerStopTimeout(d time.Duration) Option {
	requirePositive("worker stop timeout", d)
	return func(c *serverConfig) {
		c.WorkerStopTimeout = d
	}
}

// WithMetricsPort serves Prometheus metrics on /metrics from the master.
// Zero disables the endpoint.
//
// Panics if port is outside 0..65535.
func WithMetricsPort(port int) Option {
	requirePort("metrics port", port)
	return func(c *serverConfig) {
		c.MetricsPort = port
	}
}

// WithVersion sets the version reported in the startup banner.
// Panics if version is empty.
func WithVersion(version string) Option {
	requireNonEmpty("version", version)
	return func(c *serverConfig) {
		c.Version = version
	}
}

// WithConsoleInput reads console commands line by line from r instead of
// the terminal.
// Panics if r is nil.
func WithConsoleInput(r io.Reader) Option {
	if r == nil {
		panic("cacheserver: console input must not be nil")
	}
	return func(c *serverConfig) {
		c.deps.Reader = console.NewLineReader(r)
	}
}
