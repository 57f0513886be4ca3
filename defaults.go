package cacheserver

import (
	"runtime"

	"github.com/giantswarm/cacheserver/internal/process"
	"github.com/giantswarm/cacheserver/internal/watchdog"
)

// Default configuration values for Run.
const (
	// DefaultPort is the cache server listen port.
	DefaultPort = 8126

	// DefaultCacheModule is the engine module loaded when none is named.
	DefaultCacheModule = "sqlite"

	// DefaultWatchdogInterval is the probe cadence of the parent watchdog.
	DefaultWatchdogInterval = watchdog.DefaultInterval

	// DefaultWorkerStopTimeout bounds how long the master waits for each
	// worker to exit after SIGTERM before it is killed.
	DefaultWorkerStopTimeout = process.DefaultStopTimeout

	// DefaultVersion is reported in the startup banner when WithVersion is
	// not used.
	DefaultVersion = "dev"
)

// DefaultWorkers returns the requested worker count used when WithWorkers
// is not given: half the logical CPUs, rounded up.
func DefaultWorkers() int {
	return (runtime.NumCPU() + 1) / 2
}
