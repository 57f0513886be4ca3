package cacheserver

import (
	"github.com/giantswarm/cacheserver/internal/engine"
	"github.com/giantswarm/cacheserver/internal/fault"
	"github.com/giantswarm/cacheserver/internal/fileutil"
	"github.com/giantswarm/cacheserver/internal/watchdog"
)

// Sentinel errors for error inspection with errors.Is.
const (
	// ErrUnknownModule is returned by Run when the cache module name is not
	// registered.
	ErrUnknownModule = engine.ErrUnknownModule

	// ErrCachePathLocked is returned by Run when another master already
	// serves from the same cache path.
	ErrCachePathLocked = fileutil.ErrDirLocked

	// ErrParentDied is the cause of the exit triggered by parent monitoring.
	ErrParentDied = watchdog.ErrParentDied

	// ErrOpInFlight is returned for an admin operation issued while another
	// one is still running.
	ErrOpInFlight = engine.ErrOpInFlight
)

// Process exit statuses.
const (
	ExitOK      = fault.ExitOK
	ExitFailure = fault.ExitFailure
)

// ExitCode maps the error returned by Run to a process exit status: 0 for
// nil, 1 otherwise.
func ExitCode(err error) int {
	return fault.ExitCode(err)
}

// IsFatal reports whether err ends the process. Every error returned by
// Run is fatal; failed save and reset commands are only logged.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	kind, ok := fault.KindOf(err)
	return !ok || !kind.Recoverable()
}
