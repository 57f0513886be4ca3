package engine

import (
	"context"
	"log/slog"
	"net"
)

// Properties are the capabilities an engine module advertises before it is
// initialized.
type Properties struct {
	// Clustering reports whether several worker processes may serve the
	// same cache path concurrently.
	Clustering bool
}

// Options are passed to Engine.Init.
type Options struct {
	// CachePath is the engine storage root. It exists when Init is called.
	CachePath string
	// WorkerID is the worker identifier, or 0 in the master.
	WorkerID int
	// Logger (optional, defaults to slog.Default())
	Logger *slog.Logger
}

// WorkerHandle identifies a spawned worker to the engine. The engine may keep
// it for cross-worker bookkeeping but does not own the worker.
type WorkerHandle struct {
	ID  int
	PID int
}

// Engine is implemented by cache engine modules.
type Engine interface {
	// Properties returns the module capabilities. It must be callable
	// before Init.
	Properties() Properties
	// Init opens the engine storage.
	Init(ctx context.Context, opts Options) error
	// ServeConn serves one client connection until it is closed or ctx is
	// done. The caller closes conn.
	ServeConn(ctx context.Context, conn net.Conn)
	// Save persists the cache contents.
	Save(ctx context.Context) error
	// Reset discards the cache contents.
	Reset(ctx context.Context) error
	// Shutdown flushes and closes the engine. It is best effort.
	Shutdown(ctx context.Context)
	// RegisterClusterWorker records a spawned worker.
	RegisterClusterWorker(h WorkerHandle)
}
