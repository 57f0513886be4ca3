package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/giantswarm/cacheserver/internal/fault"
	"github.com/giantswarm/cacheserver/internal/metrics"
	"github.com/giantswarm/cacheserver/internal/server"
)

const (
	// ErrAlreadyInitialized is returned by a second Init call.
	ErrAlreadyInitialized = fault.Sentinel("engine already initialized")
	// ErrNotInitialized is returned by operations that require Init.
	ErrNotInitialized = fault.Sentinel("engine not initialized")
	// ErrOpInFlight is carried by a Result when an administrative operation
	// was issued while another one was still outstanding.
	ErrOpInFlight = fault.Sentinel("administrative operation already in flight")
	// ErrClosed is returned by engine storage operations before Init or
	// after Shutdown.
	ErrClosed = fault.Sentinel("engine closed")
)

// Admin operation names, used in logs and metrics.
const (
	OpSave     = "save"
	OpReset    = "reset"
	OpShutdown = "shutdown"
)

// Adapter drives an Engine on behalf of the supervisor.
//
// At most one of Save, Reset and Shutdown is outstanding at a time. The
// console serializes them; the adapter refuses an overlapping call with
// ErrOpInFlight instead of passing it to the engine.
type Adapter struct {
	eng     Engine
	log     *slog.Logger
	metrics *metrics.Metrics

	initialized atomic.Bool
	inFlight    atomic.Bool
}

// NewAdapter wraps eng. logger and m may be nil.
func NewAdapter(eng Engine, logger *slog.Logger, m *metrics.Metrics) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{eng: eng, log: logger, metrics: m}
}

// ClusteringSupported reports the engine's clustering capability.
func (a *Adapter) ClusteringSupported() bool {
	return a.eng.Properties().Clustering
}

// Init initializes the engine. It may be called once; a failure is fatal to
// the caller.
func (a *Adapter) Init(ctx context.Context, opts Options) error {
	if !a.initialized.CompareAndSwap(false, true) {
		return ErrAlreadyInitialized
	}
	if opts.Logger == nil {
		opts.Logger = a.log
	}
	if err := a.eng.Init(ctx, opts); err != nil {
		return fmt.Errorf("init engine: %w", err)
	}
	return nil
}

// Start binds srv and dispatches its connections to the engine. It returns
// once the server is listening. The channel delivers at most one
// unrecoverable server fault.
func (a *Adapter) Start(ctx context.Context, srv *server.Server) (<-chan error, error) {
	if !a.initialized.Load() {
		return nil, ErrNotInitialized
	}
	errCh, err := srv.Start(ctx, a.eng.ServeConn)
	if err != nil {
		return nil, fmt.Errorf("start server: %w", err)
	}
	return errCh, nil
}

// RegisterClusterWorker passes h to the engine.
func (a *Adapter) RegisterClusterWorker(h WorkerHandle) {
	a.eng.RegisterClusterWorker(h)
}

// Save asks the engine to persist its data.
func (a *Adapter) Save(ctx context.Context) *Result {
	return a.admin(ctx, OpSave, a.eng.Save)
}

// Reset asks the engine to discard its data.
func (a *Adapter) Reset(ctx context.Context) *Result {
	return a.admin(ctx, OpReset, a.eng.Reset)
}

// Shutdown flushes and closes the engine. Its Result never carries an engine
// error; it carries ErrOpInFlight or ErrNotInitialized only.
func (a *Adapter) Shutdown(ctx context.Context) *Result {
	return a.admin(ctx, OpShutdown, func(ctx context.Context) error {
		a.eng.Shutdown(ctx)
		return nil
	})
}

func (a *Adapter) admin(ctx context.Context, op string, fn func(context.Context) error) *Result {
	if !a.initialized.Load() {
		return Completed(ErrNotInitialized)
	}
	if !a.inFlight.CompareAndSwap(false, true) {
		a.metrics.AdminOpRejected(op)
		return Completed(fmt.Errorf("%s: %w", op, ErrOpInFlight))
	}

	a.log.Debug("engine operation started", "op", op)
	return Go(func() error {
		// Cleared before the Result completes so the next call issued by
		// a waiter is accepted.
		defer a.inFlight.Store(false)

		start := time.Now()
		err := fn(ctx)
		a.metrics.ObserveAdminOp(op, err, time.Since(start))
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	})
}
