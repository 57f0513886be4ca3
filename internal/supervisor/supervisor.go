package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/cacheserver/internal/engine"
	"github.com/giantswarm/cacheserver/internal/metrics"
	"github.com/giantswarm/cacheserver/internal/process"
)

// Worker is a spawned worker process.
type Worker interface {
	process.Stoppable
	ID() int
	PID() int
	// Exited is closed when the process exits. It may return nil after
	// Stop, so callers read it once right after spawning.
	Exited() <-chan struct{}
}

// Spawner creates worker processes.
type Spawner interface {
	Spawn(ctx context.Context, id int) (Worker, error)
}

// SpawnFunc adapts a function to Spawner.
type SpawnFunc func(ctx context.Context, id int) (Worker, error)

// Spawn calls f(ctx, id).
func (f SpawnFunc) Spawn(ctx context.Context, id int) (Worker, error) {
	return f(ctx, id)
}

// Registrar receives a handle for every spawned worker.
type Registrar interface {
	RegisterClusterWorker(h engine.WorkerHandle)
}

// Config describes a Supervisor.
type Config struct {
	Spawner   Spawner
	Registrar Registrar
	// StopTimeout bounds the stop of each worker. Zero uses
	// process.DefaultStopTimeout.
	StopTimeout time.Duration
	// Logger (optional, defaults to slog.Default())
	Logger *slog.Logger
	// Metrics (optional)
	Metrics *metrics.Metrics
}

type tracked struct {
	w      Worker
	pid    int
	exited <-chan struct{}
}

// Supervisor owns the worker processes of a master.
type Supervisor struct {
	spawner     Spawner
	registrar   Registrar
	stopTimeout time.Duration
	log         *slog.Logger
	metrics     *metrics.Metrics

	mu      sync.Mutex
	workers []tracked
	stopped bool
}

// New returns a supervisor. Spawner and Registrar are required.
func New(cfg Config) (*Supervisor, error) {
	var errs []error
	if cfg.Spawner == nil {
		errs = append(errs, errors.New("spawner must not be nil"))
	}
	if cfg.Registrar == nil {
		errs = append(errs, errors.New("registrar must not be nil"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid supervisor config: %w", err)
	}
	s := &Supervisor{
		spawner:     cfg.Spawner,
		registrar:   cfg.Registrar,
		stopTimeout: cfg.StopTimeout,
		log:         cfg.Logger,
		metrics:     cfg.Metrics,
	}
	if s.stopTimeout <= 0 {
		s.stopTimeout = process.DefaultStopTimeout
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s, nil
}

// SpawnWorkers starts workers 1..n and registers each with the engine. It
// does not wait for readiness and does not retry. The first failure stops
// the workers already started and is returned.
func (s *Supervisor) SpawnWorkers(ctx context.Context, n int) error {
	for id := 1; id <= n; id++ {
		w, err := s.spawner.Spawn(ctx, id)
		if err != nil {
			s.log.Error("failed to spawn worker", "worker", id, "error", err)
			if stopErr := s.Stop(); stopErr != nil {
				s.log.Warn("failed to stop workers after spawn failure", "error", stopErr)
			}
			return fmt.Errorf("spawn worker %d of %d: %w", id, n, err)
		}

		t := tracked{w: w, pid: w.PID(), exited: w.Exited()}
		s.mu.Lock()
		s.workers = append(s.workers, t)
		s.mu.Unlock()

		s.registrar.RegisterClusterWorker(engine.WorkerHandle{ID: id, PID: t.pid})
		s.metrics.WorkerSpawned()
		s.log.Debug("worker spawned", "worker", id, "pid", t.pid)
	}
	return nil
}

// Handles returns the handles of the spawned workers in spawn order.
func (s *Supervisor) Handles() []engine.WorkerHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	handles := make([]engine.WorkerHandle, 0, len(s.workers))
	for _, t := range s.workers {
		handles = append(handles, engine.WorkerHandle{ID: t.w.ID(), PID: t.pid})
	}
	return handles
}

// Wait blocks until every worker has exited or ctx is done, logging each
// exit. It returns nil when all workers exited and ctx.Err() otherwise.
func (s *Supervisor) Wait(ctx context.Context) error {
	s.mu.Lock()
	workers := append([]tracked(nil), s.workers...)
	s.mu.Unlock()

	var g errgroup.Group
	for _, t := range workers {
		g.Go(func() error {
			if t.exited == nil {
				return nil
			}
			select {
			case <-t.exited:
				s.metrics.WorkerExited()
				s.log.Info("worker exited", "worker", t.w.ID(), "pid", t.pid)
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}
	return g.Wait()
}

// Stop stops every worker in parallel and releases their resources. It is
// safe to call more than once.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	workers := s.workers
	s.mu.Unlock()

	var g errgroup.Group
	for _, t := range workers {
		g.Go(func() error {
			if err := process.StopAndClose(t.w, s.stopTimeout); err != nil {
				return fmt.Errorf("stop worker %d: %w", t.w.ID(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
