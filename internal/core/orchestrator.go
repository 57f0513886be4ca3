package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/cacheserver/internal/console"
	"github.com/giantswarm/cacheserver/internal/engine"
	"github.com/giantswarm/cacheserver/internal/fault"
	"github.com/giantswarm/cacheserver/internal/fileutil"
	"github.com/giantswarm/cacheserver/internal/metrics"
	"github.com/giantswarm/cacheserver/internal/netutil"
	"github.com/giantswarm/cacheserver/internal/process"
	"github.com/giantswarm/cacheserver/internal/server"
	"github.com/giantswarm/cacheserver/internal/supervisor"
	"github.com/giantswarm/cacheserver/internal/watchdog"
)

// Deps are the collaborators of an Orchestrator. Nil fields get production
// defaults.
type Deps struct {
	// Engine overrides the module named by Config.CacheModule.
	Engine engine.Engine
	// Engines resolves Config.CacheModule. Defaults to DefaultEngines().
	Engines engine.Registry
	// Spawner creates workers. Defaults to re-executing the current binary.
	Spawner supervisor.Spawner
	// Reader feeds the console. Defaults to stdin.
	Reader console.Reader
	// Prober checks the monitored parent. Defaults to signal 0.
	Prober watchdog.Prober
	// Exit terminates the process on watchdog and runtime server faults.
	// Defaults to os.Exit.
	Exit func(code int)
	// Logger defaults to Logger().
	Logger *slog.Logger
}

// Orchestrator sequences startup and shutdown of one cache server process.
type Orchestrator struct {
	cfg      Config
	role     Role
	workerID int
	deps     Deps
	log      *slog.Logger

	exitOnce sync.Once
}

// NewOrchestrator validates cfg and returns an orchestrator for the given
// role. workerID must be positive for RoleWorker and zero for RoleMaster.
func NewOrchestrator(cfg Config, role Role, workerID int, deps Deps) (*Orchestrator, error) {
	var errs []error
	if err := cfg.Validate(); err != nil {
		errs = append(errs, err)
	}
	switch {
	case role == RoleWorker && workerID <= 0:
		errs = append(errs, fmt.Errorf("worker id must be positive, got %d", workerID))
	case role == RoleMaster && workerID != 0:
		errs = append(errs, fmt.Errorf("master must not have a worker id, got %d", workerID))
	case role != RoleMaster && role != RoleWorker:
		errs = append(errs, fmt.Errorf("invalid role: %v", role))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fault.New(fault.KindConfig, fmt.Errorf("invalid configuration: %w", err))
	}

	if deps.Engines == nil {
		deps.Engines = DefaultEngines()
	}
	if deps.Exit == nil {
		deps.Exit = os.Exit
	}
	log := deps.Logger
	if log == nil {
		log = Logger()
	}
	if role == RoleWorker {
		log = log.With("worker", workerID)
	}

	return &Orchestrator{cfg: cfg, role: role, workerID: workerID, deps: deps, log: log}, nil
}

// Run starts the process in its role and blocks until it shuts down. It
// returns nil after an orderly shutdown and a *fault.Error otherwise.
// Watchdog and runtime server faults additionally call the exit function.
func (o *Orchestrator) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		reg *prometheus.Registry
		m   *metrics.Metrics
	)
	if o.role == RoleMaster && o.cfg.MetricsPort > 0 {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.New(reg)
	}

	if err := o.startWatchdog(ctx, m); err != nil {
		return fault.New(fault.KindConfig, err)
	}

	eng, err := o.resolveEngine()
	if err != nil {
		o.log.Error("failed to load cache module", "module", o.cfg.CacheModule, "error", err)
		return fault.New(fault.KindInit, err)
	}

	adapter := engine.NewAdapter(eng, o.log, m)
	if !adapter.ClusteringSupported() {
		o.log.Info(fmt.Sprintf("Clustering disabled, %s module does not support it.", o.cfg.CacheModule))
	}

	cachePath, unlock, err := o.prepareCachePath()
	if err != nil {
		o.log.Error("failed to prepare cache path", "path", o.cfg.ResolvedCachePath(), "error", err)
		return fault.New(fault.KindInit, err)
	}
	defer unlock()

	if err := adapter.Init(ctx, engine.Options{CachePath: cachePath, WorkerID: o.workerID, Logger: o.log}); err != nil {
		o.log.Error("failed to initialize cache engine", "error", err)
		return fault.New(fault.KindInit, err)
	}
	o.log.Log(ctx, LevelVerbose, "cache engine initialized", "module", o.cfg.CacheModule, "path", cachePath)

	if o.role == RoleWorker {
		return o.runWorker(ctx, adapter, m)
	}

	if reg == nil {
		return o.runMaster(ctx, adapter, nil)
	}

	l, err := netutil.Listen(ctx, netutil.ListenConfig{Host: o.cfg.Host, Port: o.cfg.MetricsPort})
	if err != nil {
		o.log.Error("failed to start metrics endpoint", "error", err)
		o.shutdownEngine(ctx, adapter)
		return fault.New(fault.KindServerStart, err)
	}
	metricsCtx, stopMetrics := context.WithCancel(ctx)
	var g errgroup.Group
	g.Go(func() error {
		return metrics.Serve(metricsCtx, l, reg, o.log)
	})

	runErr := o.runMaster(ctx, adapter, m)
	stopMetrics()
	if err := g.Wait(); err != nil {
		o.log.Warn("metrics endpoint", "error", err)
	}
	return runErr
}

func (o *Orchestrator) resolveEngine() (engine.Engine, error) {
	if o.deps.Engine != nil {
		return o.deps.Engine, nil
	}
	return o.deps.Engines.New(o.cfg.CacheModule)
}

// startWatchdog runs the parent watchdog in the background when configured.
func (o *Orchestrator) startWatchdog(ctx context.Context, m *metrics.Metrics) error {
	if o.cfg.MonitorParentPID <= 0 {
		return nil
	}
	wd, err := watchdog.New(watchdog.Config{
		PID:      o.cfg.MonitorParentPID,
		Interval: o.cfg.WatchdogInterval,
		Prober:   o.deps.Prober,
		Metrics:  m,
		Logger:   o.log,
	})
	if err != nil {
		return err
	}
	go func() {
		if err := wd.Run(ctx); errors.Is(err, watchdog.ErrParentDied) {
			o.exit(fault.New(fault.KindWatchdog, err))
		}
	}()
	return nil
}

// prepareCachePath resolves the storage root. The master creates and locks
// it; workers use the master's directory as is.
func (o *Orchestrator) prepareCachePath() (string, func(), error) {
	path, err := fileutil.PrepareDir(o.cfg.ResolvedCachePath())
	if err != nil {
		return "", nil, err
	}
	if o.role == RoleWorker {
		return path, func() {}, nil
	}
	lock, err := fileutil.LockDir(path, o.log)
	if err != nil {
		return "", nil, err
	}
	o.log.Log(context.Background(), LevelVerbose, "cache path locked", "lock", lock.Path())
	return path, lock.Unlock, nil
}

func (o *Orchestrator) newServer(m *metrics.Metrics) *server.Server {
	return server.New(server.Config{
		Host:      o.cfg.Host,
		Port:      o.cfg.Port,
		ReusePort: o.role == RoleWorker,
		Logger:    o.log,
		Metrics:   m,
	})
}

func (o *Orchestrator) runMaster(ctx context.Context, adapter *engine.Adapter, m *metrics.Metrics) error {
	o.log.Info("Cache Server version " + o.cfg.Version)

	topo := supervisor.DecideTopology(o.cfg.Workers, adapter.ClusteringSupported())
	if topo.SingleProcess() {
		return o.runSingle(ctx, adapter, m)
	}
	return o.runCluster(ctx, adapter, topo, m)
}

// runSingle serves in process and hands control to the console.
func (o *Orchestrator) runSingle(ctx context.Context, adapter *engine.Adapter, m *metrics.Metrics) error {
	srv := o.newServer(m)
	serverErr, err := adapter.Start(ctx, srv)
	if err != nil {
		o.log.Error("Unable to start Cache Server", "error", err)
		o.shutdownEngine(ctx, adapter)
		return fault.New(fault.KindServerStart, err)
	}
	o.log.Info(fmt.Sprintf("Cache Server ready on port %d", srv.Port()))

	reader := o.deps.Reader
	if reader == nil {
		reader = console.NewStdinReader()
	}
	c, err := console.New(console.Config{
		Engine:  adapter,
		Server:  srv,
		Reader:  reader,
		Logger:  o.log,
		Metrics: m,
	})
	if err != nil {
		_ = srv.Stop()
		return fault.New(fault.KindConfig, err)
	}

	consoleCtx, stopConsole := context.WithCancel(ctx)
	defer stopConsole()
	consoleErr := make(chan error, 1)
	go func() {
		consoleErr <- c.Run(consoleCtx)
	}()

	select {
	case err := <-consoleErr:
		return err
	case err := <-serverErr:
		o.log.Error("Unable to start Cache Server", "error", err)
		f := fault.New(fault.KindServerStart, err)
		o.exit(f)
		return f
	}
}

// runCluster spawns the workers and waits for them. The master itself never
// serves.
func (o *Orchestrator) runCluster(ctx context.Context, adapter *engine.Adapter, topo supervisor.Topology, m *metrics.Metrics) error {
	spawner := o.deps.Spawner
	if spawner == nil {
		es, err := process.NewExecSpawner(process.SpawnerConfig{
			LogDir:      o.cfg.WorkerLogDir,
			StopTimeout: o.cfg.WorkerStopTimeout,
			Logger:      o.log,
		})
		if err != nil {
			return fault.New(fault.KindWorkerSpawn, err)
		}
		spawner = supervisor.SpawnFunc(func(ctx context.Context, id int) (supervisor.Worker, error) {
			w, err := es.Spawn(ctx, id)
			if err != nil {
				return nil, err
			}
			return w, nil
		})
	}

	sup, err := supervisor.New(supervisor.Config{
		Spawner:     spawner,
		Registrar:   adapter,
		StopTimeout: o.cfg.WorkerStopTimeout,
		Logger:      o.log,
		Metrics:     m,
	})
	if err != nil {
		return fault.New(fault.KindConfig, err)
	}

	if err := sup.SpawnWorkers(ctx, topo.Workers); err != nil {
		o.log.Error("Unable to start Cache Server workers", "error", err)
		o.shutdownEngine(ctx, adapter)
		return fault.New(fault.KindWorkerSpawn, err)
	}
	o.log.Log(ctx, LevelVerbose, "workers spawned", "workers", topo.Workers)

	if err := sup.Wait(ctx); err != nil {
		o.log.Info("Shutting down ...")
	} else {
		o.log.Info("all workers exited")
	}
	if err := sup.Stop(); err != nil {
		o.log.Warn("failed to stop workers", "error", err)
	}
	o.shutdownEngine(ctx, adapter)
	return nil
}

// runWorker serves until ctx is done or the server fails.
func (o *Orchestrator) runWorker(ctx context.Context, adapter *engine.Adapter, m *metrics.Metrics) error {
	srv := o.newServer(m)
	serverErr, err := adapter.Start(ctx, srv)
	if err != nil {
		o.log.Error("Unable to start Cache Server", "error", err)
		o.shutdownEngine(ctx, adapter)
		return fault.New(fault.KindServerStart, err)
	}
	o.log.Info(fmt.Sprintf("Cache Server worker %d ready on port %d", o.workerID, srv.Port()))

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		o.log.Error("Unable to start Cache Server", "error", err)
		runErr = fault.New(fault.KindServerStart, err)
		o.exit(runErr)
	}

	if err := srv.Stop(); err != nil {
		o.log.Warn("failed to stop server", "error", err)
	}
	o.shutdownEngine(ctx, adapter)
	return runErr
}

// shutdownEngine flushes the engine. It runs even when ctx is canceled.
func (o *Orchestrator) shutdownEngine(ctx context.Context, adapter *engine.Adapter) {
	if err := adapter.Shutdown(context.WithoutCancel(ctx)).Wait(); err != nil {
		o.log.Warn("engine shutdown", "error", err)
	}
}

// exit terminates the process once with the exit code of err.
func (o *Orchestrator) exit(err error) {
	o.exitOnce.Do(func() {
		o.deps.Exit(fault.ExitCode(err))
	})
}
