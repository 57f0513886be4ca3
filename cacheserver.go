package cacheserver

import (
	"context"
	"fmt"
	"os"

	"github.com/giantswarm/cacheserver/internal/core"
	"github.com/giantswarm/cacheserver/internal/fault"
)

// Run starts a cache server process configured by opts and blocks until it
// shuts down. The role is taken from the environment: a process with
// CACHESERVER_WORKER_ID set is a worker, any other process is the master.
//
// Run returns nil after an orderly shutdown, either the console "q" command
// or cancellation of ctx. Any other outcome is a fatal error; pass it to
// ExitCode to obtain the process exit status. Parent monitoring and server
// faults after startup exit the process directly with status 1.
//
// Options panic on invalid values; see each With* function.
func Run(ctx context.Context, opts ...Option) error {
	cfg := newServerConfig(opts...)
	return run(ctx, cfg, os.Getenv)
}

func run(ctx context.Context, cfg serverConfig, getenv func(string) string) error {
	role, workerID, err := core.DetectRole(getenv)
	if err != nil {
		return fault.New(fault.KindConfig, err)
	}

	o, err := core.NewOrchestrator(cfg.Config, role, workerID, cfg.deps)
	if err != nil {
		return err
	}
	if err := o.Run(ctx); err != nil {
		return fmt.Errorf("cache server %s: %w", role, err)
	}
	return nil
}
