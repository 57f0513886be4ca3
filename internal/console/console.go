package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/giantswarm/cacheserver/internal/engine"
	"github.com/giantswarm/cacheserver/internal/fault"
	"github.com/giantswarm/cacheserver/internal/metrics"
)

// Commands understood by the console.
const (
	CmdQuit  = "q"
	CmdSave  = "s"
	CmdReset = "r"
)

// State is the console state.
type State int32

const (
	// StateIdle is the state before Run.
	StateIdle State = iota
	// StateAwaitingCommand is waiting for operator input.
	StateAwaitingCommand
	// StateExecuting is waiting for a save or reset to complete.
	StateExecuting
	// StateTerminating is shutting the engine and server down.
	StateTerminating
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAwaitingCommand:
		return "AwaitingCommand"
	case StateExecuting:
		return "Executing"
	case StateTerminating:
		return "Terminating"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Engine is the administrative surface of the engine adapter.
type Engine interface {
	Save(ctx context.Context) *engine.Result
	Reset(ctx context.Context) *engine.Result
	Shutdown(ctx context.Context) *engine.Result
}

// Server is the in-process server the console stops on exit.
type Server interface {
	Stop() error
}

// Config describes a Console.
type Config struct {
	Engine Engine
	Server Server
	Reader Reader
	// Logger (optional, defaults to slog.Default())
	Logger *slog.Logger
	// Metrics (optional)
	Metrics *metrics.Metrics
}

// Console is the operator command loop.
type Console struct {
	eng     Engine
	srv     Server
	reader  Reader
	log     *slog.Logger
	metrics *metrics.Metrics

	state atomic.Int32
}

// New returns an idle console.
func New(cfg Config) (*Console, error) {
	var errs []error
	if cfg.Engine == nil {
		errs = append(errs, errors.New("engine must not be nil"))
	}
	if cfg.Server == nil {
		errs = append(errs, errors.New("server must not be nil"))
	}
	if cfg.Reader == nil {
		errs = append(errs, errors.New("reader must not be nil"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid console config: %w", err)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Console{
		eng:     cfg.Engine,
		srv:     cfg.Server,
		reader:  cfg.Reader,
		log:     log,
		metrics: cfg.Metrics,
	}, nil
}

// State returns the current state.
func (c *Console) State() State {
	return State(c.state.Load())
}

func (c *Console) setState(s State) {
	c.state.Store(int32(s))
}

// Run reads and executes commands until quit. It returns nil after an
// orderly shutdown, which is also what cancellation of ctx or of the input
// leads to. A read error other than cancellation stops the server and is
// returned as a console input fault.
//
// Save and reset have no timeout: if the engine never completes one, Run
// blocks with it.
func (c *Console) Run(ctx context.Context) error {
	for {
		c.setState(StateAwaitingCommand)

		line, err := c.read(ctx)
		if err != nil {
			if errors.Is(err, ErrCanceled) || ctx.Err() != nil {
				return c.quit(ctx)
			}
			c.log.Error("failed to read console input", "error", err)
			c.stopServer()
			return fault.New(fault.KindConsoleInput, err)
		}

		switch cmd := strings.TrimSpace(line); cmd {
		case CmdQuit:
			c.metrics.ConsoleCommand("quit")
			return c.quit(ctx)
		case CmdSave:
			c.metrics.ConsoleCommand("save")
			c.execute(ctx, "Saving cache data ...", "Save finished.", c.eng.Save)
		case CmdReset:
			c.metrics.ConsoleCommand("reset")
			c.execute(ctx, "Resetting cache data ...", "Reset finished.", c.eng.Reset)
		default:
			c.metrics.ConsoleCommand("ignored")
			c.log.Debug("ignoring console input", "input", cmd)
		}
	}
}

// read waits for one command. Cancellation of ctx abandons the pending read;
// the reader goroutine stays blocked until input arrives or the process
// exits.
func (c *Console) read(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := c.reader.ReadCommand()
		ch <- result{line: line, err: err}
	}()

	select {
	case r := <-ch:
		return r.line, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// execute runs one administrative operation and waits for it. A failure is
// logged and the console carries on.
func (c *Console) execute(ctx context.Context, startMsg, doneMsg string, op func(context.Context) *engine.Result) {
	c.setState(StateExecuting)
	c.log.Info(startMsg)

	// Operations run to completion even if ctx is canceled meanwhile; the
	// pending cancellation is seen by the next read.
	if err := op(context.WithoutCancel(ctx)).Wait(); err != nil {
		c.log.Error("cache operation failed", "error", fault.New(fault.KindAdminOp, err))
		return
	}
	c.log.Info(doneMsg)
}

func (c *Console) quit(ctx context.Context) error {
	c.setState(StateTerminating)
	c.log.Info("Shutting down ...")

	if err := c.eng.Shutdown(context.WithoutCancel(ctx)).Wait(); err != nil {
		c.log.Warn("engine shutdown", "error", err)
	}
	c.stopServer()
	return nil
}

func (c *Console) stopServer() {
	if err := c.srv.Stop(); err != nil {
		c.log.Warn("failed to stop server", "error", err)
	}
}
