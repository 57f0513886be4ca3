package process

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/giantswarm/cacheserver/internal/fault"
)

// WorkerIDEnv is the environment variable carrying the worker identifier
// of a re-executed worker process. Its absence marks the master.
const WorkerIDEnv = "CACHESERVER_WORKER_ID"

// ErrAlreadyStarted is returned when Start is called on a running worker.
const ErrAlreadyStarted = fault.Sentinel("worker already started")

// ErrEmptyPath is returned when a worker has no executable path.
const ErrEmptyPath = fault.Sentinel("executable path must not be empty")

// WorkerConfig describes a worker process.
type WorkerConfig struct {
	// ID is the 1-based worker identifier.
	ID int
	// Path is the executable to run, normally the current binary.
	Path string
	// Args are the arguments, excluding the program name.
	Args []string
	// Env is the base environment. WorkerIDEnv is appended.
	Env []string
	// LogDir, when set, receives worker-<id>-stdout.log and
	// worker-<id>-stderr.log. Otherwise the worker inherits stdout/stderr.
	LogDir string
	// StopTimeout is the grace period between SIGTERM and SIGKILL, also
	// used by Close when it has to stop a running worker. Zero uses
	// DefaultStopTimeout.
	StopTimeout time.Duration
	// Logger (optional, defaults to slog.Default())
	Logger *slog.Logger
}

func (c WorkerConfig) validate() error {
	var errs []error
	if c.ID <= 0 {
		errs = append(errs, fmt.Errorf("worker id must be positive, got %d", c.ID))
	}
	if c.Path == "" {
		errs = append(errs, ErrEmptyPath)
	}
	return errors.Join(errs...)
}

// Worker is a running worker process.
//
// Worker is not safe for concurrent use except for the read-only accessors
// (ID, PID, Exited, ExitErr). The supervisor owns each Worker and
// serializes Stop and Close.
type Worker struct {
	cfg      WorkerConfig
	name     string
	log      *slog.Logger
	cmd      *exec.Cmd
	exited   <-chan struct{} // closed when the process exits
	exitErr  error           // written before exited is closed
	logFiles LogFiles
}

// StartWorker launches a worker process. It returns as soon as the process
// has been created; it does not wait for the worker to become ready.
func StartWorker(cfg WorkerConfig) (*Worker, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid worker config: %w", err)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	w := &Worker{
		cfg:  cfg,
		name: "worker-" + strconv.Itoa(cfg.ID),
		log:  log,
	}
	if err := w.start(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Worker) start() error {
	if w.cmd != nil {
		return ErrAlreadyStarted
	}

	cmd := exec.Command(w.cfg.Path, w.cfg.Args...)
	cmd.Env = append(append([]string(nil), w.cfg.Env...), WorkerIDEnv+"="+strconv.Itoa(w.cfg.ID))
	configureSysProcAttr(cmd)

	if w.cfg.LogDir != "" {
		logFiles, err := NewLogFiles(w.cfg.LogDir, w.name)
		if err != nil {
			return fmt.Errorf("create %s logs: %w", w.name, err)
		}
		w.logFiles = logFiles
		cmd.Stdout = logFiles.stdoutFile
		cmd.Stderr = logFiles.stderrFile
	} else {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		w.logFiles.Close()
		return fmt.Errorf("start %s process: %w", w.name, err)
	}
	w.cmd = cmd

	// cmd.Wait must be called exactly once per started process; exited is
	// a broadcast readable by any goroutine.
	exited := make(chan struct{})
	go func() {
		w.exitErr = cmd.Wait()
		close(exited)
	}()
	w.exited = exited

	w.log.Debug("worker started", "worker", w.cfg.ID, "pid", cmd.Process.Pid)
	return nil
}

// ID returns the worker identifier.
func (w *Worker) ID() int {
	return w.cfg.ID
}

// PID returns the OS process id, or 0 if the worker is not running.
func (w *Worker) PID() int {
	if w.cmd == nil || w.cmd.Process == nil {
		return 0
	}
	return w.cmd.Process.Pid
}

// Exited returns a channel that is closed when the process exits. Returns
// nil once the worker has been stopped.
func (w *Worker) Exited() <-chan struct{} {
	return w.exited
}

// ExitErr returns the cmd.Wait result. Only meaningful after Exited is closed.
func (w *Worker) ExitErr() error {
	return w.exitErr
}

// Close releases log file handles. A worker that is still running is
// stopped first using the configured stop timeout.
func (w *Worker) Close() {
	if w.cmd != nil {
		w.log.Warn("worker closed without Stop; stopping automatically", "worker", w.cfg.ID)
		timeout := w.cfg.StopTimeout
		if timeout <= 0 {
			timeout = DefaultStopTimeout
		}
		if err := w.Stop(timeout); err != nil {
			w.log.Warn("auto-stop during Close failed", "worker", w.cfg.ID, "error", err)
		}
	}
	w.logFiles.Close()
}
