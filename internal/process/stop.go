package process

import (
	"errors"
	"fmt"
	"os/exec"
	"syscall"
	"time"

	"github.com/giantswarm/cacheserver/internal/fault"
)

// DefaultStopTimeout is the default time a worker gets to exit after SIGTERM
// before it is killed.
const DefaultStopTimeout = 10 * time.Second

// reapTimeout bounds the wait for a killed worker to be reaped.
const reapTimeout = 5 * time.Second

const (
	// ErrWorkerFailed is returned by Stop when the worker exited with a
	// non-zero status of its own rather than being terminated by Stop.
	ErrWorkerFailed = fault.Sentinel("worker exited with failure status")

	// ErrStopTimeout is returned by Stop when the worker could not be
	// reaped even after SIGKILL.
	ErrStopTimeout = fault.Sentinel("worker did not exit")
)

// Stop sends SIGTERM to the worker and waits up to timeout for it to exit.
// A worker still running after min(timeout, WorkerConfig.StopTimeout) is
// killed. A clean exit and death by SIGTERM or SIGKILL are success; a
// non-zero exit status reports ErrWorkerFailed. Safe to call on a worker
// that was never started or was already stopped.
func (w *Worker) Stop(timeout time.Duration) error {
	if w.cmd == nil || w.cmd.Process == nil {
		w.cmd = nil
		return nil
	}
	pid := w.cmd.Process.Pid
	err := w.terminate(timeout)
	if err != nil {
		w.log.Warn("worker stop failed", "worker", w.cfg.ID, "pid", pid, "error", err)
	}
	w.cmd = nil
	w.exited = nil
	return err
}

func (w *Worker) terminate(timeout time.Duration) error {
	select {
	case <-w.exited:
		w.log.Debug("worker already exited", "worker", w.cfg.ID)
		return w.exitResult()
	default:
	}

	// Signal fails only once the process is gone, which exited reports.
	_ = w.cmd.Process.Signal(syscall.SIGTERM)

	kill := time.NewTimer(w.killAfter(timeout))
	defer kill.Stop()
	var reap <-chan time.Time

	for {
		select {
		case <-w.exited:
			return w.exitResult()
		case <-kill.C:
			w.log.Warn("worker ignored SIGTERM; killing", "worker", w.cfg.ID)
			_ = w.cmd.Process.Kill()
			t := time.NewTimer(reapTimeout)
			defer t.Stop()
			reap = t.C
		case <-reap:
			return fmt.Errorf("%s: %w", w.name, ErrStopTimeout)
		}
	}
}

// killAfter is the SIGTERM grace period.
func (w *Worker) killAfter(timeout time.Duration) time.Duration {
	grace := w.cfg.StopTimeout
	if grace <= 0 {
		grace = DefaultStopTimeout
	}
	if timeout > 0 {
		grace = min(grace, timeout)
	}
	return grace
}

// exitResult classifies the wait status of an exited worker.
func (w *Worker) exitResult() error {
	return classifyExit(w.name, w.exitErr)
}

func classifyExit(name string, err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return fmt.Errorf("%s: %w", name, err)
	}
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok {
		return fmt.Errorf("%s: %w", name, err)
	}
	if status.Signaled() {
		switch status.Signal() {
		case syscall.SIGTERM, syscall.SIGKILL:
			return nil
		}
		return fmt.Errorf("%s: killed by %v: %w", name, status.Signal(), ErrWorkerFailed)
	}
	return fmt.Errorf("%s: exit status %d: %w", name, status.ExitStatus(), ErrWorkerFailed)
}
