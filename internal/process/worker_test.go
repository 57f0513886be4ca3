package process

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"
)

func TestClassifyExit(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err        func(testing.TB) error
		wantErr    bool
		wantFailed bool
	}{
		"clean exit": {
			err: func(testing.TB) error { return nil },
		},
		"SIGTERM is expected": {
			err: func(tb testing.TB) error { return makeSignalExitError(tb, syscall.SIGTERM) },
		},
		"SIGKILL is expected": {
			err: func(tb testing.TB) error { return makeSignalExitError(tb, syscall.SIGKILL) },
		},
		"other signal is a worker failure": {
			err:        func(tb testing.TB) error { return makeSignalExitError(tb, syscall.SIGINT) },
			wantErr:    true,
			wantFailed: true,
		},
		"non-zero status is a worker failure": {
			err:        func(tb testing.TB) error { return makeStatusExitError(tb, 3) },
			wantErr:    true,
			wantFailed: true,
		},
		"wait error is not a worker failure": {
			err:     func(testing.TB) error { return errors.New("wait: no child processes") },
			wantErr: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := classifyExit("worker-1", tc.err(t))

			if tc.wantErr != (got != nil) {
				t.Fatalf("classifyExit() = %v, wantErr %v", got, tc.wantErr)
			}
			if errors.Is(got, ErrWorkerFailed) != tc.wantFailed {
				t.Errorf("errors.Is(%v, ErrWorkerFailed) = %v, want %v", got, !tc.wantFailed, tc.wantFailed)
			}
		})
	}
}

func TestClassifyExit_ReportsStatusAndName(t *testing.T) {
	t.Parallel()

	err := classifyExit("worker-2", makeStatusExitError(t, 3))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if got, want := err.Error(), "worker-2: exit status 3: worker exited with failure status"; got != want {
		t.Errorf("error = %q, want %q", got, want)
	}
}

func TestWorker_StopAfterOwnFailure(t *testing.T) {
	t.Parallel()

	w, err := StartWorker(WorkerConfig{ID: 4, Path: lookPath(t, "sh"), Args: []string{"-c", "exit 7"}})
	if err != nil {
		t.Fatalf("StartWorker() error: %v", err)
	}
	defer w.Close()

	select {
	case <-w.Exited():
	case <-time.After(10 * time.Second):
		t.Fatal("worker did not exit")
	}

	err = w.Stop(time.Second)
	if !errors.Is(err, ErrWorkerFailed) {
		t.Fatalf("Stop() = %v, want %v", err, ErrWorkerFailed)
	}
	if !strings.Contains(err.Error(), "exit status 7") {
		t.Errorf("Stop() = %q, want it to name exit status 7", err)
	}
}

func TestWorker_StopKillsAfterGracePeriod(t *testing.T) {
	t.Parallel()

	// The shell ignores SIGTERM, so only SIGKILL ends it.
	w, err := StartWorker(WorkerConfig{
		ID:          5,
		Path:        lookPath(t, "sh"),
		Args:        []string{"-c", "trap '' TERM; while :; do sleep 0.05; done"},
		StopTimeout: 200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("StartWorker() error: %v", err)
	}
	defer w.Close()

	// Give the shell time to install the trap.
	time.Sleep(200 * time.Millisecond)

	start := time.Now()
	if err := w.Stop(30 * time.Second); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("Stop() took %v, want the %v grace period to trigger SIGKILL", elapsed, 200*time.Millisecond)
	}
}

func TestWorker_KillAfter(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		stopTimeout time.Duration
		timeout     time.Duration
		want        time.Duration
	}{
		"configured grace": {
			stopTimeout: 2 * time.Second,
			timeout:     5 * time.Second,
			want:        2 * time.Second,
		},
		"capped at timeout": {
			stopTimeout: 5 * time.Second,
			timeout:     time.Second,
			want:        time.Second,
		},
		"zero uses default": {
			timeout: time.Minute,
			want:    DefaultStopTimeout,
		},
		"zero timeout uses grace": {
			stopTimeout: 3 * time.Second,
			want:        3 * time.Second,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			w := &Worker{cfg: WorkerConfig{StopTimeout: tc.stopTimeout}}
			if got := w.killAfter(tc.timeout); got != tc.want {
				t.Errorf("killAfter(%v) = %v, want %v", tc.timeout, got, tc.want)
			}
		})
	}
}

func TestStartWorker_InvalidConfig(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		cfg          WorkerConfig
		wantContains string
	}{
		"zero id": {
			cfg:          WorkerConfig{Path: "/bin/true"},
			wantContains: "worker id must be positive",
		},
		"empty path": {
			cfg:          WorkerConfig{ID: 1},
			wantContains: "executable path must not be empty",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := StartWorker(tc.cfg)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantContains) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tc.wantContains)
			}
		})
	}
}

func TestWorker_StopRunning(t *testing.T) {
	t.Parallel()

	w, err := StartWorker(WorkerConfig{ID: 1, Path: lookPath(t, "sleep"), Args: []string{"60"}})
	if err != nil {
		t.Fatalf("StartWorker() error: %v", err)
	}
	defer w.Close()

	if w.PID() == 0 {
		t.Fatal("expected non-zero pid for running worker")
	}
	exited := w.Exited()
	if exited == nil {
		t.Fatal("Exited() should be non-nil for running worker")
	}

	if err := w.Stop(5 * time.Second); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	select {
	case <-exited:
	default:
		t.Error("exited channel should be closed after Stop")
	}
	if w.PID() != 0 {
		t.Error("PID() should be 0 after Stop")
	}
	if w.Exited() != nil {
		t.Error("Exited() should be nil after Stop")
	}
}

func TestWorker_EnvAndLogFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w, err := StartWorker(WorkerConfig{
		ID:     3,
		Path:   lookPath(t, "sh"),
		Args:   []string{"-c", "echo $" + WorkerIDEnv},
		LogDir: dir,
	})
	if err != nil {
		t.Fatalf("StartWorker() error: %v", err)
	}

	select {
	case <-w.Exited():
	case <-time.After(10 * time.Second):
		t.Fatal("worker did not exit")
	}
	if err := w.ExitErr(); err != nil {
		t.Fatalf("worker exit error: %v", err)
	}
	w.Close()

	out, err := os.ReadFile(filepath.Join(dir, "worker-3-stdout.log"))
	if err != nil {
		t.Fatalf("read stdout log: %v", err)
	}
	if got := strings.TrimSpace(string(out)); got != "3" {
		t.Errorf("worker saw %s=%q, want %q", WorkerIDEnv, got, "3")
	}
}

func TestWorker_StopWhenNotStarted(t *testing.T) {
	t.Parallel()

	w := &Worker{}
	if err := w.Stop(time.Second); err != nil {
		t.Fatalf("Stop on unstarted worker should return nil, got %v", err)
	}
	// Close on an unstarted worker should not panic.
	w.Close()
}

func TestLogFiles_Paths(t *testing.T) {
	t.Parallel()

	lf := LogFiles{dir: "/var/log/cacheserver", stdoutName: "worker-1-stdout.log", stderrName: "worker-1-stderr.log"}
	if got, want := lf.StdoutPath(), "/var/log/cacheserver/worker-1-stdout.log"; got != want {
		t.Errorf("StdoutPath() = %q, want %q", got, want)
	}
	if got, want := lf.StderrPath(), "/var/log/cacheserver/worker-1-stderr.log"; got != want {
		t.Errorf("StderrPath() = %q, want %q", got, want)
	}
}

func TestLogFiles_CloseNilHandles(t *testing.T) {
	t.Parallel()

	// Close with nil file handles should not panic.
	lf := LogFiles{}
	lf.Close()
}

func TestStopAndClose(t *testing.T) {
	t.Parallel()

	t.Run("nil stoppable returns nil", func(t *testing.T) {
		t.Parallel()
		if err := StopAndClose(nil, time.Second); err != nil {
			t.Fatalf("expected nil, got %v", err)
		}
	})

	t.Run("calls stop then close", func(t *testing.T) {
		t.Parallel()
		f := &fakeStoppable{}
		if err := StopAndClose(f, 5*time.Second); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !f.stopped {
			t.Error("Stop should have been called")
		}
		if !f.closed {
			t.Error("Close should have been called")
		}
		if f.stopTimeout != 5*time.Second {
			t.Errorf("Stop timeout = %v, want %v", f.stopTimeout, 5*time.Second)
		}
	})

	t.Run("close runs on stop error", func(t *testing.T) {
		t.Parallel()
		f := &fakeStoppable{stopErr: errors.New("stop failed")}
		err := StopAndClose(f, time.Second)
		if err == nil || err.Error() != "stop failed" {
			t.Fatalf("error = %v, want %q", err, "stop failed")
		}
		if !f.closed {
			t.Error("Close should be called even when Stop fails")
		}
	})
}

func lookPath(tb testing.TB, name string) string {
	tb.Helper()
	p, err := exec.LookPath(name)
	if err != nil {
		tb.Skipf("%s not available: %v", name, err)
	}
	return p
}

// fakeStoppable is a test double for the Stoppable interface.
type fakeStoppable struct {
	stopped     bool
	closed      bool
	stopErr     error
	stopTimeout time.Duration
}

func (f *fakeStoppable) Stop(timeout time.Duration) error {
	f.stopped = true
	f.stopTimeout = timeout
	return f.stopErr
}

func (f *fakeStoppable) Close() {
	f.closed = true
}

// makeSignalExitError creates an *exec.ExitError with the given signal.
// It uses a real process to generate an authentic WaitStatus.
// Calls t.Fatalf if the process cannot be started, signaled, or does not
// produce an ExitError, since all conditions indicate a broken test environment.
func makeSignalExitError(tb testing.TB, sig syscall.Signal) *exec.ExitError {
	tb.Helper()

	cmd := exec.Command("sleep", "60")
	if err := cmd.Start(); err != nil {
		tb.Fatalf("test setup: start sleep: %v", err)
	}

	if err := cmd.Process.Signal(sig); err != nil {
		// Kill the process to avoid leaking it, then fail.
		_ = cmd.Process.Kill() // best-effort cleanup
		tb.Fatalf("test setup: signal process with %v: %v", sig, err)
	}

	err := cmd.Wait()

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		tb.Fatalf("test setup: expected *exec.ExitError from signaled process, got %v", err)
	}

	return exitErr
}

// makeStatusExitError creates an *exec.ExitError for a process that exited
// with code on its own.
func makeStatusExitError(tb testing.TB, code int) *exec.ExitError {
	tb.Helper()

	err := exec.Command("sh", "-c", "exit "+strconv.Itoa(code)).Run()

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		tb.Fatalf("test setup: expected *exec.ExitError from sh exit %d, got %v", code, err)
	}
	return exitErr
}
