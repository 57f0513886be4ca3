//go:build integration

// Package testutil provides shared helpers for integration test packages.
//
// Integration tests run real cache server processes by re-executing the
// test binary. RunTestMain turns the binary into a server when ServeEnv is
// set, so the master can in turn re-execute it as its workers.
package testutil

import (
	"bufio"
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/giantswarm/cacheserver"
)

// Environment variables read by a re-executed test binary.
const (
	ServeEnv      = "CACHESERVER_E2E_SERVE"
	portEnv       = "CACHESERVER_E2E_PORT"
	workersEnv    = "CACHESERVER_E2E_WORKERS"
	cachePathEnv  = "CACHESERVER_E2E_CACHE_PATH"
	moduleEnv     = "CACHESERVER_E2E_MODULE"
	monitorPIDEnv = "CACHESERVER_E2E_MONITOR_PID"
	intervalEnv   = "CACHESERVER_E2E_WATCHDOG_INTERVAL"
	logDirEnv     = "CACHESERVER_E2E_WORKER_LOG_DIR"
)

// SetupTestLogging configures slog based on the CACHESERVER_LOG_LEVEL
// environment variable. This only affects test runs.
func SetupTestLogging() {
	levelStr := os.Getenv("CACHESERVER_LOG_LEVEL")
	if levelStr == "" {
		levelStr = "INFO"
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))

	cacheserver.SetLogger(slog.Default().With("component", "cacheserver"))
}

// RunTestMain either serves, when the binary was started by StartServer or
// by a master spawning its workers, or runs the tests. It calls os.Exit and
// never returns.
func RunTestMain(m *testing.M) {
	flag.Parse()
	SetupTestLogging()
	if os.Getenv(ServeEnv) != "" {
		os.Exit(serve())
	}
	os.Exit(m.Run())
}

func serve() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []cacheserver.Option{
		cacheserver.WithHost("127.0.0.1"),
		cacheserver.WithPort(envInt(portEnv)),
		cacheserver.WithWorkers(envInt(workersEnv)),
		cacheserver.WithCachePath(os.Getenv(cachePathEnv)),
		cacheserver.WithCacheModule(os.Getenv(moduleEnv)),
		cacheserver.WithMonitorParentProcess(envInt(monitorPIDEnv)),
		cacheserver.WithWorkerStopTimeout(5 * time.Second),
		cacheserver.WithVersion("e2e"),
	}
	if v := os.Getenv(intervalEnv); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid %s: %v\n", intervalEnv, err)
			return 1
		}
		opts = append(opts, cacheserver.WithWatchdogInterval(d))
	}
	if dir := os.Getenv(logDirEnv); dir != "" {
		opts = append(opts, cacheserver.WithWorkerLogDir(dir))
	}

	err := cacheserver.Run(ctx, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cache server: %v\n", err)
	}
	return cacheserver.ExitCode(err)
}

func envInt(key string) int {
	n, _ := strconv.Atoi(os.Getenv(key))
	return n
}

// ServerSpec describes a server process started by StartServer.
type ServerSpec struct {
	Port             int
	Workers          int
	CachePath        string
	Module           string
	MonitorPID       int
	WatchdogInterval time.Duration
	WorkerLogDir     string
}

func (s ServerSpec) env() []string {
	module := s.Module
	if module == "" {
		module = cacheserver.DefaultCacheModule
	}
	env := []string{
		ServeEnv + "=1",
		portEnv + "=" + strconv.Itoa(s.Port),
		workersEnv + "=" + strconv.Itoa(s.Workers),
		cachePathEnv + "=" + s.CachePath,
		moduleEnv + "=" + module,
		monitorPIDEnv + "=" + strconv.Itoa(s.MonitorPID),
	}
	if s.WatchdogInterval > 0 {
		env = append(env, intervalEnv+"="+s.WatchdogInterval.String())
	}
	if s.WorkerLogDir != "" {
		env = append(env, logDirEnv+"="+s.WorkerLogDir)
	}
	return env
}

// SyncBuffer is a bytes.Buffer safe for one writer and concurrent readers.
type SyncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *SyncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *SyncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// ServerProcess is a running master started by StartServer.
type ServerProcess struct {
	Cmd    *exec.Cmd
	Output *SyncBuffer
	stdin  io.WriteCloser
	done   chan error
}

// StartServer re-executes the test binary as a cache server master. Its
// stdin stays open until CloseStdin, so a console does not see end of
// input. The process is killed at test cleanup if still running.
func StartServer(t *testing.T, spec ServerSpec) *ServerProcess {
	t.Helper()

	cmd := exec.Command(os.Args[0], "-test.run=^$") //nolint:gosec // G204: re-executes the running test binary
	cmd.Env = append(os.Environ(), spec.env()...)
	out := &SyncBuffer{}
	cmd.Stdout = out
	cmd.Stderr = out
	stdin, err := cmd.StdinPipe()
	if err != nil {
		t.Fatalf("stdin pipe: %v", err)
	}
	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}

	p := &ServerProcess{Cmd: cmd, Output: out, stdin: stdin, done: make(chan error, 1)}
	go func() {
		p.done <- cmd.Wait()
	}()
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		select {
		case <-p.done:
		case <-time.After(10 * time.Second):
		}
		if t.Failed() {
			t.Logf("server output:\n%s", out.String())
		}
	})
	return p
}

// Send writes a console command line to the server's stdin.
func (p *ServerProcess) Send(t *testing.T, line string) {
	t.Helper()
	if _, err := io.WriteString(p.stdin, line+"\n"); err != nil {
		t.Fatalf("send %q: %v", line, err)
	}
}

// CloseStdin closes the server's stdin.
func (p *ServerProcess) CloseStdin() {
	_ = p.stdin.Close()
}

// Wait waits for the server to exit and returns its exit status.
func (p *ServerProcess) Wait(t *testing.T, timeout time.Duration) int {
	t.Helper()
	select {
	case err := <-p.done:
		p.done <- err
		if err == nil {
			return 0
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode()
		}
		t.Fatalf("wait server: %v", err)
	case <-time.After(timeout):
		t.Fatalf("server did not exit within %s\n%s", timeout, p.Output.String())
	}
	return -1
}

// WaitForOutput waits until substr appears at least count times in the
// server output.
func (p *ServerProcess) WaitForOutput(t *testing.T, substr string, count int, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for strings.Count(p.Output.String(), substr) < count {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d x %q\n%s", count, substr, p.Output.String())
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// FreePort returns a TCP port that was free a moment ago.
func FreePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// Exchange sends one request line to the server on port and returns the
// reply line.
func Exchange(t *testing.T, port int, line string) string {
	t.Helper()
	conn, err := net.DialTimeout("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), 5*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	if _, err := io.WriteString(conn, line+"\n"); err != nil {
		t.Fatalf("write %q: %v", line, err)
	}
	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("read reply to %q: %v", line, err)
	}
	return strings.TrimSpace(reply)
}
