package server

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"testing"
	"time"
)

func echoHandler(_ context.Context, conn net.Conn) {
	_, _ = io.Copy(conn, conn)
}

func dial(t *testing.T, port int) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), 5*time.Second)
	if err != nil {
		t.Fatalf("dial port %d: %v", port, err)
	}
	return conn
}

func TestServer_StartServesConnections(t *testing.T) {
	t.Parallel()

	s := New(Config{Host: "127.0.0.1"})
	if s.Running() {
		t.Fatal("server should not be running before Start")
	}

	errCh, err := s.Start(context.Background(), echoHandler)
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer s.Stop() //nolint:errcheck // best-effort cleanup

	if !s.Running() {
		t.Fatal("server should be running after Start")
	}
	if s.Port() == 0 {
		t.Fatal("Port() should report the bound port")
	}

	conn := dial(t, s.Port())
	defer conn.Close()
	if _, err := conn.Write([]byte("ping\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if line != "ping\n" {
		t.Errorf("echo = %q, want %q", line, "ping\n")
	}

	select {
	case err := <-errCh:
		t.Fatalf("unexpected server fault: %v", err)
	default:
	}
}

func TestServer_StartTwice(t *testing.T) {
	t.Parallel()

	s := New(Config{Host: "127.0.0.1"})
	if _, err := s.Start(context.Background(), echoHandler); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer s.Stop() //nolint:errcheck // best-effort cleanup

	if _, err := s.Start(context.Background(), echoHandler); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Start() error = %v, want %v", err, ErrAlreadyRunning)
	}
}

func TestServer_StartAfterStop(t *testing.T) {
	t.Parallel()

	s := New(Config{Host: "127.0.0.1"})
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() on unstarted server: %v", err)
	}
	if _, err := s.Start(context.Background(), echoHandler); !errors.Is(err, ErrStopped) {
		t.Fatalf("Start() after Stop error = %v, want %v", err, ErrStopped)
	}
}

func TestServer_StopClosesOpenConnections(t *testing.T) {
	t.Parallel()

	s := New(Config{Host: "127.0.0.1"})
	handlerDone := make(chan struct{})
	errCh, err := s.Start(context.Background(), func(ctx context.Context, conn net.Conn) {
		defer close(handlerDone)
		<-ctx.Done()
	})
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	conn := dial(t, s.Port())
	defer conn.Close()
	// Make sure the connection has been accepted before stopping.
	time.Sleep(50 * time.Millisecond)

	stopped := make(chan error, 1)
	go func() { stopped <- s.Stop() }()

	select {
	case err := <-stopped:
		if err != nil {
			t.Fatalf("Stop() error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Stop did not return")
	}
	select {
	case <-handlerDone:
	default:
		t.Error("handler should have returned before Stop returned")
	}
	if s.Running() {
		t.Error("server should not be running after Stop")
	}

	// A normal stop is not a server fault.
	select {
	case err := <-errCh:
		t.Fatalf("unexpected server fault after Stop: %v", err)
	default:
	}

	// Second Stop is a no-op.
	if err := s.Stop(); err != nil {
		t.Fatalf("second Stop() error: %v", err)
	}
}

func TestServer_StartPortInUse(t *testing.T) {
	t.Parallel()

	first := New(Config{Host: "127.0.0.1"})
	if _, err := first.Start(context.Background(), echoHandler); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer first.Stop() //nolint:errcheck // best-effort cleanup

	second := New(Config{Host: "127.0.0.1", Port: first.Port()})
	if _, err := second.Start(context.Background(), echoHandler); err == nil {
		_ = second.Stop()
		t.Fatal("expected bind error on a port already in use")
	}
	if second.Running() {
		t.Error("server should not be running after a failed Start")
	}
}

func TestServer_NilHandler(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{}).Start(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil handler")
	}
}
