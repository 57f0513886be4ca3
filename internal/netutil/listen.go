package netutil

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"syscall"
)

// ListenConfig controls how Listen binds its socket.
type ListenConfig struct {
	// Host is the address to bind. Empty binds all interfaces.
	Host string
	// Port is the TCP port. Zero lets the kernel pick one.
	Port int
	// ReusePort sets SO_REUSEPORT so sibling worker processes can bind the
	// same port.
	ReusePort bool
}

// Listen opens a TCP listener according to cfg.
func Listen(ctx context.Context, cfg ListenConfig) (net.Listener, error) {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port out of range: %d", cfg.Port)
	}
	lc := net.ListenConfig{}
	if cfg.ReusePort {
		lc.Control = func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			if err := c.Control(func(fd uintptr) {
				sockErr = setReusePort(fd)
			}); err != nil {
				return err
			}
			return sockErr
		}
	}
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	l, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	return l, nil
}

// Port returns the TCP port a listener is bound to, or 0 if it is not a
// TCP listener.
func Port(l net.Listener) int {
	if tcpAddr, ok := l.Addr().(*net.TCPAddr); ok {
		return tcpAddr.Port
	}
	return 0
}

// FreePort asks the kernel for a currently unused loopback port. The port is
// released before returning, so a concurrent caller may race for it.
func FreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("listen on tcp address: %w", err)
	}
	port := Port(l)
	if err := l.Close(); err != nil {
		return 0, fmt.Errorf("close probe listener: %w", err)
	}
	return port, nil
}
