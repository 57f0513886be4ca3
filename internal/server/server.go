package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/giantswarm/cacheserver/internal/fault"
	"github.com/giantswarm/cacheserver/internal/metrics"
	"github.com/giantswarm/cacheserver/internal/netutil"
)

// ErrAlreadyRunning is returned by Start on a server that is listening.
const ErrAlreadyRunning = fault.Sentinel("server already running")

// ErrStopped is returned by Start on a server that was stopped. A Server is
// single-use.
const ErrStopped = fault.Sentinel("server stopped")

// Handler serves one accepted connection. ctx is canceled when the server
// stops; the server closes conn after Handler returns.
type Handler func(ctx context.Context, conn net.Conn)

// Config describes a Server.
type Config struct {
	// Host is the bind address. Empty binds all interfaces.
	Host string
	// Port is the listen port. Zero picks a free port.
	Port int
	// ReusePort lets sibling worker processes share Port.
	ReusePort bool
	// Logger (optional, defaults to slog.Default())
	Logger *slog.Logger
	// Metrics (optional)
	Metrics *metrics.Metrics
}

// Server is a ServerInstance: a port and whether it is listening.
type Server struct {
	cfg     Config
	log     *slog.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	listener net.Listener
	port     int
	running  bool
	stopped  bool
	cancel   context.CancelFunc
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
}

// New returns a server that is not yet listening.
func New(cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		cfg:     cfg,
		log:     log,
		metrics: cfg.Metrics,
		port:    cfg.Port,
		conns:   make(map[net.Conn]struct{}),
	}
}

// Port returns the bound port once listening, the configured port before.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// Running reports whether the server is accepting connections.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start binds the listener and serves connections with h. It returns once
// the socket is listening. The returned channel receives at most one error:
// an accept failure that ended serving. It is never closed, so a server that
// is stopped normally delivers nothing.
func (s *Server) Start(ctx context.Context, h Handler) (<-chan error, error) {
	if h == nil {
		return nil, errors.New("server handler must not be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.stopped:
		return nil, ErrStopped
	case s.running:
		return nil, ErrAlreadyRunning
	}

	l, err := netutil.Listen(ctx, netutil.ListenConfig{
		Host:      s.cfg.Host,
		Port:      s.cfg.Port,
		ReusePort: s.cfg.ReusePort,
	})
	if err != nil {
		return nil, err
	}

	serveCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.listener = l
	s.port = netutil.Port(l)
	s.running = true
	s.cancel = cancel

	errCh := make(chan error, 1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop(serveCtx, l, h, errCh)
	}()

	s.log.Debug("server listening", "addr", l.Addr().String())
	return errCh, nil
}

func (s *Server) acceptLoop(ctx context.Context, l net.Listener, h Handler, errCh chan<- error) {
	for {
		conn, err := l.Accept()
		if err != nil {
			s.mu.Lock()
			stopping := s.stopped
			s.running = false
			s.mu.Unlock()
			if !stopping {
				errCh <- fmt.Errorf("accept on port %d: %w", netutil.Port(l), err)
			}
			return
		}

		if !s.track(conn) {
			_ = conn.Close()
			return
		}
		s.metrics.ConnOpened()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			h(ctx, conn)
		}()
	}
}

// track registers conn unless the server is stopping.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	_ = conn.Close()
	s.metrics.ConnClosed()
}

// Stop closes the listener and every open connection, then waits for the
// handlers to return. Safe to call more than once and on a server that was
// never started.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.running = false
	l := s.listener
	cancel := s.cancel
	conns := make([]net.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var closeErr error
	if l != nil {
		if err := l.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			closeErr = fmt.Errorf("close listener: %w", err)
		}
	}
	for _, c := range conns {
		_ = c.Close()
	}
	s.wg.Wait()

	s.log.Debug("server stopped", "port", s.Port())
	return closeErr
}
