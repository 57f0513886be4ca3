package watchdog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"syscall"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/giantswarm/cacheserver/internal/fault"
	"github.com/giantswarm/cacheserver/internal/metrics"
)

// DefaultInterval is the probe cadence.
const DefaultInterval = 1000 * time.Millisecond

// ErrParentDied is returned by Run when the monitored process is gone.
const ErrParentDied = fault.Sentinel("monitored parent process has died")

// Prober checks whether a process exists without affecting it.
type Prober interface {
	Probe(pid int) error
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(pid int) error

// Probe calls f(pid).
func (f ProberFunc) Probe(pid int) error {
	return f(pid)
}

// Config describes a Watchdog.
type Config struct {
	// PID is the process to monitor. Must be positive.
	PID int
	// Interval between probes. Zero uses DefaultInterval.
	Interval time.Duration
	// Prober (optional, defaults to SignalProber())
	Prober Prober
	// Logger (optional, defaults to slog.Default())
	Logger *slog.Logger
	// Metrics (optional)
	Metrics *metrics.Metrics
}

// Watchdog monitors one process for the lifetime of the current one.
type Watchdog struct {
	pid      int
	interval time.Duration
	prober   Prober
	log      *slog.Logger
	metrics  *metrics.Metrics
}

// New returns a watchdog for cfg.PID.
func New(cfg Config) (*Watchdog, error) {
	if cfg.PID <= 0 {
		return nil, fmt.Errorf("watchdog pid must be positive, got %d", cfg.PID)
	}
	if cfg.Interval < 0 {
		return nil, fmt.Errorf("watchdog interval must not be negative, got %v", cfg.Interval)
	}
	w := &Watchdog{
		pid:      cfg.PID,
		interval: cfg.Interval,
		prober:   cfg.Prober,
		log:      cfg.Logger,
		metrics:  cfg.Metrics,
	}
	if w.interval == 0 {
		w.interval = DefaultInterval
	}
	if w.prober == nil {
		w.prober = SignalProber()
	}
	if w.log == nil {
		w.log = slog.Default()
	}
	return w, nil
}

// PID returns the monitored process id.
func (w *Watchdog) PID() int {
	return w.pid
}

// Run probes the process immediately and then once per interval. It returns
// ErrParentDied as soon as a probe fails, or nil when ctx is done. Probes
// never overlap.
func (w *Watchdog) Run(ctx context.Context) error {
	died := false
	err := wait.PollUntilContextCancel(ctx, w.interval, true, func(context.Context) (bool, error) {
		if probeErr := w.prober.Probe(w.pid); !Alive(probeErr) {
			w.metrics.ParentProbe(false)
			w.log.Info("monitored parent process has died", "pid", w.pid, "error", probeErr)
			died = true
			return true, nil
		}
		w.metrics.ParentProbe(true)
		return false, nil
	})
	if died {
		return ErrParentDied
	}
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("watch pid %d: %w", w.pid, err)
	}
	return nil
}

// Alive interprets a probe result. EPERM means the process exists but
// cannot be signaled by this user.
func Alive(probeErr error) bool {
	return probeErr == nil || errors.Is(probeErr, syscall.EPERM)
}
