package core

import (
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
)

// logger is the package-level logger, stored as an atomic pointer to allow
// safe concurrent reads and writes. Named "logger" instead of "log" to avoid
// shadowing the stdlib "log" package.
//
// A nil value means no custom logger has been set; Logger() falls back to a
// cached default derived from slog.Default().
var logger atomic.Pointer[slog.Logger]

// defaultLogger caches the default-derived logger (slog.Default() with the
// cacheserver component attribute). If slog.SetDefault() is called after the
// first Logger() call the cache does not follow; SetLogger(nil) clears it.
var defaultLogger atomic.Pointer[slog.Logger]

// Logger returns the current package-level logger. If no custom logger has
// been set via SetLogger, it returns a cached logger derived from
// slog.Default() with the cacheserver component attribute. It is safe to
// call from multiple goroutines.
func Logger() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	l := newDefaultLogger()
	// If another goroutine already stored a logger, use theirs.
	if defaultLogger.CompareAndSwap(nil, l) {
		return l
	}
	if l2 := defaultLogger.Load(); l2 != nil {
		return l2
	}
	return l
}

func newDefaultLogger() *slog.Logger {
	return slog.Default().With("component", "cacheserver")
}

// SetLogger replaces the package-level logger.
// If l is nil, the logger resets to the default: slog.Default() with the
// "component" attribute, re-derived on the next Logger() call.
func SetLogger(l *slog.Logger) {
	logger.Store(l)
	defaultLogger.Store(nil)
}

// Verbosity levels accepted by NewLogger.
const (
	VerbositySilent  = 0
	VerbosityError   = 1
	VerbosityWarn    = 2
	VerbosityInfo    = 3
	VerbosityVerbose = 4
	VerbosityDebug   = 5
)

// LevelVerbose sits between info and debug. Stage transitions of the
// orchestrator are logged at this level.
const LevelVerbose = slog.Level(-2)

// SlogLevel maps a 1-5 verbosity onto a slog level.
func SlogLevel(verbosity int) (slog.Level, error) {
	switch verbosity {
	case VerbosityError:
		return slog.LevelError, nil
	case VerbosityWarn:
		return slog.LevelWarn, nil
	case VerbosityInfo:
		return slog.LevelInfo, nil
	case VerbosityVerbose:
		return LevelVerbose, nil
	case VerbosityDebug:
		return slog.LevelDebug, nil
	default:
		return 0, fmt.Errorf("log level must be between %d and %d, got %d", VerbositySilent, VerbosityDebug, verbosity)
	}
}

// NewLogger builds a logger writing to w. Verbosity 0 discards everything.
func NewLogger(w io.Writer, verbosity int, format LogFormat) (*slog.Logger, error) {
	if !format.IsValid() {
		return nil, fmt.Errorf("log format must be %q or %q, got %q", LogFormatText, LogFormatJSON, format)
	}
	if verbosity == VerbositySilent {
		return slog.New(slog.DiscardHandler), nil
	}
	level, err := SlogLevel(verbosity)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if format == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
