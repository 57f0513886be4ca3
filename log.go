package cacheserver

import (
	"io"
	"log/slog"

	"github.com/giantswarm/cacheserver/internal/core"
)

// Log levels accepted by NewLogger.
const (
	LogLevelSilent  = core.VerbositySilent
	LogLevelError   = core.VerbosityError
	LogLevelWarn    = core.VerbosityWarn
	LogLevelInfo    = core.VerbosityInfo
	LogLevelVerbose = core.VerbosityVerbose
	LogLevelDebug   = core.VerbosityDebug
)

// Log formats accepted by NewLogger.
const (
	LogFormatText = string(core.LogFormatText)
	LogFormatJSON = string(core.LogFormatJSON)
)

// SetLogger replaces the package-level logger used by cacheserver.
// This allows applications to integrate cacheserver logging with their own
// logging infrastructure. The provided logger should already have any
// desired attributes; worker processes add a "worker" attribute.
//
// If l is nil, the logger resets to the default: slog.Default() with a
// "component" attribute, re-derived on the next use and then cached. Call
// SetLogger(nil) after slog.SetDefault() to pick up changes.
//
// SetLogger is safe to call concurrently with Run, but for a strict
// happens-before guarantee call it before Run.
func SetLogger(l *slog.Logger) {
	core.SetLogger(l)
}

// NewLogger builds a logger writing to w. level ranges from LogLevelSilent,
// which discards everything, to LogLevelDebug; format is LogFormatText or
// LogFormatJSON.
func NewLogger(w io.Writer, level int, format string) (*slog.Logger, error) {
	return core.NewLogger(w, level, core.LogFormat(format))
}
