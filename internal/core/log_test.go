package core

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLogger_Levels(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		verbosity int
		emitted   []slog.Level
		dropped   []slog.Level
	}{
		"silent": {
			verbosity: VerbositySilent,
			dropped:   []slog.Level{slog.LevelError, slog.LevelInfo},
		},
		"error": {
			verbosity: VerbosityError,
			emitted:   []slog.Level{slog.LevelError},
			dropped:   []slog.Level{slog.LevelWarn},
		},
		"warn": {
			verbosity: VerbosityWarn,
			emitted:   []slog.Level{slog.LevelWarn},
			dropped:   []slog.Level{slog.LevelInfo},
		},
		"info": {
			verbosity: VerbosityInfo,
			emitted:   []slog.Level{slog.LevelInfo},
			dropped:   []slog.Level{LevelVerbose},
		},
		"verbose": {
			verbosity: VerbosityVerbose,
			emitted:   []slog.Level{LevelVerbose},
			dropped:   []slog.Level{slog.LevelDebug},
		},
		"debug": {
			verbosity: VerbosityDebug,
			emitted:   []slog.Level{slog.LevelDebug},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			l, err := NewLogger(&buf, tc.verbosity, LogFormatText)
			if err != nil {
				t.Fatalf("NewLogger() error: %v", err)
			}
			for _, lvl := range tc.emitted {
				buf.Reset()
				l.Log(context.Background(), lvl, "probe")
				if !strings.Contains(buf.String(), "probe") {
					t.Errorf("level %v should be emitted at verbosity %d", lvl, tc.verbosity)
				}
			}
			for _, lvl := range tc.dropped {
				buf.Reset()
				l.Log(context.Background(), lvl, "probe")
				if buf.Len() != 0 {
					t.Errorf("level %v should be dropped at verbosity %d, got %q", lvl, tc.verbosity, buf.String())
				}
			}
		})
	}
}

func TestNewLogger_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l, err := NewLogger(&buf, VerbosityInfo, LogFormatJSON)
	if err != nil {
		t.Fatalf("NewLogger() error: %v", err)
	}
	l.Info("Cache Server ready on port 8126")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "Cache Server ready on port 8126" {
		t.Errorf("msg = %v", rec["msg"])
	}
}

func TestNewLogger_Invalid(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		verbosity int
		format    LogFormat
		want      string
	}{
		"level too high": {verbosity: 6, format: LogFormatText, want: "log level"},
		"negative level": {verbosity: -1, format: LogFormatText, want: "log level"},
		"bad format":     {verbosity: 3, format: "xml", want: "log format"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := NewLogger(&bytes.Buffer{}, tc.verbosity, tc.format)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("NewLogger() error = %v, want it to mention %q", err, tc.want)
			}
		})
	}
}

// TestSetLogger is not parallel: it mutates package-level state.
func TestSetLogger(t *testing.T) {
	var buf bytes.Buffer
	custom := slog.New(slog.NewTextHandler(&buf, nil))

	SetLogger(custom)
	defer SetLogger(nil)

	if Logger() != custom {
		t.Fatal("Logger() should return the custom logger")
	}

	SetLogger(nil)
	if Logger() == custom {
		t.Fatal("Logger() should fall back to the default after SetLogger(nil)")
	}
	if Logger() != Logger() {
		t.Error("default logger should be cached")
	}
}
