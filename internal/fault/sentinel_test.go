package fault

import (
	"errors"
	"fmt"
	"testing"
)

const (
	errParentGone = Sentinel("monitored parent process died")
	errBind       = Sentinel("address already in use")
)

func TestSentinel_ThroughClassifiedError(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err         error
		sentinel    Sentinel
		wantMatch   bool
		wantKind    Kind
		wantMessage string
	}{
		"classified sentinel": {
			err:         New(KindWatchdog, errParentGone),
			sentinel:    errParentGone,
			wantMatch:   true,
			wantKind:    KindWatchdog,
			wantMessage: "FatalWatchdog: monitored parent process died",
		},
		"context added before classification": {
			err:         New(KindServerStart, fmt.Errorf("listen 127.0.0.1:8126: %w", errBind)),
			sentinel:    errBind,
			wantMatch:   true,
			wantKind:    KindServerStart,
			wantMessage: "FatalServerStart: listen 127.0.0.1:8126: address already in use",
		},
		"context added after classification": {
			err:         fmt.Errorf("cache server master: %w", New(KindWatchdog, errParentGone)),
			sentinel:    errParentGone,
			wantMatch:   true,
			wantKind:    KindWatchdog,
			wantMessage: "cache server master: FatalWatchdog: monitored parent process died",
		},
		"other sentinel does not match": {
			err:         New(KindWatchdog, errParentGone),
			sentinel:    errBind,
			wantKind:    KindWatchdog,
			wantMessage: "FatalWatchdog: monitored parent process died",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if got := errors.Is(tc.err, tc.sentinel); got != tc.wantMatch {
				t.Errorf("errors.Is(%v, %q) = %v, want %v", tc.err, tc.sentinel, got, tc.wantMatch)
			}
			kind, ok := KindOf(tc.err)
			if !ok || kind != tc.wantKind {
				t.Errorf("KindOf() = %v, %v, want %v, true", kind, ok, tc.wantKind)
			}
			if got := tc.err.Error(); got != tc.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tc.wantMessage)
			}
		})
	}
}

func TestSentinel_UnclassifiedHasNoKind(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("probe: %w", errParentGone)
	if _, ok := KindOf(err); ok {
		t.Error("KindOf() reported a kind for an unclassified sentinel")
	}
	if got := ExitCode(err); got != ExitFailure {
		t.Errorf("ExitCode() = %d, want %d", got, ExitFailure)
	}
}

func TestSentinel_TextAloneDoesNotMatch(t *testing.T) {
	t.Parallel()

	err := New(KindWatchdog, errors.New(string(errParentGone)))
	if errors.Is(err, errParentGone) {
		t.Error("errors.Is matched a plain error carrying the same text")
	}
}
