package fault

import (
	"errors"
	"fmt"
)

// Exit statuses used by the cacheserver binary.
const (
	ExitOK      = 0
	ExitFailure = 1
)

// Kind identifies which supervisor stage produced an error.
type Kind int

const (
	// KindInit is an engine initialization failure.
	KindInit Kind = iota + 1
	// KindServerStart is a failure to bind the server, or a fault reported
	// by the server after it started listening.
	KindServerStart
	// KindWatchdog is raised when the monitored parent process disappears.
	KindWatchdog
	// KindConsoleInput is a console read failure other than cancellation.
	KindConsoleInput
	// KindWorkerSpawn is a failure of the process-creation primitive.
	KindWorkerSpawn
	// KindAdminOp is a failed save or reset. It is the only recoverable kind.
	KindAdminOp
	// KindConfig is an invalid configuration detected before startup.
	KindConfig
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindInit:
		return "FatalInit"
	case KindServerStart:
		return "FatalServerStart"
	case KindWatchdog:
		return "FatalWatchdog"
	case KindConsoleInput:
		return "FatalConsoleInput"
	case KindWorkerSpawn:
		return "FatalWorkerSpawn"
	case KindAdminOp:
		return "RecoverableAdminOpFailure"
	case KindConfig:
		return "FatalConfig"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Recoverable reports whether the supervisor keeps running after an error
// of this kind.
func (k Kind) Recoverable() bool {
	return k == KindAdminOp
}

// Error is a classified error. The underlying cause is available through
// errors.Unwrap, so sentinels stay matchable with errors.Is.
type Error struct {
	Kind Kind
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New classifies err with kind. It returns nil when err is nil so call sites
// can wrap unconditionally.
func New(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, and false if
// there is none.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}

// ExitCode maps an orchestrator result to a process exit status: nil is an
// orderly shutdown, everything else is a failure.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	return ExitFailure
}
