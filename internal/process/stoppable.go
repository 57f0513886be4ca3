package process

import "time"

// Stoppable is a process that can be stopped and have its resources closed.
type Stoppable interface {
	Stop(timeout time.Duration) error
	Close()
}

// StopAndClose stops s and then closes it. Close always runs, even when Stop
// fails: a failed Stop leaves the process in an unknown state and its file
// handles must still be released. The Stop error is returned. A nil s is a
// no-op.
func StopAndClose(s Stoppable, timeout time.Duration) error {
	if s == nil {
		return nil
	}
	defer s.Close()
	return s.Stop(timeout)
}
