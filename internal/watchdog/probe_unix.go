//go:build unix

package watchdog

import "golang.org/x/sys/unix"

// SignalProber returns a Prober that sends signal 0 to the process.
func SignalProber() Prober {
	return ProberFunc(func(pid int) error {
		return unix.Kill(pid, 0)
	})
}
