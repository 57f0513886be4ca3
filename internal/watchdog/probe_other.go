//go:build !unix

package watchdog

import "os"

// SignalProber returns a Prober that looks the process up by pid.
func SignalProber() Prober {
	return ProberFunc(func(pid int) error {
		p, err := os.FindProcess(pid)
		if err != nil {
			return err
		}
		return p.Release()
	})
}
