//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package netutil

import "errors"

// setReusePort fails on platforms without SO_REUSEPORT, which makes
// multi-worker mode unavailable there.
func setReusePort(_ uintptr) error {
	return errors.New("SO_REUSEPORT is not supported on this platform")
}
