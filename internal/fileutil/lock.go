package fileutil

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/giantswarm/cacheserver/internal/fault"
)

// LockFileName is the name of the lock file created inside a storage root.
const LockFileName = "cacheserver.lock"

// ErrDirLocked is returned by LockDir when another process holds the lock.
const ErrDirLocked = fault.Sentinel("directory is locked by another cache server")

// DirLock is an exclusive advisory lock on a storage root.
type DirLock struct {
	fl  *flock.Flock
	log *slog.Logger
}

// LockDir takes an exclusive lock on dir without blocking. It returns
// ErrDirLocked when another process already holds it. The lock is held
// until Unlock is called or the process exits; child processes do not
// inherit it.
func LockDir(dir string, logger *slog.Logger) (*DirLock, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fl := flock.New(filepath.Join(dir, LockFileName))

	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock %s: %w", fl.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", dir, ErrDirLocked)
	}
	return &DirLock{fl: fl, log: logger}, nil
}

// Path returns the lock file path.
func (l *DirLock) Path() string {
	return l.fl.Path()
}

// Unlock releases the lock and closes the file descriptor.
// The lock file is intentionally left on disk to avoid a race where removing
// it could invalidate a lock concurrently acquired by another process.
// Safe to call on a nil receiver.
func (l *DirLock) Unlock() {
	if l == nil || l.fl == nil {
		return
	}
	if err := l.fl.Close(); err != nil {
		l.log.Debug("failed to release directory lock", "path", l.fl.Path(), "err", err)
	}
	l.fl = nil
}
