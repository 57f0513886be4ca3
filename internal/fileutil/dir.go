package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDir creates a directory and all parent directories if they don't exist.
// Uses mode 0755. Returns nil if directory already exists.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

// PrepareDir resolves path to an absolute path and creates it. Relative
// paths are resolved against the working directory, so a master and the
// workers it re-executes (which inherit the working directory) agree on
// the same location.
func PrepareDir(path string) (string, error) {
	if path == "" {
		return "", errors.New("directory path must not be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	if err := EnsureDir(abs); err != nil {
		return "", err
	}
	return abs, nil
}
