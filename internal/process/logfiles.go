package process

import (
	"fmt"
	"os"
	"path/filepath"
)

// LogFiles manages stdout/stderr file handles for a worker.
type LogFiles struct {
	stdoutFile *os.File
	stderrFile *os.File
	dir        string
	stdoutName string // e.g., "worker-1-stdout.log"
	stderrName string // e.g., "worker-1-stderr.log"
}

// NewLogFiles creates (or appends to) the log files of the named process in
// dir. The name is used to derive file names ("worker-1" ->
// "worker-1-stdout.log").
func NewLogFiles(dir, name string) (LogFiles, error) {
	l := LogFiles{
		dir:        dir,
		stdoutName: name + "-stdout.log",
		stderrName: name + "-stderr.log",
	}
	if err := l.open(); err != nil {
		return LogFiles{}, err
	}
	return l, nil
}

// open opens both files in append mode so restarts keep earlier output.
// Both files are assigned to the struct only after both opens succeed.
func (l *LogFiles) open() error {
	const flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	stdoutFile, err := os.OpenFile(l.StdoutPath(), flags, 0o644)
	if err != nil {
		return fmt.Errorf("open stdout log: %w", err)
	}
	stderrFile, err := os.OpenFile(l.StderrPath(), flags, 0o644)
	if err != nil {
		_ = stdoutFile.Close()
		return fmt.Errorf("open stderr log: %w", err)
	}
	l.stdoutFile = stdoutFile
	l.stderrFile = stderrFile
	return nil
}

// Close closes both log file handles and nils them to prevent double-close.
func (l *LogFiles) Close() {
	if l.stdoutFile != nil {
		_ = l.stdoutFile.Close()
		l.stdoutFile = nil
	}
	if l.stderrFile != nil {
		_ = l.stderrFile.Close()
		l.stderrFile = nil
	}
}

// StdoutPath returns the path to the stdout log file.
func (l *LogFiles) StdoutPath() string {
	return filepath.Join(l.dir, l.stdoutName)
}

// StderrPath returns the path to the stderr log file.
func (l *LogFiles) StderrPath() string {
	return filepath.Join(l.dir, l.stderrName)
}
