package process

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/giantswarm/cacheserver/internal/fileutil"
)

// ExecSpawner creates workers by re-executing the current binary, the way a
// cluster fork reruns the same program in a child process.
type ExecSpawner struct {
	path        string
	args        []string
	env         []string
	logDir      string
	stopTimeout time.Duration
	log         *slog.Logger
}

// SpawnerConfig configures NewExecSpawner. Zero fields fall back to the
// current process: os.Executable, os.Args[1:] and os.Environ.
type SpawnerConfig struct {
	Path        string
	Args        []string
	Env         []string
	LogDir      string
	StopTimeout time.Duration
	Logger      *slog.Logger
}

// NewExecSpawner returns a spawner for cfg. When LogDir is set it is created.
func NewExecSpawner(cfg SpawnerConfig) (*ExecSpawner, error) {
	path := cfg.Path
	if path == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("resolve executable: %w", err)
		}
		path = exe
	}
	args := cfg.Args
	if args == nil && len(os.Args) > 1 {
		args = os.Args[1:]
	}
	env := cfg.Env
	if env == nil {
		env = os.Environ()
	}
	if cfg.LogDir != "" {
		if err := fileutil.EnsureDir(cfg.LogDir); err != nil {
			return nil, fmt.Errorf("worker log dir: %w", err)
		}
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &ExecSpawner{
		path:        path,
		args:        args,
		env:         env,
		logDir:      cfg.LogDir,
		stopTimeout: cfg.StopTimeout,
		log:         log,
	}, nil
}

// Spawn starts worker id. The context is only checked before the process is
// created; a running worker is stopped through Stop, not by cancellation.
func (s *ExecSpawner) Spawn(ctx context.Context, id int) (*Worker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return StartWorker(WorkerConfig{
		ID:          id,
		Path:        s.path,
		Args:        s.args,
		Env:         s.env,
		LogDir:      s.logDir,
		StopTimeout: s.stopTimeout,
		Logger:      s.log,
	})
}
