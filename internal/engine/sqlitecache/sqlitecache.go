// Package sqlitecache is a cache engine backed by a SQLite database in the
// cache path. Several worker processes can open the same database, so the
// module supports clustering.
package sqlitecache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"path/filepath"
	"sync"

	// Register the pure-Go SQLite driver (no CGO required).
	_ "modernc.org/sqlite"

	"github.com/giantswarm/cacheserver/internal/engine"
)

// Name is the module name used in configuration.
const Name = "sqlite"

// DBFileName is the database file inside the cache path.
const DBFileName = "cache.db"

// Engine is the SQLite cache engine.
//
// Connection handlers may still call Get and Put while Shutdown runs; dbMu
// keeps them off a closing database and they get engine.ErrClosed after.
type Engine struct {
	dbMu sync.RWMutex
	db   *sql.DB
	log  *slog.Logger

	mu      sync.Mutex
	workers []engine.WorkerHandle
}

var _ engine.Engine = (*Engine)(nil)

// New returns an uninitialized engine.
func New() engine.Engine {
	return &Engine{}
}

// Properties implements engine.Engine.
func (e *Engine) Properties() engine.Properties {
	return engine.Properties{Clustering: true}
}

// Init opens (or creates) the database under opts.CachePath.
func (e *Engine) Init(ctx context.Context, opts engine.Options) error {
	e.log = opts.Logger
	if e.log == nil {
		e.log = slog.Default()
	}
	path := filepath.Join(opts.CachePath, DBFileName)

	// WAL lets readers in other workers proceed while one writes; the busy
	// timeout absorbs write contention between workers.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(30000)&_pragma=synchronous(NORMAL)",
		path,
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open sqlite %s: %w", path, err)
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS cache (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at INTEGER NOT NULL DEFAULT (unixepoch())
		)
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return fmt.Errorf("create cache table: %w", err)
	}
	e.dbMu.Lock()
	e.db = db
	e.dbMu.Unlock()
	e.log.Debug("sqlite cache opened", "path", path)
	return nil
}

// ServeConn implements engine.Engine.
func (e *Engine) ServeConn(ctx context.Context, conn net.Conn) {
	engine.ServeLines(ctx, conn, e, e.log)
}

// Get returns the value stored under key.
func (e *Engine) Get(ctx context.Context, key string) (string, bool, error) {
	e.dbMu.RLock()
	defer e.dbMu.RUnlock()
	if e.db == nil {
		return "", false, engine.ErrClosed
	}
	var v string
	err := e.db.QueryRowContext(ctx, `SELECT value FROM cache WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return v, true, nil
}

// Put stores value under key.
func (e *Engine) Put(ctx context.Context, key, value string) error {
	const stmt = `
		INSERT INTO cache (key, value, updated_at) VALUES (?, ?, unixepoch())
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	e.dbMu.RLock()
	defer e.dbMu.RUnlock()
	if e.db == nil {
		return engine.ErrClosed
	}
	if _, err := e.db.ExecContext(ctx, stmt, key, value); err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}

// Save checkpoints the write-ahead log into the main database file.
func (e *Engine) Save(ctx context.Context) error {
	e.dbMu.RLock()
	defer e.dbMu.RUnlock()
	if e.db == nil {
		return engine.ErrClosed
	}
	return checkpoint(ctx, e.db)
}

func checkpoint(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}

// Reset deletes every cached entry.
func (e *Engine) Reset(ctx context.Context) error {
	e.dbMu.RLock()
	defer e.dbMu.RUnlock()
	if e.db == nil {
		return engine.ErrClosed
	}
	res, err := e.db.ExecContext(ctx, `DELETE FROM cache`)
	if err != nil {
		return fmt.Errorf("delete entries: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		e.log.Debug("sqlite cache reset", "entries", n)
	}
	return nil
}

// Shutdown waits for in-flight requests, then checkpoints and closes the
// database.
func (e *Engine) Shutdown(ctx context.Context) {
	e.dbMu.Lock()
	defer e.dbMu.Unlock()
	if e.db == nil {
		return
	}
	if err := checkpoint(ctx, e.db); err != nil {
		e.log.Warn("final checkpoint failed", "error", err)
	}
	if err := e.db.Close(); err != nil {
		e.log.Warn("close sqlite", "error", err)
	}
	e.db = nil
}

// RegisterClusterWorker records h. Workers share the database file, so no
// further coordination is needed.
func (e *Engine) RegisterClusterWorker(h engine.WorkerHandle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.workers = append(e.workers, h)
}

// Workers returns the registered worker handles.
func (e *Engine) Workers() []engine.WorkerHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]engine.WorkerHandle(nil), e.workers...)
}
