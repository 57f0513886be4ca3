// Package badgercache is a cache engine backed by a BadgerDB directory in the
// cache path. Badger holds an exclusive lock on its directory, so only one
// process may open it and the module does not support clustering.
package badgercache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"path/filepath"
	"sync"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/giantswarm/cacheserver/internal/engine"
)

// Name is the module name used in configuration.
const Name = "badger"

// DataDirName is the badger directory inside the cache path.
const DataDirName = "badger"

// Engine is the Badger cache engine.
type Engine struct {
	// dbMu guards db against Shutdown racing connection handlers.
	dbMu sync.RWMutex
	db   *badger.DB
	log  *slog.Logger
}

var _ engine.Engine = (*Engine)(nil)

// New returns an uninitialized engine.
func New() engine.Engine {
	return &Engine{}
}

// Properties implements engine.Engine.
func (e *Engine) Properties() engine.Properties {
	return engine.Properties{Clustering: false}
}

// Init opens the badger directory under opts.CachePath.
func (e *Engine) Init(_ context.Context, opts engine.Options) error {
	e.log = opts.Logger
	if e.log == nil {
		e.log = slog.Default()
	}
	dir := filepath.Join(opts.CachePath, DataDirName)

	bopts := badger.DefaultOptions(dir).WithLogger(slogAdapter{log: e.log})
	db, err := badger.Open(bopts)
	if err != nil {
		return fmt.Errorf("open badger %s: %w", dir, err)
	}
	e.dbMu.Lock()
	e.db = db
	e.dbMu.Unlock()
	e.log.Debug("badger cache opened", "path", dir)
	return nil
}

// ServeConn implements engine.Engine.
func (e *Engine) ServeConn(ctx context.Context, conn net.Conn) {
	engine.ServeLines(ctx, conn, e, e.log)
}

// Get returns the value stored under key.
func (e *Engine) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	e.dbMu.RLock()
	defer e.dbMu.RUnlock()
	if e.db == nil {
		return "", false, engine.ErrClosed
	}
	var v []byte
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		v, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return string(v), true, nil
}

// Put stores value under key.
func (e *Engine) Put(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.dbMu.RLock()
	defer e.dbMu.RUnlock()
	if e.db == nil {
		return engine.ErrClosed
	}
	err := e.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}

// Save syncs the value log and memtables to disk.
func (e *Engine) Save(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.dbMu.RLock()
	defer e.dbMu.RUnlock()
	if e.db == nil {
		return engine.ErrClosed
	}
	if err := e.db.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	return nil
}

// Reset drops every key.
func (e *Engine) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.dbMu.RLock()
	defer e.dbMu.RUnlock()
	if e.db == nil {
		return engine.ErrClosed
	}
	if err := e.db.DropAll(); err != nil {
		return fmt.Errorf("drop all: %w", err)
	}
	return nil
}

// Shutdown waits for in-flight requests, then closes the database, flushing
// pending writes.
func (e *Engine) Shutdown(context.Context) {
	e.dbMu.Lock()
	defer e.dbMu.Unlock()
	if e.db == nil {
		return
	}
	if err := e.db.Close(); err != nil {
		e.log.Warn("close badger", "error", err)
	}
	e.db = nil
}

// RegisterClusterWorker is never called for this module since it does not
// support clustering.
func (e *Engine) RegisterClusterWorker(h engine.WorkerHandle) {
	e.log.Warn("badger cache does not support cluster workers", "worker", h.ID, "pid", h.PID)
}
