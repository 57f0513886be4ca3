package core

import (
	"github.com/giantswarm/cacheserver/internal/engine"
	"github.com/giantswarm/cacheserver/internal/engine/badgercache"
	"github.com/giantswarm/cacheserver/internal/engine/sqlitecache"
)

// DefaultEngines returns the bundled engine modules.
func DefaultEngines() engine.Registry {
	return engine.Registry{
		sqlitecache.Name: sqlitecache.New,
		badgercache.Name: badgercache.New,
	}
}
