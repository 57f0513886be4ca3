package cacheserver

import "github.com/giantswarm/cacheserver/internal/core"

// serverConfig holds the configuration built by Options. It wraps
// core.Config so the orchestrator validates a single definition, and
// carries the collaborators options may override.
type serverConfig struct {
	core.Config
	deps core.Deps
}

// defaultServerConfig returns a serverConfig populated with all default
// values.
func defaultServerConfig() serverConfig {
	return serverConfig{Config: core.Config{
		Port:              DefaultPort,
		CacheModule:       DefaultCacheModule,
		Workers:           DefaultWorkers(),
		WatchdogInterval:  DefaultWatchdogInterval,
		WorkerStopTimeout: DefaultWorkerStopTimeout,
		Version:           DefaultVersion,
	}}
}

func newServerConfig(opts ...Option) serverConfig {
	cfg := defaultServerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
