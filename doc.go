// Package cacheserver runs a cache server process: it loads a cache engine
// module, decides between a single serving process and a set of worker
// processes, and supervises them until shutdown.
//
// # Basic Usage
//
//	import "github.com/giantswarm/cacheserver"
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//
//	err := cacheserver.Run(ctx,
//	    cacheserver.WithPort(8126),
//	    cacheserver.WithCacheModule("sqlite"),
//	)
//	os.Exit(cacheserver.ExitCode(err))
//
// # Roles
//
// The same program runs as master or worker. A process started with
// CACHESERVER_WORKER_ID set to a positive integer is a worker; it only
// serves. The master spawns workers by re-executing its own binary when the
// engine supports clustering and more than zero workers are requested.
// Otherwise the master serves itself and reads console commands:
//
//	q  shut the engine down and exit
//	s  persist the cache
//	r  reset the cache
//
// # Parent Monitoring
//
// With WithMonitorParentProcess the process exits with status 1 as soon as
// the given process disappears, so a cache server started by a build tool
// never outlives it.
package cacheserver
