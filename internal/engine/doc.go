// Package engine defines the lifecycle contract between the process
// supervisor and a cache engine, and the Adapter the supervisor drives it
// through.
//
// An Engine owns the cache data. The supervisor never touches that data; it
// only initializes the engine, hands it connections, and asks it to save,
// reset or shut down. Administrative operations are asynchronous and each
// returns a Result that completes exactly once.
//
// Engine modules live in subpackages (sqlitecache, badgercache) and are
// selected by name through a Registry.
package engine
