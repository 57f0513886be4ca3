// Package supervisor decides the process topology of the cache server and
// manages its worker processes.
//
// With a clustering-capable engine the master spawns N workers, each of
// which runs its own server on the shared port, and then only watches
// them. Otherwise no workers are spawned and the master serves in process.
//
// Process creation goes through the Spawner interface so the supervisor can
// be exercised without starting real processes.
package supervisor
