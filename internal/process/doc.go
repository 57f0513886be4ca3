// Package process starts and stops cache server worker processes.
//
// A worker is the current executable re-executed with the same arguments and
// the WorkerIDEnv variable set. Worker owns the single cmd.Wait goroutine of
// its process and exposes an Exited channel. Stop sends SIGTERM, kills the
// worker after its grace period, and reports a worker that failed on its own
// with ErrWorkerFailed. ExecSpawner creates workers, and LogFiles
// optionally redirects a worker's stdout/stderr to files.
package process
