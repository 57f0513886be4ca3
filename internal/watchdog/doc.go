// Package watchdog terminates the cache server when an external parent
// process goes away.
//
// The watchdog probes the parent with signal 0 once per interval. A probe
// that fails with EPERM means the process exists but belongs to another
// user, so it counts as alive.
package watchdog
