// Package server implements the per-process ServerInstance: a TCP listener
// bound to the configured port whose accepted connections are handed to the
// cache engine.
//
// A process owns at most one Server. In multi-worker mode each worker binds
// the same port with SO_REUSEPORT and the kernel spreads connections across
// them.
package server
