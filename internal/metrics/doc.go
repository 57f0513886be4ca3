// Package metrics holds the Prometheus collectors of the cache server control
// plane and the HTTP endpoint that exposes them.
//
// All recording methods are safe to call on a nil *Metrics, so components
// can be constructed without metrics in tests and in worker processes.
package metrics
