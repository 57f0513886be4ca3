// Package core provides the internal implementation of the cacheserver
// process supervisor. It contains the Orchestrator (startup sequencing for
// the master and worker roles), its Config with multi-error validation, role
// detection from the environment, and the package-level logger.
package core
