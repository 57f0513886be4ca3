// Package fault classifies the conditions the supervisor cannot continue from.
//
// Sentinel provides immutable const error values. Error tags a cause with a
// Kind from the supervisor's error taxonomy, and ExitCode maps any error
// returned by the orchestrator to the process exit status.
package fault
