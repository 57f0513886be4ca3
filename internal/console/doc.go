// Package console implements the operator command loop of a single-process
// cache server.
//
// The console reads one command at a time: q shuts down, s saves, r resets.
// Anything else is ignored. A command's engine operation must complete
// before the next command is read, so two administrative operations never
// overlap.
package console
