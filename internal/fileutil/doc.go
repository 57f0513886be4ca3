// Package fileutil prepares the on-disk storage root used by cache engines.
//
// PrepareDir resolves and creates a directory, and LockDir takes an exclusive
// cross-process lock inside it so two cache servers never share a storage
// root.
package fileutil
