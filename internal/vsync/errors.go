package vsync

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means no snapshot exists for the requested identity.
	ErrNotFound = errors.New("snapshot not found")

	// ErrInvalidIdentity means a VaultIdentity cannot be used as an object name.
	ErrInvalidIdentity = errors.New("invalid vault identity")
)

// TraversalError means a tree root does not exist or cannot be read.
type TraversalError struct {
	Root string
	Err  error
}

func (e *TraversalError) Error() string {
	return fmt.Sprintf("walking %s: %v", e.Root, e.Err)
}

func (e *TraversalError) Unwrap() error { return e.Err }

// ArchiveBuildError means an archive could not be built from a tree.
// The partial blob is discarded.
type ArchiveBuildError struct {
	Root string
	Err  error
}

func (e *ArchiveBuildError) Error() string {
	return fmt.Sprintf("building archive from %s: %v", e.Root, e.Err)
}

func (e *ArchiveBuildError) Unwrap() error { return e.Err }

// ExtractError means an archive is malformed or an entry could not be
// written to the staging area. Entry is empty when the archive itself is bad.
type ExtractError struct {
	Entry string
	Err   error
}

func (e *ExtractError) Error() string {
	if e.Entry == "" {
		return fmt.Sprintf("extracting archive: %v", e.Err)
	}
	return fmt.Sprintf("extracting %s: %v", e.Entry, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// ReconcileError means the local root itself became inaccessible while
// applying a diff. Per-path failures never produce it.
type ReconcileError struct {
	Root string
	Err  error
}

func (e *ReconcileError) Error() string {
	return fmt.Sprintf("reconciling %s: %v", e.Root, e.Err)
}

func (e *ReconcileError) Unwrap() error { return e.Err }

// TransportError wraps a failed SnapshotStore call.
type TransportError struct {
	Op       string // "upload", "fetch" or "validate"
	Identity VaultIdentity
	Err      error
}

func (e *TransportError) Error() string {
	if e.Identity == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Identity, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
