package vsync

import (
	"context"
	"io"
)

// SnapshotStore is the remote side of a vault: one blob per identity.
// Operations stream through io.Reader/io.Writer so backends can avoid
// holding a second copy of the blob.
type SnapshotStore interface {
	// Upload stores the blob for id, replacing any previous snapshot.
	// size is the number of bytes that will be read from r.
	Upload(ctx context.Context, id VaultIdentity, r io.Reader, size int64) error

	// Fetch writes the blob for id to w.
	// Returns an error wrapping ErrNotFound if no snapshot exists.
	Fetch(ctx context.Context, id VaultIdentity, w io.Writer) error

	// ValidateSetup verifies that the store is reachable and properly configured.
	ValidateSetup(ctx context.Context) error
}
