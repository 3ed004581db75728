package testutil

import (
	"testing"

	"vsync/internal/staging"
)

// NewTestStaging returns a staging provider that creates areas inside a
// fresh temp directory, so tests can assert the areas are cleaned up.
func NewTestStaging(t *testing.T) *staging.FileSystemProvider {
	t.Helper()

	p, err := staging.NewFileSystemProvider(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create staging provider: %v", err)
	}
	return p
}
