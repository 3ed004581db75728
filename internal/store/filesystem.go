package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"

	"vsync/internal/fs"
	"vsync/internal/vsync"
)

// FileSystemStore keeps snapshots as files below a root directory, using
// the same object keys as the remote backends:
//
//	<root>/
//	  vaults/
//	    <identity>.zip
type FileSystemStore struct {
	root string
}

// NewFileSystemStore creates a store rooted at root, creating the directory
// structure if needed.
func NewFileSystemStore(root string) (*FileSystemStore, error) {
	if err := os.MkdirAll(filepath.Join(root, "vaults"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileSystemStore{root: root}, nil
}

func (s *FileSystemStore) path(id vsync.VaultIdentity) string {
	return filepath.Join(s.root, filepath.FromSlash(id.ObjectKey()))
}

// Upload atomically replaces the snapshot for id. Readers see either the
// previous snapshot or the new one, never a partial file.
func (s *FileSystemStore) Upload(ctx context.Context, id vsync.VaultIdentity, r io.Reader, size int64) error {
	if err := id.Validate(); err != nil {
		return err
	}
	dest := s.path(id)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	if err := fs.WriteFileAtomic(dest, r, size, 0644); err != nil {
		return fmt.Errorf("storing snapshot %s: %w", id, err)
	}
	return nil
}

// Fetch writes the snapshot for id to w.
func (s *FileSystemStore) Fetch(ctx context.Context, id vsync.VaultIdentity, w io.Writer) error {
	if err := id.Validate(); err != nil {
		return err
	}
	f, err := os.Open(s.path(id))
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return fmt.Errorf("%w: %s", vsync.ErrNotFound, id)
		}
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	return nil
}

// Exists reports whether a snapshot is stored for id.
func (s *FileSystemStore) Exists(ctx context.Context, id vsync.VaultIdentity) (bool, error) {
	if err := id.Validate(); err != nil {
		return false, err
	}
	_, err := os.Stat(s.path(id))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, iofs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// ValidateSetup verifies that the store directories are accessible.
func (s *FileSystemStore) ValidateSetup(ctx context.Context) error {
	for _, dir := range []string{s.root, filepath.Join(s.root, "vaults")} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("store directory not accessible: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("store path is not a directory: %s", dir)
		}
	}
	return nil
}

var _ vsync.SnapshotStore = (*FileSystemStore)(nil)
