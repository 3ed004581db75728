// Package store holds the SnapshotStore backends: one blob per vault identity.
package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"vsync/internal/vsync"
)

// MemoryStore keeps snapshots in memory. Safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[vsync.VaultIdentity][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[vsync.VaultIdentity][]byte)}
}

// Upload replaces the snapshot for id.
func (m *MemoryStore) Upload(ctx context.Context, id vsync.VaultIdentity, r io.Reader, size int64) error {
	if err := id.Validate(); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[id] = data
	return nil
}

// Fetch writes the snapshot for id to w.
func (m *MemoryStore) Fetch(ctx context.Context, id vsync.VaultIdentity, w io.Writer) error {
	m.mu.RLock()
	data, ok := m.blobs[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", vsync.ErrNotFound, id)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// Exists reports whether a snapshot is stored for id.
func (m *MemoryStore) Exists(ctx context.Context, id vsync.VaultIdentity) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blobs[id]
	return ok, nil
}

// ValidateSetup always succeeds for the in-memory store.
func (m *MemoryStore) ValidateSetup(ctx context.Context) error {
	return nil
}

var _ vsync.SnapshotStore = (*MemoryStore)(nil)
