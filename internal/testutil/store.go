package testutil

import "vsync/internal/store"

// NewTestStore creates an empty in-memory snapshot store.
func NewTestStore() *store.MemoryStore {
	return store.NewMemoryStore()
}
