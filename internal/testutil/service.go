package testutil

import (
	"testing"

	"vsync/internal/archive"
	"vsync/internal/fs"
	"vsync/internal/reconcile"
	"vsync/internal/staging"
	"vsync/internal/store"
	"vsync/internal/vsync"
)

// ServiceFixture is a SyncService wired to real filesystem components, an
// in-memory store and a temp-dir staging provider.
type ServiceFixture struct {
	Service *vsync.SyncService
	Store   *store.MemoryStore
	Staging *staging.FileSystemProvider
}

// ServiceOption adjusts the deps of NewTestSyncService before it is built.
type ServiceOption func(*vsync.SyncDeps)

// WithEncryptor seals blobs with enc.
func WithEncryptor(enc vsync.Encryptor) ServiceOption {
	return func(d *vsync.SyncDeps) { d.Encryptor = enc }
}

// WithExclusions replaces the default exclusion set.
func WithExclusions(excl vsync.ExclusionSet) ServiceOption {
	return func(d *vsync.SyncDeps) { d.Exclusions = excl }
}

// WithStore replaces the in-memory store.
func WithStore(s vsync.SnapshotStore) ServiceOption {
	return func(d *vsync.SyncDeps) { d.Store = s }
}

// NewTestSyncService builds a ServiceFixture. Without options the exclusion
// set holds only the default patterns and blobs are not encrypted.
func NewTestSyncService(t *testing.T, opts ...ServiceOption) *ServiceFixture {
	t.Helper()

	logger := vsync.NewNopLogger()
	walker := fs.NewWalker(logger)
	mem := NewTestStore()
	stg := NewTestStaging(t)

	deps := vsync.SyncDeps{
		Walker:     walker,
		Archiver:   archive.NewArchiver(walker, logger),
		Extractor:  archive.NewExtractor(logger, 2),
		Reconciler: reconcile.NewReconciler(logger, 2),
		Store:      mem,
		Staging:    stg,
		Exclusions: fs.NewExclusionSet(),
		Logger:     logger,
		Clock:      FixedClock(),
	}
	for _, opt := range opts {
		opt(&deps)
	}

	return &ServiceFixture{
		Service: vsync.NewSyncService(deps),
		Store:   mem,
		Staging: stg,
	}
}
