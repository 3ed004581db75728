package vsync

import (
	"context"
	"iter"
)

// Walker enumerates the files under a root.
type Walker interface {
	// Walk returns a lazy, restartable sequence of every regular file under
	// root. Directories listed in skip (absolute paths) are not entered.
	// If root is missing or unreadable the sequence yields a single
	// *TraversalError and stops.
	Walk(root string, skip ...string) iter.Seq2[RelativePath, error]
}

// Archiver builds an in-memory archive of a tree.
type Archiver interface {
	// Build archives every file under root not matched by excl.
	// Fails with *ArchiveBuildError.
	Build(root string, excl ExclusionSet, skip ...string) (ArchiveBlob, error)
}

// Extractor unpacks an archive into a staging directory.
type Extractor interface {
	// Extract writes every entry of blob below dir. Fails with *ExtractError
	// and leaves whatever was already written for the caller to discard.
	Extract(ctx context.Context, blob ArchiveBlob, dir string) error
}

// Reconciler applies a DiffResult to a local tree.
type Reconciler interface {
	// Apply deletes diff.ToDelete from localRoot, prunes directories left
	// empty, and copies diff.ToWrite from stagingRoot. Per-path failures are
	// reported, not returned; only loss of localRoot yields *ReconcileError.
	Apply(ctx context.Context, diff *DiffResult, localRoot, stagingRoot string) (*ReconcileReport, error)
}

// Logger provides structured logging for the sync engine.
// The args follow slog conventions: alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger is a Logger that discards all output. Use in tests.
type NopLogger struct{}

func NewNopLogger() *NopLogger { return &NopLogger{} }

func (*NopLogger) Debug(string, ...any) {}
func (*NopLogger) Info(string, ...any)  {}
func (*NopLogger) Warn(string, ...any)  {}
func (*NopLogger) Error(string, ...any) {}
