package vsync

import (
	"fmt"
	"iter"
	"path/filepath"
	"slices"
	"strings"
)

// VaultIdentity names a vault's single remote snapshot slot.
// Uploading under an existing identity replaces the previous snapshot.
type VaultIdentity string

// Validate reports whether the identity can be used as an object name.
// Identities end up as a single path element on every backend, so
// separators and dot segments are rejected.
func (id VaultIdentity) Validate() error {
	s := string(id)
	switch {
	case s == "":
		return fmt.Errorf("%w: empty", ErrInvalidIdentity)
	case s == "." || s == "..":
		return fmt.Errorf("%w: %q", ErrInvalidIdentity, s)
	case strings.ContainsAny(s, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidIdentity, s)
	case strings.ContainsRune(s, 0):
		return fmt.Errorf("%w: %q contains a NUL byte", ErrInvalidIdentity, s)
	}
	return nil
}

// ObjectKey returns the blob name used by every SnapshotStore backend.
func (id VaultIdentity) ObjectKey() string {
	return "vaults/" + string(id) + ".zip"
}

// RelativePath is a slash-separated path relative to a tree root.
// Two files in different trees are the same file iff their RelativePaths are equal.
type RelativePath string

// NewRelativePath converts an OS-specific relative path into a RelativePath.
func NewRelativePath(osPath string) RelativePath {
	return RelativePath(filepath.ToSlash(osPath))
}

// OSPath returns the path joined onto root using OS separators.
func (p RelativePath) OSPath(root string) string {
	return filepath.Join(root, filepath.FromSlash(string(p)))
}

// ArchiveBlob is an encoded tree snapshot, addressable at the transport
// boundary only by VaultIdentity.
type ArchiveBlob []byte

// TreeSnapshot is the set of RelativePaths found by walking a root.
// It is recomputed for every operation and never persisted.
type TreeSnapshot map[RelativePath]struct{}

// NewTreeSnapshot builds a snapshot from the given paths.
func NewTreeSnapshot(paths ...RelativePath) TreeSnapshot {
	s := make(TreeSnapshot, len(paths))
	for _, p := range paths {
		s.Add(p)
	}
	return s
}

// CollectSnapshot drains a walk into a TreeSnapshot.
// The first error yielded by the walk aborts collection.
func CollectSnapshot(walk iter.Seq2[RelativePath, error]) (TreeSnapshot, error) {
	s := make(TreeSnapshot)
	for p, err := range walk {
		if err != nil {
			return nil, err
		}
		s.Add(p)
	}
	return s, nil
}

func (s TreeSnapshot) Add(p RelativePath) { s[p] = struct{}{} }

func (s TreeSnapshot) Contains(p RelativePath) bool {
	_, ok := s[p]
	return ok
}

func (s TreeSnapshot) Len() int { return len(s) }

// Sorted returns the paths in lexical order.
func (s TreeSnapshot) Sorted() []RelativePath {
	out := make([]RelativePath, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// Minus returns the paths of s that are not in other.
func (s TreeSnapshot) Minus(other TreeSnapshot) TreeSnapshot {
	out := make(TreeSnapshot)
	for p := range s {
		if !other.Contains(p) {
			out.Add(p)
		}
	}
	return out
}

// Equal reports whether both snapshots hold exactly the same paths.
func (s TreeSnapshot) Equal(other TreeSnapshot) bool {
	if len(s) != len(other) {
		return false
	}
	for p := range s {
		if !other.Contains(p) {
			return false
		}
	}
	return true
}

// ExclusionSet decides which paths are never archived and never deleted.
type ExclusionSet interface {
	Excludes(p RelativePath) bool
}

// DiffResult is the work a Reconciler performs to make a local tree match a
// staged one. ToWrite and ToDelete are disjoint.
type DiffResult struct {
	ToDelete TreeSnapshot
	ToWrite  TreeSnapshot
}

// PathFailure records a single path that could not be deleted or written.
type PathFailure struct {
	Path RelativePath
	Op   string // "delete" or "write"
	Err  error
}

// ReconcileReport summarizes an apply. Failures are soft: they are logged
// and reported here but never fail the enclosing pull.
type ReconcileReport struct {
	Deleted  int
	Written  int
	Pruned   int
	Failures []PathFailure
}
