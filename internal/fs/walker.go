package fs

import (
	"io/fs"
	"iter"
	"path/filepath"

	"vsync/internal/vsync"
)

// Walker enumerates regular files under a root on the real filesystem.
type Walker struct {
	logger vsync.Logger
}

// NewWalker creates a Walker. A nil logger discards output.
func NewWalker(logger vsync.Logger) *Walker {
	if logger == nil {
		logger = vsync.NewNopLogger()
	}
	return &Walker{logger: logger}
}

// Walk returns every regular file under root as a RelativePath. The
// sequence reads the disk each time it is ranged over. Directories in skip
// are not entered; symlinks, sockets, devices and pipes are skipped.
func (w *Walker) Walk(root string, skip ...string) iter.Seq2[vsync.RelativePath, error] {
	return func(yield func(vsync.RelativePath, error) bool) {
		abs, err := vsync.ResolveRoot(root)
		if err != nil {
			yield("", err)
			return
		}
		abs = resolveLinks(abs)

		skipped := make(map[string]bool, len(skip))
		for _, s := range skip {
			if a, err := filepath.Abs(s); err == nil {
				skipped[resolveLinks(a)] = true
			}
		}

		filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == abs {
					yield("", &vsync.TraversalError{Root: abs, Err: err})
					return filepath.SkipAll
				}
				w.logger.Warn("skipping unreadable path", "path", path, "error", err)
				return nil
			}

			if d.IsDir() {
				if path != abs && skipped[path] {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				w.logger.Debug("skipping non-regular file", "path", path, "type", d.Type().String())
				return nil
			}

			rel, err := filepath.Rel(abs, path)
			if err != nil {
				w.logger.Warn("skipping path outside root", "path", path, "error", err)
				return nil
			}
			if !yield(vsync.NewRelativePath(rel), nil) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

// resolveLinks follows symlinks in path so a linked root is walked like
// its target. Unresolvable paths are returned unchanged.
func resolveLinks(path string) string {
	if real, err := filepath.EvalSymlinks(path); err == nil {
		return real
	}
	return path
}

var _ vsync.Walker = (*Walker)(nil)
