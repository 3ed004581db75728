package fs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// TempPattern names in-flight files written by WriteFileAtomic. It matches
// one of DefaultExcludePatterns so leftovers are never synced or deleted.
const TempPattern = ".vsync-tmp-*"

// WriteFileAtomic writes data from r to destPath using a temp file in the
// same directory followed by a rename, so readers never observe a partial
// file. If expectedSize is non-negative the number of bytes copied must match.
func WriteFileAtomic(destPath string, r io.Reader, expectedSize int64, perm fs.FileMode) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), TempPattern)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if expectedSize >= 0 && written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	success = true
	return nil
}

// CopyFileAtomic copies src over dst with WriteFileAtomic.
func CopyFileAtomic(src, dst string, perm fs.FileMode) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer f.Close()
	return WriteFileAtomic(dst, f, -1, perm)
}

// RemoveFile deletes a single file. A file that is already gone is not an
// error, which keeps repeated applies idempotent.
func RemoveFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// PruneEmptyParents removes dir and then each of its ancestors up to, but
// never including, root, stopping at the first directory that is not empty
// or no longer exists. It returns the number of directories removed.
//
// A directory is removed purely because it is empty when checked; whether
// it was empty before the caller's deletion is not known.
func PruneEmptyParents(root, dir string) int {
	root = filepath.Clean(root)
	dir = filepath.Clean(dir)

	removed := 0
	for dir != root && isWithin(root, dir) {
		// os.Remove refuses non-empty directories, so a concurrent writer
		// that just created a file here wins.
		if err := os.Remove(dir); err != nil {
			break
		}
		removed++
		dir = filepath.Dir(dir)
	}
	return removed
}

func isWithin(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
