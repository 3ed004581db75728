package fs_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vsync/internal/fs"
	"vsync/internal/testutil"
)

func TestWriteFileAtomic(t *testing.T) {
	t.Run("writes and replaces", func(t *testing.T) {
		dir := t.TempDir()
		dest := filepath.Join(dir, "f")

		for _, content := range []string{"first", "second"} {
			if err := fs.WriteFileAtomic(dest, strings.NewReader(content), int64(len(content)), 0644); err != nil {
				t.Fatalf("WriteFileAtomic() error = %v", err)
			}
		}
		testutil.AssertTree(t, dir, testutil.Tree{"f": "second"})
	})

	t.Run("size mismatch leaves no trace", func(t *testing.T) {
		dir := t.TempDir()
		dest := filepath.Join(dir, "f")

		if err := fs.WriteFileAtomic(dest, strings.NewReader("abc"), 10, 0644); err == nil {
			t.Fatal("WriteFileAtomic() expected size mismatch error")
		}
		testutil.AssertTree(t, dir, testutil.Tree{})
	})
}

func TestRemoveFile(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, testutil.Tree{"f": "x"})

	for i := 0; i < 2; i++ {
		if err := fs.RemoveFile(filepath.Join(dir, "f")); err != nil {
			t.Fatalf("RemoveFile() call %d error = %v", i+1, err)
		}
	}
}

func TestPruneEmptyParents(t *testing.T) {
	t.Run("removes chain of empty directories", func(t *testing.T) {
		root := t.TempDir()
		testutil.MkdirAll(t, root, "a/b/c")

		n := fs.PruneEmptyParents(root, filepath.Join(root, "a", "b", "c"))
		if n != 3 {
			t.Errorf("PruneEmptyParents() = %d, want 3", n)
		}
		if _, err := os.Stat(root); err != nil {
			t.Errorf("root was removed: %v", err)
		}
	})

	t.Run("stops at first non-empty directory", func(t *testing.T) {
		root := t.TempDir()
		testutil.MkdirAll(t, root, "a/b", "a/empty")

		n := fs.PruneEmptyParents(root, filepath.Join(root, "a", "b"))
		if n != 1 {
			t.Errorf("PruneEmptyParents() = %d, want 1", n)
		}
		if !testutil.DirExists(t, root, "a/empty") {
			t.Error("sibling empty directory was removed")
		}
	})

	t.Run("already gone is a no-op", func(t *testing.T) {
		root := t.TempDir()
		if n := fs.PruneEmptyParents(root, filepath.Join(root, "nope")); n != 0 {
			t.Errorf("PruneEmptyParents() = %d, want 0", n)
		}
	})

	t.Run("never leaves the root", func(t *testing.T) {
		parent := t.TempDir()
		root := filepath.Join(parent, "root")
		testutil.MkdirAll(t, parent, "root", "outside")

		if n := fs.PruneEmptyParents(root, filepath.Join(parent, "outside")); n != 0 {
			t.Errorf("PruneEmptyParents() = %d, want 0", n)
		}
		if n := fs.PruneEmptyParents(root, root); n != 0 {
			t.Errorf("PruneEmptyParents(root) = %d, want 0", n)
		}
	})
}
