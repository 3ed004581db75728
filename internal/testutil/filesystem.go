package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

// Tree maps slash-separated relative paths to file contents.
type Tree map[string]string

// WriteTree creates every file of tree below root, with parent directories.
func WriteTree(t *testing.T, root string, tree Tree) {
	t.Helper()
	for rel, content := range tree {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("creating parent of %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", rel, err)
		}
	}
}

// MkdirAll creates empty directories below root.
func MkdirAll(t *testing.T, root string, dirs ...string) {
	t.Helper()
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(root, filepath.FromSlash(d)), 0755); err != nil {
			t.Fatalf("creating %s: %v", d, err)
		}
	}
}

// ReadTree returns every regular file below root with its content.
func ReadTree(t *testing.T, root string) Tree {
	t.Helper()
	tree := make(Tree)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		tree[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("reading tree %s: %v", root, err)
	}
	return tree
}

// AssertTree fails the test unless root holds exactly want.
func AssertTree(t *testing.T, root string, want Tree) {
	t.Helper()
	got := ReadTree(t, root)
	for rel, content := range want {
		g, ok := got[rel]
		if !ok {
			t.Errorf("missing %s", rel)
			continue
		}
		if g != content {
			t.Errorf("%s = %q, want %q", rel, g, content)
		}
	}
	for rel := range got {
		if _, ok := want[rel]; !ok {
			t.Errorf("unexpected file %s", rel)
		}
	}
}

// DirExists reports whether root/rel is an existing directory.
func DirExists(t *testing.T, root, rel string) bool {
	t.Helper()
	info, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
	return err == nil && info.IsDir()
}
