package store

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vsync/internal/vsync"
)

func TestNewFileSystemStore(t *testing.T) {
	root := filepath.Join(t.TempDir(), "store")

	if _, err := NewFileSystemStore(root); err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "vaults")); err != nil {
		t.Errorf("vaults directory not created: %v", err)
	}
}

func TestFileSystemStore_Upload(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		size    int64
		wantErr bool
	}{
		{name: "store snapshot", data: "PK\x05\x06", size: 4},
		{name: "empty snapshot", data: "", size: 0},
		{name: "size mismatch", data: "hello", size: 100, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			s, err := NewFileSystemStore(root)
			if err != nil {
				t.Fatalf("NewFileSystemStore() error = %v", err)
			}

			err = s.Upload(context.Background(), "notes", strings.NewReader(tt.data), tt.size)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Upload() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			got, err := os.ReadFile(filepath.Join(root, "vaults", "notes.zip"))
			if err != nil {
				t.Fatalf("snapshot not at vaults/notes.zip: %v", err)
			}
			if string(got) != tt.data {
				t.Errorf("stored %q, want %q", got, tt.data)
			}
		})
	}
}

func TestFileSystemStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	s, _ := NewFileSystemStore(t.TempDir())

	for _, content := range []string{"old snapshot", "new"} {
		if err := s.Upload(ctx, "notes", strings.NewReader(content), int64(len(content))); err != nil {
			t.Fatalf("Upload() error = %v", err)
		}
	}

	var buf bytes.Buffer
	if err := s.Fetch(ctx, "notes", &buf); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if buf.String() != "new" {
		t.Errorf("Fetch() = %q, want %q", buf.String(), "new")
	}
}

func TestFileSystemStore_Fetch(t *testing.T) {
	ctx := context.Background()
	s, _ := NewFileSystemStore(t.TempDir())

	t.Run("missing snapshot", func(t *testing.T) {
		err := s.Fetch(ctx, "missing", &bytes.Buffer{})
		if !errors.Is(err, vsync.ErrNotFound) {
			t.Errorf("Fetch() error = %v, want ErrNotFound", err)
		}
		if ok, err := s.Exists(ctx, "missing"); ok || err != nil {
			t.Errorf("Exists() = %v, %v; want false, nil", ok, err)
		}
	})

	t.Run("rejects traversal identities", func(t *testing.T) {
		for _, id := range []vsync.VaultIdentity{"..", "../../etc/passwd", `a\b`} {
			if err := s.Fetch(ctx, id, &bytes.Buffer{}); !errors.Is(err, vsync.ErrInvalidIdentity) {
				t.Errorf("Fetch(%q) error = %v, want ErrInvalidIdentity", id, err)
			}
		}
	})
}

func TestFileSystemStore_ValidateSetup(t *testing.T) {
	t.Run("valid setup", func(t *testing.T) {
		s, err := NewFileSystemStore(t.TempDir())
		if err != nil {
			t.Fatalf("NewFileSystemStore() error = %v", err)
		}
		if err := s.ValidateSetup(context.Background()); err != nil {
			t.Errorf("ValidateSetup() error = %v", err)
		}
	})

	t.Run("missing root directory", func(t *testing.T) {
		s := &FileSystemStore{root: "/nonexistent/path"}
		if err := s.ValidateSetup(context.Background()); err == nil {
			t.Error("ValidateSetup() expected error for missing root")
		}
	})
}

func TestFileSystemStore_AtomicWrite(t *testing.T) {
	root := t.TempDir()
	s, _ := NewFileSystemStore(root)

	if err := s.Upload(context.Background(), "notes", strings.NewReader("abc"), 10); err == nil {
		t.Fatal("Upload() expected size mismatch error")
	}

	entries, err := os.ReadDir(filepath.Join(root, "vaults"))
	if err != nil {
		t.Fatalf("failed to read vaults dir: %v", err)
	}
	for _, entry := range entries {
		t.Errorf("file left behind after failed upload: %s", entry.Name())
	}
}
