package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadCredential(t *testing.T) {
	dir := t.TempDir()

	got, err := readCredential(filepath.Join(dir, "missing"))
	if err != nil || got != "" {
		t.Errorf("readCredential(missing) = %q, %v; want empty, nil", got, err)
	}

	path := filepath.Join(dir, ".vsync-credentials")
	if err := os.WriteFile(path, []byte("  tok-123\n"), 0600); err != nil {
		t.Fatal(err)
	}
	got, err = readCredential(path)
	if err != nil {
		t.Fatalf("readCredential() error = %v", err)
	}
	if got != "tok-123" {
		t.Errorf("readCredential() = %q, want tok-123", got)
	}
}
