package store

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"vsync/internal/vsync"
)

func TestMemoryStore_UploadFetch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	tests := []struct {
		name    string
		id      vsync.VaultIdentity
		content string
	}{
		{name: "small blob", id: "notes", content: "PK\x05\x06"},
		{name: "empty blob", id: "empty", content: ""},
		{name: "large blob", id: "large", content: strings.Repeat("x", 10000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Upload(ctx, tt.id, strings.NewReader(tt.content), int64(len(tt.content))); err != nil {
				t.Fatalf("Upload() error = %v", err)
			}
			var buf bytes.Buffer
			if err := s.Fetch(ctx, tt.id, &buf); err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if buf.String() != tt.content {
				t.Errorf("Fetch() = %d bytes, want %d", buf.Len(), len(tt.content))
			}
		})
	}
}

func TestMemoryStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for _, content := range []string{"first", "second"} {
		if err := s.Upload(ctx, "v", strings.NewReader(content), int64(len(content))); err != nil {
			t.Fatalf("Upload() error = %v", err)
		}
	}
	var buf bytes.Buffer
	if err := s.Fetch(ctx, "v", &buf); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if buf.String() != "second" {
		t.Errorf("Fetch() = %q, want %q", buf.String(), "second")
	}
}

func TestMemoryStore_Errors(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	t.Run("missing snapshot", func(t *testing.T) {
		err := s.Fetch(ctx, "nope", &bytes.Buffer{})
		if !errors.Is(err, vsync.ErrNotFound) {
			t.Errorf("Fetch() error = %v, want ErrNotFound", err)
		}
		if ok, _ := s.Exists(ctx, "nope"); ok {
			t.Error("Exists() = true for missing snapshot")
		}
	})

	t.Run("size mismatch", func(t *testing.T) {
		if err := s.Upload(ctx, "v", strings.NewReader("abc"), 10); err == nil {
			t.Error("Upload() expected size mismatch error")
		}
	})

	t.Run("invalid identity", func(t *testing.T) {
		err := s.Upload(ctx, "../x", strings.NewReader(""), 0)
		if !errors.Is(err, vsync.ErrInvalidIdentity) {
			t.Errorf("Upload() error = %v, want ErrInvalidIdentity", err)
		}
	})
}
