package staging

import (
	"fmt"
	"os"
	"path/filepath"

	"vsync/internal/vsync"
)

// DirPattern names staging directories. It matches one of the default
// exclusion patterns so a staging area is never archived or deleted by a
// concurrent walk of the vault.
const DirPattern = "vsync-staging-*"

// FileSystemProvider creates staging areas as fresh directories under a base
// directory.
type FileSystemProvider struct {
	baseDir string
}

// NewFileSystemProvider creates a provider rooted at baseDir. An empty
// baseDir means the OS temp directory. baseDir is created if needed.
func NewFileSystemProvider(baseDir string) (*FileSystemProvider, error) {
	if baseDir == "" {
		return &FileSystemProvider{baseDir: os.TempDir()}, nil
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolving staging directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0700); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	return &FileSystemProvider{baseDir: abs}, nil
}

// Create makes a new empty staging directory.
func (p *FileSystemProvider) Create() (vsync.StagingArea, error) {
	dir, err := os.MkdirTemp(p.baseDir, DirPattern)
	if err != nil {
		return nil, fmt.Errorf("creating staging area: %w", err)
	}
	return &area{path: dir}, nil
}

// BaseDir returns the directory new staging areas are created in.
func (p *FileSystemProvider) BaseDir() string { return p.baseDir }

var _ vsync.StagingProvider = (*FileSystemProvider)(nil)
