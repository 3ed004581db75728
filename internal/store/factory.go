package store

import (
	"context"
	"fmt"
	"time"

	"vsync/internal/config"
	"vsync/internal/vsync"
)

// NewStoreFromConfig creates a SnapshotStore implementation based on the store config type.
func NewStoreFromConfig(ctx context.Context, cfg config.StoreConfig) (vsync.SnapshotStore, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem store requires fs_root to be set")
		}
		return NewFileSystemStore(cfg.FSRoot)
	case "s3":
		return NewS3Store(ctx, cfg)
	case "http":
		if cfg.HTTPURL == "" {
			return nil, fmt.Errorf("http store requires http_url to be set")
		}
		return NewHTTPStore(cfg.HTTPURL, cfg.AuthToken, time.Duration(cfg.HTTPTimeoutSeconds)*time.Second)
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}
}
