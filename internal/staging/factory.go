package staging

import (
	"fmt"

	"vsync/internal/config"
	"vsync/internal/vsync"
)

// NewProviderFromConfig creates a StagingProvider based on the config type.
func NewProviderFromConfig(cfg config.StagingConfig) (vsync.StagingProvider, error) {
	switch cfg.Type {
	case "", "filesystem":
		return NewFileSystemProvider(cfg.StagingDir)
	default:
		return nil, fmt.Errorf("unknown staging area type: %s", cfg.Type)
	}
}
