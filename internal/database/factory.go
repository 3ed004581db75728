package database

import (
	"fmt"
	"os"
	"path/filepath"

	"vsync/internal/config"
	"vsync/internal/vsync"
)

// HistoryFile is the sqlite file name inside data_dir.
const HistoryFile = "history.db"

// NewDatabaseFromConfig creates a Database based on the database config type.
func NewDatabaseFromConfig(cfg config.DatabaseConfig, clock vsync.Clock) (Database, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
		return NewSQLiteDatabase(filepath.Join(cfg.DataDir, HistoryFile), clock)
	case "memory":
		return NewSQLiteDatabase(":memory:", clock)
	case "none", "":
		return NopDatabase{}, nil
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
