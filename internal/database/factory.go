package database

import (
	"fmt"
	"os"
	"path/filepath"

	"nbm/internal/config"
	"nbm/internal/nbm"
)

// DatabaseFile is the registry database's file name inside the data directory.
const DatabaseFile = "nbm.db"

// NewStoreFromConfig creates the registry store selected by the database config type.
func NewStoreFromConfig(cfg config.DatabaseConfig, ids nbm.IDGenerator) (*SQLiteStore, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data_dir: %w", err)
		}
		return NewSQLiteStore(filepath.Join(cfg.DataDir, DatabaseFile), ids)
	case "memory":
		return NewSQLiteStore(":memory:", ids)
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
