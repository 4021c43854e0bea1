package database

import (
	"fmt"
	"os"
	"path/filepath"

	"habitsync/internal/config"
)

// NewLocalStoreFromConfig creates the local store selected by the database
// config type. The file database is named after the device so several
// devices may share a data directory.
func NewLocalStoreFromConfig(cfg config.DatabaseConfig, deviceID string) (*SQLiteStore, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if deviceID == "" {
			return nil, fmt.Errorf("device_id required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
		return NewSQLiteStore(filepath.Join(cfg.DataDir, deviceID+".db"))
	case "memory":
		return NewSQLiteStore(":memory:")
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
