package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"moodops/internal/config"
	"moodops/internal/database/migrations"
	"moodops/internal/ops"
)

// NewStoreFromConfig creates a Store implementation based on the database
// config type. The database is migrated to the latest schema on open, so a
// fresh file or an empty postgres database is immediately usable.
func NewStoreFromConfig(cfg config.DatabaseConfig) (ops.Store, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dbPath := filepath.Join(cfg.DataDir, "mood_tracker.db")
		db, err := OpenSQLite(dbPath)
		if err != nil {
			return nil, err
		}
		return newMigratedStore(db, migrations.SQLite)
	case "memory":
		db, err := OpenSQLite(":memory:")
		if err != nil {
			return nil, err
		}
		return newMigratedStore(db, migrations.SQLite)
	case "postgres":
		if cfg.URL == "" {
			return nil, fmt.Errorf("url required for postgres database (set DATABASE_URL)")
		}
		db, err := OpenPostgres(cfg.URL)
		if err != nil {
			return nil, err
		}
		return newMigratedStore(db, migrations.Postgres)
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}

func newMigratedStore(db *sql.DB, dialect migrations.Dialect) (*SQLStore, error) {
	if err := migrations.MigrateUp(db, dialect); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return NewSQLStore(db, dialect), nil
}
