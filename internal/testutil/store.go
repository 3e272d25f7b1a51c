package testutil

import (
	"testing"

	"moodops/internal/database"
	"moodops/internal/database/migrations"
	"moodops/internal/ops"
)

// NewTestStore creates a new in-memory SQLite store with all migrations
// applied. The store is automatically closed when the test completes.
func NewTestStore(t *testing.T) ops.Store {
	t.Helper()

	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	if err := migrations.MigrateUp(db, migrations.SQLite); err != nil {
		db.Close()
		t.Fatalf("failed to apply migrations: %v", err)
	}

	store := database.NewSQLStore(db, migrations.SQLite)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}
