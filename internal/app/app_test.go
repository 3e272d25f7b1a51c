package app

import (
	"testing"

	"moodops/internal/config"
	"moodops/internal/database"
	"moodops/internal/model"
)

// testAppConfig returns a config rooted in a temp dir with a file-backed
// sqlite store, so operation records survive Close and can be re-read.
func testAppConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig("test-host", t.TempDir())
	cfg.Encryption.Type = "none"
	return cfg
}

func TestApp_RestoreRecordsSnapshotID(t *testing.T) {
	cfg := testAppConfig(t)

	backupApp, err := NewApp(cfg, model.OpBackup)
	if err != nil {
		t.Fatalf("NewApp(Backup) error = %v", err)
	}
	backup, err := backupApp.Backup()
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	if err := backupApp.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	restoreApp, err := NewApp(cfg, model.OpRestore)
	if err != nil {
		t.Fatalf("NewApp(Restore) error = %v", err)
	}
	defer restoreApp.Close()

	if _, err := restoreApp.Restore(backup.SnapshotID); err != nil {
		t.Fatalf("Restore(%s) error = %v", backup.SnapshotID, err)
	}

	operations, err := restoreApp.History(10)
	if err != nil {
		t.Fatalf("History(10) error = %v", err)
	}
	if len(operations) != 2 {
		t.Fatalf("History(10) returned %d operations, want 2", len(operations))
	}
	if operations[0].Kind != model.OpRestore {
		t.Errorf("operations[0].Kind = %q, want %q", operations[0].Kind, model.OpRestore)
	}
	if operations[0].Parameters != backup.SnapshotID {
		t.Errorf("operations[0].Parameters = %q, want %q", operations[0].Parameters, backup.SnapshotID)
	}
}

func TestApp_OperationLifecycle(t *testing.T) {
	t.Run("backup is finished with success on close", func(t *testing.T) {
		cfg := testAppConfig(t)

		a, err := NewApp(cfg, model.OpBackup)
		if err != nil {
			t.Fatalf("NewApp(Backup) error = %v", err)
		}
		if _, err := a.Backup(); err != nil {
			t.Fatalf("Backup() error = %v", err)
		}
		if err := a.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}

		operations := readOperations(t, cfg)
		if len(operations) != 1 {
			t.Fatalf("got %d operations, want 1", len(operations))
		}
		op := operations[0]
		if op.Kind != model.OpBackup {
			t.Errorf("Kind = %q, want %q", op.Kind, model.OpBackup)
		}
		if op.Status != model.StatusSuccess {
			t.Errorf("Status = %q, want %q", op.Status, model.StatusSuccess)
		}
		if !op.FinishedAt.Valid {
			t.Error("FinishedAt is not set")
		}
	})

	t.Run("failed restore is finished with error status", func(t *testing.T) {
		cfg := testAppConfig(t)

		a, err := NewApp(cfg, model.OpRestore)
		if err != nil {
			t.Fatalf("NewApp(Restore) error = %v", err)
		}
		if _, err := a.Restore("20200101_000000"); err == nil {
			t.Fatal("Restore() of missing snapshot succeeded, want error")
		}
		a.MarkError()
		if err := a.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}

		operations := readOperations(t, cfg)
		if len(operations) != 1 {
			t.Fatalf("got %d operations, want 1", len(operations))
		}
		op := operations[0]
		if op.Status != model.StatusError {
			t.Errorf("Status = %q, want %q", op.Status, model.StatusError)
		}
		if op.Parameters != "20200101_000000" {
			t.Errorf("Parameters = %q, want %q", op.Parameters, "20200101_000000")
		}
	})

	t.Run("read-only commands record nothing", func(t *testing.T) {
		cfg := testAppConfig(t)

		a, err := NewApp(cfg, "History")
		if err != nil {
			t.Fatalf("NewApp(History) error = %v", err)
		}
		if _, err := a.History(10); err != nil {
			t.Fatalf("History(10) error = %v", err)
		}
		if err := a.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}

		if operations := readOperations(t, cfg); len(operations) != 0 {
			t.Fatalf("got %d operations, want 0", len(operations))
		}
	})
}

// readOperations reopens the store from cfg and returns the recorded
// operations, newest first.
func readOperations(t *testing.T, cfg *config.Config) []*model.Operation {
	t.Helper()
	store, err := database.NewStoreFromConfig(cfg.Database)
	if err != nil {
		t.Fatalf("NewStoreFromConfig() error = %v", err)
	}
	defer store.Close()

	operations, err := store.ListOperations(10)
	if err != nil {
		t.Fatalf("ListOperations(10) error = %v", err)
	}
	return operations
}
