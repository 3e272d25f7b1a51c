package ops_test

import (
	"testing"
	"time"

	"moodops/internal/model"
	"moodops/internal/ops"
	"moodops/internal/testutil"
)

func TestService_Restore(t *testing.T) {
	t.Run("restores users, logs, and settings into an empty database", func(t *testing.T) {
		snapshots := testutil.NewTestSnapshotStore(t)
		store := testutil.NewTestStore(t)
		svc := ops.NewService(store, snapshots, nil, nil, "test-host", ops.NewNopLogger(), testutil.FixedClock())

		seedUser(t, store, 100)
		seedUser(t, store, 200)
		seedLog(t, store, 100, "mood", time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC))
		seedLog(t, store, 200, "sleep", time.Date(2024, 1, 10, 7, 0, 0, 0, time.UTC))
		if err := store.CreateUserSettings(&model.UserSettings{TelegramID: 100, SurveyInterval: 30}); err != nil {
			t.Fatalf("CreateUserSettings() error = %v", err)
		}

		backup, err := svc.Backup()
		if err != nil {
			t.Fatalf("Backup() error = %v", err)
		}

		// Restore into a fresh database sharing the same snapshot store.
		fresh := testutil.NewTestStore(t)
		restoreSvc := ops.NewService(fresh, snapshots, nil, nil, "test-host", ops.NewNopLogger(), testutil.FixedClock())

		result, err := restoreSvc.Restore(backup.SnapshotID)
		if err != nil {
			t.Fatalf("Restore() error = %v", err)
		}
		if result.UsersCreated != 2 {
			t.Errorf("UsersCreated = %d, want 2", result.UsersCreated)
		}
		if result.LogsCreated != 2 {
			t.Errorf("LogsCreated = %d, want 2", result.LogsCreated)
		}
		if result.SettingsCreated != 1 {
			t.Errorf("SettingsCreated = %d, want 1", result.SettingsCreated)
		}
		// User 200 has no settings in the snapshot; a defaults row is created.
		if result.DefaultsCreated != 1 {
			t.Errorf("DefaultsCreated = %d, want 1", result.DefaultsCreated)
		}

		settings, err := fresh.GetUserSettings(200)
		if err != nil {
			t.Fatalf("GetUserSettings(200) error = %v", err)
		}
		if settings == nil {
			t.Fatal("GetUserSettings(200) = nil, want defaults row")
		}
		if settings.SurveyInterval != model.DefaultSurveyInterval {
			t.Errorf("SurveyInterval = %d, want %d", settings.SurveyInterval, model.DefaultSurveyInterval)
		}
	})

	t.Run("restoring twice is a no-op", func(t *testing.T) {
		svc, store, _ := newTestService(t, nil, nil)

		seedUser(t, store, 100)
		seedLog(t, store, 100, "mood", time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC))

		backup, err := svc.Backup()
		if err != nil {
			t.Fatalf("Backup() error = %v", err)
		}

		first, err := svc.Restore(backup.SnapshotID)
		if err != nil {
			t.Fatalf("first Restore() error = %v", err)
		}
		if first.UsersCreated != 0 || first.LogsCreated != 0 {
			t.Errorf("first restore into source db created %d users, %d logs, want 0/0",
				first.UsersCreated, first.LogsCreated)
		}

		second, err := svc.Restore(backup.SnapshotID)
		if err != nil {
			t.Fatalf("second Restore() error = %v", err)
		}
		if second.LogsCreated != 0 {
			t.Errorf("second restore created %d logs, want 0", second.LogsCreated)
		}
		if second.LogsSkipped != 1 {
			t.Errorf("second restore skipped %d logs, want 1", second.LogsSkipped)
		}

		count, err := store.CountLogs()
		if err != nil {
			t.Fatalf("CountLogs() error = %v", err)
		}
		if count != 1 {
			t.Errorf("log count after double restore = %d, want 1", count)
		}
	})

	t.Run("preserves rows created after the snapshot", func(t *testing.T) {
		svc, store, _ := newTestService(t, nil, nil)

		seedUser(t, store, 100)
		seedLog(t, store, 100, "mood", time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC))

		backup, err := svc.Backup()
		if err != nil {
			t.Fatalf("Backup() error = %v", err)
		}

		// New activity arrives between backup and restore.
		seedLog(t, store, 100, "mood", time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC))

		result, err := svc.Restore(backup.SnapshotID)
		if err != nil {
			t.Fatalf("Restore() error = %v", err)
		}
		if result.LogsCreated != 0 {
			t.Errorf("LogsCreated = %d, want 0", result.LogsCreated)
		}

		count, err := store.CountLogs()
		if err != nil {
			t.Fatalf("CountLogs() error = %v", err)
		}
		if count != 2 {
			t.Errorf("log count = %d, want 2 (snapshot log + live log)", count)
		}
	})

	t.Run("does not clobber an existing user's timezone", func(t *testing.T) {
		svc, store, _ := newTestService(t, nil, nil)

		seedUser(t, store, 100)
		backup, err := svc.Backup()
		if err != nil {
			t.Fatalf("Backup() error = %v", err)
		}

		result, err := svc.Restore(backup.SnapshotID)
		if err != nil {
			t.Fatalf("Restore() error = %v", err)
		}
		if result.UsersSkipped != 1 {
			t.Errorf("UsersSkipped = %d, want 1", result.UsersSkipped)
		}

		user, err := store.FindUserByTelegramID(100)
		if err != nil {
			t.Fatalf("FindUserByTelegramID() error = %v", err)
		}
		if user.Timezone.String != "Europe/Berlin" {
			t.Errorf("timezone = %q, want Europe/Berlin", user.Timezone.String)
		}
	})

	t.Run("missing snapshot leaves the database unchanged", func(t *testing.T) {
		svc, store, _ := newTestService(t, nil, nil)
		seedUser(t, store, 100)

		if _, err := svc.Restore("20200101_000000"); err == nil {
			t.Fatal("Restore() of missing snapshot expected error")
		}

		count, err := store.CountUsers()
		if err != nil {
			t.Fatalf("CountUsers() error = %v", err)
		}
		if count != 1 {
			t.Errorf("user count = %d, want 1", count)
		}
	})

	t.Run("rejects malformed snapshot ids", func(t *testing.T) {
		svc, _, _ := newTestService(t, nil, nil)
		if _, err := svc.Restore("not-a-snapshot"); err == nil {
			t.Error("Restore(malformed id) expected error")
		}
	})

	t.Run("distinguishes logs by details", func(t *testing.T) {
		svc, store, _ := newTestService(t, nil, nil)

		seedUser(t, store, 100)
		ts := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
		seedLog(t, store, 100, "mood", ts)
		// Same user, type, and timestamp but NULL details: a distinct log.
		if err := store.CreateLog(&model.Log{TelegramID: 100, EventType: "mood", Timestamp: ts}); err != nil {
			t.Fatalf("CreateLog() error = %v", err)
		}

		backup, err := svc.Backup()
		if err != nil {
			t.Fatalf("Backup() error = %v", err)
		}

		result, err := svc.Restore(backup.SnapshotID)
		if err != nil {
			t.Fatalf("Restore() error = %v", err)
		}
		if result.LogsSkipped != 2 {
			t.Errorf("LogsSkipped = %d, want 2", result.LogsSkipped)
		}

		count, err := store.CountLogs()
		if err != nil {
			t.Fatalf("CountLogs() error = %v", err)
		}
		if count != 2 {
			t.Errorf("log count = %d, want 2", count)
		}
	})
}
