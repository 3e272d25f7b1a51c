package database_test

import (
	"database/sql"
	"testing"
	"time"

	"moodops/internal/model"
	"moodops/internal/ops"
	"moodops/internal/testutil"
)

func TestSQLStore_Users(t *testing.T) {
	t.Run("find returns nil for a missing user", func(t *testing.T) {
		store := testutil.NewTestStore(t)

		user, err := store.FindUserByTelegramID(42)
		if err != nil {
			t.Fatalf("FindUserByTelegramID() error = %v", err)
		}
		if user != nil {
			t.Errorf("FindUserByTelegramID() = %+v, want nil", user)
		}
	})

	t.Run("create and find", func(t *testing.T) {
		store := testutil.NewTestStore(t)

		createdAt := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
		created, err := store.CreateUser(&model.User{
			TelegramID: 42,
			Timezone:   sql.NullString{String: "UTC", Valid: true},
			CreatedAt:  createdAt,
		})
		if err != nil {
			t.Fatalf("CreateUser() error = %v", err)
		}
		if created.ID == 0 {
			t.Error("CreateUser() did not assign an ID")
		}

		found, err := store.FindUserByTelegramID(42)
		if err != nil {
			t.Fatalf("FindUserByTelegramID() error = %v", err)
		}
		if found == nil {
			t.Fatal("FindUserByTelegramID() = nil after create")
		}
		if found.Timezone.String != "UTC" {
			t.Errorf("timezone = %q, want UTC", found.Timezone.String)
		}
		if !found.CreatedAt.UTC().Equal(createdAt) {
			t.Errorf("created_at = %v, want %v", found.CreatedAt, createdAt)
		}
	})

	t.Run("duplicate telegram id is rejected", func(t *testing.T) {
		store := testutil.NewTestStore(t)

		if _, err := store.CreateUser(&model.User{TelegramID: 42}); err != nil {
			t.Fatalf("CreateUser() error = %v", err)
		}
		if _, err := store.CreateUser(&model.User{TelegramID: 42}); err == nil {
			t.Error("second CreateUser() with same telegram id expected error")
		}
	})

	t.Run("list orders by telegram id", func(t *testing.T) {
		store := testutil.NewTestStore(t)

		for _, id := range []int64{300, 100, 200} {
			if _, err := store.CreateUser(&model.User{TelegramID: id}); err != nil {
				t.Fatalf("CreateUser(%d) error = %v", id, err)
			}
		}

		users, err := store.ListUsers()
		if err != nil {
			t.Fatalf("ListUsers() error = %v", err)
		}
		if len(users) != 3 {
			t.Fatalf("ListUsers() len = %d, want 3", len(users))
		}
		for i, want := range []int64{100, 200, 300} {
			if users[i].TelegramID != want {
				t.Errorf("users[%d].TelegramID = %d, want %d", i, users[i].TelegramID, want)
			}
		}

		count, err := store.CountUsers()
		if err != nil {
			t.Fatalf("CountUsers() error = %v", err)
		}
		if count != 3 {
			t.Errorf("CountUsers() = %d, want 3", count)
		}
	})
}

// seedOwner creates the user row log and settings inserts reference.
func seedOwner(t *testing.T, store ops.Store, telegramID int64) {
	t.Helper()
	if _, err := store.CreateUser(&model.User{TelegramID: telegramID, CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("CreateUser(%d) error = %v", telegramID, err)
	}
}

func TestSQLStore_Logs(t *testing.T) {
	ts := time.Date(2024, 1, 10, 8, 30, 0, 0, time.UTC)

	t.Run("create and list", func(t *testing.T) {
		store := testutil.NewTestStore(t)
		seedOwner(t, store, 42)

		if err := store.CreateLog(&model.Log{TelegramID: 42, EventType: "mood", Timestamp: ts.Add(time.Hour)}); err != nil {
			t.Fatalf("CreateLog() error = %v", err)
		}
		if err := store.CreateLog(&model.Log{TelegramID: 42, EventType: "sleep", Timestamp: ts}); err != nil {
			t.Fatalf("CreateLog() error = %v", err)
		}

		logs, err := store.ListLogs()
		if err != nil {
			t.Fatalf("ListLogs() error = %v", err)
		}
		if len(logs) != 2 {
			t.Fatalf("ListLogs() len = %d, want 2", len(logs))
		}
		// Ordered by timestamp.
		if logs[0].EventType != "sleep" || logs[1].EventType != "mood" {
			t.Errorf("order = %s, %s; want sleep, mood", logs[0].EventType, logs[1].EventType)
		}
	})

	t.Run("exists matches on all identity columns", func(t *testing.T) {
		store := testutil.NewTestStore(t)
		seedOwner(t, store, 42)

		log := &model.Log{
			TelegramID: 42,
			EventType:  "mood",
			Timestamp:  ts,
			Details:    sql.NullString{String: "mood=7", Valid: true},
		}
		if err := store.CreateLog(log); err != nil {
			t.Fatalf("CreateLog() error = %v", err)
		}

		exists, err := store.LogExists(log)
		if err != nil {
			t.Fatalf("LogExists() error = %v", err)
		}
		if !exists {
			t.Error("LogExists(identical) = false, want true")
		}

		variants := []*model.Log{
			{TelegramID: 43, EventType: "mood", Timestamp: ts, Details: log.Details},
			{TelegramID: 42, EventType: "sleep", Timestamp: ts, Details: log.Details},
			{TelegramID: 42, EventType: "mood", Timestamp: ts.Add(time.Second), Details: log.Details},
			{TelegramID: 42, EventType: "mood", Timestamp: ts, Details: sql.NullString{String: "mood=8", Valid: true}},
			{TelegramID: 42, EventType: "mood", Timestamp: ts},
		}
		for i, v := range variants {
			exists, err := store.LogExists(v)
			if err != nil {
				t.Fatalf("LogExists(variant %d) error = %v", i, err)
			}
			if exists {
				t.Errorf("LogExists(variant %d) = true, want false", i)
			}
		}
	})

	t.Run("exists with null details", func(t *testing.T) {
		store := testutil.NewTestStore(t)
		seedOwner(t, store, 42)

		log := &model.Log{TelegramID: 42, EventType: "mood", Timestamp: ts}
		if err := store.CreateLog(log); err != nil {
			t.Fatalf("CreateLog() error = %v", err)
		}

		exists, err := store.LogExists(log)
		if err != nil {
			t.Fatalf("LogExists() error = %v", err)
		}
		if !exists {
			t.Error("LogExists(null details) = false, want true")
		}

		withDetails := &model.Log{TelegramID: 42, EventType: "mood", Timestamp: ts,
			Details: sql.NullString{String: "mood=7", Valid: true}}
		exists, err = store.LogExists(withDetails)
		if err != nil {
			t.Fatalf("LogExists() error = %v", err)
		}
		if exists {
			t.Error("LogExists(with details) = true, want false")
		}
	})

	t.Run("empty details are stored as null", func(t *testing.T) {
		store := testutil.NewTestStore(t)
		seedOwner(t, store, 42)

		log := &model.Log{TelegramID: 42, EventType: "mood", Timestamp: ts,
			Details: sql.NullString{String: "", Valid: true}}
		if err := store.CreateLog(log); err != nil {
			t.Fatalf("CreateLog() error = %v", err)
		}

		logs, err := store.ListLogs()
		if err != nil {
			t.Fatalf("ListLogs() error = %v", err)
		}
		if len(logs) != 1 {
			t.Fatalf("ListLogs() returned %d logs, want 1", len(logs))
		}
		if logs[0].Details.Valid {
			t.Errorf("Details = %+v, want NULL", logs[0].Details)
		}

		// The stored row dedups against the NULL form, so a CSV round
		// trip does not change its identity.
		exists, err := store.LogExists(&model.Log{TelegramID: 42, EventType: "mood", Timestamp: ts})
		if err != nil {
			t.Fatalf("LogExists() error = %v", err)
		}
		if !exists {
			t.Error("LogExists(null details) = false, want true")
		}
	})

	t.Run("identical rows are allowed", func(t *testing.T) {
		store := testutil.NewTestStore(t)
		seedOwner(t, store, 42)

		log := &model.Log{TelegramID: 42, EventType: "mood", Timestamp: ts}
		if err := store.CreateLog(log); err != nil {
			t.Fatalf("first CreateLog() error = %v", err)
		}
		// The logs table has no unique constraint; dedup is the
		// restore path's job.
		if err := store.CreateLog(log); err != nil {
			t.Fatalf("second CreateLog() error = %v", err)
		}

		count, err := store.CountLogs()
		if err != nil {
			t.Fatalf("CountLogs() error = %v", err)
		}
		if count != 2 {
			t.Errorf("CountLogs() = %d, want 2", count)
		}
	})
}

func TestSQLStore_UserSettings(t *testing.T) {
	t.Run("get returns nil for missing settings", func(t *testing.T) {
		store := testutil.NewTestStore(t)

		settings, err := store.GetUserSettings(42)
		if err != nil {
			t.Fatalf("GetUserSettings() error = %v", err)
		}
		if settings != nil {
			t.Errorf("GetUserSettings() = %+v, want nil", settings)
		}
	})

	t.Run("create and get", func(t *testing.T) {
		store := testutil.NewTestStore(t)
		seedOwner(t, store, 42)

		err := store.CreateUserSettings(&model.UserSettings{
			TelegramID:      42,
			SurveyInterval:  90,
			QuietHoursStart: sql.NullInt64{Int64: 23, Valid: true},
		})
		if err != nil {
			t.Fatalf("CreateUserSettings() error = %v", err)
		}

		settings, err := store.GetUserSettings(42)
		if err != nil {
			t.Fatalf("GetUserSettings() error = %v", err)
		}
		if settings == nil {
			t.Fatal("GetUserSettings() = nil after create")
		}
		if settings.SurveyInterval != 90 {
			t.Errorf("SurveyInterval = %d, want 90", settings.SurveyInterval)
		}
		if !settings.QuietHoursStart.Valid || settings.QuietHoursStart.Int64 != 23 {
			t.Errorf("QuietHoursStart = %+v, want 23", settings.QuietHoursStart)
		}
		if settings.QuietHoursEnd.Valid {
			t.Errorf("QuietHoursEnd = %+v, want NULL", settings.QuietHoursEnd)
		}
	})

	t.Run("one settings row per user", func(t *testing.T) {
		store := testutil.NewTestStore(t)
		seedOwner(t, store, 42)

		if err := store.CreateUserSettings(&model.UserSettings{TelegramID: 42, SurveyInterval: 60}); err != nil {
			t.Fatalf("CreateUserSettings() error = %v", err)
		}
		if err := store.CreateUserSettings(&model.UserSettings{TelegramID: 42, SurveyInterval: 30}); err == nil {
			t.Error("second CreateUserSettings() expected error")
		}
	})
}

func TestSQLStore_Operations(t *testing.T) {
	store := testutil.NewTestStore(t)

	started := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	op, err := store.CreateOperation(model.OpBackup, "", started)
	if err != nil {
		t.Fatalf("CreateOperation() error = %v", err)
	}
	if op.ID == 0 {
		t.Error("CreateOperation() did not assign an ID")
	}

	if err := store.FinishOperation(op.ID, model.StatusError, started.Add(time.Minute)); err != nil {
		t.Fatalf("FinishOperation() error = %v", err)
	}

	if _, err := store.CreateOperation(model.OpDeploy, "origin/main", started.Add(time.Hour)); err != nil {
		t.Fatalf("CreateOperation() error = %v", err)
	}

	operations, err := store.ListOperations(10)
	if err != nil {
		t.Fatalf("ListOperations() error = %v", err)
	}
	if len(operations) != 2 {
		t.Fatalf("ListOperations() len = %d, want 2", len(operations))
	}
	// Newest first.
	if operations[0].Kind != model.OpDeploy {
		t.Errorf("operations[0].Kind = %s, want %s", operations[0].Kind, model.OpDeploy)
	}
	if operations[1].Status != model.StatusError {
		t.Errorf("operations[1].Status = %s, want %s", operations[1].Status, model.StatusError)
	}
	if !operations[1].FinishedAt.Valid {
		t.Error("operations[1].FinishedAt not set")
	}
	if operations[0].FinishedAt.Valid {
		t.Error("operations[0].FinishedAt set before finish")
	}

	limited, err := store.ListOperations(1)
	if err != nil {
		t.Fatalf("ListOperations(1) error = %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("ListOperations(1) len = %d, want 1", len(limited))
	}
}
