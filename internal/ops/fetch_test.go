package ops_test

import (
	"testing"
	"time"

	"moodops/internal/ops"
	"moodops/internal/testutil"
)

func TestService_Fetch(t *testing.T) {
	t.Run("round trips a plaintext archive through the vault", func(t *testing.T) {
		vault := testutil.NewTestVault()
		svc, store, _ := newTestService(t, vault, nil)

		seedUser(t, store, 100)
		seedLog(t, store, 100, "mood", time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC))

		backup, err := svc.Backup()
		if err != nil {
			t.Fatalf("Backup() error = %v", err)
		}

		// A second host with an empty snapshot store fetches the archive.
		fresh := testutil.NewTestStore(t)
		snapshots := testutil.NewTestSnapshotStore(t)
		other := ops.NewService(fresh, snapshots, vault, nil, "other-host", ops.NewNopLogger(), testutil.FixedClock())

		installed, err := other.Fetch(backup.SnapshotID, nil)
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if installed != backup.SnapshotID {
			t.Errorf("Fetch() = %s, want %s", installed, backup.SnapshotID)
		}

		data, err := snapshots.Read(installed)
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if len(data.Users) != 1 || len(data.Logs) != 1 {
			t.Errorf("fetched snapshot has %d users, %d logs, want 1/1", len(data.Users), len(data.Logs))
		}
	})

	t.Run("round trips an encrypted archive", func(t *testing.T) {
		vault := testutil.NewTestVault()
		enc := testutil.NewTestEncryptor()
		if err := enc.Setup("secret"); err != nil {
			t.Fatalf("Setup() error = %v", err)
		}
		svc, store, _ := newTestService(t, vault, enc)

		seedUser(t, store, 100)

		backup, err := svc.Backup()
		if err != nil {
			t.Fatalf("Backup() error = %v", err)
		}
		if !backup.Encrypted {
			t.Fatal("backup was not encrypted")
		}

		decrypt, err := enc.Unlock("secret")
		if err != nil {
			t.Fatalf("Unlock() error = %v", err)
		}

		fresh := testutil.NewTestStore(t)
		snapshots := testutil.NewTestSnapshotStore(t)
		other := ops.NewService(fresh, snapshots, vault, enc, "other-host", ops.NewNopLogger(), testutil.FixedClock())

		installed, err := other.Fetch(backup.SnapshotID, decrypt)
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if !snapshots.Exists(installed) {
			t.Errorf("snapshot %s not installed", installed)
		}
	})

	t.Run("errors without a vault", func(t *testing.T) {
		svc, _, _ := newTestService(t, nil, nil)
		if _, err := svc.Fetch("20240115_103000", nil); err == nil {
			t.Error("Fetch() without vault expected error")
		}
	})

	t.Run("errors when snapshot already exists locally", func(t *testing.T) {
		vault := testutil.NewTestVault()
		svc, _, _ := newTestService(t, vault, nil)

		backup, err := svc.Backup()
		if err != nil {
			t.Fatalf("Backup() error = %v", err)
		}
		if _, err := svc.Fetch(backup.SnapshotID, nil); err == nil {
			t.Error("Fetch() of local snapshot expected error")
		}
	})

	t.Run("errors when archive is missing from vault", func(t *testing.T) {
		vault := testutil.NewTestVault()
		svc, _, _ := newTestService(t, vault, nil)
		if _, err := svc.Fetch("20200101_000000", nil); err == nil {
			t.Error("Fetch() of missing archive expected error")
		}
	})
}
