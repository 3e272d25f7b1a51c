package testutil

import (
	"testing"

	"moodops/internal/snapshot"
)

// NewTestSnapshotStore creates a DirStore rooted in a temp directory that
// is cleaned up when the test completes.
func NewTestSnapshotStore(t *testing.T) *snapshot.DirStore {
	t.Helper()

	store, err := snapshot.NewDirStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create snapshot store: %v", err)
	}
	return store
}
