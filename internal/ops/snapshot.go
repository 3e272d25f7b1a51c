package ops

import (
	"fmt"
	"io"
	"time"

	"moodops/internal/model"
)

// SnapshotIDLayout is the time layout for snapshot identifiers (UTC).
const SnapshotIDLayout = "20060102_150405"

// ParseSnapshotID validates a snapshot identifier string.
func ParseSnapshotID(id string) (time.Time, error) {
	t, err := time.Parse(SnapshotIDLayout, id)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid snapshot id %q (want YYYYMMDD_HHMMSS): %w", id, err)
	}
	return t, nil
}

// Manifest describes a snapshot: identity, origin, and row counts.
type Manifest struct {
	SnapshotID    string    `toml:"snapshot_id"`
	HostID        string    `toml:"host_id"`
	CreatedAt     time.Time `toml:"created_at"`
	UserCount     int64     `toml:"user_count"`
	LogCount      int64     `toml:"log_count"`
	SettingsCount int64     `toml:"settings_count"`
}

// SnapshotData holds the decoded contents of one snapshot.
type SnapshotData struct {
	Manifest Manifest
	Users    []*model.User
	Logs     []*model.Log
	Settings []*model.UserSettings
}

// SnapshotStore provides an interface for timestamped on-disk snapshots.
// Snapshots are immutable once written: create-once, read-many.
type SnapshotStore interface {
	// Write persists a snapshot under its manifest's SnapshotID.
	// Writing an ID that already exists is an error.
	Write(data *SnapshotData) error

	// Read loads a snapshot by ID. A missing or malformed snapshot is an error.
	Read(id string) (*SnapshotData, error)

	// Exists reports whether a snapshot with the given ID is present.
	Exists(id string) bool

	// Latest returns the newest snapshot ID, or "" when no snapshots exist.
	Latest() (string, error)

	// Archive builds the tar.gz archive for a snapshot and returns its path.
	// Rebuilding an existing archive overwrites it.
	Archive(id string) (string, error)

	// Import reads a tar.gz archive stream and installs the snapshot it
	// contains, returning its ID. An already-present ID is an error.
	Import(r io.Reader) (string, error)
}
