// Package snapshot implements the on-disk snapshot store: one directory
// per snapshot under the backup root, named by the snapshot's UTC
// timestamp, holding CSV row dumps and a TOML manifest. Snapshots are
// immutable once written.
package snapshot

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"moodops/internal/ops"
)

const (
	usersFile    = "users.csv"
	logsFile     = "logs.csv"
	settingsFile = "user_settings.csv"
	manifestFile = "manifest.toml"
)

// DirStore stores snapshots as directories under a single backup root:
//
//	<root>/
//	  <YYYYMMDD_HHMMSS>/
//	    users.csv
//	    logs.csv
//	    user_settings.csv
//	    manifest.toml
//	  backup_<YYYYMMDD_HHMMSS>.tar.gz
type DirStore struct {
	root string
}

// NewDirStore creates a snapshot store rooted at the given directory,
// creating it if needed.
func NewDirStore(root string) (*DirStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating backup root: %w", err)
	}
	return &DirStore{root: root}, nil
}

// Root returns the backup root directory.
func (s *DirStore) Root() string { return s.root }

// Dir returns the directory path for a snapshot ID.
func (s *DirStore) Dir(id string) string { return filepath.Join(s.root, id) }

// Write persists a snapshot under its manifest's SnapshotID.
// Writing an ID that already exists is an error: snapshots are immutable.
func (s *DirStore) Write(data *ops.SnapshotData) error {
	id := data.Manifest.SnapshotID
	if _, err := ops.ParseSnapshotID(id); err != nil {
		return err
	}

	dir := s.Dir(id)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("snapshot already exists: %s", id)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	// Remove the half-written directory on failure so a retry can start clean.
	success := false
	defer func() {
		if !success {
			os.RemoveAll(dir)
		}
	}()

	if err := writeUsersCSV(filepath.Join(dir, usersFile), data.Users); err != nil {
		return err
	}
	if err := writeLogsCSV(filepath.Join(dir, logsFile), data.Logs); err != nil {
		return err
	}
	if err := writeSettingsCSV(filepath.Join(dir, settingsFile), data.Settings); err != nil {
		return err
	}
	if err := writeManifest(filepath.Join(dir, manifestFile), &data.Manifest); err != nil {
		return err
	}

	success = true
	return nil
}

// Read loads a snapshot by ID. A missing directory or malformed contents
// is an error; row counts must match the manifest.
func (s *DirStore) Read(id string) (*ops.SnapshotData, error) {
	if _, err := ops.ParseSnapshotID(id); err != nil {
		return nil, err
	}

	dir := s.Dir(id)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("snapshot not found: %s", id)
		}
		return nil, fmt.Errorf("checking snapshot directory: %w", err)
	}

	manifest, err := readManifest(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, err
	}
	if manifest.SnapshotID != id {
		return nil, fmt.Errorf("manifest id %s does not match directory %s", manifest.SnapshotID, id)
	}

	users, err := readUsersCSV(filepath.Join(dir, usersFile))
	if err != nil {
		return nil, err
	}
	logs, err := readLogsCSV(filepath.Join(dir, logsFile))
	if err != nil {
		return nil, err
	}
	settings, err := readSettingsCSV(filepath.Join(dir, settingsFile))
	if err != nil {
		return nil, err
	}

	if int64(len(users)) != manifest.UserCount {
		return nil, fmt.Errorf("snapshot %s corrupt: %d users, manifest says %d", id, len(users), manifest.UserCount)
	}
	if int64(len(logs)) != manifest.LogCount {
		return nil, fmt.Errorf("snapshot %s corrupt: %d logs, manifest says %d", id, len(logs), manifest.LogCount)
	}
	if int64(len(settings)) != manifest.SettingsCount {
		return nil, fmt.Errorf("snapshot %s corrupt: %d settings rows, manifest says %d", id, len(settings), manifest.SettingsCount)
	}

	return &ops.SnapshotData{
		Manifest: *manifest,
		Users:    users,
		Logs:     logs,
		Settings: settings,
	}, nil
}

// Exists reports whether a snapshot with the given ID is present.
func (s *DirStore) Exists(id string) bool {
	info, err := os.Stat(s.Dir(id))
	return err == nil && info.IsDir()
}

// Latest returns the newest snapshot ID, or "" when no snapshots exist.
// Timestamp IDs sort lexically, so the maximum name is the newest.
func (s *DirStore) Latest() (string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return "", fmt.Errorf("reading backup root: %w", err)
	}

	var ids []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := ops.ParseSnapshotID(e.Name()); err != nil {
			continue // not a snapshot directory
		}
		ids = append(ids, e.Name())
	}
	if len(ids) == 0 {
		return "", nil
	}
	sort.Strings(ids)
	return ids[len(ids)-1], nil
}

// ArchivePath returns where the tar.gz archive for a snapshot lives.
func (s *DirStore) ArchivePath(id string) string {
	return filepath.Join(s.root, fmt.Sprintf("backup_%s.tar.gz", id))
}

// Archive builds the tar.gz archive for a snapshot and returns its path.
// Entries are stored under the snapshot ID as their top-level directory.
func (s *DirStore) Archive(id string) (string, error) {
	if !s.Exists(id) {
		return "", fmt.Errorf("snapshot not found: %s", id)
	}

	archivePath := s.ArchivePath(id)
	out, err := os.Create(archivePath)
	if err != nil {
		return "", fmt.Errorf("creating archive: %w", err)
	}
	defer out.Close()

	gw := gzip.NewWriter(out)
	tw := tar.NewWriter(gw)

	for _, name := range []string{usersFile, logsFile, settingsFile, manifestFile} {
		if err := addArchiveFile(tw, s.Dir(id), id, name); err != nil {
			os.Remove(archivePath)
			return "", err
		}
	}

	if err := tw.Close(); err != nil {
		os.Remove(archivePath)
		return "", fmt.Errorf("finalizing tar: %w", err)
	}
	if err := gw.Close(); err != nil {
		os.Remove(archivePath)
		return "", fmt.Errorf("finalizing gzip: %w", err)
	}
	return archivePath, nil
}

func addArchiveFile(tw *tar.Writer, dir string, id string, name string) error {
	path := filepath.Join(dir, name)
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", name, err)
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("building header for %s: %w", name, err)
	}
	hdr.Name = id + "/" + name

	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("writing header for %s: %w", name, err)
	}
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// Import reads a tar.gz archive stream and installs the snapshot it
// contains. The archive must hold exactly one snapshot directory; an
// already-present ID is an error.
func (s *DirStore) Import(r io.Reader) (string, error) {
	gr, err := gzip.NewReader(r)
	if err != nil {
		return "", fmt.Errorf("reading gzip stream: %w", err)
	}
	defer gr.Close()

	tr := tar.NewReader(gr)
	var id string

	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("reading tar stream: %w", err)
		}
		if hdr.Typeflag == tar.TypeDir {
			continue
		}

		entryID, name, err := splitArchiveEntry(hdr.Name)
		if err != nil {
			return "", err
		}
		if id == "" {
			id = entryID
			if s.Exists(id) {
				return "", fmt.Errorf("snapshot already exists: %s", id)
			}
			if err := os.MkdirAll(s.Dir(id), 0755); err != nil {
				return "", fmt.Errorf("creating snapshot directory: %w", err)
			}
		} else if entryID != id {
			os.RemoveAll(s.Dir(id))
			return "", fmt.Errorf("archive contains multiple snapshots: %s and %s", id, entryID)
		}

		if err := extractArchiveFile(s.Dir(id), name, tr); err != nil {
			os.RemoveAll(s.Dir(id))
			return "", err
		}
	}

	if id == "" {
		return "", fmt.Errorf("archive contains no snapshot files")
	}

	// Validate what was unpacked before declaring success.
	if _, err := s.Read(id); err != nil {
		os.RemoveAll(s.Dir(id))
		return "", fmt.Errorf("imported snapshot invalid: %w", err)
	}
	return id, nil
}

// splitArchiveEntry validates an archive entry name of the form
// "<snapshot_id>/<file>" and rejects anything that could escape the
// snapshot directory.
func splitArchiveEntry(entry string) (id string, name string, err error) {
	parts := strings.Split(filepath.ToSlash(entry), "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("unexpected archive entry: %s", entry)
	}
	id, name = parts[0], parts[1]
	if _, err := ops.ParseSnapshotID(id); err != nil {
		return "", "", fmt.Errorf("unexpected archive entry: %s", entry)
	}
	switch name {
	case usersFile, logsFile, settingsFile, manifestFile:
		return id, name, nil
	}
	return "", "", fmt.Errorf("unexpected file in archive: %s", entry)
}

func extractArchiveFile(dir string, name string, r io.Reader) error {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("extracting %s: %w", name, err)
	}
	return nil
}

func writeManifest(path string, m *ops.Manifest) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating manifest: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(m); err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	return nil
}

func readManifest(path string) (*ops.Manifest, error) {
	var m ops.Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return &m, nil
}

// Compile-time check that DirStore implements the ops.SnapshotStore interface
var _ ops.SnapshotStore = (*DirStore)(nil)
