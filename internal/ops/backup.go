package ops

import (
	"fmt"
	"os"
)

// ArchiveName returns the vault object name for a snapshot archive.
// encrypted appends the ".age" suffix used for age-encrypted uploads.
func ArchiveName(id string, encrypted bool) string {
	name := fmt.Sprintf("backup_%s.tar.gz", id)
	if encrypted {
		name += ".age"
	}
	return name
}

// BackupResult reports what a backup produced.
type BackupResult struct {
	SnapshotID  string
	Users       int64
	Logs        int64
	Settings    int64
	ArchivePath string
	Uploaded    bool
	Encrypted   bool
}

// Backup serializes all users, logs, and settings into a new timestamped
// snapshot, builds its tar.gz archive, and uploads the archive to the vault
// when one is configured. Treated as all-or-nothing by callers: any error
// means no usable snapshot was produced.
func (s *Service) Backup() (*BackupResult, error) {
	id := s.clock.Now().UTC().Format(SnapshotIDLayout)
	s.logger.Info("backup started", "snapshot", id)

	users, err := s.store.ListUsers()
	if err != nil {
		return nil, fmt.Errorf("reading users: %w", err)
	}
	logs, err := s.store.ListLogs()
	if err != nil {
		return nil, fmt.Errorf("reading logs: %w", err)
	}
	settings, err := s.store.ListUserSettings()
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	data := &SnapshotData{
		Manifest: Manifest{
			SnapshotID:    id,
			HostID:        s.hostID,
			CreatedAt:     s.clock.Now().UTC(),
			UserCount:     int64(len(users)),
			LogCount:      int64(len(logs)),
			SettingsCount: int64(len(settings)),
		},
		Users:    users,
		Logs:     logs,
		Settings: settings,
	}

	if err := s.snapshots.Write(data); err != nil {
		return nil, fmt.Errorf("writing snapshot: %w", err)
	}

	archivePath, err := s.snapshots.Archive(id)
	if err != nil {
		return nil, fmt.Errorf("archiving snapshot: %w", err)
	}

	result := &BackupResult{
		SnapshotID:  id,
		Users:       int64(len(users)),
		Logs:        int64(len(logs)),
		Settings:    int64(len(settings)),
		ArchivePath: archivePath,
	}

	if s.vault != nil {
		encrypted, err := s.uploadArchive(id, archivePath)
		if err != nil {
			return nil, fmt.Errorf("uploading archive: %w", err)
		}
		result.Uploaded = true
		result.Encrypted = encrypted
	}

	s.logger.Info("backup complete",
		"snapshot", id,
		"users", len(users),
		"logs", len(logs),
		"uploaded", result.Uploaded,
	)
	return result, nil
}

// uploadArchive sends the snapshot archive to the vault, encrypting it
// first when an encryptor is configured. Returns whether the uploaded
// object was encrypted.
func (s *Service) uploadArchive(id string, archivePath string) (bool, error) {
	encrypt := s.encryptor != nil && s.encryptor.IsConfigured()

	uploadPath := archivePath
	if encrypt {
		encPath, err := s.encryptArchive(archivePath)
		if err != nil {
			return false, err
		}
		defer os.Remove(encPath)
		uploadPath = encPath
	}

	f, err := os.Open(uploadPath)
	if err != nil {
		return false, fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("stat archive: %w", err)
	}

	name := ArchiveName(id, encrypt)
	if err := s.vault.PutArchive(name, f, info.Size()); err != nil {
		return false, fmt.Errorf("storing %s in vault: %w", name, err)
	}

	s.logger.Debug("archive uploaded", "name", name, "size", info.Size())
	return encrypt, nil
}

// encryptArchive writes an age-encrypted copy of the archive to a temp
// file and returns its path. The caller removes the file.
func (s *Service) encryptArchive(archivePath string) (string, error) {
	src, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("opening archive: %w", err)
	}
	defer src.Close()

	dst, err := os.CreateTemp("", "moodops-archive-*.age")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	encPath := dst.Name()

	if err := s.encryptor.Encrypt(src, dst); err != nil {
		dst.Close()
		os.Remove(encPath)
		return "", fmt.Errorf("encrypting archive: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(encPath)
		return "", fmt.Errorf("closing encrypted archive: %w", err)
	}
	return encPath, nil
}
