package ops

import (
	"fmt"
	"io"
	"os"
)

// Fetch downloads a snapshot archive from the vault and installs it into
// the local snapshot store so Restore can consume it. decrypt must be a
// DecryptionContext when the vault holds encrypted archives, nil otherwise.
// Returns the installed snapshot ID.
func (s *Service) Fetch(id string, decrypt DecryptionContext) (string, error) {
	if s.vault == nil {
		return "", fmt.Errorf("no vault configured")
	}
	if _, err := ParseSnapshotID(id); err != nil {
		return "", err
	}
	if s.snapshots.Exists(id) {
		return "", fmt.Errorf("snapshot %s already exists locally", id)
	}

	name := ArchiveName(id, decrypt != nil)
	s.logger.Info("fetch started", "name", name)

	tmp, err := os.CreateTemp("", "moodops-fetch-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := s.vault.GetArchive(name, tmp); err != nil {
		tmp.Close()
		return "", fmt.Errorf("retrieving %s from vault: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing temp file: %w", err)
	}

	f, err := os.Open(tmpPath)
	if err != nil {
		return "", fmt.Errorf("opening downloaded archive: %w", err)
	}
	defer f.Close()

	var archive io.Reader = f
	if decrypt != nil {
		pr, pw := io.Pipe()
		go func() {
			pw.CloseWithError(decrypt.Decrypt(f, pw))
		}()
		archive = pr
	}

	installed, err := s.snapshots.Import(archive)
	if err != nil {
		return "", fmt.Errorf("importing archive: %w", err)
	}
	if installed != id {
		return "", fmt.Errorf("archive %s contained snapshot %s", name, installed)
	}

	s.logger.Info("fetch complete", "snapshot", installed)
	return installed, nil
}
