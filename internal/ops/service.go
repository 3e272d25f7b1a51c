package ops

import (
	"fmt"

	"moodops/internal/model"
)

// Service is the orchestration layer that coordinates the store, the
// snapshot store, and the vault to perform the high-level operations
// needed by the CLI and the Telegram bot.
type Service struct {
	store     Store
	snapshots SnapshotStore
	vault     Vault     // nil when no offsite vault is configured
	encryptor Encryptor // nil when archive encryption is disabled
	hostID    string
	logger    Logger
	clock     Clock
}

// NewService creates a new Service with the provided dependencies.
// vault and encryptor may be nil; the corresponding steps are then skipped.
func NewService(store Store, snapshots SnapshotStore, vault Vault, encryptor Encryptor, hostID string, logger Logger, clock Clock) *Service {
	return &Service{
		store:     store,
		snapshots: snapshots,
		vault:     vault,
		encryptor: encryptor,
		hostID:    hostID,
		logger:    logger,
		clock:     clock,
	}
}

// DatabaseStatus holds live row counts of the bot database.
type DatabaseStatus struct {
	Users    int64
	Logs     int64
	Settings int64
}

// Status returns live row counts of the bot database.
func (s *Service) Status() (*DatabaseStatus, error) {
	users, err := s.store.CountUsers()
	if err != nil {
		return nil, fmt.Errorf("counting users: %w", err)
	}
	logs, err := s.store.CountLogs()
	if err != nil {
		return nil, fmt.Errorf("counting logs: %w", err)
	}
	settings, err := s.store.ListUserSettings()
	if err != nil {
		return nil, fmt.Errorf("listing settings: %w", err)
	}
	return &DatabaseStatus{Users: users, Logs: logs, Settings: int64(len(settings))}, nil
}

// History returns the most recent recorded operations.
func (s *Service) History(limit int) ([]*model.Operation, error) {
	return s.store.ListOperations(limit)
}

// LatestSnapshotID returns the newest local snapshot ID.
// Returns an error when no snapshot exists.
func (s *Service) LatestSnapshotID() (string, error) {
	id, err := s.snapshots.Latest()
	if err != nil {
		return "", fmt.Errorf("finding latest snapshot: %w", err)
	}
	if id == "" {
		return "", fmt.Errorf("no snapshots found")
	}
	return id, nil
}
