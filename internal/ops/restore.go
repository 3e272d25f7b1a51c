package ops

import (
	"fmt"

	"moodops/internal/model"
)

// RestoreResult reports what a restore inserted and skipped.
type RestoreResult struct {
	SnapshotID      string
	UsersCreated    int64
	UsersSkipped    int64
	LogsCreated     int64
	LogsSkipped     int64
	SettingsCreated int64
	SettingsSkipped int64
	DefaultsCreated int64
}

// Restore reads the snapshot with the given ID and upserts its rows into
// the live database. Existing users (matched by Telegram ID) are left
// unmodified; duplicate logs and settings are skipped; users from the
// snapshot that end up without settings get a defaults row.
//
// There is no transaction spanning the whole restore: an error partway
// leaves the database in whatever state insertion reached. Rerunning the
// same restore is safe because every insert is guarded by an existence
// check.
func (s *Service) Restore(id string) (*RestoreResult, error) {
	if _, err := ParseSnapshotID(id); err != nil {
		return nil, err
	}

	data, err := s.snapshots.Read(id)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", id, err)
	}

	s.logger.Info("restore started",
		"snapshot", id,
		"users", data.Manifest.UserCount,
		"logs", data.Manifest.LogCount,
	)

	result := &RestoreResult{SnapshotID: id}

	for _, user := range data.Users {
		existing, err := s.store.FindUserByTelegramID(user.TelegramID)
		if err != nil {
			return nil, fmt.Errorf("looking up user %d: %w", user.TelegramID, err)
		}
		if existing != nil {
			result.UsersSkipped++
			continue
		}
		if _, err := s.store.CreateUser(user); err != nil {
			return nil, fmt.Errorf("restoring user %d: %w", user.TelegramID, err)
		}
		result.UsersCreated++
	}

	for _, settings := range data.Settings {
		existing, err := s.store.GetUserSettings(settings.TelegramID)
		if err != nil {
			return nil, fmt.Errorf("looking up settings for %d: %w", settings.TelegramID, err)
		}
		if existing != nil {
			result.SettingsSkipped++
			continue
		}
		if err := s.store.CreateUserSettings(settings); err != nil {
			return nil, fmt.Errorf("restoring settings for %d: %w", settings.TelegramID, err)
		}
		result.SettingsCreated++
	}

	for _, log := range data.Logs {
		exists, err := s.store.LogExists(log)
		if err != nil {
			return nil, fmt.Errorf("checking log for %d: %w", log.TelegramID, err)
		}
		if exists {
			result.LogsSkipped++
			continue
		}
		if err := s.store.CreateLog(log); err != nil {
			return nil, fmt.Errorf("restoring log for %d: %w", log.TelegramID, err)
		}
		result.LogsCreated++
	}

	// Any snapshot user still without settings gets defaults.
	for _, user := range data.Users {
		existing, err := s.store.GetUserSettings(user.TelegramID)
		if err != nil {
			return nil, fmt.Errorf("looking up settings for %d: %w", user.TelegramID, err)
		}
		if existing != nil {
			continue
		}
		defaults := &model.UserSettings{
			TelegramID:     user.TelegramID,
			SurveyInterval: model.DefaultSurveyInterval,
		}
		if err := s.store.CreateUserSettings(defaults); err != nil {
			return nil, fmt.Errorf("creating default settings for %d: %w", user.TelegramID, err)
		}
		result.DefaultsCreated++
	}

	s.logger.Info("restore complete",
		"snapshot", id,
		"users_created", result.UsersCreated,
		"logs_created", result.LogsCreated,
		"logs_skipped", result.LogsSkipped,
	)
	return result, nil
}
