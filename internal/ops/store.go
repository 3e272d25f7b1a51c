package ops

import (
	"time"

	"moodops/internal/model"
)

// Store provides an interface for the bot database.
// Lookup methods return (nil, nil) when no row matches.
type Store interface {
	// User operations

	// FindUserByTelegramID returns the user with the given Telegram ID.
	FindUserByTelegramID(telegramID int64) (*model.User, error)

	// CreateUser inserts a new user row. The TelegramID must not already exist.
	CreateUser(user *model.User) (*model.User, error)

	// ListUsers returns all users ordered by Telegram ID.
	ListUsers() ([]*model.User, error)

	// CountUsers returns the number of user rows.
	CountUsers() (int64, error)

	// Log operations

	// CreateLog appends a new log row.
	CreateLog(log *model.Log) error

	// LogExists reports whether an identical log row is already present.
	// Identity is (telegram_id, event_type, timestamp, details).
	LogExists(log *model.Log) (bool, error)

	// ListLogs returns all logs ordered by timestamp.
	ListLogs() ([]*model.Log, error)

	// CountLogs returns the number of log rows.
	CountLogs() (int64, error)

	// UserSettings operations

	// GetUserSettings returns the settings row for a user.
	GetUserSettings(telegramID int64) (*model.UserSettings, error)

	// CreateUserSettings inserts a settings row. The user must not already have one.
	CreateUserSettings(settings *model.UserSettings) error

	// ListUserSettings returns all settings rows ordered by Telegram ID.
	ListUserSettings() ([]*model.UserSettings, error)

	// Operation tracking

	// CreateOperation records the start of a DB-mutating command.
	CreateOperation(kind string, parameters string, startedAt time.Time) (*model.Operation, error)

	// FinishOperation stamps an operation with its final status.
	FinishOperation(id int64, status string, finishedAt time.Time) error

	// ListOperations returns the most recent operations, newest first.
	ListOperations(limit int) ([]*model.Operation, error)

	// CheckMigrations verifies the database schema is up-to-date.
	CheckMigrations() error

	// Close closes the database connection.
	Close() error
}
