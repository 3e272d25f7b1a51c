package model

import (
	"database/sql"
	"time"
)

// User is a registered bot user, identified by their Telegram user ID.
type User struct {
	ID         int64
	TelegramID int64
	Timezone   sql.NullString // IANA name or GMT offset label; set on first /start
	CreatedAt  time.Time
}

// Log is an append-only event record owned by exactly one user.
// There is no update or delete path for logs.
type Log struct {
	ID         int64
	TelegramID int64
	EventType  string
	Timestamp  time.Time
	Details    sql.NullString
}

// UserSettings holds per-user survey configuration. Each user has at most
// one row; DefaultSurveyInterval applies when none was ever chosen.
type UserSettings struct {
	ID              int64
	TelegramID      int64
	SurveyInterval  int64         // minutes between surveys
	QuietHoursStart sql.NullInt64 // hour of day, 0-23
	QuietHoursEnd   sql.NullInt64
}

// DefaultSurveyInterval is the survey interval (in minutes) assigned to
// settings rows created by restore for users without a stored preference.
const DefaultSurveyInterval = 60

// Operation kinds recorded for DB-mutating commands.
const (
	OpBackup  = "Backup"
	OpRestore = "Restore"
	OpDeploy  = "Deploy"
)

// Operation statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Operation is an audit record of a single DB-mutating command run.
type Operation struct {
	ID         int64
	Kind       string
	Parameters string
	StartedAt  time.Time
	FinishedAt sql.NullTime
	Status     string
}
