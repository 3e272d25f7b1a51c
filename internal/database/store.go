package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"moodops/internal/database/migrations"
	"moodops/internal/model"
	"moodops/internal/ops"
)

// SQLStore implements the ops.Store interface on database/sql.
// The same queries serve both backends; placeholders are written in `?`
// form and rebound to `$n` for postgres.
type SQLStore struct {
	db      *sql.DB
	dialect migrations.Dialect
}

// NewSQLStore wraps an open connection. The caller is responsible for
// ensuring the connection is properly configured for its dialect.
func NewSQLStore(db *sql.DB, dialect migrations.Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// rebind converts `?` placeholders to the dialect's form.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != migrations.Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// User operations

func (s *SQLStore) FindUserByTelegramID(telegramID int64) (*model.User, error) {
	row := s.db.QueryRowContext(context.Background(), s.rebind(
		"SELECT id, telegram_id, timezone, created_at FROM users WHERE telegram_id = ?"), telegramID)

	var u model.User
	err := row.Scan(&u.ID, &u.TelegramID, &u.Timezone, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding user by telegram id: %w", err)
	}
	return &u, nil
}

func (s *SQLStore) CreateUser(user *model.User) (*model.User, error) {
	createdAt := user.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	row := s.db.QueryRowContext(context.Background(), s.rebind(
		"INSERT INTO users (telegram_id, timezone, created_at) VALUES (?, ?, ?) RETURNING id"),
		user.TelegramID, user.Timezone, createdAt)

	created := &model.User{TelegramID: user.TelegramID, Timezone: user.Timezone, CreatedAt: createdAt}
	if err := row.Scan(&created.ID); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return created, nil
}

func (s *SQLStore) ListUsers() ([]*model.User, error) {
	rows, err := s.db.QueryContext(context.Background(),
		"SELECT id, telegram_id, timezone, created_at FROM users ORDER BY telegram_id")
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.TelegramID, &u.Timezone, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

func (s *SQLStore) CountUsers() (int64, error) {
	return s.count("SELECT COUNT(*) FROM users")
}

// Log operations

func (s *SQLStore) CreateLog(log *model.Log) error {
	// An empty details string is stored as NULL so a log keeps the same
	// dedup identity after a CSV round trip, which maps "" to NULL.
	details := log.Details
	if details.Valid && details.String == "" {
		details = sql.NullString{}
	}
	_, err := s.db.ExecContext(context.Background(), s.rebind(
		"INSERT INTO logs (telegram_id, event_type, timestamp, details) VALUES (?, ?, ?, ?)"),
		log.TelegramID, log.EventType, log.Timestamp.UTC(), details)
	if err != nil {
		return fmt.Errorf("creating log: %w", err)
	}
	return nil
}

func (s *SQLStore) LogExists(log *model.Log) (bool, error) {
	// NULL details need IS NULL, not equality.
	query := "SELECT COUNT(*) FROM logs WHERE telegram_id = ? AND event_type = ? AND timestamp = ? AND details = ?"
	args := []any{log.TelegramID, log.EventType, log.Timestamp.UTC(), log.Details}
	if !log.Details.Valid {
		query = "SELECT COUNT(*) FROM logs WHERE telegram_id = ? AND event_type = ? AND timestamp = ? AND details IS NULL"
		args = args[:3]
	}

	var n int64
	err := s.db.QueryRowContext(context.Background(), s.rebind(query), args...).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking log existence: %w", err)
	}
	return n > 0, nil
}

func (s *SQLStore) ListLogs() ([]*model.Log, error) {
	rows, err := s.db.QueryContext(context.Background(),
		"SELECT id, telegram_id, event_type, timestamp, details FROM logs ORDER BY timestamp, id")
	if err != nil {
		return nil, fmt.Errorf("listing logs: %w", err)
	}
	defer rows.Close()

	var logs []*model.Log
	for rows.Next() {
		var l model.Log
		if err := rows.Scan(&l.ID, &l.TelegramID, &l.EventType, &l.Timestamp, &l.Details); err != nil {
			return nil, fmt.Errorf("scanning log: %w", err)
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}

func (s *SQLStore) CountLogs() (int64, error) {
	return s.count("SELECT COUNT(*) FROM logs")
}

// UserSettings operations

func (s *SQLStore) GetUserSettings(telegramID int64) (*model.UserSettings, error) {
	row := s.db.QueryRowContext(context.Background(), s.rebind(
		"SELECT id, telegram_id, survey_interval, quiet_hours_start, quiet_hours_end FROM user_settings WHERE telegram_id = ?"),
		telegramID)

	var us model.UserSettings
	err := row.Scan(&us.ID, &us.TelegramID, &us.SurveyInterval, &us.QuietHoursStart, &us.QuietHoursEnd)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("getting user settings: %w", err)
	}
	return &us, nil
}

func (s *SQLStore) CreateUserSettings(settings *model.UserSettings) error {
	_, err := s.db.ExecContext(context.Background(), s.rebind(
		"INSERT INTO user_settings (telegram_id, survey_interval, quiet_hours_start, quiet_hours_end) VALUES (?, ?, ?, ?)"),
		settings.TelegramID, settings.SurveyInterval, settings.QuietHoursStart, settings.QuietHoursEnd)
	if err != nil {
		return fmt.Errorf("creating user settings: %w", err)
	}
	return nil
}

func (s *SQLStore) ListUserSettings() ([]*model.UserSettings, error) {
	rows, err := s.db.QueryContext(context.Background(),
		"SELECT id, telegram_id, survey_interval, quiet_hours_start, quiet_hours_end FROM user_settings ORDER BY telegram_id")
	if err != nil {
		return nil, fmt.Errorf("listing user settings: %w", err)
	}
	defer rows.Close()

	var all []*model.UserSettings
	for rows.Next() {
		var us model.UserSettings
		if err := rows.Scan(&us.ID, &us.TelegramID, &us.SurveyInterval, &us.QuietHoursStart, &us.QuietHoursEnd); err != nil {
			return nil, fmt.Errorf("scanning user settings: %w", err)
		}
		all = append(all, &us)
	}
	return all, rows.Err()
}

// Operation tracking

func (s *SQLStore) CreateOperation(kind string, parameters string, startedAt time.Time) (*model.Operation, error) {
	row := s.db.QueryRowContext(context.Background(), s.rebind(
		"INSERT INTO operations (kind, parameters, started_at, status) VALUES (?, ?, ?, ?) RETURNING id"),
		kind, parameters, startedAt.UTC(), model.StatusSuccess)

	op := &model.Operation{
		Kind:       kind,
		Parameters: parameters,
		StartedAt:  startedAt.UTC(),
		Status:     model.StatusSuccess,
	}
	if err := row.Scan(&op.ID); err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	return op, nil
}

func (s *SQLStore) FinishOperation(id int64, status string, finishedAt time.Time) error {
	_, err := s.db.ExecContext(context.Background(), s.rebind(
		"UPDATE operations SET finished_at = ?, status = ? WHERE id = ?"),
		finishedAt.UTC(), status, id)
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	return nil
}

func (s *SQLStore) ListOperations(limit int) ([]*model.Operation, error) {
	rows, err := s.db.QueryContext(context.Background(), s.rebind(
		"SELECT id, kind, parameters, started_at, finished_at, status FROM operations ORDER BY id DESC LIMIT ?"),
		int64(limit))
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var all []*model.Operation
	for rows.Next() {
		var op model.Operation
		if err := rows.Scan(&op.ID, &op.Kind, &op.Parameters, &op.StartedAt, &op.FinishedAt, &op.Status); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		all = append(all, &op)
	}
	return all, rows.Err()
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLStore) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db, s.dialect)
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLStore) count(query string) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(context.Background(), query).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting rows: %w", err)
	}
	return n, nil
}

// Compile-time check that SQLStore implements the ops.Store interface
var _ ops.Store = (*SQLStore)(nil)
