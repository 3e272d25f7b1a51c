package snapshot

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"moodops/internal/model"
)

// CSV column layouts. The column order is the wire format: changing it
// breaks every existing snapshot.
var (
	userHeader     = []string{"user_id", "timezone", "created_at"}
	logHeader      = []string{"user_id", "event_type", "timestamp", "details"}
	settingsHeader = []string{"user_id", "survey_interval", "quiet_hours_start", "quiet_hours_end"}
)

// Empty string encodes NULL for nullable columns.

func writeUsersCSV(path string, users []*model.User) error {
	return writeCSV(path, userHeader, len(users), func(i int) []string {
		u := users[i]
		return []string{
			strconv.FormatInt(u.TelegramID, 10),
			u.Timezone.String,
			u.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
	})
}

func readUsersCSV(path string) ([]*model.User, error) {
	records, err := readCSV(path, userHeader)
	if err != nil {
		return nil, err
	}

	users := make([]*model.User, 0, len(records))
	for i, rec := range records {
		telegramID, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad user_id %q: %w", usersFile, i+1, rec[0], err)
		}
		createdAt, err := parseTimestamp(rec[2])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad created_at %q: %w", usersFile, i+1, rec[2], err)
		}
		users = append(users, &model.User{
			TelegramID: telegramID,
			Timezone:   nullString(rec[1]),
			CreatedAt:  createdAt,
		})
	}
	return users, nil
}

func writeLogsCSV(path string, logs []*model.Log) error {
	return writeCSV(path, logHeader, len(logs), func(i int) []string {
		l := logs[i]
		return []string{
			strconv.FormatInt(l.TelegramID, 10),
			l.EventType,
			l.Timestamp.UTC().Format(time.RFC3339Nano),
			l.Details.String,
		}
	})
}

func readLogsCSV(path string) ([]*model.Log, error) {
	records, err := readCSV(path, logHeader)
	if err != nil {
		return nil, err
	}

	logs := make([]*model.Log, 0, len(records))
	for i, rec := range records {
		telegramID, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad user_id %q: %w", logsFile, i+1, rec[0], err)
		}
		timestamp, err := parseTimestamp(rec[2])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad timestamp %q: %w", logsFile, i+1, rec[2], err)
		}
		logs = append(logs, &model.Log{
			TelegramID: telegramID,
			EventType:  rec[1],
			Timestamp:  timestamp,
			Details:    nullString(rec[3]),
		})
	}
	return logs, nil
}

func writeSettingsCSV(path string, settings []*model.UserSettings) error {
	return writeCSV(path, settingsHeader, len(settings), func(i int) []string {
		s := settings[i]
		return []string{
			strconv.FormatInt(s.TelegramID, 10),
			strconv.FormatInt(s.SurveyInterval, 10),
			formatNullInt(s.QuietHoursStart),
			formatNullInt(s.QuietHoursEnd),
		}
	})
}

func readSettingsCSV(path string) ([]*model.UserSettings, error) {
	records, err := readCSV(path, settingsHeader)
	if err != nil {
		return nil, err
	}

	settings := make([]*model.UserSettings, 0, len(records))
	for i, rec := range records {
		telegramID, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad user_id %q: %w", settingsFile, i+1, rec[0], err)
		}
		interval, err := strconv.ParseInt(rec[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad survey_interval %q: %w", settingsFile, i+1, rec[1], err)
		}
		start, err := parseNullInt(rec[2])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad quiet_hours_start %q: %w", settingsFile, i+1, rec[2], err)
		}
		end, err := parseNullInt(rec[3])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad quiet_hours_end %q: %w", settingsFile, i+1, rec[3], err)
		}
		settings = append(settings, &model.UserSettings{
			TelegramID:      telegramID,
			SurveyInterval:  interval,
			QuietHoursStart: start,
			QuietHoursEnd:   end,
		})
	}
	return settings, nil
}

func writeCSV(path string, header []string, n int, row func(i int) []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i := 0; i < n; i++ {
		if err := w.Write(row(i)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	return nil
}

// readCSV reads all records of a CSV file, validating the header.
// Returns data rows only.
func readCSV(path string, header []string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(header)

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: missing header", path)
	}
	for i, col := range header {
		if records[0][i] != col {
			return nil, fmt.Errorf("%s: unexpected header %v, want %v", path, records[0], header)
		}
	}
	return records[1:], nil
}

// parseTimestamp accepts RFC 3339 as written by this tool, plus the
// space-separated form older exports used.
func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// nullString maps an empty CSV field to NULL. Empty strings and NULL
// are deliberately conflated, so nullable text must be stored as NULL
// when empty for values to survive a snapshot round trip unchanged.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func formatNullInt(v sql.NullInt64) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatInt(v.Int64, 10)
}

func parseNullInt(s string) (sql.NullInt64, error) {
	if s == "" {
		return sql.NullInt64{}, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return sql.NullInt64{}, err
	}
	return sql.NullInt64{Int64: v, Valid: true}, nil
}
