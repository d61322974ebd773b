// Package sqlite implements storage.Store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/hgbot/hgbot/internal/storage"
	"github.com/hgbot/hgbot/internal/storage/sqlite/migrations"
)

const dateLayout = "2006-01-02"

// Store persists bot data in SQLite.
type Store struct {
	sqlDB  *sql.DB
	logger *slog.Logger
}

var _ storage.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies migrations.
func Open(ctx context.Context, log *slog.Logger, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}
	if log == nil {
		log = slog.Default()
	}
	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	dsn := cleanPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{
		sqlDB:  sqlDB,
		logger: log.With(slog.String("component", "storage"), slog.String("driver", "sqlite")),
	}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.sqlDB == nil {
		return errors.New("storage is not configured")
	}
	return s.sqlDB.PingContext(ctx)
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ListGroupLeaders(ctx context.Context) ([]storage.GroupLeader, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT group_id, leader_name, leader_handles FROM groups ORDER BY group_id`)
	if err != nil {
		return nil, fmt.Errorf("list group leaders: %w", err)
	}
	defer rows.Close()

	var out []storage.GroupLeader
	for rows.Next() {
		var g storage.GroupLeader
		var handles string
		if err := rows.Scan(&g.GroupID, &g.LeaderName, &handles); err != nil {
			return nil, fmt.Errorf("scan group leader: %w", err)
		}
		g.Handles = storage.SplitHandles(handles)
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) ListLeaderAccounts(ctx context.Context) ([]storage.LeaderAccount, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT handle, telegram_id FROM leader_accounts ORDER BY handle`)
	if err != nil {
		return nil, fmt.Errorf("list leader accounts: %w", err)
	}
	defer rows.Close()

	var out []storage.LeaderAccount
	for rows.Next() {
		var a storage.LeaderAccount
		if err := rows.Scan(&a.Handle, &a.TelegramID); err != nil {
			return nil, fmt.Errorf("scan leader account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) UpsertLeaderAccount(ctx context.Context, account storage.LeaderAccount) error {
	handle := storage.NormalizeHandle(account.Handle)
	if handle == "" {
		return errors.New("handle is required")
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO leader_accounts (handle, telegram_id, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (handle) DO UPDATE SET telegram_id = excluded.telegram_id, updated_at = excluded.updated_at`,
		handle, account.TelegramID, toMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("upsert leader account: %w", err)
	}
	return nil
}

func (s *Store) ListGroupMembers(ctx context.Context, groupID string) ([]string, error) {
	return s.listStrings(ctx, "list group members",
		`SELECT name FROM group_members WHERE group_id = ? ORDER BY position, name`, groupID)
}

// AppendAttendance inserts the batch marker and every member row in one
// transaction; a repeated (group, date) pair yields storage.ErrDuplicateReport.
func (s *Store) AppendAttendance(ctx context.Context, groupID string, meetingDate time.Time, rows []storage.VisitRow) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	recorded := time.Now()
	if len(rows) > 0 && !rows[0].RecordedAt.IsZero() {
		recorded = rows[0].RecordedAt
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO attendance_reports (group_id, meeting_date, recorded_at) VALUES (?, ?, ?)`,
		groupID, toDate(meetingDate), toMillis(recorded),
	); err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicateReport
		}
		return fmt.Errorf("insert attendance report: %w", err)
	}
	if err := insertVisits(ctx, tx, rows); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) AppendGuests(ctx context.Context, rows []storage.VisitRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertVisits(ctx, tx, rows); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) AppendNotes(ctx context.Context, row storage.NotesRow) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO meeting_notes (
		   group_id, leader_name, meeting_date,
		   spiritual_summary, testimony, personal_meetings, newly_assigned,
		   recorded_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		row.GroupID, row.LeaderName, toDate(row.MeetingDate),
		row.SpiritualSummary, row.Testimony, row.PersonalMeetings, row.NewlyAssigned,
		toMillis(row.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("insert meeting notes: %w", err)
	}
	return nil
}

func (s *Store) ListReturningGuests(ctx context.Context, leaderName string) ([]string, error) {
	return s.listStrings(ctx, "list returning guests",
		`SELECT DISTINCT name FROM visits WHERE person_type = 'guest' AND leader_name = ? ORDER BY name`,
		leaderName)
}

func (s *Store) ListGroupStatuses(ctx context.Context) ([]storage.GroupStatus, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT g.group_id, g.leader_name, g.leader_handles, g.is_active,
		        g.meeting_weekday, g.meeting_time, MAX(r.meeting_date)
		 FROM groups g
		 LEFT JOIN attendance_reports r ON r.group_id = g.group_id
		 GROUP BY g.group_id
		 ORDER BY g.group_id`)
	if err != nil {
		return nil, fmt.Errorf("list group statuses: %w", err)
	}
	defer rows.Close()

	var out []storage.GroupStatus
	for rows.Next() {
		var (
			status      storage.GroupStatus
			handles     string
			active      int64
			weekday     sql.NullInt64
			meetingTime sql.NullString
			lastDate    sql.NullString
		)
		if err := rows.Scan(&status.GroupID, &status.LeaderName, &handles, &active,
			&weekday, &meetingTime, &lastDate); err != nil {
			return nil, fmt.Errorf("scan group status: %w", err)
		}
		status.Handles = storage.SplitHandles(handles)
		status.Active = active != 0
		if weekday.Valid {
			if day, ok := storage.WeekdayFromISO(int(weekday.Int64)); ok {
				status.MeetingWeekday = &day
			} else {
				s.logger.Warn("invalid meeting weekday",
					slog.String("group_id", status.GroupID),
					slog.Int64("weekday", weekday.Int64))
			}
		}
		if meetingTime.Valid {
			status.MeetingTime = meetingTime.String
		}
		if lastDate.Valid {
			parsed, err := time.Parse(dateLayout, lastDate.String)
			if err != nil {
				return nil, fmt.Errorf("parse last report date %q: %w", lastDate.String, err)
			}
			status.LastReport = parsed
		}
		out = append(out, status)
	}
	return out, rows.Err()
}

func (s *Store) HasReport(ctx context.Context, groupID string, meetingDate time.Time) (bool, error) {
	var exists int
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM attendance_reports WHERE group_id = ? AND meeting_date = ?)`,
		groupID, toDate(meetingDate),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("has attendance report: %w", err)
	}
	return exists != 0, nil
}

func (s *Store) ListReminderRecipients(ctx context.Context) ([]string, error) {
	handles, err := s.listStrings(ctx, "list reminder recipients",
		`SELECT handle FROM reminder_recipients ORDER BY handle`)
	if err != nil {
		return nil, err
	}
	out := handles[:0]
	for _, h := range handles {
		if h = storage.NormalizeHandle(h); h != "" {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *Store) ListSettingValues(ctx context.Context, key string) ([]string, error) {
	return s.listStrings(ctx, "list setting "+key,
		`SELECT value FROM bot_settings WHERE key = ? ORDER BY position`, key)
}

func (s *Store) listStrings(ctx context.Context, op, query string, args ...any) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func insertVisits(ctx context.Context, tx *sql.Tx, rows []storage.VisitRow) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO visits (
		   group_id, leader_name, name, status, person_type, reason, meeting_date, recorded_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare visit insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		var reason sql.NullString
		if row.Reason != nil {
			reason = sql.NullString{String: *row.Reason, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			row.GroupID, row.LeaderName, row.Name, row.Presence, row.PersonType,
			reason, toDate(row.MeetingDate), toMillis(row.RecordedAt),
		); err != nil {
			return fmt.Errorf("insert visit %q: %w", row.Name, err)
		}
	}
	return nil
}

func toDate(t time.Time) string {
	return t.Format(dateLayout)
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
