// Package postgres implements storage.Store on pgx and the sqlc query layer.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hgbot/hgbot/internal/db/sqlc"
	"github.com/hgbot/hgbot/internal/storage"
)

const uniqueViolation = "23505"

type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store is the Postgres backend.
type Store struct {
	pool    *pgxpool.Pool
	db      beginner
	queries *sqlc.Queries
	logger  *slog.Logger
}

var _ storage.Store = (*Store)(nil)

// New wraps an open pool.
func New(log *slog.Logger, pool *pgxpool.Pool) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		pool:    pool,
		db:      pool,
		queries: sqlc.New(pool),
		logger:  log.With(slog.String("component", "storage"), slog.String("driver", "postgres")),
	}
}

func (s *Store) Ping(ctx context.Context) error {
	if s.pool == nil {
		return errors.New("postgres pool not configured")
	}
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Store) ListGroupLeaders(ctx context.Context) ([]storage.GroupLeader, error) {
	rows, err := s.queries.ListGroupLeaders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list group leaders: %w", err)
	}
	out := make([]storage.GroupLeader, 0, len(rows))
	for _, row := range rows {
		out = append(out, storage.GroupLeader{
			GroupID:    row.GroupID,
			LeaderName: row.LeaderName,
			Handles:    storage.SplitHandles(row.LeaderHandles),
		})
	}
	return out, nil
}

func (s *Store) ListLeaderAccounts(ctx context.Context) ([]storage.LeaderAccount, error) {
	rows, err := s.queries.ListLeaderAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list leader accounts: %w", err)
	}
	out := make([]storage.LeaderAccount, 0, len(rows))
	for _, row := range rows {
		out = append(out, storage.LeaderAccount{Handle: row.Handle, TelegramID: row.TelegramID})
	}
	return out, nil
}

func (s *Store) UpsertLeaderAccount(ctx context.Context, account storage.LeaderAccount) error {
	err := s.queries.UpsertLeaderAccount(ctx, sqlc.UpsertLeaderAccountParams{
		Handle:     storage.NormalizeHandle(account.Handle),
		TelegramID: account.TelegramID,
	})
	if err != nil {
		return fmt.Errorf("upsert leader account: %w", err)
	}
	return nil
}

func (s *Store) ListGroupMembers(ctx context.Context, groupID string) ([]string, error) {
	names, err := s.queries.ListGroupMembers(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	return names, nil
}

// AppendAttendance inserts the batch marker and every member row in one
// transaction. A second batch for the same group and date fails with
// storage.ErrDuplicateReport and writes nothing.
func (s *Store) AppendAttendance(ctx context.Context, groupID string, meetingDate time.Time, rows []storage.VisitRow) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := s.queries.WithTx(tx)
	err = q.InsertAttendanceReport(ctx, sqlc.InsertAttendanceReportParams{
		GroupID:     groupID,
		MeetingDate: toDate(meetingDate),
		RecordedAt:  toTimestamptz(recordedAt(rows)),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicateReport
		}
		return fmt.Errorf("insert attendance report: %w", err)
	}
	for _, row := range rows {
		if err := q.InsertVisit(ctx, visitParams(row)); err != nil {
			return fmt.Errorf("insert visit %q: %w", row.Name, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) AppendGuests(ctx context.Context, rows []storage.VisitRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := s.queries.WithTx(tx)
	for _, row := range rows {
		if err := q.InsertVisit(ctx, visitParams(row)); err != nil {
			return fmt.Errorf("insert guest %q: %w", row.Name, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) AppendNotes(ctx context.Context, row storage.NotesRow) error {
	err := s.queries.InsertMeetingNotes(ctx, sqlc.InsertMeetingNotesParams{
		GroupID:          row.GroupID,
		LeaderName:       row.LeaderName,
		MeetingDate:      toDate(row.MeetingDate),
		SpiritualSummary: row.SpiritualSummary,
		Testimony:        row.Testimony,
		PersonalMeetings: row.PersonalMeetings,
		NewlyAssigned:    row.NewlyAssigned,
		RecordedAt:       toTimestamptz(row.RecordedAt),
	})
	if err != nil {
		return fmt.Errorf("insert meeting notes: %w", err)
	}
	return nil
}

func (s *Store) ListReturningGuests(ctx context.Context, leaderName string) ([]string, error) {
	names, err := s.queries.ListReturningGuests(ctx, leaderName)
	if err != nil {
		return nil, fmt.Errorf("list returning guests: %w", err)
	}
	return names, nil
}

func (s *Store) ListGroupStatuses(ctx context.Context) ([]storage.GroupStatus, error) {
	rows, err := s.queries.ListGroupStatuses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list group statuses: %w", err)
	}
	out := make([]storage.GroupStatus, 0, len(rows))
	for _, row := range rows {
		status := storage.GroupStatus{
			GroupID:    row.GroupID,
			LeaderName: row.LeaderName,
			Handles:    storage.SplitHandles(row.LeaderHandles),
			Active:     row.IsActive,
		}
		if row.LastDate.Valid {
			status.LastReport = row.LastDate.Time
		}
		if row.MeetingWeekday.Valid {
			if day, ok := storage.WeekdayFromISO(int(row.MeetingWeekday.Int16)); ok {
				status.MeetingWeekday = &day
			} else {
				s.logger.Warn("invalid meeting weekday",
					slog.String("group_id", row.GroupID),
					slog.Int("weekday", int(row.MeetingWeekday.Int16)))
			}
		}
		if row.MeetingTime.Valid {
			status.MeetingTime = row.MeetingTime.String
		}
		out = append(out, status)
	}
	return out, nil
}

func (s *Store) HasReport(ctx context.Context, groupID string, meetingDate time.Time) (bool, error) {
	ok, err := s.queries.HasAttendanceReport(ctx, sqlc.HasAttendanceReportParams{
		GroupID:     groupID,
		MeetingDate: toDate(meetingDate),
	})
	if err != nil {
		return false, fmt.Errorf("has attendance report: %w", err)
	}
	return ok, nil
}

func (s *Store) ListReminderRecipients(ctx context.Context) ([]string, error) {
	handles, err := s.queries.ListReminderRecipients(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reminder recipients: %w", err)
	}
	out := make([]string, 0, len(handles))
	for _, h := range handles {
		if h = storage.NormalizeHandle(h); h != "" {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *Store) ListSettingValues(ctx context.Context, key string) ([]string, error) {
	values, err := s.queries.ListSettingValues(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("list setting %q: %w", key, err)
	}
	return values, nil
}

func visitParams(row storage.VisitRow) sqlc.InsertVisitParams {
	reason := pgtype.Text{}
	if row.Reason != nil {
		reason = pgtype.Text{String: *row.Reason, Valid: true}
	}
	return sqlc.InsertVisitParams{
		GroupID:     row.GroupID,
		LeaderName:  row.LeaderName,
		Name:        row.Name,
		Status:      row.Presence,
		PersonType:  row.PersonType,
		Reason:      reason,
		MeetingDate: toDate(row.MeetingDate),
		RecordedAt:  toTimestamptz(row.RecordedAt),
	}
}

func recordedAt(rows []storage.VisitRow) time.Time {
	for _, row := range rows {
		if !row.RecordedAt.IsZero() {
			return row.RecordedAt
		}
	}
	return time.Now()
}

// toDate keeps the calendar date of t regardless of its zone.
func toDate(t time.Time) pgtype.Date {
	y, m, d := t.Date()
	return pgtype.Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Valid: true}
}

func toTimestamptz(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
