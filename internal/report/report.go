// Package report turns a session into the store's row batches.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hgbot/hgbot/internal/session"
	"github.com/hgbot/hgbot/internal/storage"
)

// ErrAlreadySubmitted means attendance for the session's group and date exists.
var ErrAlreadySubmitted = errors.New("attendance already submitted")

// ErrIncomplete means the session lacks the group, date or marks a batch needs.
var ErrIncomplete = errors.New("session is incomplete")

// Store is the persistence the assembler writes to.
type Store interface {
	storage.ReportWriter
}

// Assembler builds and writes report batches. It never retries.
type Assembler struct {
	store   Store
	clock   func() time.Time
	observe func(batch string)
	logger  *slog.Logger
}

// Option customises an Assembler.
type Option func(*Assembler)

// WithClock overrides the recorded-at time source.
func WithClock(clock func() time.Time) Option {
	return func(a *Assembler) { a.clock = clock }
}

// Batch names passed to the observer.
const (
	BatchAttendance = "attendance"
	BatchGuests     = "guests"
	BatchNotes      = "notes"
)

// WithObserver registers a callback invoked after every persisted batch.
func WithObserver(fn func(batch string)) Option {
	return func(a *Assembler) { a.observe = fn }
}

func NewAssembler(log *slog.Logger, store Store, opts ...Option) *Assembler {
	if log == nil {
		log = slog.Default()
	}
	a := &Assembler{
		store:   store,
		clock:   time.Now,
		observe: func(string) {},
		logger:  log.With(slog.String("component", "report")),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SubmitAttendance writes one row per roster member, in roster order.
func (a *Assembler) SubmitAttendance(ctx context.Context, sess session.Session) error {
	if sess.GroupID == "" || sess.MeetingDate.IsZero() {
		return ErrIncomplete
	}
	if !sess.Complete() {
		return fmt.Errorf("%w: %d unmarked", ErrIncomplete, len(sess.Unmarked()))
	}
	now := a.clock()
	rows := make([]storage.VisitRow, 0, len(sess.Roster))
	for _, name := range sess.Roster {
		mark := sess.Marks[name]
		row := storage.VisitRow{
			GroupID:     sess.GroupID,
			LeaderName:  sess.Leader,
			Name:        name,
			Presence:    storage.PresencePresent,
			PersonType:  storage.PersonMember,
			MeetingDate: sess.MeetingDate,
			RecordedAt:  now,
		}
		if mark.Presence == session.Absent {
			reason := mark.Reason
			row.Presence = storage.PresenceAbsent
			row.Reason = &reason
		}
		rows = append(rows, row)
	}

	err := a.store.AppendAttendance(ctx, sess.GroupID, sess.MeetingDate, rows)
	switch {
	case err == nil:
		a.logger.Info("attendance submitted",
			slog.String("group_id", sess.GroupID),
			slog.String("meeting_date", sess.MeetingDate.Format(time.DateOnly)),
			slog.Int("rows", len(rows)))
		a.observe(BatchAttendance)
		return nil
	case errors.Is(err, storage.ErrDuplicateReport):
		return ErrAlreadySubmitted
	default:
		return fmt.Errorf("append attendance: %w", err)
	}
}

// SubmitGuests writes one present row per guest. No guests means no write.
func (a *Assembler) SubmitGuests(ctx context.Context, sess session.Session) error {
	if len(sess.Guests) == 0 {
		return nil
	}
	if sess.GroupID == "" || sess.MeetingDate.IsZero() {
		return ErrIncomplete
	}
	now := a.clock()
	rows := make([]storage.VisitRow, 0, len(sess.Guests))
	for _, name := range sess.Guests {
		rows = append(rows, storage.VisitRow{
			GroupID:     sess.GroupID,
			LeaderName:  sess.Leader,
			Name:        name,
			Presence:    storage.PresencePresent,
			PersonType:  storage.PersonGuest,
			MeetingDate: sess.MeetingDate,
			RecordedAt:  now,
		})
	}
	if err := a.store.AppendGuests(ctx, rows); err != nil {
		return fmt.Errorf("append guests: %w", err)
	}
	a.observe(BatchGuests)
	return nil
}

// SubmitFreeText writes the four follow-up answers as one row.
func (a *Assembler) SubmitFreeText(ctx context.Context, sess session.Session) error {
	if sess.GroupID == "" || sess.MeetingDate.IsZero() {
		return ErrIncomplete
	}
	err := a.store.AppendNotes(ctx, storage.NotesRow{
		GroupID:          sess.GroupID,
		LeaderName:       sess.Leader,
		MeetingDate:      sess.MeetingDate,
		SpiritualSummary: sess.Answers.SpiritualSummary,
		Testimony:        sess.Answers.Testimony,
		PersonalMeetings: sess.Answers.PersonalMeetings,
		NewlyAssigned:    sess.Answers.NewlyAssigned,
		RecordedAt:       a.clock(),
	})
	if err != nil {
		return fmt.Errorf("append notes: %w", err)
	}
	a.observe(BatchNotes)
	return nil
}
