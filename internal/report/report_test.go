package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hgbot/hgbot/internal/session"
	"github.com/hgbot/hgbot/internal/storage"
)

type fakeWriter struct {
	attendance    []storage.VisitRow
	guests        []storage.VisitRow
	notes         []storage.NotesRow
	attendanceErr error
	guestCalls    int
}

func (f *fakeWriter) AppendAttendance(_ context.Context, _ string, _ time.Time, rows []storage.VisitRow) error {
	if f.attendanceErr != nil {
		return f.attendanceErr
	}
	f.attendance = append(f.attendance, rows...)
	return nil
}

func (f *fakeWriter) AppendGuests(_ context.Context, rows []storage.VisitRow) error {
	f.guestCalls++
	f.guests = append(f.guests, rows...)
	return nil
}

func (f *fakeWriter) AppendNotes(_ context.Context, row storage.NotesRow) error {
	f.notes = append(f.notes, row)
	return nil
}

var fixedNow = time.Date(2026, time.October, 14, 20, 0, 0, 0, time.UTC)

func markedSession() session.Session {
	s := session.New()
	s.GroupID = "12"
	s.Leader = "Иван"
	s.MeetingDate = time.Date(2026, time.October, 14, 0, 0, 0, 0, time.UTC)
	s.Roster = []string{"Анна", "Борис"}
	s.Marks["Борис"] = session.Mark{Presence: session.Absent, Reason: "Болезнь"}
	s.Marks["Анна"] = session.Mark{Presence: session.Present}
	return s
}

func TestSubmitAttendanceRows(t *testing.T) {
	w := &fakeWriter{}
	a := NewAssembler(nil, w, WithClock(func() time.Time { return fixedNow }))

	require.NoError(t, a.SubmitAttendance(context.Background(), markedSession()))
	require.Len(t, w.attendance, 2)

	anna, boris := w.attendance[0], w.attendance[1]
	assert.Equal(t, "Анна", anna.Name)
	assert.Equal(t, storage.PresencePresent, anna.Presence)
	assert.Nil(t, anna.Reason)
	assert.Equal(t, "Борис", boris.Name)
	assert.Equal(t, storage.PresenceAbsent, boris.Presence)
	require.NotNil(t, boris.Reason)
	assert.Equal(t, "Болезнь", *boris.Reason)
	assert.Equal(t, storage.PersonMember, boris.PersonType)
	assert.Equal(t, fixedNow, boris.RecordedAt)
	assert.Equal(t, "Иван", boris.LeaderName)
}

func TestSubmitAttendanceClassifiesErrors(t *testing.T) {
	dup := &fakeWriter{attendanceErr: storage.ErrDuplicateReport}
	err := NewAssembler(nil, dup).SubmitAttendance(context.Background(), markedSession())
	assert.ErrorIs(t, err, ErrAlreadySubmitted)

	boom := errors.New("connection reset")
	failing := &fakeWriter{attendanceErr: boom}
	err = NewAssembler(nil, failing).SubmitAttendance(context.Background(), markedSession())
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrAlreadySubmitted)
}

func TestSubmitAttendanceRequiresCompleteMarks(t *testing.T) {
	s := markedSession()
	delete(s.Marks, "Анна")
	err := NewAssembler(nil, &fakeWriter{}).SubmitAttendance(context.Background(), s)
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestSubmitGuestsSkipsEmpty(t *testing.T) {
	w := &fakeWriter{}
	a := NewAssembler(nil, w)
	s := markedSession()

	require.NoError(t, a.SubmitGuests(context.Background(), s))
	assert.Equal(t, 0, w.guestCalls)

	s.Guests = []string{"Олег", "Дина"}
	require.NoError(t, a.SubmitGuests(context.Background(), s))
	require.Len(t, w.guests, 2)
	assert.Equal(t, storage.PersonGuest, w.guests[0].PersonType)
	assert.Equal(t, storage.PresencePresent, w.guests[1].Presence)
}

func TestSubmitFreeText(t *testing.T) {
	w := &fakeWriter{}
	s := markedSession()
	s.Answers = session.Answers{SpiritualSummary: "Молились", NewlyAssigned: "Пётр"}

	require.NoError(t, NewAssembler(nil, w, WithClock(func() time.Time { return fixedNow })).SubmitFreeText(context.Background(), s))
	require.Len(t, w.notes, 1)
	assert.Equal(t, "Молились", w.notes[0].SpiritualSummary)
	assert.Equal(t, "", w.notes[0].Testimony)
	assert.Equal(t, "Пётр", w.notes[0].NewlyAssigned)
	assert.Equal(t, fixedNow, w.notes[0].RecordedAt)
}

func TestObserverSeesPersistedBatches(t *testing.T) {
	var seen []string
	a := NewAssembler(nil, &fakeWriter{}, WithObserver(func(batch string) { seen = append(seen, batch) }))
	s := markedSession()
	s.Guests = []string{"Олег"}

	require.NoError(t, a.SubmitAttendance(context.Background(), s))
	require.NoError(t, a.SubmitGuests(context.Background(), s))
	require.NoError(t, a.SubmitFreeText(context.Background(), s))
	assert.Equal(t, []string{BatchAttendance, BatchGuests, BatchNotes}, seen)

	failing := NewAssembler(nil, &fakeWriter{attendanceErr: storage.ErrDuplicateReport}, WithObserver(func(batch string) { seen = append(seen, batch) }))
	assert.Error(t, failing.SubmitAttendance(context.Background(), s))
	assert.Len(t, seen, 3)
}
