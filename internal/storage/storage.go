// Package storage defines the persistence contract of the bot and the record
// shapes exchanged with it. Backends live in the postgres and sqlite subpackages.
package storage

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrDuplicateReport is returned by AppendAttendance when an attendance batch
// for the same (group_id, meeting_date) already exists.
var ErrDuplicateReport = errors.New("attendance report already exists")

// ErrNotFound is returned when a single-row lookup has no match.
var ErrNotFound = errors.New("not found")

// Presence values as stored in the visits table.
const (
	PresencePresent = "+"
	PresenceAbsent  = "-"
)

// Person types as stored in the visits table.
const (
	PersonMember = "member"
	PersonGuest  = "guest"
)

// GroupLeader is one row of the leader directory: a group, its leader and the
// chat handles allowed to report for it.
type GroupLeader struct {
	GroupID    string
	LeaderName string
	Handles    []string
}

// LeaderAccount binds a chat handle to the numeric platform id seen for it.
type LeaderAccount struct {
	Handle     string
	TelegramID int64
}

// VisitRow is one attendance record, for a roster member or a guest.
type VisitRow struct {
	GroupID     string
	LeaderName  string
	Name        string
	Presence    string
	PersonType  string
	Reason      *string
	MeetingDate time.Time
	RecordedAt  time.Time
}

// NotesRow holds the free-text answers of one report.
type NotesRow struct {
	GroupID          string
	LeaderName       string
	MeetingDate      time.Time
	SpiritualSummary string
	Testimony        string
	PersonalMeetings string
	NewlyAssigned    string
	RecordedAt       time.Time
}

// GroupStatus describes a group for the reminder scheduler.
type GroupStatus struct {
	GroupID    string
	LeaderName string
	Handles    []string
	Active     bool
	// LastReport is the latest reported meeting date; zero when never reported.
	LastReport time.Time
	// MeetingWeekday is nil when the master schedule has no weekday.
	MeetingWeekday *time.Weekday
	// MeetingTime is "HH:MM" in the meeting zone; empty when unknown.
	MeetingTime string
}

// DirectoryReader loads identities.
type DirectoryReader interface {
	ListGroupLeaders(ctx context.Context) ([]GroupLeader, error)
	ListLeaderAccounts(ctx context.Context) ([]LeaderAccount, error)
}

// AccountWriter persists handle to numeric id bindings.
type AccountWriter interface {
	UpsertLeaderAccount(ctx context.Context, account LeaderAccount) error
}

// RosterReader fetches a group's ordered member names.
type RosterReader interface {
	ListGroupMembers(ctx context.Context, groupID string) ([]string, error)
}

// ReportWriter persists the three report batches.
type ReportWriter interface {
	// AppendAttendance writes all rows atomically, or returns ErrDuplicateReport.
	AppendAttendance(ctx context.Context, groupID string, meetingDate time.Time, rows []VisitRow) error
	AppendGuests(ctx context.Context, rows []VisitRow) error
	AppendNotes(ctx context.Context, row NotesRow) error
}

// GuestReader lists distinct names of guests a leader has recorded before.
type GuestReader interface {
	ListReturningGuests(ctx context.Context, leaderName string) ([]string, error)
}

// ReminderReader serves the reminder scheduler.
type ReminderReader interface {
	ListGroupStatuses(ctx context.Context) ([]GroupStatus, error)
	HasReport(ctx context.Context, groupID string, meetingDate time.Time) (bool, error)
	ListReminderRecipients(ctx context.Context) ([]string, error)
}

// SettingsReader returns the ordered values stored under a key.
type SettingsReader interface {
	ListSettingValues(ctx context.Context, key string) ([]string, error)
}

// Store is the full persistence interface. Components depend on the smaller
// interfaces above; Store exists for wiring.
type Store interface {
	DirectoryReader
	AccountWriter
	RosterReader
	ReportWriter
	GuestReader
	ReminderReader
	SettingsReader
	Ping(ctx context.Context) error
	Close() error
}

// DateOnly truncates t to midnight in its own location.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// CivilDay encodes the calendar date of t as yyyymmdd, ignoring the zone.
func CivilDay(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// StaleBefore reports whether the group has no report on or after the
// calendar date of cutoff.
func (g GroupStatus) StaleBefore(cutoff time.Time) bool {
	if g.LastReport.IsZero() {
		return true
	}
	return CivilDay(g.LastReport) < CivilDay(cutoff)
}

// NormalizeHandle trims spaces and a leading '@'.
func NormalizeHandle(handle string) string {
	return strings.TrimPrefix(strings.TrimSpace(handle), "@")
}

// SplitHandles parses the comma-separated handle column. Empty entries are dropped.
func SplitHandles(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if h := NormalizeHandle(part); h != "" {
			out = append(out, h)
		}
	}
	return out
}

// WeekdayFromISO maps 1 (Monday) .. 7 (Sunday) to time.Weekday.
func WeekdayFromISO(n int) (time.Weekday, bool) {
	if n < 1 || n > 7 {
		return 0, false
	}
	return time.Weekday(n % 7), true
}
