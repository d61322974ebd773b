// Package session holds the in-memory per-user conversation state.
package session

import (
	"maps"
	"slices"
	"time"
)

// State is the conversation mode of a session.
type State string

const (
	StateSelectGroup             State = "SELECT_GROUP"
	StateSelectDate              State = "SELECT_DATE"
	StateMarkVisitors            State = "MARK_VISITORS"
	StateAwaitingAbsenceReason   State = "AWAITING_ABSENCE_REASON"
	StateConfirmNoMeeting        State = "CONFIRM_NO_MEETING"
	StateReviewVisitors          State = "REVIEW_VISITORS"
	StateAddGuests               State = "ADD_GUESTS"
	StateSpiritualSummary        State = "SPIRITUAL_SUMMARY"
	StateConfirmSummary          State = "CONFIRM_SUMMARY"
	StateTestimonies             State = "TESTIMONIES"
	StateTestimoniesInput        State = "TESTIMONIES_INPUT"
	StateConfirmTestimonies      State = "CONFIRM_TESTIMONIES"
	StatePersonalMeetings        State = "PERSONAL_MEETINGS"
	StatePersonalMeetingsInput   State = "PERSONAL_MEETINGS_INPUT"
	StateConfirmPersonalMeetings State = "CONFIRM_PERSONAL_MEETINGS"
	StateNewlyAssigned           State = "NEWLY_ASSIGNED"
	StateNewlyAssignedInput      State = "NEWLY_ASSIGNED_INPUT"
	StateConfirmNewlyAssigned    State = "CONFIRM_NEWLY_ASSIGNED"
	StateFinished                State = "FINISHED"
)

// Presence of a roster member at a meeting.
type Presence int

const (
	Present Presence = iota + 1
	Absent
)

// Mark is the attendance decision for one member. Reason is set only for Absent.
type Mark struct {
	Presence Presence
	Reason   string
}

// Answers holds the free-text follow-ups; empty means not given.
type Answers struct {
	SpiritualSummary string
	Testimony        string
	PersonalMeetings string
	NewlyAssigned    string
}

// Session is the state of one user's report in progress.
// PendingAbsence is non-empty exactly when Mode is StateAwaitingAbsenceReason.
type Session struct {
	Mode            State
	GroupID         string
	Leader          string
	MeetingDate     time.Time
	Roster          []string
	Marks           map[string]Mark
	PendingAbsence  string
	Guests          []string
	ReturningGuests []string
	Answers         Answers
}

// New returns a session positioned at group selection.
func New() Session {
	return Session{Mode: StateSelectGroup, Marks: map[string]Mark{}}
}

// Clone returns a deep copy.
func (s Session) Clone() Session {
	out := s
	out.Roster = slices.Clone(s.Roster)
	out.Guests = slices.Clone(s.Guests)
	out.ReturningGuests = slices.Clone(s.ReturningGuests)
	out.Marks = maps.Clone(s.Marks)
	if out.Marks == nil {
		out.Marks = map[string]Mark{}
	}
	return out
}

// Unmarked returns roster members without a mark, in roster order.
func (s Session) Unmarked() []string {
	var out []string
	for _, name := range s.Roster {
		if _, ok := s.Marks[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

// Complete reports whether every roster member is marked. An empty roster is complete.
func (s Session) Complete() bool {
	return len(s.Unmarked()) == 0
}

// HasGuest reports whether name is already in the guest list.
func (s Session) HasGuest(name string) bool {
	return slices.Contains(s.Guests, name)
}
