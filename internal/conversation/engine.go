// Package conversation implements the report dialogue as a state machine over
// session.Session.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hgbot/hgbot/internal/directory"
	"github.com/hgbot/hgbot/internal/session"
)

// Rosters returns the ordered member names of a group.
type Rosters interface {
	Get(ctx context.Context, groupID string) ([]string, error)
}

// GuestSource lists guests a leader recorded before.
type GuestSource interface {
	ListReturningGuests(ctx context.Context, leaderName string) ([]string, error)
}

// Submitter persists the report batches.
type Submitter interface {
	SubmitAttendance(ctx context.Context, sess session.Session) error
	SubmitGuests(ctx context.Context, sess session.Session) error
	SubmitFreeText(ctx context.Context, sess session.Session) error
}

type stepFunc func(ctx context.Context, s *session.Session, id directory.Identity, ev Event) (Result, error)

// Engine is stateless apart from its collaborators; sessions are passed in.
type Engine struct {
	rosters   Rosters
	guests    GuestSource
	submitter Submitter
	now       func() time.Time
	loc       *time.Location
	logger    *slog.Logger
	steps     map[session.State]stepFunc
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for relative dates.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the zone that defines "today".
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

func NewEngine(log *slog.Logger, rosters Rosters, guests GuestSource, submitter Submitter, opts ...Option) *Engine {
	if log == nil {
		log = slog.Default()
	}
	e := &Engine{
		rosters:   rosters,
		guests:    guests,
		submitter: submitter,
		now:       time.Now,
		loc:       time.Local,
		logger:    log.With(slog.String("component", "conversation")),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.steps = e.transitions()
	return e
}

// Handle applies ev to sess. The step runs on a copy which replaces *sess only
// when the step succeeds and the input was accepted. A non-nil error is a
// persistence failure (possibly report.ErrAlreadySubmitted); sess is unchanged.
func (e *Engine) Handle(ctx context.Context, sess *session.Session, id directory.Identity, ev Event) (Result, error) {
	work := sess.Clone()
	from := work.Mode

	var (
		res Result
		err error
	)
	step, known := e.steps[work.Mode]
	switch {
	case ev.Kind == EventStart || !known:
		work = session.New()
		res, err = e.begin(&work, id)
	default:
		res, err = step(ctx, &work, id, ev)
	}
	if err != nil || res.Rejected {
		return res, err
	}
	*sess = work
	if from != work.Mode {
		e.logger.Debug("transition",
			slog.String("handle", id.Handle),
			slog.String("from", string(from)),
			slog.String("to", string(work.Mode)))
	}
	return res, nil
}

func (e *Engine) transitions() map[session.State]stepFunc {
	t := map[session.State]stepFunc{
		session.StateSelectGroup:           e.selectGroup,
		session.StateSelectDate:            e.selectDate,
		session.StateMarkVisitors:          e.markVisitors,
		session.StateAwaitingAbsenceReason: e.awaitReason,
		session.StateConfirmNoMeeting:      e.confirmNoMeeting,
		session.StateReviewVisitors:        e.reviewVisitors,
		session.StateAddGuests:             e.addGuests,
		session.StateFinished:              e.finished,
	}
	for i, st := range qaStages {
		if st.ask != "" {
			t[st.ask] = e.askStep(i)
		}
		t[st.input] = e.inputStep(i)
		t[st.confirm] = e.confirmStep(i)
	}
	return t
}

func (e *Engine) today() time.Time {
	return e.now().In(e.loc)
}

// begin starts a new cycle on a fresh session.
func (e *Engine) begin(s *session.Session, id directory.Identity) (Result, error) {
	switch len(id.Memberships) {
	case 0:
		return rejected(MsgAccessDenied, Menu{}), nil
	case 1:
		return e.chooseGroup(s, id.Memberships[0]), nil
	}
	s.Mode = session.StateSelectGroup
	var res Result
	res.sayWith(msgChooseGroup, groupMenu(id.Memberships))
	return res, nil
}

func (e *Engine) chooseGroup(s *session.Session, m directory.Membership) Result {
	s.GroupID = m.GroupID
	s.Leader = m.LeaderName
	s.Mode = session.StateSelectDate
	var res Result
	res.say(fmt.Sprintf(msgGreeting, m.LeaderName, m.GroupID))
	res.sayWith(msgChooseDate, dateMenu())
	return res
}

func (e *Engine) selectGroup(_ context.Context, s *session.Session, id directory.Identity, ev Event) (Result, error) {
	if len(id.Memberships) == 1 {
		*s = session.New()
		return e.begin(s, id)
	}
	var want string
	switch ev.Kind {
	case EventButton:
		want = strings.TrimPrefix(ev.Token, tokenGroupPrefix)
	case EventText:
		want = strings.TrimSpace(ev.Text)
	}
	for _, m := range id.Memberships {
		if m.GroupID == want {
			return e.chooseGroup(s, m), nil
		}
	}
	return rejected(msgUnknownGroup, groupMenu(id.Memberships)), nil
}

func (e *Engine) selectDate(ctx context.Context, s *session.Session, _ directory.Identity, ev Event) (Result, error) {
	if ev.Kind != EventText {
		return rejected(msgChooseDate, dateMenu()), nil
	}
	date, err := ParseDate(ev.Text, e.today())
	switch {
	case errors.Is(err, errDateFuture):
		return rejected(msgFutureDate, dateMenu()), nil
	case err != nil:
		return rejected(msgBadDate, dateMenu()), nil
	}

	roster, err := e.rosters.Get(ctx, s.GroupID)
	if err != nil {
		return Result{}, fmt.Errorf("load roster: %w", err)
	}
	s.MeetingDate = date
	s.Roster = roster
	s.Marks = map[string]session.Mark{}
	s.PendingAbsence = ""
	s.Guests = nil
	s.ReturningGuests = nil
	s.Answers = session.Answers{}
	s.Mode = session.StateMarkVisitors

	var res Result
	res.sayWith(fmt.Sprintf(msgSelectedDate, FormatDate(date)), removeMenu())
	if len(roster) == 0 {
		res.say(msgEmptyRoster)
	}
	res.sayWith(fmt.Sprintf(msgMarkVisitors, FormatDate(date)), markMenu(roster))
	return res, nil
}

func (e *Engine) markVisitors(_ context.Context, s *session.Session, _ directory.Identity, ev Event) (Result, error) {
	if ev.Kind != EventButton {
		return rejected(msgMarkWithButtons, Menu{}), nil
	}
	if idx, ok := indexAfter(ev.Token, tokenPresentPrefix, len(s.Roster)); ok {
		name := s.Roster[idx]
		s.Marks[name] = session.Mark{Presence: session.Present}
		return Result{Toast: name + " " + labelPresent}, nil
	}
	if idx, ok := indexAfter(ev.Token, tokenAbsentPrefix, len(s.Roster)); ok {
		name := s.Roster[idx]
		s.PendingAbsence = name
		s.Mode = session.StateAwaitingAbsenceReason
		res := Result{Toast: msgToastAskReason}
		res.sayWith(fmt.Sprintf(msgAskReason, name), reasonMenu())
		return res, nil
	}
	switch ev.Token {
	case tokenReview:
		if missing := s.Unmarked(); len(missing) > 0 {
			return rejectedToast(fmt.Sprintf(msgNotAllMarked, strings.Join(missing, "\n"))), nil
		}
		s.Mode = session.StateReviewVisitors
		return showReview(*s), nil
	case tokenNoMeeting:
		s.Mode = session.StateConfirmNoMeeting
		var res Result
		res.sayWith(fmt.Sprintf(msgConfirmNoMeeting, s.GroupID, FormatDate(s.MeetingDate)), yesNoMenu())
		return res, nil
	}
	return rejectedToast(""), nil
}

func (e *Engine) awaitReason(_ context.Context, s *session.Session, _ directory.Identity, ev Event) (Result, error) {
	name := s.PendingAbsence
	if ev.Kind == EventButton {
		if ev.Token == tokenNoop {
			return rejectedToast(""), nil
		}
		return rejectedToast(fmt.Sprintf(msgReasonRequired, name)), nil
	}
	reason := strings.TrimSpace(ev.Text)
	if reason == "" {
		return rejected(fmt.Sprintf(msgAskReason, name), reasonMenu()), nil
	}
	s.Marks[name] = session.Mark{Presence: session.Absent, Reason: reason}
	s.PendingAbsence = ""
	s.Mode = session.StateMarkVisitors

	var res Result
	res.sayWith(fmt.Sprintf(msgReasonSaved, name, reason), removeMenu())
	return res, nil
}

func (e *Engine) confirmNoMeeting(ctx context.Context, s *session.Session, _ directory.Identity, ev Event) (Result, error) {
	yes, ok := answer(ev)
	if !ok {
		return rejected(msgChooseYesNo, yesNoMenu()), nil
	}
	if !yes {
		s.Mode = session.StateMarkVisitors
		var res Result
		res.sayWith(msgContinueMarking, markMenu(s.Roster))
		return res, nil
	}

	for _, name := range s.Roster {
		if _, marked := s.Marks[name]; !marked {
			s.Marks[name] = session.Mark{Presence: session.Absent, Reason: NoMeetingReason}
		}
	}
	if err := e.submitter.SubmitAttendance(ctx, *s); err != nil {
		return Result{}, err
	}
	groupID, date := s.GroupID, s.MeetingDate
	*s = session.New()
	s.Mode = session.StateFinished

	var res Result
	res.sayWith(fmt.Sprintf(msgNoMeetingSaved, groupID, FormatDate(date)), removeMenu())
	return res, nil
}

func showReview(s session.Session) Result {
	var res Result
	if len(s.Roster) == 0 {
		res.sayWith(msgReviewEmpty, reviewMenu())
		return res
	}
	res.sayWith(fmt.Sprintf(msgReview, reviewText(s)), reviewMenu())
	return res
}

func (e *Engine) reviewVisitors(ctx context.Context, s *session.Session, id directory.Identity, ev Event) (Result, error) {
	if ev.Kind != EventButton {
		res := showReview(*s)
		res.Rejected = true
		return res, nil
	}
	switch {
	case ev.Token == tokenReview:
		res := showReview(*s)
		res.Rejected = true
		return res, nil
	case strings.HasPrefix(ev.Token, "mark:"), ev.Token == tokenNoMeeting:
		// correcting a mark reopens marking
		s.Mode = session.StateMarkVisitors
		return e.markVisitors(ctx, s, id, ev)
	case ev.Token != tokenConfirm:
		return rejectedToast(""), nil
	}

	if err := e.submitter.SubmitAttendance(ctx, *s); err != nil {
		return Result{}, err
	}
	returning, err := e.guests.ListReturningGuests(ctx, s.Leader)
	if err != nil {
		e.logger.Warn("list returning guests failed",
			slog.String("group_id", s.GroupID),
			slog.String("leader", s.Leader),
			slog.Any("error", err))
		returning = nil
	}
	s.ReturningGuests = returning
	s.Guests = nil
	s.Mode = session.StateAddGuests

	res := Result{Toast: msgToastAllMarked}
	res.sayWith(msgGuestsIntro, guestMenu(returning))
	return res, nil
}

func (e *Engine) addGuests(ctx context.Context, s *session.Session, _ directory.Identity, ev Event) (Result, error) {
	if ev.Kind == EventText {
		name := strings.TrimSpace(ev.Text)
		if name == "" {
			return rejected(msgGuestEmptyName, Menu{}), nil
		}
		if s.HasGuest(name) {
			return rejected(fmt.Sprintf(msgGuestDuplicate, name), Menu{}), nil
		}
		s.Guests = append(s.Guests, name)
		var res Result
		res.say(fmt.Sprintf(msgGuestAdded, name))
		return res, nil
	}

	if idx, ok := indexAfter(ev.Token, tokenGuestPrefix, len(s.ReturningGuests)); ok {
		name := s.ReturningGuests[idx]
		if s.HasGuest(name) {
			return rejectedToast(fmt.Sprintf(msgGuestDuplicate, name)), nil
		}
		s.Guests = append(s.Guests, name)
		return Result{Toast: fmt.Sprintf(msgGuestAdded, name)}, nil
	}
	if ev.Token != tokenGuestsDone {
		return rejectedToast(""), nil
	}

	if err := e.submitter.SubmitGuests(ctx, *s); err != nil {
		return Result{}, err
	}
	res := Result{Toast: msgToastGuestsSaved}
	if len(s.Guests) > 0 {
		res.sayWith(fmt.Sprintf(msgGuestsSaved, strings.Join(s.Guests, "\n")), removeMenu())
	} else {
		res.sayWith(msgNoGuests, removeMenu())
	}
	first := qaStages[0]
	s.Mode = first.input
	res.say(first.inputText)
	return res, nil
}

func (e *Engine) finished(context.Context, *session.Session, directory.Identity, Event) (Result, error) {
	return rejected(msgAlreadyFinished, Menu{}), nil
}
