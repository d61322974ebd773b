package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hgbot/hgbot/internal/directory"
	"github.com/hgbot/hgbot/internal/report"
	"github.com/hgbot/hgbot/internal/roster"
	"github.com/hgbot/hgbot/internal/session"
	"github.com/hgbot/hgbot/internal/storage"
)

// memStore is an in-memory report store that enforces the attendance
// uniqueness rule.
type memStore struct {
	mu       sync.Mutex
	rosters  map[string][]string
	guests   map[string][]string
	reports  map[string]bool
	visits   []storage.VisitRow
	notes    []storage.NotesRow
	failNext error
}

func newMemStore() *memStore {
	return &memStore{
		rosters: map[string][]string{"G1": {"Bob", "Carol"}, "G2": {"Dan"}},
		guests:  map[string][]string{"Alice A.": {"Дина", "Олег"}},
		reports: map[string]bool{},
	}
}

func (m *memStore) takeFailure() error {
	err := m.failNext
	m.failNext = nil
	return err
}

func (m *memStore) ListGroupMembers(_ context.Context, groupID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	return m.rosters[groupID], nil
}

func (m *memStore) ListReturningGuests(_ context.Context, leader string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.guests[leader], nil
}

func (m *memStore) AppendAttendance(_ context.Context, groupID string, date time.Time, rows []storage.VisitRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	key := groupID + "|" + date.Format(time.DateOnly)
	if m.reports[key] {
		return storage.ErrDuplicateReport
	}
	m.reports[key] = true
	m.visits = append(m.visits, rows...)
	return nil
}

func (m *memStore) AppendGuests(_ context.Context, rows []storage.VisitRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	m.visits = append(m.visits, rows...)
	return nil
}

func (m *memStore) AppendNotes(_ context.Context, row storage.NotesRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	m.notes = append(m.notes, row)
	return nil
}

func (m *memStore) rows(personType string) []storage.VisitRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storage.VisitRow
	for _, r := range m.visits {
		if r.PersonType == personType {
			out = append(out, r)
		}
	}
	return out
}

var testNow = time.Date(2026, time.October, 18, 12, 0, 0, 0, msk)

var alice = directory.Identity{
	Handle:      "alice",
	NumericID:   1,
	Memberships: []directory.Membership{{GroupID: "G1", LeaderName: "Alice A."}},
}

var multi = directory.Identity{
	Handle:    "ivan",
	NumericID: 2,
	Memberships: []directory.Membership{
		{GroupID: "G1", LeaderName: "Alice A."},
		{GroupID: "G2", LeaderName: "Иван"},
	},
}

func newTestEngine(store *memStore) *Engine {
	return NewEngine(nil,
		roster.New(nil, store),
		store,
		report.NewAssembler(nil, store, report.WithClock(func() time.Time { return testNow })),
		WithClock(func() time.Time { return testNow }),
		WithLocation(msk),
	)
}

type harness struct {
	t     *testing.T
	e     *Engine
	id    directory.Identity
	sess  session.Session
	store *memStore
}

func newHarness(t *testing.T, id directory.Identity) *harness {
	t.Helper()
	store := newMemStore()
	return &harness{t: t, e: newTestEngine(store), id: id, sess: session.New(), store: store}
}

func (h *harness) send(ev Event) Result {
	h.t.Helper()
	res, err := h.e.Handle(context.Background(), &h.sess, h.id, ev)
	if err != nil {
		h.t.Fatalf("Handle(%+v): %v", ev, err)
	}
	return res
}

func (h *harness) expectMode(want session.State) {
	h.t.Helper()
	if h.sess.Mode != want {
		h.t.Fatalf("mode = %s, want %s", h.sess.Mode, want)
	}
}

func (h *harness) toReview() {
	h.t.Helper()
	h.send(Start())
	h.send(Text("Сегодня"))
	h.send(Button("mark:+:0"))
	h.send(Button("mark:-:1"))
	h.send(Text("Болезнь"))
	h.send(Button("review"))
	h.expectMode(session.StateReviewVisitors)
}

func lastMenu(res Result) Menu {
	if len(res.Messages) == 0 {
		return Menu{}
	}
	return res.Messages[len(res.Messages)-1].Menu
}

func TestSingleGroupHappyPath(t *testing.T) {
	t.Parallel()
	h := newHarness(t, alice)

	res := h.send(Start())
	h.expectMode(session.StateSelectDate)
	if h.sess.GroupID != "G1" || h.sess.Leader != "Alice A." {
		t.Fatalf("group not auto-selected: %+v", h.sess)
	}
	if res.Messages[0].Text != "Привет! Ты — Alice A., лидер группы G1." {
		t.Fatalf("unexpected greeting %q", res.Messages[0].Text)
	}
	if lastMenu(res).Kind != MenuReply {
		t.Fatal("expected date reply keyboard")
	}

	res = h.send(Text("Сегодня"))
	h.expectMode(session.StateMarkVisitors)
	if len(h.sess.Roster) != 2 || !strings.Contains(res.Messages[1].Text, "18.10.2026") {
		t.Fatalf("unexpected marking prompt %+v", res)
	}
	if m := lastMenu(res); m.Kind != MenuInline || m.Rows[1][0].Token != "mark:+:0" || m.Rows[3][1].Token != "mark:-:1" {
		t.Fatalf("unexpected marking menu %+v", m)
	}

	res = h.send(Button("mark:+:0"))
	if res.Toast == "" || h.sess.Marks["Bob"].Presence != session.Present {
		t.Fatalf("Bob not marked present: %+v", h.sess.Marks)
	}

	res = h.send(Button("review"))
	if !res.Rejected || !strings.Contains(res.Toast, "Carol") {
		t.Fatalf("gate must list Carol: %+v", res)
	}
	h.expectMode(session.StateMarkVisitors)

	h.send(Button("mark:-:1"))
	h.expectMode(session.StateAwaitingAbsenceReason)
	if h.sess.PendingAbsence != "Carol" {
		t.Fatalf("pending = %q", h.sess.PendingAbsence)
	}
	if _, marked := h.sess.Marks["Carol"]; marked {
		t.Fatal("absence must not be recorded before the reason")
	}

	h.send(Text("Болезнь"))
	h.expectMode(session.StateMarkVisitors)
	if h.sess.PendingAbsence != "" {
		t.Fatal("pending absence must be cleared")
	}
	if got := h.sess.Marks["Carol"]; got.Presence != session.Absent || got.Reason != "Болезнь" {
		t.Fatalf("Carol mark = %+v", got)
	}

	res = h.send(Button("review"))
	h.expectMode(session.StateReviewVisitors)
	if !strings.Contains(res.Messages[0].Text, "Bob: ✅") || !strings.Contains(res.Messages[0].Text, "Carol: 🚫 Болезнь") {
		t.Fatalf("unexpected review %q", res.Messages[0].Text)
	}

	res = h.send(Button("confirm"))
	h.expectMode(session.StateAddGuests)
	members := h.store.rows(storage.PersonMember)
	if len(members) != 2 {
		t.Fatalf("expected 2 member rows, got %d", len(members))
	}
	for _, row := range members {
		if row.MeetingDate.Format(time.DateOnly) != "2026-10-18" {
			t.Fatalf("row dated %v", row.MeetingDate)
		}
		if row.Presence == storage.PresencePresent && row.Reason != nil {
			t.Fatalf("present row has reason: %+v", row)
		}
		if row.Presence == storage.PresenceAbsent && (row.Reason == nil || *row.Reason == "") {
			t.Fatalf("absent row without reason: %+v", row)
		}
	}
	if m := lastMenu(res); len(m.Rows) != 3 || m.Rows[0][1].Token != "guest:0" || m.Rows[2][0].Token != "guests_done" {
		t.Fatalf("unexpected guest menu %+v", m)
	}

	h.send(Text(" Пётр "))
	if res := h.send(Text("Пётр")); !res.Rejected {
		t.Fatal("duplicate guest must be rejected")
	}
	h.send(Button("guest:1"))
	if res := h.send(Button("guest:1")); !res.Rejected {
		t.Fatal("duplicate returning guest must be rejected")
	}
	if got := h.sess.Guests; len(got) != 2 || got[0] != "Пётр" || got[1] != "Олег" {
		t.Fatalf("guests = %v", got)
	}

	h.send(Button("guests_done"))
	h.expectMode(session.StateSpiritualSummary)
	if guests := h.store.rows(storage.PersonGuest); len(guests) != 2 {
		t.Fatalf("expected 2 guest rows, got %d", len(guests))
	}

	h.send(Text("Тема"))
	h.expectMode(session.StateConfirmSummary)
	h.send(Button("no"))
	h.expectMode(session.StateSpiritualSummary)
	h.send(Text("Тема 2"))
	h.send(Button("yes"))
	h.expectMode(session.StateTestimonies)
	h.send(Text("Нет"))
	h.expectMode(session.StatePersonalMeetings)
	h.send(Button("yes"))
	h.expectMode(session.StatePersonalMeetingsInput)
	h.send(Text("Встретился с Bob"))
	h.send(Button("yes"))
	h.expectMode(session.StateNewlyAssigned)
	h.send(Button("yes"))
	h.send(Text("Новенький освоился"))
	h.expectMode(session.StateConfirmNewlyAssigned)
	res = h.send(Button("yes"))
	h.expectMode(session.StateFinished)

	if len(h.store.notes) != 1 {
		t.Fatalf("expected 1 notes row, got %d", len(h.store.notes))
	}
	n := h.store.notes[0]
	if n.SpiritualSummary != "Тема 2" || n.Testimony != "" || n.PersonalMeetings != "Встретился с Bob" || n.NewlyAssigned != "Новенький освоился" {
		t.Fatalf("unexpected notes %+v", n)
	}
	if h.sess.GroupID != "" || len(h.sess.Marks) != 0 || h.sess.Answers != (session.Answers{}) {
		t.Fatalf("finished session must be cleared: %+v", h.sess)
	}
	if !strings.Contains(res.Messages[0].Text, "G1") {
		t.Fatalf("unexpected thank-you %q", res.Messages[0].Text)
	}

	if res := h.send(Text("ещё")); !res.Rejected || res.Messages[0].Text != msgAlreadyFinished {
		t.Fatalf("finished must hint restart: %+v", res)
	}
	h.send(Start())
	h.expectMode(session.StateSelectDate)
}

func TestConfirmTwiceYieldsConflict(t *testing.T) {
	t.Parallel()
	h := newHarness(t, alice)
	h.toReview()

	retry := h.sess.Clone()
	h.send(Button("confirm"))
	h.expectMode(session.StateAddGuests)
	before := len(h.store.rows(storage.PersonMember))

	_, err := h.e.Handle(context.Background(), &retry, h.id, Button("confirm"))
	if !errors.Is(err, report.ErrAlreadySubmitted) {
		t.Fatalf("second confirm: got %v, want ErrAlreadySubmitted", err)
	}
	if retry.Mode != session.StateReviewVisitors {
		t.Fatalf("conflict must not change state, got %s", retry.Mode)
	}
	if after := len(h.store.rows(storage.PersonMember)); after != before {
		t.Fatalf("row count changed from %d to %d", before, after)
	}
}

func TestStoreErrorKeepsState(t *testing.T) {
	t.Parallel()
	h := newHarness(t, alice)
	h.toReview()

	h.store.failNext = errors.New("connection reset")
	_, err := h.e.Handle(context.Background(), &h.sess, h.id, Button("confirm"))
	if err == nil || errors.Is(err, report.ErrAlreadySubmitted) {
		t.Fatalf("expected plain store error, got %v", err)
	}
	h.expectMode(session.StateReviewVisitors)

	h.send(Button("confirm"))
	h.expectMode(session.StateAddGuests)
}

func TestGroupDidNotMeet(t *testing.T) {
	t.Parallel()
	h := newHarness(t, alice)
	h.send(Start())
	h.send(Text("Вчера"))

	h.send(Button("nomeet"))
	h.expectMode(session.StateConfirmNoMeeting)
	h.send(Button("no"))
	h.expectMode(session.StateMarkVisitors)

	h.send(Button("nomeet"))
	h.send(Button("yes"))
	h.expectMode(session.StateFinished)

	rows := h.store.rows(storage.PersonMember)
	if len(rows) != 2 {
		t.Fatalf("expected one batch of 2 rows, got %d", len(rows))
	}
	for _, row := range rows {
		if row.Presence != storage.PresenceAbsent || row.Reason == nil || *row.Reason != NoMeetingReason {
			t.Fatalf("unexpected row %+v", row)
		}
		if row.MeetingDate.Format(time.DateOnly) != "2026-10-17" {
			t.Fatalf("row dated %v", row.MeetingDate)
		}
	}
	if len(h.store.notes) != 0 || len(h.store.rows(storage.PersonGuest)) != 0 {
		t.Fatal("no-meeting path must skip guests and notes")
	}
}

func TestGroupDidNotMeetKeepsExistingMarksAndFailures(t *testing.T) {
	t.Parallel()
	h := newHarness(t, alice)
	h.send(Start())
	h.send(Text("Сегодня"))
	h.send(Button("mark:+:0"))
	h.send(Button("nomeet"))

	h.store.failNext = errors.New("timeout")
	if _, err := h.e.Handle(context.Background(), &h.sess, h.id, Button("yes")); err == nil {
		t.Fatal("expected store error")
	}
	h.expectMode(session.StateConfirmNoMeeting)
	if _, marked := h.sess.Marks["Carol"]; marked {
		t.Fatal("failed submission must not leave computed marks behind")
	}

	h.send(Button("yes"))
	h.expectMode(session.StateFinished)
	for _, row := range h.store.rows(storage.PersonMember) {
		if row.Name == "Bob" && row.Presence != storage.PresencePresent {
			t.Fatalf("existing mark overwritten: %+v", row)
		}
	}
}

func TestMultipleGroupsSelection(t *testing.T) {
	t.Parallel()
	h := newHarness(t, multi)

	res := h.send(Start())
	h.expectMode(session.StateSelectGroup)
	m := lastMenu(res)
	if len(m.Rows) != 2 || m.Rows[0][0].Token != "grp:G1" || m.Rows[1][0].Token != "grp:G2" {
		t.Fatalf("unexpected group menu %+v", m)
	}
	if !strings.HasPrefix(m.Rows[0][0].Label, groupMarker("G1")) {
		t.Fatalf("label %q lacks marker", m.Rows[0][0].Label)
	}

	if res := h.send(Button("grp:G3")); !res.Rejected {
		t.Fatal("foreign group must be rejected")
	}
	h.expectMode(session.StateSelectGroup)

	h.send(Button("grp:G2"))
	h.expectMode(session.StateSelectDate)
	if h.sess.GroupID != "G2" || h.sess.Leader != "Иван" {
		t.Fatalf("unexpected selection %+v", h.sess)
	}
}

func TestSelectDateRejections(t *testing.T) {
	t.Parallel()
	h := newHarness(t, alice)
	h.send(Start())

	for _, in := range []string{"19/10/26", "завтра", "32/01/26"} {
		res := h.send(Text(in))
		if !res.Rejected {
			t.Fatalf("%q must be rejected", in)
		}
		h.expectMode(session.StateSelectDate)
		if !h.sess.MeetingDate.IsZero() {
			t.Fatalf("%q partially applied", in)
		}
	}
	if res := h.send(Text("19/10/26")); res.Messages[0].Text != msgFutureDate {
		t.Fatalf("unexpected future-date prompt %q", res.Messages[0].Text)
	}

	h.send(Text("14/10/26"))
	h.expectMode(session.StateMarkVisitors)
	if h.sess.MeetingDate.Format(time.DateOnly) != "2026-10-14" {
		t.Fatalf("date = %v", h.sess.MeetingDate)
	}
}

func TestRosterErrorIsReturned(t *testing.T) {
	t.Parallel()
	h := newHarness(t, alice)
	h.send(Start())

	h.store.failNext = errors.New("db down")
	if _, err := h.e.Handle(context.Background(), &h.sess, h.id, Text("Сегодня")); err == nil {
		t.Fatal("expected roster error")
	}
	h.expectMode(session.StateSelectDate)
	h.send(Text("Сегодня"))
	h.expectMode(session.StateMarkVisitors)
}

func TestMarkingRejectsBadInput(t *testing.T) {
	t.Parallel()
	h := newHarness(t, alice)
	h.send(Start())
	h.send(Text("Сегодня"))

	for _, ev := range []Event{Button("mark:+:7"), Button("mark:-:x"), Button("noop"), Text("Bob пришёл")} {
		if res := h.send(ev); !res.Rejected {
			t.Fatalf("%+v must be rejected", ev)
		}
	}
	if len(h.sess.Marks) != 0 {
		t.Fatalf("rejected input mutated marks: %+v", h.sess.Marks)
	}

	h.send(Button("mark:-:0"))
	if res := h.send(Button("mark:+:1")); !res.Rejected {
		t.Fatal("buttons must wait for the absence reason")
	}
	h.expectMode(session.StateAwaitingAbsenceReason)
	if res := h.send(Text("   ")); !res.Rejected {
		t.Fatal("blank reason must be rejected")
	}
	h.send(Text(Reasons[0]))
	if h.sess.Marks["Bob"].Reason != Reasons[0] {
		t.Fatalf("reason = %q", h.sess.Marks["Bob"].Reason)
	}
}

func TestReviewMarkReturnsToMarking(t *testing.T) {
	t.Parallel()
	h := newHarness(t, alice)
	h.toReview()

	h.send(Button("mark:+:1"))
	h.expectMode(session.StateMarkVisitors)
	if h.sess.Marks["Carol"].Presence != session.Present || h.sess.Marks["Carol"].Reason != "" {
		t.Fatalf("Carol = %+v", h.sess.Marks["Carol"])
	}
	h.send(Button("review"))
	h.expectMode(session.StateReviewVisitors)
}

func TestCompletionGateNeverSkipped(t *testing.T) {
	t.Parallel()
	h := newHarness(t, alice)
	h.send(Start())
	h.send(Text("Сегодня"))

	for _, ev := range []Event{Button("review"), Button("confirm"), Button("guests_done"), Button("yes")} {
		h.send(ev)
		if h.sess.Mode != session.StateMarkVisitors {
			t.Fatalf("%+v advanced to %s with %d/%d marks", ev, h.sess.Mode, len(h.sess.Marks), len(h.sess.Roster))
		}
	}
	h.send(Button("mark:+:1"))
	h.send(Button("review"))
	h.expectMode(session.StateMarkVisitors)
}

func TestEmptyRosterIsComplete(t *testing.T) {
	t.Parallel()
	h := newHarness(t, directory.Identity{Handle: "z", Memberships: []directory.Membership{{GroupID: "G9", LeaderName: "Z"}}})
	h.send(Start())
	h.send(Text("Сегодня"))
	h.send(Button("review"))
	h.expectMode(session.StateReviewVisitors)
	h.send(Button("confirm"))
	h.expectMode(session.StateAddGuests)
}

func TestStartResetsMidway(t *testing.T) {
	t.Parallel()
	h := newHarness(t, alice)
	h.send(Start())
	h.send(Text("Сегодня"))
	h.send(Button("mark:+:0"))

	h.send(Start())
	h.expectMode(session.StateSelectDate)
	if len(h.sess.Marks) != 0 || !h.sess.MeetingDate.IsZero() {
		t.Fatalf("start must reset the session: %+v", h.sess)
	}
}

func TestGroupMarkerIsDeterministic(t *testing.T) {
	t.Parallel()

	if groupMarker("12") != groupMarker("2") {
		t.Fatal("marker depends only on the last character")
	}
	if groupMarker("") == "" {
		t.Fatal("empty id still gets a marker")
	}
}
