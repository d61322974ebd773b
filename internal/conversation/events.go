package conversation

import (
	"strconv"
	"strings"
)

// EventKind distinguishes inbound events.
type EventKind int

const (
	EventStart EventKind = iota + 1
	EventText
	EventButton
)

// Event is one inbound user action.
type Event struct {
	Kind EventKind
	// Text is set for EventText.
	Text string
	// Token is the button payload for EventButton.
	Token string
}

func Start() Event { return Event{Kind: EventStart} }
func Text(text string) Event { return Event{Kind: EventText, Text: text} }
func Button(token string) Event { return Event{Kind: EventButton, Token: token} }

// Button tokens. Indexed tokens point into the session's roster or
// returning-guest snapshot; they stay short for the 64-byte callback limit.
const (
	tokenGroupPrefix   = "grp:"
	tokenPresentPrefix = "mark:+:"
	tokenAbsentPrefix  = "mark:-:"
	tokenGuestPrefix   = "guest:"
	tokenReview        = "review"
	tokenConfirm       = "confirm"
	tokenNoMeeting     = "nomeet"
	tokenYes           = "yes"
	tokenNo            = "no"
	tokenGuestsDone    = "guests_done"
	tokenNoop          = "noop"
)

func groupToken(groupID string) string { return tokenGroupPrefix + groupID }
func presentToken(idx int) string { return tokenPresentPrefix + strconv.Itoa(idx) }
func absentToken(idx int) string { return tokenAbsentPrefix + strconv.Itoa(idx) }
func guestToken(idx int) string { return tokenGuestPrefix + strconv.Itoa(idx) }

// indexAfter parses the index following prefix and checks it against n.
func indexAfter(token, prefix string, n int) (int, bool) {
	rest, ok := strings.CutPrefix(token, prefix)
	if !ok {
		return 0, false
	}
	idx, err := strconv.Atoi(rest)
	if err != nil || idx < 0 || idx >= n {
		return 0, false
	}
	return idx, true
}

// answer maps a yes/no button or its text label to a decision.
func answer(ev Event) (yes bool, ok bool) {
	switch ev.Kind {
	case EventButton:
		switch ev.Token {
		case tokenYes:
			return true, true
		case tokenNo:
			return false, true
		}
	case EventText:
		switch strings.ToLower(strings.TrimSpace(ev.Text)) {
		case "да":
			return true, true
		case "нет":
			return false, true
		}
	}
	return false, false
}
