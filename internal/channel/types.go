package channel

import (
	"strings"
	"time"
)

// EventKind identifies the shape of an inbound event.
type EventKind string

const (
	EventText    EventKind = "text"
	EventButton  EventKind = "button"
	EventCommand EventKind = "command"
)

// Identity describes the user behind an inbound event.
type Identity struct {
	// Handle is the platform username without the leading '@'. It may be empty.
	Handle string
	ID     int64
}

// Event is one normalized inbound update.
type Event struct {
	// ID correlates log lines of one event; assigned by the manager when empty.
	ID     string
	Kind   EventKind
	Sender Identity
	ChatID int64
	// Text is the message body for EventText.
	Text string
	// Token is the button payload for EventButton.
	Token string
	// Command is the bot command without the slash for EventCommand.
	Command string
	// CallbackID must be answered for EventButton.
	CallbackID string
	ReceivedAt time.Time
}

// IsCommand reports whether the event is the named command.
func (e Event) IsCommand(name string) bool {
	return e.Kind == EventCommand && strings.EqualFold(e.Command, name)
}

// KeyboardKind selects how buttons are rendered.
type KeyboardKind int

const (
	KeyboardNone KeyboardKind = iota
	// KeyboardInline buttons return their Token as a callback.
	KeyboardInline
	// KeyboardReply is a one-time keyboard; a press arrives as text.
	KeyboardReply
	// KeyboardRemove hides a previously shown reply keyboard.
	KeyboardRemove
)

// Button is one keyboard key.
type Button struct {
	Label string
	Token string
}

// Keyboard is an optional button layout attached to an outbound message.
type Keyboard struct {
	Kind KeyboardKind
	Rows [][]Button
}

// OutboundMessage is a text with an optional keyboard for one chat.
type OutboundMessage struct {
	ChatID   int64
	Text     string
	Keyboard Keyboard
}
