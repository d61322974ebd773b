package conversation

// MenuKind selects how a message's choices are rendered by the transport.
type MenuKind int

const (
	MenuNone MenuKind = iota
	// MenuInline attaches buttons that send their Token back.
	MenuInline
	// MenuReply shows a one-time keyboard whose labels come back as text.
	MenuReply
	// MenuRemove clears any reply keyboard.
	MenuRemove
)

// Choice is one button.
type Choice struct {
	Label string
	Token string
}

// Menu is an optional choice set attached to a message.
type Menu struct {
	Kind MenuKind
	Rows [][]Choice
}

// Message is one outbound text.
type Message struct {
	Text string
	Menu Menu
}

// Result is what one handled event produces.
type Result struct {
	Messages []Message
	// Toast is shown as the transient answer to a button press.
	Toast string
	// Rejected marks input that did not fit the current state; the session
	// was left unchanged.
	Rejected bool
}

func (r *Result) say(text string) {
	r.Messages = append(r.Messages, Message{Text: text})
}

func (r *Result) sayWith(text string, menu Menu) {
	r.Messages = append(r.Messages, Message{Text: text, Menu: menu})
}

func rejected(text string, menu Menu) Result {
	r := Result{Rejected: true}
	if text != "" {
		r.sayWith(text, menu)
	}
	return r
}

func rejectedToast(toast string) Result {
	return Result{Rejected: true, Toast: toast}
}
