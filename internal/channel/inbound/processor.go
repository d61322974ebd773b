// Package inbound turns normalized chat events into conversation steps. It is
// the single place where failures are classified and rendered to the user.
package inbound

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/hgbot/hgbot/internal/channel"
	"github.com/hgbot/hgbot/internal/conversation"
	"github.com/hgbot/hgbot/internal/directory"
	"github.com/hgbot/hgbot/internal/metrics"
	"github.com/hgbot/hgbot/internal/report"
	"github.com/hgbot/hgbot/internal/session"
)

const (
	commandStart  = "start"
	commandAdd    = "add"
	commandRemind = "remind"

	remindAlias = "Отправить напоминания"

	msgRemindDisabled = "Напоминания отключены."
	msgRemindNone     = "Все группы отчитались, напоминания не нужны."
	msgRemindSent     = "Напоминания отправлены:\n%s"
	msgRemindFailed   = "Не удалось отправить напоминания. Подробности в журнале."
)

// Directory resolves and binds chat identities.
type Directory interface {
	Resolve(handle string) (directory.Identity, bool)
	Bind(ctx context.Context, handle string, numericID int64)
}

// Engine advances one session by one event.
type Engine interface {
	Handle(ctx context.Context, sess *session.Session, id directory.Identity, ev conversation.Event) (conversation.Result, error)
}

// Reminders runs the stale-report sweep on demand and returns the notified leaders.
type Reminders interface {
	RunSweep(ctx context.Context) ([]string, error)
}

// Admins decides who may trigger reminders from the chat.
type Admins interface {
	IsAdmin(handle string) bool
}

// ChannelInboundProcessor implements channel.InboundProcessor.
type ChannelInboundProcessor struct {
	directory Directory
	sessions  *session.Store
	engine    Engine
	reminders Reminders
	admins    Admins
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewChannelInboundProcessor wires the processor. reminders and m may be nil.
func NewChannelInboundProcessor(
	log *slog.Logger,
	dir Directory,
	sessions *session.Store,
	engine Engine,
	reminders Reminders,
	admins Admins,
	m *metrics.Metrics,
) *ChannelInboundProcessor {
	if log == nil {
		log = slog.Default()
	}
	return &ChannelInboundProcessor{
		directory: dir,
		sessions:  sessions,
		engine:    engine,
		reminders: reminders,
		admins:    admins,
		metrics:   m,
		logger:    log.With(slog.String("component", "inbound")),
	}
}

// HandleInbound processes one event. Failures that concern the user are
// answered in the chat; the returned error only reports delivery problems.
func (p *ChannelInboundProcessor) HandleInbound(ctx context.Context, event channel.Event, sender channel.Sender) (err error) {
	if sender == nil {
		return errors.New("reply sender not configured")
	}
	log := p.logger.With(
		slog.String("event_id", event.ID),
		slog.String("handle", event.Sender.Handle),
		slog.Int64("user_id", event.Sender.ID),
	)
	started := time.Now()
	outcome := metrics.OutcomeOK
	toast := ""

	defer func() {
		if r := recover(); r != nil {
			outcome = metrics.OutcomePanic
			log.Error("inbound panic", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
			err = p.reply(ctx, sender, event.ChatID, conversation.Message{Text: conversation.MsgStoreError})
		}
		if event.Kind == channel.EventButton {
			if ackErr := sender.AnswerButton(ctx, event.CallbackID, toast); ackErr != nil {
				log.Warn("answer button failed", slog.Any("error", ackErr))
			}
		}
		p.observe(event.Kind, outcome, started)
	}()

	if p.isRemindRequest(event) {
		return p.remind(ctx, log, event, sender)
	}

	id, ok := p.directory.Resolve(event.Sender.Handle)
	if !ok {
		outcome = metrics.OutcomeDenied
		log.Info("access denied")
		return p.reply(ctx, sender, event.ChatID, conversation.Message{Text: conversation.MsgAccessDenied})
	}
	p.directory.Bind(ctx, id.Handle, event.Sender.ID)

	var (
		res     conversation.Result
		state   session.State
		groupID string
	)
	doErr := p.sessions.Do(event.Sender.ID, func(s *session.Session) error {
		state, groupID = s.Mode, s.GroupID
		var herr error
		res, herr = p.engine.Handle(ctx, s, id, toConversationEvent(event))
		return herr
	})

	switch {
	case doErr == nil && res.Rejected:
		outcome = metrics.OutcomeRejected
		log.Debug("input rejected", slog.String("state", string(state)))
	case errors.Is(doErr, report.ErrAlreadySubmitted):
		outcome = metrics.OutcomeConflict
		log.Info("report already submitted", slog.String("group_id", groupID))
		res = conversation.Result{Messages: []conversation.Message{{Text: conversation.MsgAlreadySubmitted}}}
	case doErr != nil:
		outcome = metrics.OutcomeError
		log.Error("handle event failed",
			slog.String("group_id", groupID),
			slog.String("state", string(state)),
			slog.Any("error", doErr),
		)
		res = conversation.Result{Messages: []conversation.Message{{Text: conversation.MsgStoreError}}}
	}

	toast = res.Toast
	for _, msg := range res.Messages {
		if err := p.reply(ctx, sender, event.ChatID, msg); err != nil {
			return err
		}
	}
	return nil
}

func (p *ChannelInboundProcessor) isRemindRequest(event channel.Event) bool {
	if p.admins == nil || !p.admins.IsAdmin(event.Sender.Handle) {
		return false
	}
	if event.IsCommand(commandRemind) {
		return true
	}
	return event.Kind == channel.EventText && strings.EqualFold(strings.TrimSpace(event.Text), remindAlias)
}

func (p *ChannelInboundProcessor) remind(ctx context.Context, log *slog.Logger, event channel.Event, sender channel.Sender) error {
	if p.reminders == nil {
		return p.reply(ctx, sender, event.ChatID, conversation.Message{Text: msgRemindDisabled})
	}
	log.Info("manual reminder sweep")
	leaders, err := p.reminders.RunSweep(ctx)
	if err != nil {
		log.Error("manual reminder sweep failed", slog.Any("error", err))
		return p.reply(ctx, sender, event.ChatID, conversation.Message{Text: msgRemindFailed})
	}
	text := msgRemindNone
	if len(leaders) > 0 {
		text = fmt.Sprintf(msgRemindSent, strings.Join(leaders, "\n"))
	}
	return p.reply(ctx, sender, event.ChatID, conversation.Message{Text: text})
}

func (p *ChannelInboundProcessor) reply(ctx context.Context, sender channel.Sender, chatID int64, msg conversation.Message) error {
	return sender.Send(ctx, channel.OutboundMessage{
		ChatID:   chatID,
		Text:     msg.Text,
		Keyboard: toKeyboard(msg.Menu),
	})
}

func (p *ChannelInboundProcessor) observe(kind channel.EventKind, outcome string, started time.Time) {
	if p.metrics == nil {
		return
	}
	p.metrics.Events.WithLabelValues(string(kind), outcome).Inc()
	p.metrics.EventDuration.Observe(time.Since(started).Seconds())
}

// toConversationEvent maps transport events. /start and /add begin a new
// report; other commands are passed on as text.
func toConversationEvent(event channel.Event) conversation.Event {
	switch event.Kind {
	case channel.EventButton:
		return conversation.Button(event.Token)
	case channel.EventCommand:
		if event.IsCommand(commandStart) || event.IsCommand(commandAdd) {
			return conversation.Start()
		}
		return conversation.Text(strings.TrimSpace("/" + event.Command + " " + event.Text))
	default:
		return conversation.Text(event.Text)
	}
}

func toKeyboard(menu conversation.Menu) channel.Keyboard {
	var kind channel.KeyboardKind
	switch menu.Kind {
	case conversation.MenuInline:
		kind = channel.KeyboardInline
	case conversation.MenuReply:
		kind = channel.KeyboardReply
	case conversation.MenuRemove:
		return channel.Keyboard{Kind: channel.KeyboardRemove}
	default:
		return channel.Keyboard{}
	}
	rows := make([][]channel.Button, 0, len(menu.Rows))
	for _, row := range menu.Rows {
		buttons := make([]channel.Button, 0, len(row))
		for _, c := range row {
			buttons = append(buttons, channel.Button{Label: c.Label, Token: c.Token})
		}
		rows = append(rows, buttons)
	}
	return channel.Keyboard{Kind: kind, Rows: rows}
}
