// Package telegram connects the bot to Telegram through long polling.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hgbot/hgbot/internal/channel"
	"github.com/hgbot/hgbot/internal/config"
)

const (
	telegramMaxMessageLength = channel.MaxMessageLength
	telegramMaxToastLength   = 200
	defaultPollTimeout       = 30
)

// botAPI is the subset of *tgbotapi.BotAPI the adapter uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

var newBotAPI = func(cfg config.TelegramConfig) (botAPI, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = cfg.Debug
	return bot, nil
}

var setLoggerOnce sync.Once

// TelegramAdapter implements channel.Adapter for Telegram.
type TelegramAdapter struct {
	logger *slog.Logger
	cfg    config.TelegramConfig
	mu     sync.Mutex
	bot    botAPI
}

// NewTelegramAdapter creates a TelegramAdapter with the given logger.
func NewTelegramAdapter(log *slog.Logger, cfg config.TelegramConfig) *TelegramAdapter {
	if log == nil {
		log = slog.Default()
	}
	adapter := &TelegramAdapter{
		logger: log.With(slog.String("adapter", "telegram")),
		cfg:    cfg,
	}
	setLoggerOnce.Do(func() {
		_ = tgbotapi.SetLogger(&slogBotLogger{log: adapter.logger})
	})
	return adapter
}

func (a *TelegramAdapter) getOrCreateBot() (botAPI, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.bot != nil {
		return a.bot, nil
	}
	if strings.TrimSpace(a.cfg.BotToken) == "" {
		return nil, errors.New("telegram bot token is required")
	}
	bot, err := newBotAPI(a.cfg)
	if err != nil {
		a.logger.Error("create bot failed", slog.Any("error", err))
		return nil, err
	}
	if self, ok := bot.(*tgbotapi.BotAPI); ok {
		a.logger.Info("authorized", slog.String("username", self.Self.UserName))
	}
	a.bot = bot
	return bot, nil
}

// Connect starts long polling and feeds every supported update to handler,
// one at a time in arrival order.
func (a *TelegramAdapter) Connect(ctx context.Context, handler channel.InboundHandler) (channel.Connection, error) {
	a.logger.Info("start")
	bot, err := a.getOrCreateBot()
	if err != nil {
		return nil, err
	}
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = a.cfg.PollTimeoutSec
	if updateConfig.Timeout <= 0 {
		updateConfig.Timeout = defaultPollTimeout
	}
	updateConfig.AllowedUpdates = []string{"message", "callback_query"}
	updates := bot.GetUpdatesChan(updateConfig)
	connCtx, cancel := context.WithCancel(ctx)

	go func() {
		for {
			select {
			case <-connCtx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					a.logger.Info("updates channel closed")
					return
				}
				event, ok := toEvent(update)
				if !ok {
					continue
				}
				a.logger.Debug(
					"inbound received",
					slog.String("kind", string(event.Kind)),
					slog.Int64("chat_id", event.ChatID),
					slog.Int64("user_id", event.Sender.ID),
					slog.String("username", event.Sender.Handle),
				)
				if err := handler(connCtx, event); err != nil && connCtx.Err() == nil {
					a.logger.Error("handle inbound failed", slog.Any("error", err))
				}
			}
		}
	}()

	stop := func(ctx context.Context) error {
		a.logger.Info("stop")
		bot.StopReceivingUpdates()
		cancel()
		// The polling goroutine exits only after its pending long poll returns.
		drained := make(chan struct{})
		go func() {
			defer close(drained)
			for range updates {
			}
		}()
		select {
		case <-drained:
			return nil
		case <-ctx.Done():
			a.logger.Warn("stop returned before the long poll finished")
			return ctx.Err()
		}
	}
	return channel.NewConnection(stop), nil
}

// Send delivers one text message with its keyboard.
func (a *TelegramAdapter) Send(_ context.Context, msg channel.OutboundMessage) error {
	if msg.ChatID == 0 {
		return errors.New("telegram chat id is required")
	}
	bot, err := a.getOrCreateBot()
	if err != nil {
		return err
	}
	text := truncateTelegramText(sanitizeTelegramText(msg.Text))
	if strings.TrimSpace(text) == "" {
		return errors.New("telegram message text is empty")
	}
	out := tgbotapi.NewMessage(msg.ChatID, text)
	if markup := buildKeyboard(msg.Keyboard); markup != nil {
		out.ReplyMarkup = markup
	}
	if _, err := bot.Send(out); err != nil {
		a.logger.Error("send failed", slog.Int64("chat_id", msg.ChatID), slog.Any("error", err))
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// AnswerButton acknowledges a callback query, optionally with a toast.
func (a *TelegramAdapter) AnswerButton(_ context.Context, callbackID, toast string) error {
	if strings.TrimSpace(callbackID) == "" {
		return nil
	}
	bot, err := a.getOrCreateBot()
	if err != nil {
		return err
	}
	cb := tgbotapi.NewCallback(callbackID, truncateRunes(sanitizeTelegramText(toast), telegramMaxToastLength))
	if _, err := bot.Request(cb); err != nil {
		return fmt.Errorf("telegram answer callback: %w", err)
	}
	return nil
}

// toEvent normalizes an update. Updates without a sender or without text
// are dropped.
func toEvent(update tgbotapi.Update) (channel.Event, bool) {
	if cq := update.CallbackQuery; cq != nil {
		if cq.From == nil {
			return channel.Event{}, false
		}
		chatID := cq.From.ID
		if cq.Message != nil && cq.Message.Chat != nil {
			chatID = cq.Message.Chat.ID
		}
		return channel.Event{
			Kind:       channel.EventButton,
			Sender:     senderOf(cq.From),
			ChatID:     chatID,
			Token:      cq.Data,
			CallbackID: cq.ID,
			ReceivedAt: time.Now(),
		}, true
	}
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return channel.Event{}, false
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return channel.Event{}, false
	}
	event := channel.Event{
		Kind:       channel.EventText,
		Sender:     senderOf(msg.From),
		ChatID:     msg.Chat.ID,
		Text:       text,
		ReceivedAt: msg.Time(),
	}
	if msg.IsCommand() {
		event.Kind = channel.EventCommand
		event.Command = strings.ToLower(msg.Command())
		event.Text = strings.TrimSpace(msg.CommandArguments())
	}
	return event, true
}

func senderOf(user *tgbotapi.User) channel.Identity {
	return channel.Identity{
		Handle: strings.TrimPrefix(strings.TrimSpace(user.UserName), "@"),
		ID:     user.ID,
	}
}

// buildKeyboard maps a channel keyboard to Telegram reply markup; nil means none.
func buildKeyboard(kb channel.Keyboard) any {
	switch kb.Kind {
	case channel.KeyboardInline:
		if len(kb.Rows) == 0 {
			return nil
		}
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb.Rows))
		for _, row := range kb.Rows {
			buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
			for _, b := range row {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Token))
			}
			rows = append(rows, buttons)
		}
		return tgbotapi.NewInlineKeyboardMarkup(rows...)
	case channel.KeyboardReply:
		if len(kb.Rows) == 0 {
			return nil
		}
		rows := make([][]tgbotapi.KeyboardButton, 0, len(kb.Rows))
		for _, row := range kb.Rows {
			buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
			for _, b := range row {
				buttons = append(buttons, tgbotapi.NewKeyboardButton(b.Label))
			}
			rows = append(rows, buttons)
		}
		markup := tgbotapi.NewReplyKeyboard(rows...)
		markup.OneTimeKeyboard = true
		return markup
	case channel.KeyboardRemove:
		return tgbotapi.NewRemoveKeyboard(true)
	default:
		return nil
	}
}

// sanitizeTelegramText drops invalid UTF-8 sequences, which Telegram rejects.
func sanitizeTelegramText(text string) string {
	if utf8.ValidString(text) {
		return text
	}
	return strings.ToValidUTF8(text, "")
}

// truncateTelegramText cuts text to the message limit, appending "..." when
// truncation occurs.
func truncateTelegramText(text string) string {
	return truncateRunes(text, telegramMaxMessageLength)
}

func truncateRunes(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	const suffix = "..."
	runes := []rune(text)
	return string(runes[:limit-len(suffix)]) + suffix
}

type slogBotLogger struct {
	log *slog.Logger
}

func (l *slogBotLogger) Println(v ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintln(v...)))
}

func (l *slogBotLogger) Printf(format string, v ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
