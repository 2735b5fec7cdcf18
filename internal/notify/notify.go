// Package notify delivers like/match notifications and broadcast messages to
// users through Telegram.
package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/oggyb/gymbro-match/internal/db"
)

// CallbackViewIncoming is the inline button payload the bot answers with the
// next incoming like.
const CallbackViewIncoming = "check_incoming"

// Notifier sends user-facing messages. chatID is the user's telegram id.
type Notifier interface {
	NotifyLike(ctx context.Context, recipient *db.User) error
	NotifyMatch(ctx context.Context, recipient, partner *db.User) error
	Send(ctx context.Context, chatID string, text string) error
}

// sender is the part of *tgbotapi.BotAPI we use.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Telegram struct {
	bot sender
}

// NewTelegram builds a notifier on top of an authorised bot.
func NewTelegram(bot sender) *Telegram {
	return &Telegram{bot: bot}
}

// New returns a Telegram notifier when token is set, a logging no-op otherwise.
func New(token string, log *slog.Logger) (Notifier, error) {
	if token == "" {
		return Noop{Log: log}, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return NewTelegram(bot), nil
}

func (t *Telegram) NotifyLike(_ context.Context, recipient *db.User) error {
	msg, err := newMessage(recipient.TelegramID,
		"❤️ <b>Someone liked your profile!</b>\nOpen the bot to see who it is 👀")
	if err != nil {
		return err
	}
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👤 View profile", CallbackViewIncoming),
		),
	)
	_, err = t.bot.Send(msg)
	return err
}

func (t *Telegram) NotifyMatch(_ context.Context, recipient, partner *db.User) error {
	text := fmt.Sprintf(
		"🎉 <b>Here is your possible GYM Bro!</b>\n\n%s\n\nNow you can message each other!",
		html.EscapeString(DisplayName(partner)),
	)
	msg, err := newMessage(recipient.TelegramID, text)
	if err != nil {
		return err
	}
	if link := ContactLink(partner); link != "" {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL("✉️ Message", link),
			),
		)
	}
	_, err = t.bot.Send(msg)
	return err
}

// Send delivers a raw HTML message. The text is not escaped: broadcasts are
// written by the admin and may carry markup.
func (t *Telegram) Send(_ context.Context, chatID string, text string) error {
	msg, err := newMessage(chatID, text)
	if err != nil {
		return err
	}
	_, err = t.bot.Send(msg)
	return err
}

func newMessage(chatID string, text string) (tgbotapi.MessageConfig, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return tgbotapi.MessageConfig{}, fmt.Errorf("invalid chat id %q", chatID)
	}
	msg := tgbotapi.NewMessage(id, text)
	msg.ParseMode = tgbotapi.ModeHTML
	return msg, nil
}

// DisplayName prefers @username, then first name.
func DisplayName(u *db.User) string {
	switch {
	case u == nil:
		return "User"
	case u.Username != nil && *u.Username != "":
		return "@" + *u.Username
	case u.FirstName != nil && *u.FirstName != "":
		return *u.FirstName
	}
	return "User"
}

// ContactLink is https://t.me/{username} when the user has one, tg://user?id= otherwise.
func ContactLink(u *db.User) string {
	if u == nil {
		return ""
	}
	if u.Username != nil && *u.Username != "" {
		return "https://t.me/" + *u.Username
	}
	if u.TelegramID != "" {
		return "tg://user?id=" + u.TelegramID
	}
	return ""
}

// IsBlocked reports whether Telegram refused delivery because the user blocked
// the bot or the chat is otherwise forbidden.
func IsBlocked(err error) bool {
	if err == nil {
		return false
	}
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) && tgErr.Code == 403 {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "blocked") || strings.Contains(msg, "forbidden")
}

// Noop logs and drops every notification. Used when no bot token is configured.
type Noop struct {
	Log *slog.Logger
}

func (n Noop) NotifyLike(_ context.Context, recipient *db.User) error {
	n.debug("like notification skipped", "chat_id", recipient.TelegramID)
	return nil
}

func (n Noop) NotifyMatch(_ context.Context, recipient, _ *db.User) error {
	n.debug("match notification skipped", "chat_id", recipient.TelegramID)
	return nil
}

func (n Noop) Send(_ context.Context, chatID string, _ string) error {
	n.debug("message skipped", "chat_id", chatID)
	return nil
}

func (n Noop) debug(msg string, args ...any) {
	if n.Log != nil {
		n.Log.Debug(msg, args...)
	}
}

// Multi fans out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) NotifyLike(ctx context.Context, recipient *db.User) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.NotifyLike(ctx, recipient))
	}
	return errors.Join(errs...)
}

func (m Multi) NotifyMatch(ctx context.Context, recipient, partner *db.User) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.NotifyMatch(ctx, recipient, partner))
	}
	return errors.Join(errs...)
}

func (m Multi) Send(ctx context.Context, chatID string, text string) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.Send(ctx, chatID, text))
	}
	return errors.Join(errs...)
}
