package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/oggyb/gymbro-match/internal/client"
	"github.com/oggyb/gymbro-match/internal/notify"
)

const matchesShown = 10

const (
	textNoProfile = "You don't have a profile yet."
	textInactive  = "Your profile is hidden or missing. Use /show to make it visible."
	textNoMore    = "No more profiles for now. Come back later!"
	textNoLikes   = "No new likes yet."
	textFailed    = "Something went wrong, please try again later."
	textHelp      = "Commands:\n/profile - your profile\n/next - browse profiles\n/incoming - people who liked you\n/matches - your matches\n/hide - hide your profile\n/show - show your profile"
)

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		b.reply(msg.Chat.ID, textHelp)
		return
	}
	chatID, tgID := msg.Chat.ID, telegramID(msg.From)

	switch msg.Command() {
	case "start":
		b.start(ctx, chatID, msg.From)
	case "profile":
		b.showOwnProfile(ctx, chatID, tgID)
	case "next":
		b.showNext(ctx, chatID, tgID)
	case "incoming":
		b.showIncoming(ctx, chatID, tgID)
	case "matches":
		b.showMatches(ctx, chatID, tgID)
	case "hide":
		b.setActive(ctx, chatID, tgID, false)
	case "show":
		b.setActive(ctx, chatID, tgID, true)
	default:
		b.reply(chatID, textHelp)
	}
}

func (b *Bot) start(ctx context.Context, chatID int64, from *tgbotapi.User) {
	var username, firstName *string
	if from.UserName != "" {
		username = &from.UserName
	}
	if from.FirstName != "" {
		firstName = &from.FirstName
	}
	if _, err := b.backend.Register(ctx, telegramID(from), username, firstName); err != nil {
		b.fail(chatID, "register", err)
		return
	}

	p, err := b.backend.Profile(ctx, telegramID(from))
	if err != nil {
		b.fail(chatID, "get profile", err)
		return
	}
	if p == nil {
		b.reply(chatID, "Welcome to GymBro! "+textNoProfile+"\n\n"+textHelp)
		return
	}
	b.reply(chatID, "Welcome back!\n\n"+textHelp)
}

func (b *Bot) showOwnProfile(ctx context.Context, chatID int64, tgID string) {
	p, err := b.backend.Profile(ctx, tgID)
	if err != nil {
		b.fail(chatID, "get profile", err)
		return
	}
	if p == nil {
		b.reply(chatID, textNoProfile)
		return
	}
	b.sendProfile(chatID, p, nil)
}

func (b *Bot) showNext(ctx context.Context, chatID int64, tgID string) {
	p, err := b.backend.NextProfile(ctx, tgID)
	switch {
	case client.IsCode(err, "PROFILE_NOT_FOUND"):
		b.reply(chatID, textNoProfile)
		return
	case client.IsCode(err, "PROFILE_INACTIVE"):
		b.reply(chatID, textInactive)
		return
	case err != nil:
		b.fail(chatID, "next profile", err)
		return
	case p == nil:
		b.state.Delete(chatID)
		b.reply(chatID, textNoMore)
		return
	}
	b.state.Set(chatID, p.UserID)
	kb := swipeKeyboard(p.UserID)
	b.sendProfile(chatID, p, &kb)
}

func (b *Bot) showIncoming(ctx context.Context, chatID int64, tgID string) {
	p, err := b.backend.NextIncoming(ctx, tgID)
	if err != nil {
		b.fail(chatID, "next incoming", err)
		return
	}
	if p == nil {
		b.reply(chatID, textNoLikes)
		return
	}
	kb := incomingKeyboard(p.UserID)
	b.sendProfile(chatID, p, &kb)
}

func (b *Bot) showMatches(ctx context.Context, chatID int64, tgID string) {
	matches, err := b.backend.Matches(ctx, tgID, matchesShown)
	if err != nil {
		b.fail(chatID, "list matches", err)
		return
	}
	if len(matches) == 0 {
		b.reply(chatID, "No matches yet. Keep swiping with /next!")
		return
	}
	msg := tgbotapi.NewMessage(chatID, formatMatches(matches))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = matchesKeyboard(matches)
	b.send(msg)
}

func (b *Bot) setActive(ctx context.Context, chatID int64, tgID string, active bool) {
	p, err := b.backend.SetActive(ctx, tgID, active)
	if err != nil {
		b.fail(chatID, "set active", err)
		return
	}
	switch {
	case p == nil:
		b.reply(chatID, textNoProfile)
	case active:
		b.reply(chatID, "Your profile is visible again.")
	default:
		b.state.Delete(chatID)
		b.reply(chatID, "Your profile is hidden. Use /show to bring it back.")
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		b.answer(cb.ID, "")
		return
	}
	chatID, tgID := cb.Message.Chat.ID, telegramID(cb.From)

	if cb.Data == notify.CallbackViewIncoming {
		b.answer(cb.ID, "")
		b.showIncoming(ctx, chatID, tgID)
		return
	}

	kind, id, ok := parseCallback(cb.Data)
	if !ok {
		b.answer(cb.ID, "Unknown action")
		return
	}

	switch kind {
	case "like", "dislike", "report":
		b.swipe(ctx, cb, tgID, kind, id)
	case "in_like", "in_dislike":
		b.decide(ctx, cb, tgID, strings.TrimPrefix(kind, "in_"), id)
	case "contact":
		b.contact(ctx, cb, tgID, id)
	default:
		b.answer(cb.ID, "Unknown action")
	}
}

func (b *Bot) swipe(ctx context.Context, cb *tgbotapi.CallbackQuery, tgID, actionType string, userID uint64) {
	chatID := cb.Message.Chat.ID
	if cur, ok := b.state.Get(chatID); !ok || cur != userID {
		b.answer(cb.ID, "This card is outdated")
		b.clearButtons(chatID, cb.Message.MessageID)
		return
	}

	res, err := b.backend.SendAction(ctx, tgID, userID, actionType, nil)
	if client.IsCode(err, "RATE_LIMITED") {
		// the card stays so the user can tap again
		b.answer(cb.ID, "Slow down a little")
		return
	}
	b.state.Delete(chatID)
	b.clearButtons(chatID, cb.Message.MessageID)

	switch {
	case client.IsCode(err, "ACTION_ALREADY_EXISTS"):
		b.answer(cb.ID, "Already answered")
	case err != nil:
		b.answer(cb.ID, "")
		b.fail(chatID, "send action", err)
		return
	case res == nil:
		b.answer(cb.ID, "This profile is no longer available")
	case res.IsMatch:
		b.answer(cb.ID, "")
		b.reply(chatID, "🎉 It's a match! Check /matches to get in touch.")
	default:
		b.answer(cb.ID, answerText(actionType))
	}
	b.showNext(ctx, chatID, tgID)
}

func (b *Bot) decide(ctx context.Context, cb *tgbotapi.CallbackQuery, tgID, actionType string, likerID uint64) {
	chatID := cb.Message.Chat.ID
	b.clearButtons(chatID, cb.Message.MessageID)

	res, err := b.backend.DecideIncoming(ctx, tgID, likerID, actionType)
	switch {
	case client.IsCode(err, "ACTION_ALREADY_EXISTS"):
		b.answer(cb.ID, "Already answered")
	case err != nil:
		b.answer(cb.ID, "")
		b.fail(chatID, "decide incoming", err)
		return
	case res == nil:
		b.answer(cb.ID, "This like is no longer available")
	case res.IsMatch:
		b.answer(cb.ID, "")
		b.reply(chatID, "🎉 It's a match! Check /matches to get in touch.")
	default:
		b.answer(cb.ID, answerText(actionType))
	}
	b.showIncoming(ctx, chatID, tgID)
}

func (b *Bot) contact(ctx context.Context, cb *tgbotapi.CallbackQuery, tgID string, matchID uint64) {
	chatID := cb.Message.Chat.ID
	c, err := b.backend.MatchContact(ctx, tgID, matchID)
	if err != nil {
		b.answer(cb.ID, "")
		b.fail(chatID, "match contact", err)
		return
	}
	if c == nil {
		b.answer(cb.ID, "This match no longer exists")
		return
	}
	b.answer(cb.ID, "")

	msg := tgbotapi.NewMessage(chatID, formatContact(c))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("💬 Write", c.Link)),
	)
	b.send(msg)
}

// parseCallback splits "kind:id" button data.
func parseCallback(data string) (string, uint64, bool) {
	kind, raw, ok := strings.Cut(data, ":")
	if !ok {
		return "", 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return "", 0, false
	}
	return kind, id, true
}

func answerText(actionType string) string {
	switch actionType {
	case "like":
		return "❤️ Liked"
	case "report":
		return "Reported, thanks"
	default:
		return "Skipped"
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.log.Warn("telegram send failed", "err", err)
	}
}

func (b *Bot) answer(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.log.Warn("answer callback failed", "err", err)
	}
}

func (b *Bot) clearButtons(chatID int64, messageID int) {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	if _, err := b.api.Request(edit); err != nil {
		b.log.Debug("clear buttons failed", "err", err)
	}
}

func (b *Bot) fail(chatID int64, op string, err error) {
	b.log.Error(fmt.Sprintf("backend %s failed", op), "chat_id", chatID, "err", err)
	b.reply(chatID, textFailed)
}
