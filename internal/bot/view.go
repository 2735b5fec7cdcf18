package bot

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/oggyb/gymbro-match/internal/client"
	"github.com/oggyb/gymbro-match/internal/service/dto"
)

var genderLabels = map[string]string{
	"male":   "Male",
	"female": "Female",
	"other":  "Other",
}

func formatProfile(p *dto.Profile) string {
	var sb strings.Builder
	sb.WriteString("<b>" + html.EscapeString(p.Name) + "</b>")
	if p.Age != nil {
		sb.WriteString(", " + strconv.Itoa(*p.Age))
	}
	if g, ok := genderLabels[p.Gender]; ok {
		sb.WriteString("\n" + g)
	}
	sb.WriteString("\n\n" + html.EscapeString(p.Description))
	if !p.IsActive {
		sb.WriteString("\n\n<i>hidden</i>")
	}
	return sb.String()
}

func formatMatches(matches []client.Match) string {
	var sb strings.Builder
	sb.WriteString("<b>Your matches</b>\n")
	for i, m := range matches {
		fmt.Fprintf(&sb, "\n%d. %s", i+1, html.EscapeString(partnerName(m)))
	}
	return sb.String()
}

func formatContact(c *client.Contact) string {
	name := "your match"
	switch {
	case c.Username != nil && *c.Username != "":
		name = "@" + *c.Username
	case c.FirstName != nil && *c.FirstName != "":
		name = *c.FirstName
	}
	return "Say hi to " + html.EscapeString(name) + "!"
}

func partnerName(m client.Match) string {
	if m.Partner == nil {
		return "Unknown"
	}
	if m.Partner.Profile != nil && m.Partner.Profile.Name != "" {
		return m.Partner.Profile.Name
	}
	u := m.Partner.User
	switch {
	case u.Username != nil && *u.Username != "":
		return "@" + *u.Username
	case u.FirstName != nil && *u.FirstName != "":
		return *u.FirstName
	}
	return "User " + u.TelegramID
}

// sendProfile sends the first photo with the profile as caption, or plain
// text when there is none.
func (b *Bot) sendProfile(chatID int64, p *dto.Profile, kb *tgbotapi.InlineKeyboardMarkup) {
	text := formatProfile(p)
	for _, m := range p.Media {
		if m.Type != "photo" {
			continue
		}
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(m.FileID))
		photo.Caption = text
		photo.ParseMode = tgbotapi.ModeHTML
		if kb != nil {
			photo.ReplyMarkup = *kb
		}
		b.send(photo)
		return
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if kb != nil {
		msg.ReplyMarkup = *kb
	}
	b.send(msg)
}

func swipeKeyboard(userID uint64) tgbotapi.InlineKeyboardMarkup {
	id := strconv.FormatUint(userID, 10)
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❤️ Like", "like:"+id),
			tgbotapi.NewInlineKeyboardButtonData("👎 Dislike", "dislike:"+id),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⚠️ Report", "report:"+id),
		),
	)
}

func incomingKeyboard(userID uint64) tgbotapi.InlineKeyboardMarkup {
	id := strconv.FormatUint(userID, 10)
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❤️ Like back", "in_like:"+id),
			tgbotapi.NewInlineKeyboardButtonData("👎 Dislike", "in_dislike:"+id),
		),
	)
}

func matchesKeyboard(matches []client.Match) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(matches))
	for _, m := range matches {
		data := "contact:" + strconv.FormatUint(m.ID, 10)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💬 "+partnerName(m), data),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
