package bot

import (
	"context"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/gymbro-match/internal/client"
	"github.com/oggyb/gymbro-match/internal/logger"
	"github.com/oggyb/gymbro-match/internal/notify"
	"github.com/oggyb/gymbro-match/internal/service/dto"
)

type fakeSender struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// texts returns the text or caption of every sent message.
func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.PhotoConfig:
			out = append(out, m.Caption)
		}
	}
	return out
}

func (f *fakeSender) last() tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return nil
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeSender) answers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.requests {
		if cb, ok := c.(tgbotapi.CallbackConfig); ok {
			out = append(out, cb.Text)
		}
	}
	return out
}

type actionCall struct {
	to   uint64
	kind string
}

type fakeBackend struct {
	registered []string
	profile    *dto.Profile
	next       []*dto.Profile
	nextErr    error
	incoming   []*dto.Profile
	active     *bool
	actions    []actionCall
	actionRes  *client.ActionResult
	actionErr  error
	decided    []actionCall
	matches    []client.Match
	contact    *client.Contact
}

func (f *fakeBackend) Register(_ context.Context, tgID string, _, _ *string) (*dto.User, error) {
	f.registered = append(f.registered, tgID)
	return &dto.User{ID: 1, TelegramID: tgID}, nil
}

func (f *fakeBackend) Profile(context.Context, string) (*dto.Profile, error) {
	return f.profile, nil
}

func (f *fakeBackend) NextProfile(context.Context, string) (*dto.Profile, error) {
	if f.nextErr != nil {
		return nil, f.nextErr
	}
	if len(f.next) == 0 {
		return nil, nil
	}
	p := f.next[0]
	f.next = f.next[1:]
	return p, nil
}

func (f *fakeBackend) NextIncoming(context.Context, string) (*dto.Profile, error) {
	if len(f.incoming) == 0 {
		return nil, nil
	}
	p := f.incoming[0]
	f.incoming = f.incoming[1:]
	return p, nil
}

func (f *fakeBackend) SetActive(_ context.Context, _ string, active bool) (*dto.Profile, error) {
	if f.profile == nil {
		return nil, nil
	}
	f.active = &active
	f.profile.IsActive = active
	return f.profile, nil
}

func (f *fakeBackend) SendAction(_ context.Context, _ string, to uint64, kind string, _ *string) (*client.ActionResult, error) {
	if f.actionErr != nil {
		return nil, f.actionErr
	}
	f.actions = append(f.actions, actionCall{to: to, kind: kind})
	if f.actionRes != nil {
		return f.actionRes, nil
	}
	return &client.ActionResult{ID: 1}, nil
}

func (f *fakeBackend) DecideIncoming(_ context.Context, _ string, liker uint64, kind string) (*client.ActionResult, error) {
	f.decided = append(f.decided, actionCall{to: liker, kind: kind})
	return &client.ActionResult{ID: 2, IsMatch: kind == "like"}, nil
}

func (f *fakeBackend) Matches(context.Context, string, int) ([]client.Match, error) {
	return f.matches, nil
}

func (f *fakeBackend) MatchContact(context.Context, string, uint64) (*client.Contact, error) {
	return f.contact, nil
}

func setup(backend *fakeBackend) (*Bot, *fakeSender) {
	sender := &fakeSender{}
	return New(sender, backend, logger.Discard()), sender
}

func command(text string) tgbotapi.Update {
	cmdLen := len(text)
	for i, r := range text {
		if r == ' ' {
			cmdLen = i
			break
		}
	}
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		Text:      text,
		Chat:      &tgbotapi.Chat{ID: 10},
		From:      &tgbotapi.User{ID: 100, UserName: "anna", FirstName: "Anna"},
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}},
	}}
}

func callback(data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: 100},
		Message: &tgbotapi.Message{MessageID: 5, Chat: &tgbotapi.Chat{ID: 10}},
		Data:    data,
	}}
}

func candidate(userID uint64, name string) *dto.Profile {
	return &dto.Profile{ID: userID, UserID: userID, Name: name, Description: "Squats & <deadlifts>", Gender: "female", IsActive: true}
}

func TestStartRegisters(t *testing.T) {
	backend := &fakeBackend{}
	b, sender := setup(backend)

	b.HandleUpdate(context.Background(), command("/start"))

	assert.Equal(t, []string{"100"}, backend.registered)
	require.Len(t, sender.texts(), 1)
	assert.Contains(t, sender.texts()[0], textNoProfile)
}

func TestNextShowsCandidateWithButtons(t *testing.T) {
	backend := &fakeBackend{next: []*dto.Profile{candidate(7, "Bea")}}
	b, sender := setup(backend)

	b.HandleUpdate(context.Background(), command("/next"))

	msg, ok := sender.last().(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Contains(t, msg.Text, "<b>Bea</b>")
	assert.Contains(t, msg.Text, "Squats &amp; &lt;deadlifts&gt;")
	kb, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, "like:7", *kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "dislike:7", *kb.InlineKeyboard[0][1].CallbackData)
	assert.Equal(t, "report:7", *kb.InlineKeyboard[1][0].CallbackData)

	cur, ok := b.state.Get(10)
	assert.True(t, ok)
	assert.Equal(t, uint64(7), cur)
}

func TestNextUsesPhotoWhenPresent(t *testing.T) {
	p := candidate(7, "Bea")
	p.Media = []dto.Media{{Type: "video", FileID: "v1"}, {Type: "photo", FileID: "p1"}}
	b, sender := setup(&fakeBackend{next: []*dto.Profile{p}})

	b.HandleUpdate(context.Background(), command("/next"))

	photo, ok := sender.last().(tgbotapi.PhotoConfig)
	require.True(t, ok)
	assert.Equal(t, tgbotapi.FileID("p1"), photo.File)
	assert.Contains(t, photo.Caption, "Bea")
}

func TestNextInactiveProfile(t *testing.T) {
	backend := &fakeBackend{nextErr: &client.APIError{Status: 403, Code: "PROFILE_INACTIVE"}}
	b, sender := setup(backend)

	b.HandleUpdate(context.Background(), command("/next"))

	assert.Equal(t, []string{textInactive}, sender.texts())
}

func TestNextWithoutProfile(t *testing.T) {
	backend := &fakeBackend{nextErr: &client.APIError{Status: 404, Code: "PROFILE_NOT_FOUND"}}
	b, sender := setup(backend)

	b.HandleUpdate(context.Background(), command("/next"))

	assert.Equal(t, []string{textNoProfile}, sender.texts())
}

func TestSwipeSendsActionAndShowsNext(t *testing.T) {
	backend := &fakeBackend{next: []*dto.Profile{candidate(7, "Bea"), candidate(8, "Cleo")}}
	b, sender := setup(backend)
	ctx := context.Background()

	b.HandleUpdate(ctx, command("/next"))
	b.HandleUpdate(ctx, callback("like:7"))

	assert.Equal(t, []actionCall{{to: 7, kind: "like"}}, backend.actions)
	assert.Contains(t, sender.answers(), "❤️ Liked")
	texts := sender.texts()
	assert.Contains(t, texts[len(texts)-1], "Cleo")

	cur, _ := b.state.Get(10)
	assert.Equal(t, uint64(8), cur)
}

func TestSwipeOnOutdatedCardIgnored(t *testing.T) {
	backend := &fakeBackend{next: []*dto.Profile{candidate(7, "Bea")}}
	b, sender := setup(backend)
	ctx := context.Background()

	b.HandleUpdate(ctx, command("/next"))
	b.HandleUpdate(ctx, callback("like:7"))
	b.HandleUpdate(ctx, callback("like:7"))

	assert.Len(t, backend.actions, 1)
	assert.Contains(t, sender.answers(), "This card is outdated")
}

func TestSwipeMatchAnnounced(t *testing.T) {
	matchID := uint64(3)
	backend := &fakeBackend{
		next:      []*dto.Profile{candidate(7, "Bea")},
		actionRes: &client.ActionResult{ID: 1, IsMatch: true, MatchID: &matchID},
	}
	b, sender := setup(backend)
	ctx := context.Background()

	b.HandleUpdate(ctx, command("/next"))
	b.HandleUpdate(ctx, callback("like:7"))

	texts := sender.texts()
	assert.Contains(t, texts, "🎉 It's a match! Check /matches to get in touch.")
	assert.Equal(t, textNoMore, texts[len(texts)-1])
}

func TestSwipeRateLimitedKeepsCard(t *testing.T) {
	backend := &fakeBackend{
		next:      []*dto.Profile{candidate(7, "Bea")},
		actionErr: &client.APIError{Status: 429, Code: "RATE_LIMITED"},
	}
	b, sender := setup(backend)
	ctx := context.Background()

	b.HandleUpdate(ctx, command("/next"))
	b.HandleUpdate(ctx, callback("like:7"))

	assert.Contains(t, sender.answers(), "Slow down a little")
	cur, ok := b.state.Get(10)
	assert.True(t, ok)
	assert.Equal(t, uint64(7), cur)
}

func TestIncomingDecide(t *testing.T) {
	backend := &fakeBackend{incoming: []*dto.Profile{candidate(4, "Dana")}}
	b, sender := setup(backend)
	ctx := context.Background()

	b.HandleUpdate(ctx, callback(notify.CallbackViewIncoming))
	msg, ok := sender.last().(tgbotapi.MessageConfig)
	require.True(t, ok)
	kb := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	assert.Equal(t, "in_like:4", *kb.InlineKeyboard[0][0].CallbackData)

	b.HandleUpdate(ctx, callback("in_like:4"))

	assert.Equal(t, []actionCall{{to: 4, kind: "like"}}, backend.decided)
	texts := sender.texts()
	assert.Contains(t, texts, "🎉 It's a match! Check /matches to get in touch.")
	assert.Equal(t, textNoLikes, texts[len(texts)-1])
}

func TestMatchesAndContact(t *testing.T) {
	username := "bea"
	backend := &fakeBackend{
		matches: []client.Match{{ID: 3, Partner: &client.Partner{User: dto.User{ID: 7, TelegramID: "700"}, Profile: candidate(7, "Bea")}}},
		contact: &client.Contact{TelegramID: "700", Username: &username, Link: "https://t.me/bea"},
	}
	b, sender := setup(backend)
	ctx := context.Background()

	b.HandleUpdate(ctx, command("/matches"))
	msg := sender.last().(tgbotapi.MessageConfig)
	assert.Contains(t, msg.Text, "1. Bea")
	kb := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	assert.Equal(t, "contact:3", *kb.InlineKeyboard[0][0].CallbackData)

	b.HandleUpdate(ctx, callback("contact:3"))
	msg = sender.last().(tgbotapi.MessageConfig)
	assert.Equal(t, "Say hi to @bea!", msg.Text)
	kb = msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	assert.Equal(t, "https://t.me/bea", *kb.InlineKeyboard[0][0].URL)
}

func TestHideAndShow(t *testing.T) {
	backend := &fakeBackend{profile: candidate(1, "Me")}
	b, sender := setup(backend)
	ctx := context.Background()

	b.HandleUpdate(ctx, command("/hide"))
	require.NotNil(t, backend.active)
	assert.False(t, *backend.active)

	b.HandleUpdate(ctx, command("/show"))
	assert.True(t, *backend.active)
	assert.Equal(t, "Your profile is visible again.", sender.texts()[1])
}

func TestHideWithoutProfile(t *testing.T) {
	b, sender := setup(&fakeBackend{})

	b.HandleUpdate(context.Background(), command("/hide"))

	assert.Equal(t, []string{textNoProfile}, sender.texts())
}

func TestParseCallback(t *testing.T) {
	kind, id, ok := parseCallback("in_dislike:42")
	assert.True(t, ok)
	assert.Equal(t, "in_dislike", kind)
	assert.Equal(t, uint64(42), id)

	for _, bad := range []string{"", "like", "like:", "like:x", "like:0"} {
		_, _, ok := parseCallback(bad)
		assert.False(t, ok, bad)
	}
}
