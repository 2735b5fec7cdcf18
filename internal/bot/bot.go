// Package bot is the Telegram front-end. It keeps no data of its own and
// talks to the API through Backend.
package bot

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/oggyb/gymbro-match/internal/client"
	"github.com/oggyb/gymbro-match/internal/service/dto"
)

// Backend is the subset of the API the bot needs. *client.Client satisfies it.
type Backend interface {
	Register(ctx context.Context, telegramID string, username, firstName *string) (*dto.User, error)
	Profile(ctx context.Context, telegramID string) (*dto.Profile, error)
	NextProfile(ctx context.Context, telegramID string) (*dto.Profile, error)
	NextIncoming(ctx context.Context, telegramID string) (*dto.Profile, error)
	SetActive(ctx context.Context, telegramID string, active bool) (*dto.Profile, error)
	SendAction(ctx context.Context, telegramID string, toUserID uint64, actionType string, reportReason *string) (*client.ActionResult, error)
	DecideIncoming(ctx context.Context, telegramID string, likerID uint64, actionType string) (*client.ActionResult, error)
	Matches(ctx context.Context, telegramID string, limit int) ([]client.Match, error)
	MatchContact(ctx context.Context, telegramID string, matchID uint64) (*client.Contact, error)
}

// Sender is the part of *tgbotapi.BotAPI used to talk back to Telegram.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Bot struct {
	api     Sender
	backend Backend
	log     *slog.Logger
	state   *chatState
}

func New(api Sender, backend Backend, log *slog.Logger) *Bot {
	return &Bot{api: api, backend: backend, log: log, state: newChatState()}
}

// Run handles updates one at a time until ctx is done or updates is closed.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

// chatState remembers the candidate currently on screen per chat, so a
// second tap on an old card does not swipe twice.
type chatState struct {
	mu      sync.Mutex
	current map[int64]uint64
}

func newChatState() *chatState {
	return &chatState{current: make(map[int64]uint64)}
}

func (s *chatState) Get(chatID int64) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.current[chatID]
	return id, ok
}

func (s *chatState) Set(chatID int64, userID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current[chatID] = userID
}

func (s *chatState) Delete(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.current, chatID)
}

func telegramID(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	return strconv.FormatInt(u.ID, 10)
}
