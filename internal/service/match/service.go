package match

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/oggyb/gymbro-match/internal/app"
	"github.com/oggyb/gymbro-match/internal/db"
	svcErr "github.com/oggyb/gymbro-match/internal/errors"
	"github.com/oggyb/gymbro-match/internal/notify"
	"github.com/oggyb/gymbro-match/internal/repository"
	"github.com/oggyb/gymbro-match/internal/utils/pagination"
)

// Service exposes a user's matches.
type Service struct {
	appCtx  *app.AppContext
	matches *repository.MatchRepository
}

func NewMatchService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:  appCtx,
		matches: repository.NewMatchRepository(appCtx.DB),
	}
}

// Contact is how to reach a match partner on Telegram.
type Contact struct {
	TelegramID string  `json:"telegram_id"`
	Username   *string `json:"username"`
	FirstName  *string `json:"first_name"`
	Link       string  `json:"link"`
}

// List returns the user's matches, newest first.
func (s *Service) List(ctx context.Context, userID uint64, pageToken *string, limit int) ([]db.Match, *string, error) {
	matches, next, err := s.matches.ListForUser(ctx, userID, pageToken, pagination.ClampLimit(limit))
	if err != nil {
		return nil, nil, svcErr.Map(err)
	}
	return matches, next, nil
}

// Get returns the match if userID is one of its sides, else ErrMatchNotFound.
func (s *Service) Get(ctx context.Context, userID, matchID uint64) (*db.Match, error) {
	m, err := s.matches.GetForUser(ctx, matchID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.ErrMatchNotFound
	}
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return m, nil
}

// Contact reveals the partner's Telegram handle and marks the match notified.
func (s *Service) Contact(ctx context.Context, userID, matchID uint64) (*Contact, error) {
	m, err := s.Get(ctx, userID, matchID)
	if err != nil {
		return nil, err
	}
	partner := Partner(m, userID)
	if partner == nil {
		return nil, svcErr.ErrUserNotFound
	}

	if !m.IsNotified {
		if err := s.matches.MarkNotified(ctx, m.ID); err != nil {
			s.appCtx.Logger.Warn("mark match notified failed", "match_id", m.ID, "err", err)
		}
	}
	return &Contact{
		TelegramID: partner.TelegramID,
		Username:   partner.Username,
		FirstName:  partner.FirstName,
		Link:       notify.ContactLink(partner),
	}, nil
}

// Unmatch deletes the match. Either side may do it.
func (s *Service) Unmatch(ctx context.Context, userID, matchID uint64) error {
	if _, err := s.Get(ctx, userID, matchID); err != nil {
		return err
	}
	if err := s.matches.Delete(ctx, matchID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return svcErr.ErrMatchNotFound
		}
		return svcErr.Map(err)
	}
	s.appCtx.Logger.Info("unmatched", "match_id", matchID, "user_id", userID)
	return nil
}

// Partner is the preloaded user on the other side of m.
func Partner(m *db.Match, userID uint64) *db.User {
	if m.User1ID == userID {
		return m.User2
	}
	return m.User1
}
