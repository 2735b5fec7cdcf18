package user

import (
	"context"
	"strings"

	"github.com/oggyb/gymbro-match/internal/app"
	"github.com/oggyb/gymbro-match/internal/db"
	svcErr "github.com/oggyb/gymbro-match/internal/errors"
	"github.com/oggyb/gymbro-match/internal/repository"
)

// Service handles user registration and lookup.
type Service struct {
	appCtx *app.AppContext
	users  *repository.UserRepository
}

func NewUserService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx: appCtx,
		users:  repository.NewUserRepository(appCtx.DB),
	}
}

// RegisterInput is what the bot knows about a Telegram user on /start.
type RegisterInput struct {
	TelegramID string  `json:"telegram_id" validate:"required,numeric,max=50"`
	Username   *string `json:"username" validate:"omitempty,max=100"`
	FirstName  *string `json:"first_name" validate:"omitempty,max=100"`
}

// Register returns the user for the telegram id, creating it on first contact.
// created reports whether this call inserted the row.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*db.User, bool, error) {
	tgID := strings.TrimSpace(in.TelegramID)
	if tgID == "" {
		return nil, false, svcErr.Validation("telegram_id is required")
	}

	u, created, err := s.users.Register(ctx, tgID, trimmed(in.Username), trimmed(in.FirstName))
	if err != nil {
		s.appCtx.Logger.Error("register user failed", "telegram_id", tgID, "err", err)
		return nil, false, svcErr.Map(err)
	}
	if created {
		s.appCtx.Logger.Info("user registered", "user_id", u.ID)
	}
	return u, created, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimPrefix(strings.TrimSpace(*s), "@")
	if v == "" {
		return nil
	}
	return &v
}
