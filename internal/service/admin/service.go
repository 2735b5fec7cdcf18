package admin

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/oggyb/gymbro-match/internal/app"
	svcErr "github.com/oggyb/gymbro-match/internal/errors"
	"github.com/oggyb/gymbro-match/internal/events"
	"github.com/oggyb/gymbro-match/internal/repository"
)

// DefaultExportLimit caps an export without an explicit limit.
const DefaultExportLimit = 1000

// Service implements the admin endpoints. Callers are checked by
// Middleware.RequireAdmin before reaching it.
type Service struct {
	appCtx      *app.AppContext
	users       *repository.UserRepository
	profiles    *repository.ProfileRepository
	broadcaster *Broadcaster
}

func NewAdminService(appCtx *app.AppContext, opts BroadcastOptions) *Service {
	users := repository.NewUserRepository(appCtx.DB)
	return &Service{
		appCtx:      appCtx,
		users:       users,
		profiles:    repository.NewProfileRepository(appCtx.DB, appCtx.Config.DB.VectorProbes),
		broadcaster: NewBroadcaster(users, appCtx.Notifier, appCtx.Logger, opts),
	}
}

// ExportProfiles returns profile rows for the CSV export.
func (s *Service) ExportProfiles(ctx context.Context, f repository.ExportFilter) ([]repository.ExportRow, error) {
	if f.Limit <= 0 {
		f.Limit = DefaultExportLimit
	}
	rows, err := s.profiles.ListForExport(ctx, f)
	if err != nil {
		s.appCtx.Logger.Error("export profiles failed", "err", err)
		return nil, svcErr.Map(err)
	}
	return rows, nil
}

// Ban flags the user and hides their profile from recommendations. The
// profile snapshot and the user's own swipe queue and seen set are dropped.
func (s *Service) Ban(ctx context.Context, adminTelegramID string, userID uint64) error {
	profileID, err := s.users.Ban(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return svcErr.ErrUserNotFound
	}
	if err != nil {
		s.appCtx.Logger.Error("ban user failed", "user_id", userID, "err", err)
		return svcErr.Map(err)
	}

	if profileID != 0 {
		if err := s.appCtx.RedisCache.InvalidateProfile(ctx, profileID); err != nil {
			s.appCtx.Logger.Warn("invalidate profile snapshot failed", "profile_id", profileID, "err", err)
		}
	}
	if err := s.appCtx.RedisCache.ResetSwipeState(ctx, userID); err != nil {
		s.appCtx.Logger.Warn("reset swipe state failed", "user_id", userID, "err", err)
	}
	events.Emit(ctx, s.appCtx.Events, s.appCtx.Logger, events.Event{
		Type:    events.TypeUserBanned,
		UserID:  userID,
		Payload: events.UserBanned{ByAdmin: adminTelegramID},
	})

	s.appCtx.Logger.Info("user banned", "user_id", userID, "by_admin", adminTelegramID)
	return nil
}

// Broadcasts exposes the background broadcast runner.
func (s *Service) Broadcasts() *Broadcaster {
	return s.broadcaster
}
