package action

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/oggyb/gymbro-match/internal/app"
	"github.com/oggyb/gymbro-match/internal/db"
	svcErr "github.com/oggyb/gymbro-match/internal/errors"
	"github.com/oggyb/gymbro-match/internal/events"
	"github.com/oggyb/gymbro-match/internal/metrics"
	"github.com/oggyb/gymbro-match/internal/repository"
	"github.com/oggyb/gymbro-match/internal/utils/pagination"
	"github.com/oggyb/gymbro-match/internal/utils/validation"
)

// Service records swipes, detects mutual likes and serves incoming likes.
type Service struct {
	appCtx   *app.AppContext
	users    *repository.UserRepository
	profiles *repository.ProfileRepository
	actions  *repository.ActionRepository
	matches  *repository.MatchRepository
}

// NewActionService creates an action service with dependencies from AppContext.
func NewActionService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		users:    repository.NewUserRepository(appCtx.DB),
		profiles: repository.NewProfileRepository(appCtx.DB, appCtx.Config.DB.VectorProbes),
		actions:  repository.NewActionRepository(appCtx.DB),
		matches:  repository.NewMatchRepository(appCtx.DB),
	}
}

// SendInput is the body of POST /actions.
type SendInput struct {
	ToUserID     uint64  `json:"to_user_id" validate:"required"`
	ActionType   string  `json:"action_type" validate:"required,oneof=like dislike report"`
	ReportReason *string `json:"report_reason" validate:"omitempty,max=200"`
}

// Result is what a recorded action produced.
type Result struct {
	Action *db.Action
	// IsMatch is true when the pair is matched after this action.
	IsMatch bool
	Match   *db.Match
	// MatchCreated is true only for the action that created the match.
	MatchCreated bool
}

// SendAction records fromUserID's swipe on in.ToUserID.
//
// Behavior:
//   - Rate limited per user and minute (ErrRateLimited).
//   - Self actions → ErrSelfAction; unknown target → ErrUserNotFound.
//   - One action per ordered pair; a repeat → ErrActionAlreadyExists.
//   - report_reason is kept for reports only.
//   - The action insert, the reverse-like check and the match insert share
//     one transaction that first locks the unordered pair. Of two opposite
//     likes racing, the second one to take the lock sees the first one's
//     committed action and creates the match.
//   - Notifications, events and counters run after commit and never fail
//     the call.
func (s *Service) SendAction(ctx context.Context, fromUserID uint64, in SendInput) (*Result, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if fromUserID == in.ToUserID {
		return nil, svcErr.ErrSelfAction
	}

	allowed, err := s.appCtx.RedisCache.AllowSwipe(ctx, fromUserID, s.appCtx.Config.RateLimit.SwipesPerMinute)
	if err != nil {
		s.appCtx.Logger.Warn("swipe rate limit check failed", "user_id", fromUserID, "err", err)
	} else if !allowed {
		return nil, svcErr.ErrRateLimited
	}

	target, err := s.users.Get(ctx, in.ToUserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.ErrUserNotFound
	}
	if err != nil {
		return nil, svcErr.Map(err)
	}

	a := &db.Action{
		FromUserID: fromUserID,
		ToUserID:   in.ToUserID,
		ActionType: db.ActionType(in.ActionType),
	}
	if a.ActionType == db.ActionReport && in.ReportReason != nil {
		if reason := strings.TrimSpace(*in.ReportReason); reason != "" {
			a.ReportReason = &reason
		}
	}

	res := &Result{Action: a}
	err = s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if a.ActionType == db.ActionLike {
			if err := s.matches.WithTx(tx).LockPair(ctx, fromUserID, in.ToUserID); err != nil {
				return err
			}
		}
		if err := s.actions.WithTx(tx).Create(ctx, a); err != nil {
			return err
		}
		if a.ActionType != db.ActionLike {
			return nil
		}

		mutual, err := s.actions.WithTx(tx).HasLiked(ctx, in.ToUserID, fromUserID)
		if err != nil || !mutual {
			return err
		}
		m, created, err := s.matches.WithTx(tx).CreateIfAbsent(ctx, fromUserID, in.ToUserID)
		if err != nil {
			return err
		}
		res.IsMatch, res.Match, res.MatchCreated = true, m, created
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, svcErr.ErrActionAlreadyExists
	}
	if err != nil {
		s.appCtx.Logger.Error("record action failed", "from", fromUserID, "to", in.ToUserID, "err", err)
		return nil, svcErr.Map(err)
	}

	s.afterCommit(ctx, res, target)
	return res, nil
}

// afterCommit runs the side effects of a stored action. Errors are logged.
func (s *Service) afterCommit(ctx context.Context, res *Result, target *db.User) {
	a := res.Action
	log := s.appCtx.Logger.With("from", a.FromUserID, "to", a.ToUserID, "action_type", a.ActionType)

	if err := s.appCtx.RedisCache.AddSeen(ctx, a.FromUserID, a.ToUserID); err != nil {
		log.Warn("mark seen failed", "err", err)
	}

	metrics.SwipesTotal.WithLabelValues(string(a.ActionType)).Inc()
	events.Emit(ctx, s.appCtx.Events, log, events.Event{
		Type:   events.TypeActionRecorded,
		UserID: a.FromUserID,
		Payload: events.ActionRecorded{
			FromUserID: a.FromUserID,
			ToUserID:   a.ToUserID,
			ActionType: string(a.ActionType),
			IsMatch:    res.IsMatch,
		},
	})

	switch {
	case res.MatchCreated:
		metrics.MatchesTotal.Inc()
		events.Emit(ctx, s.appCtx.Events, log, events.Event{
			Type:   events.TypeMatchCreated,
			UserID: a.FromUserID,
			Payload: events.MatchCreated{
				MatchID: res.Match.ID,
				User1ID: res.Match.User1ID,
				User2ID: res.Match.User2ID,
			},
		})

		from, err := s.users.Get(ctx, a.FromUserID)
		if err != nil {
			log.Error("load user for match notification failed", "err", err)
			return
		}
		logNotifyErr(log, s.appCtx.Notifier.NotifyMatch(ctx, from, target))
		logNotifyErr(log, s.appCtx.Notifier.NotifyMatch(ctx, target, from))
		log.Info("match created", "match_id", res.Match.ID)

	case a.ActionType == db.ActionLike && !res.IsMatch:
		logNotifyErr(log, s.appCtx.Notifier.NotifyLike(ctx, target))
	}
}

func logNotifyErr(log *slog.Logger, err error) {
	if err != nil {
		metrics.NotificationErrors.Inc()
		log.Warn("notification failed", "err", err)
	}
}

// DecideIncoming answers the like liker sent to viewer.
// Without such a like → ErrIncomingLikeNotFound.
func (s *Service) DecideIncoming(ctx context.Context, viewerID, likerID uint64, actionType string) (*Result, error) {
	if err := validation.Struct(struct {
		ActionType string `validate:"required,oneof=like dislike"`
	}{actionType}); err != nil {
		return nil, err
	}

	liked, err := s.actions.HasIncomingLike(ctx, viewerID, likerID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if !liked {
		return nil, svcErr.ErrIncomingLikeNotFound
	}
	return s.SendAction(ctx, viewerID, SendInput{ToUserID: likerID, ActionType: actionType})
}

// Incoming is one unanswered like with the liker's profile, if active.
type Incoming struct {
	Action  db.Action
	Profile *db.Profile
}

// ListIncoming returns unanswered likes for viewer, newest first.
func (s *Service) ListIncoming(ctx context.Context, viewerID uint64, pageToken *string, limit int) ([]Incoming, *string, error) {
	likes, next, err := s.actions.IncomingLikes(ctx, viewerID, pageToken, pagination.ClampLimit(limit))
	if err != nil {
		return nil, nil, svcErr.Map(err)
	}

	ids := make([]uint64, len(likes))
	for i, a := range likes {
		ids[i] = a.FromUserID
	}
	profiles, err := s.profiles.GetActiveByUserIDs(ctx, ids)
	if err != nil {
		return nil, nil, svcErr.Map(err)
	}

	out := make([]Incoming, len(likes))
	for i, a := range likes {
		out[i] = Incoming{Action: a, Profile: profiles[a.FromUserID]}
	}
	return out, next, nil
}

// NextIncoming returns the newest unanswered liker with an active profile.
func (s *Service) NextIncoming(ctx context.Context, viewerID uint64) (*db.Profile, error) {
	var token *string
	for {
		page, next, err := s.ListIncoming(ctx, viewerID, token, pagination.DefaultLimit)
		if err != nil {
			return nil, err
		}
		for _, in := range page {
			if in.Profile != nil {
				return in.Profile, nil
			}
		}
		if next == nil {
			return nil, svcErr.ErrNoMoreProfiles
		}
		token = next
	}
}
