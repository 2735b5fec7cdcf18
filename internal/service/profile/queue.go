package profile

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/oggyb/gymbro-match/internal/db"
	svcErr "github.com/oggyb/gymbro-match/internal/errors"
	"github.com/oggyb/gymbro-match/internal/metrics"
)

const defaultBatchSize = 10

// NextProfile serves the next swipe candidate for userID.
//
// Behavior:
//   - Candidates are popped from the Redis queue and re-validated (snapshot or
//     DB row must be active, not the requester, not already seen).
//   - An empty queue is refilled from the nearest neighbours of the
//     requester's embedding, or from a random sample when there is no
//     embedding or no similar hit.
//   - The served candidate's user is added to the seen set; the rest of the
//     batch becomes the new queue.
//   - The requester must own an active profile (ErrProfileInactive).
//   - Nothing left → ErrNoMoreProfiles.
func (s *Service) NextProfile(ctx context.Context, userID uint64) (*db.Profile, error) {
	me, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !me.IsActive {
		return nil, svcErr.ErrProfileInactive
	}

	p, err := s.popQueued(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if p != nil {
		metrics.RecommendationsTotal.WithLabelValues("queue").Inc()
		return p, nil
	}

	batch, source, err := s.refill(ctx, me)
	if err != nil {
		s.appCtx.Logger.Error("refill swipe queue failed", "user_id", userID, "err", err)
		return nil, svcErr.Map(err)
	}
	if len(batch) == 0 {
		metrics.RecommendationsTotal.WithLabelValues("exhausted").Inc()
		return nil, svcErr.ErrNoMoreProfiles
	}

	if err := s.prime(ctx, userID, batch[1:]); err != nil {
		return nil, svcErr.Map(err)
	}
	if err := s.appCtx.RedisCache.AddSeen(ctx, userID, batch[0].UserID); err != nil {
		return nil, svcErr.Map(err)
	}

	metrics.RecommendationsTotal.WithLabelValues(source).Inc()
	s.appCtx.Logger.Debug("swipe queue refilled", "user_id", userID, "source", source, "size", len(batch))
	return &batch[0], nil
}

// popQueued drains the queue until a servable candidate shows up.
// Returns nil, nil once the queue is empty.
func (s *Service) popQueued(ctx context.Context, userID uint64) (*db.Profile, error) {
	rc := s.appCtx.RedisCache
	for {
		pid, ok, err := rc.PopQueue(ctx, userID)
		if err != nil || !ok {
			return nil, err
		}

		p, err := s.loadCandidate(ctx, pid)
		if err != nil {
			return nil, err
		}
		if p == nil || !p.IsActive || p.UserID == userID {
			continue
		}

		seen, err := rc.IsSeen(ctx, userID, p.UserID)
		if err != nil {
			return nil, err
		}
		if seen {
			continue
		}

		if err := rc.AddSeen(ctx, userID, p.UserID); err != nil {
			return nil, err
		}
		return p, nil
	}
}

// loadCandidate reads the snapshot, falling back to the DB row when the
// snapshot is missing or inactive. A deleted profile yields nil.
func (s *Service) loadCandidate(ctx context.Context, profileID uint64) (*db.Profile, error) {
	rc := s.appCtx.RedisCache
	cached, err := rc.CachedProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if cached != nil && cached.IsActive {
		return cached, nil
	}

	p, err := s.profiles.Get(ctx, profileID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if p.IsActive {
		if err := rc.CacheProfile(ctx, p); err != nil {
			s.appCtx.Logger.Warn("cache profile snapshot failed", "profile_id", p.ID, "err", err)
		}
	}
	return p, nil
}

// refill picks the next batch of candidates for me and names its source.
func (s *Service) refill(ctx context.Context, me *db.Profile) ([]db.Profile, string, error) {
	exclude, err := s.excluded(ctx, me.UserID)
	if err != nil {
		return nil, "", err
	}

	k := s.appCtx.Config.Recommendation.BatchSize
	if k <= 0 {
		k = defaultBatchSize
	}

	if me.Embedding != nil {
		batch, err := s.profiles.SimilarProfiles(ctx, me.Embedding.Slice(), exclude, k)
		if err != nil {
			return nil, "", err
		}
		if len(batch) > 0 {
			return batch, "similar", nil
		}
	}

	batch, err := s.profiles.RandomProfiles(ctx, exclude, k)
	return batch, "random", err
}

// excluded is the requester, everyone already served, and everyone already
// swiped on (the seen set expires before actions do).
func (s *Service) excluded(ctx context.Context, userID uint64) ([]uint64, error) {
	seen, err := s.appCtx.RedisCache.SeenUserIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	acted, err := s.actions.ActedUserIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	set := make(map[uint64]struct{}, len(seen)+len(acted)+1)
	out := make([]uint64, 0, len(seen)+len(acted)+1)
	for _, ids := range [][]uint64{{userID}, seen, acted} {
		for _, id := range ids {
			if _, dup := set[id]; dup {
				continue
			}
			set[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out, nil
}

// prime caches the remaining batch and makes it the new queue.
func (s *Service) prime(ctx context.Context, userID uint64, rest []db.Profile) error {
	rc := s.appCtx.RedisCache
	ids := make([]uint64, 0, len(rest))
	for i := range rest {
		if err := rc.CacheProfile(ctx, &rest[i]); err != nil {
			return err
		}
		ids = append(ids, rest[i].ID)
	}
	return rc.ReplaceQueue(ctx, userID, ids)
}
