package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oggyb/gymbro-match/internal/config"
	"github.com/oggyb/gymbro-match/internal/db"
)

// RedisCache owns the swipe keyspace:
//
//	swipe:queue:{user_id}          list of prefetched profile ids (FIFO)
//	swipe:seen:{user_id}           set of user ids already served
//	swipe:profile:{profile_id}     hash snapshot of a candidate profile
//	rate:swipe:{user_id}:{minute}  fixed-window swipe counter
type RedisCache struct {
	Client *redis.Client

	queueTTL   time.Duration
	seenTTL    time.Duration
	profileTTL time.Duration
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{
		Client:     redis.NewClient(opts),
		queueTTL:   orDefault(cfg.Recommendation.QueueTTL, time.Hour),
		seenTTL:    orDefault(cfg.Recommendation.SeenTTL, 24*time.Hour),
		profileTTL: orDefault(cfg.Recommendation.ProfileTTL, 15*time.Minute),
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}

func QueueKey(userID uint64) string     { return fmt.Sprintf("swipe:queue:%d", userID) }
func SeenKey(userID uint64) string      { return fmt.Sprintf("swipe:seen:%d", userID) }
func ProfileKey(profileID uint64) string { return fmt.Sprintf("swipe:profile:%d", profileID) }

//
// Recommendation queue
//

// ReplaceQueue drops whatever was queued for the user and stores ids in order.
// An empty ids slice just clears the queue.
func (c *RedisCache) ReplaceQueue(ctx context.Context, userID uint64, ids []uint64) error {
	key := QueueKey(userID)
	_, err := c.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(ids) == 0 {
			return nil
		}
		vals := make([]interface{}, len(ids))
		for i, id := range ids {
			vals[i] = id
		}
		pipe.RPush(ctx, key, vals...)
		pipe.Expire(ctx, key, c.queueTTL)
		return nil
	})
	return err
}

// PopQueue takes the head of the user's queue. ok is false when the queue is
// empty or expired.
func (c *RedisCache) PopQueue(ctx context.Context, userID uint64) (id uint64, ok bool, err error) {
	val, err := c.Client.LPop(ctx, QueueKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	} else if err != nil {
		return 0, false, err
	}
	id, err = strconv.ParseUint(val, 10, 64)
	if err != nil {
		// garbage in the queue is treated as a miss
		return 0, false, nil
	}
	return id, true, nil
}

func (c *RedisCache) QueueLen(ctx context.Context, userID uint64) (int64, error) {
	return c.Client.LLen(ctx, QueueKey(userID)).Result()
}

//
// Seen set
//

// AddSeen records that seenUserID was shown to userID and refreshes the TTL.
func (c *RedisCache) AddSeen(ctx context.Context, userID, seenUserID uint64) error {
	key := SeenKey(userID)
	_, err := c.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, key, seenUserID)
		pipe.Expire(ctx, key, c.seenTTL)
		return nil
	})
	return err
}

func (c *RedisCache) SeenUserIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	members, err := c.Client.SMembers(ctx, SeenKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(members))
	for _, m := range members {
		if id, err := strconv.ParseUint(m, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (c *RedisCache) IsSeen(ctx context.Context, userID, otherUserID uint64) (bool, error) {
	return c.Client.SIsMember(ctx, SeenKey(userID), otherUserID).Result()
}

// ResetSwipeState drops the user's queue and seen set.
func (c *RedisCache) ResetSwipeState(ctx context.Context, userID uint64) error {
	return c.Client.Del(ctx, QueueKey(userID), SeenKey(userID)).Err()
}

//
// Profile snapshots
//

// ProfileSnapshot is the cached, flattened form of a candidate profile.
type ProfileSnapshot struct {
	ID          uint64 `redis:"id"`
	UserID      uint64 `redis:"user_id"`
	Name        string `redis:"name"`
	Description string `redis:"description"`
	Gender      string `redis:"gender"`
	Age         int    `redis:"age"` // 0 when unknown
	Media       string `redis:"media"`
	IsActive    bool   `redis:"is_active"`
}

func SnapshotFromProfile(p *db.Profile) ProfileSnapshot {
	s := ProfileSnapshot{
		ID:          p.ID,
		UserID:      p.UserID,
		Name:        p.Name,
		Description: p.Description,
		Gender:      string(p.Gender),
		IsActive:    p.IsActive,
		Media:       "[]",
	}
	if p.Age != nil {
		s.Age = *p.Age
	}
	if len(p.Media) > 0 {
		if b, err := json.Marshal(p.Media); err == nil {
			s.Media = string(b)
		}
	}
	return s
}

// Profile rebuilds a profile from the snapshot. The embedding is not cached.
func (s ProfileSnapshot) Profile() *db.Profile {
	p := &db.Profile{
		ID:          s.ID,
		UserID:      s.UserID,
		Name:        s.Name,
		Description: s.Description,
		Gender:      db.Gender(s.Gender),
		IsActive:    s.IsActive,
	}
	if s.Age > 0 {
		age := s.Age
		p.Age = &age
	}
	var media db.MediaList
	if err := json.Unmarshal([]byte(s.Media), &media); err == nil {
		p.Media = media
	}
	return p
}

func (c *RedisCache) CacheProfile(ctx context.Context, p *db.Profile) error {
	s := SnapshotFromProfile(p)
	key := ProfileKey(p.ID)
	_, err := c.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, map[string]interface{}{
			"id":          s.ID,
			"user_id":     s.UserID,
			"name":        s.Name,
			"description": s.Description,
			"gender":      s.Gender,
			"age":         s.Age,
			"media":       s.Media,
			"is_active":   strconv.FormatBool(s.IsActive),
		})
		pipe.Expire(ctx, key, c.profileTTL)
		return nil
	})
	return err
}

// CachedProfile returns nil, nil on a cache miss.
func (c *RedisCache) CachedProfile(ctx context.Context, profileID uint64) (*db.Profile, error) {
	res := c.Client.HGetAll(ctx, ProfileKey(profileID))
	vals, err := res.Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, nil
	}
	var s ProfileSnapshot
	if err := res.Scan(&s); err != nil {
		return nil, err
	}
	if s.ID == 0 {
		return nil, nil
	}
	return s.Profile(), nil
}

func (c *RedisCache) InvalidateProfile(ctx context.Context, profileID uint64) error {
	return c.Client.Del(ctx, ProfileKey(profileID)).Err()
}

//
// Rate limiting
//

// AllowSwipe implements a fixed one-minute window per user.
// limit <= 0 disables the check.
func (c *RedisCache) AllowSwipe(ctx context.Context, userID uint64, limit int64) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	window := time.Now().Unix() / 60
	key := fmt.Sprintf("rate:swipe:%d:%d", userID, window)

	n, err := c.Client.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		_ = c.Client.Expire(ctx, key, time.Minute).Err()
	}
	return n <= limit, nil
}
