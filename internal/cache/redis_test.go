package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/gymbro-match/internal/cache"
	"github.com/oggyb/gymbro-match/internal/config"
	"github.com/oggyb/gymbro-match/internal/db"
)

func setupCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := &config.Config{}
	cfg.Redis.Addr = mr.Addr()
	cfg.Recommendation.QueueTTL = time.Hour
	cfg.Recommendation.SeenTTL = 24 * time.Hour
	cfg.Recommendation.ProfileTTL = 15 * time.Minute

	c := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestQueueIsFIFOAndReplaced(t *testing.T) {
	ctx := context.Background()
	c, mr := setupCache(t)

	require.NoError(t, c.ReplaceQueue(ctx, 1, []uint64{10, 11, 12}))
	assert.Equal(t, time.Hour, mr.TTL(cache.QueueKey(1)))

	id, ok, err := c.PopQueue(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(10), id)

	// replacing drops the old tail
	require.NoError(t, c.ReplaceQueue(ctx, 1, []uint64{20}))
	n, err := c.QueueLen(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	id, ok, _ = c.PopQueue(ctx, 1)
	assert.True(t, ok)
	assert.Equal(t, uint64(20), id)

	_, ok, err = c.PopQueue(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQueueExpires(t *testing.T) {
	ctx := context.Background()
	c, mr := setupCache(t)

	require.NoError(t, c.ReplaceQueue(ctx, 1, []uint64{10}))
	mr.FastForward(time.Hour + time.Second)

	_, ok, err := c.PopQueue(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSeenSet(t *testing.T) {
	ctx := context.Background()
	c, mr := setupCache(t)

	require.NoError(t, c.AddSeen(ctx, 1, 5))
	require.NoError(t, c.AddSeen(ctx, 1, 6))
	require.NoError(t, c.AddSeen(ctx, 1, 5))

	ids, err := c.SeenUserIDs(ctx, 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{5, 6}, ids)
	assert.Equal(t, 24*time.Hour, mr.TTL(cache.SeenKey(1)))

	seen, err := c.IsSeen(ctx, 1, 6)
	require.NoError(t, err)
	assert.True(t, seen)
	seen, err = c.IsSeen(ctx, 1, 7)
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, c.ReplaceQueue(ctx, 1, []uint64{9}))
	require.NoError(t, c.ResetSwipeState(ctx, 1))
	ids, err = c.SeenUserIDs(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.False(t, mr.Exists(cache.QueueKey(1)))
}

func TestProfileSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, mr := setupCache(t)

	age := 27
	p := &db.Profile{
		ID:          7,
		UserID:      3,
		Name:        "Anna",
		Description: "Deadlifts on Mondays",
		Gender:      db.GenderFemale,
		Age:         &age,
		Media:       db.MediaList{{Type: "photo", FileID: "abc"}},
		IsActive:    true,
	}
	require.NoError(t, c.CacheProfile(ctx, p))
	assert.Equal(t, 15*time.Minute, mr.TTL(cache.ProfileKey(7)))

	got, err := c.CachedProfile(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, p.UserID, got.UserID)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, p.Gender, got.Gender)
	assert.Equal(t, 27, *got.Age)
	assert.True(t, got.IsActive)
	require.Len(t, got.Media, 1)
	assert.Equal(t, "abc", got.Media[0].FileID)

	require.NoError(t, c.InvalidateProfile(ctx, 7))
	got, err = c.CachedProfile(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAllowSwipe(t *testing.T) {
	ctx := context.Background()
	c, _ := setupCache(t)

	ok, err := c.AllowSwipe(ctx, 1, 0)
	require.NoError(t, err)
	assert.True(t, ok, "zero limit disables the check")

	allowed := 0
	for i := 0; i < 5; i++ {
		ok, err := c.AllowSwipe(ctx, 2, 3)
		require.NoError(t, err)
		if ok {
			allowed++
		}
	}
	// a window boundary may reset the counter once
	assert.GreaterOrEqual(t, allowed, 3)
	assert.Less(t, allowed, 5)
}
