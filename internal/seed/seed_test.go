package seed_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/gymbro-match/internal/db"
	"github.com/oggyb/gymbro-match/internal/embedding"
	"github.com/oggyb/gymbro-match/internal/logger"
	"github.com/oggyb/gymbro-match/internal/repository"
	"github.com/oggyb/gymbro-match/internal/seed"
	"github.com/oggyb/gymbro-match/internal/testutil"
)

func TestRunSeedsConsistentData(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.NewDB(t)
	emb := embedding.NewHashEmbedder(db.EmbeddingDim)

	stats, err := seed.Run(ctx, gdb, emb, logger.Discard(), seed.DefaultOptions)
	require.NoError(t, err)
	assert.Equal(t, int64(20), stats.Users)
	assert.Positive(t, stats.Actions)
	assert.Positive(t, stats.Matches)

	var profiles []db.Profile
	require.NoError(t, gdb.Find(&profiles).Error)
	require.Len(t, profiles, 20)
	for _, p := range profiles {
		assert.True(t, p.IsActive)
		assert.NotNil(t, p.Embedding)
	}

	// every stored match is backed by likes in both directions
	actions := repository.NewActionRepository(gdb)
	var matches []db.Match
	require.NoError(t, gdb.Find(&matches).Error)
	for _, m := range matches {
		assert.Less(t, m.User1ID, m.User2ID)
		ab, err := actions.HasLiked(ctx, m.User1ID, m.User2ID)
		require.NoError(t, err)
		ba, err := actions.HasLiked(ctx, m.User2ID, m.User1ID)
		require.NoError(t, err)
		assert.True(t, ab && ba)
	}
}

func TestRunResetsPreviousData(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.NewDB(t)
	emb := embedding.NewHashEmbedder(db.EmbeddingDim)

	first, err := seed.Run(ctx, gdb, emb, logger.Discard(), seed.DefaultOptions)
	require.NoError(t, err)
	second, err := seed.Run(ctx, gdb, emb, logger.Discard(), seed.DefaultOptions)
	require.NoError(t, err)

	assert.Equal(t, first, second, "same seed, same data")

	var users int64
	require.NoError(t, gdb.Model(&db.User{}).Count(&users).Error)
	assert.Equal(t, int64(20), users)
}

func TestRunRejectsTooFewUsers(t *testing.T) {
	_, err := seed.Run(context.Background(), testutil.NewDB(t), embedding.NewHashEmbedder(db.EmbeddingDim), logger.Discard(), seed.Options{Users: 1})
	assert.Error(t, err)
}
