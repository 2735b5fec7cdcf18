// Package testutil wires in-memory SQLite and miniredis for package tests.
package testutil

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/oggyb/gymbro-match/internal/app"
	"github.com/oggyb/gymbro-match/internal/cache"
	"github.com/oggyb/gymbro-match/internal/config"
	"github.com/oggyb/gymbro-match/internal/db"
	"github.com/oggyb/gymbro-match/internal/logger"
)

// NewDB opens a migrated in-memory SQLite database private to the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	database := open(t, fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name))

	sqlDB, err := database.DB()
	require.NoError(t, err)
	// a single connection keeps transactions and plain reads from locking each other
	sqlDB.SetMaxOpenConns(1)
	return database
}

// NewFileDB opens a migrated SQLite database file under t.TempDir that
// allows several connections. Write transactions begin IMMEDIATE and wait
// on each other instead of failing with SQLITE_BUSY.
func NewFileDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "gymbro.db")
	return open(t, fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate", path))
}

func open(t *testing.T, dsn string) *gorm.DB {
	t.Helper()

	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Discard,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	require.NoError(t, err)

	sqlDB, err := database.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(database, db.MigrateOptions{}))
	return database
}

// NewRedis starts a miniredis and returns a cache bound to it.
func NewRedis(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := Config()
	cfg.Redis.Addr = mr.Addr()
	rc := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = rc.Close() })
	return rc, mr
}

// Config returns a config with production defaults and no env lookups.
func Config() *config.Config {
	cfg := &config.Config{}
	cfg.App.ENV = "test"
	cfg.DB.Driver = "sqlite"
	cfg.Recommendation.BatchSize = 10
	cfg.Recommendation.QueueTTL = time.Hour
	cfg.Recommendation.SeenTTL = 24 * time.Hour
	cfg.Recommendation.ProfileTTL = 15 * time.Minute
	return cfg
}

// CreateUser inserts a user with the given telegram id.
func CreateUser(t *testing.T, gdb *gorm.DB, telegramID string) *db.User {
	t.Helper()
	username := "u" + telegramID
	u := &db.User{TelegramID: telegramID, Username: &username}
	require.NoError(t, gdb.Create(u).Error)
	return u
}

// CreateProfile inserts an active profile for userID with an optional embedding.
func CreateProfile(t *testing.T, gdb *gorm.DB, userID uint64, name string, vec []float32) *db.Profile {
	t.Helper()
	p := &db.Profile{
		UserID:      userID,
		Name:        name,
		Description: "Looking for a training partner",
		Gender:      db.GenderOther,
		IsActive:    true,
	}
	if vec != nil {
		v := pgvector.NewVector(vec)
		p.Embedding = &v
	}
	require.NoError(t, gdb.Create(p).Error)
	return p
}

// Axis returns a unit vector of EmbeddingDim pointing mostly along axis i,
// tilted by eps towards axis i+1.
func Axis(i int, eps float32) []float32 {
	v := make([]float32, db.EmbeddingDim)
	v[i%db.EmbeddingDim] = 1
	v[(i+1)%db.EmbeddingDim] = eps
	return v
}

// NewAppContext wires a fresh SQLite database and miniredis into an AppContext
// with no-op notifier and publisher.
func NewAppContext(t *testing.T) (*app.AppContext, *miniredis.Miniredis) {
	t.Helper()
	gdb := NewDB(t)
	rc, mr := NewRedis(t)
	return app.New(Config(), gdb, rc, logger.Discard()), mr
}
