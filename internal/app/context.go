package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/gymbro-match/internal/cache"
	"github.com/oggyb/gymbro-match/internal/config"
	"github.com/oggyb/gymbro-match/internal/db"
	"github.com/oggyb/gymbro-match/internal/embedding"
	"github.com/oggyb/gymbro-match/internal/events"
	"github.com/oggyb/gymbro-match/internal/notify"
)

// AppContext holds shared dependencies (DB, Redis, Logger, etc.)
type AppContext struct {
	Config     *config.Config
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger

	Embedder embedding.Embedder
	Notifier notify.Notifier
	Events   events.Publisher
}

// New creates a new AppContext.
// Embedder, Notifier and Events start as local/no-op implementations;
// main swaps in the configured ones.
func New(cfg *config.Config, database *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger) *AppContext {
	return &AppContext{
		Config:     cfg,
		DB:         database,
		RedisCache: rdb,
		Logger:     logger,
		Embedder:   embedding.NewHashEmbedder(db.EmbeddingDim),
		Notifier:   notify.Noop{Log: logger},
		Events:     events.Noop{},
	}
}
