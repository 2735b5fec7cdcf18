package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var envKeys = []string{
	"APP_ENV", "LOG_LEVEL", "LOG_FORMAT", "LOG_SOURCE",
	"DB_DRIVER", "DB_DSN", "SQLITE_PATH", "POSTGRES_HOST", "POSTGRES_DB",
	"HTTP_ALLOWED_ORIGINS", "KAFKA_BROKERS", "RECOMMENDATION_BATCH_SIZE",
	"SWIPE_QUEUE_TTL", "SWIPE_RATE_LIMIT", "BACKEND_RETRIES", "BACKEND_TIMEOUT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg := New()

	assert.Equal(t, "production", cfg.App.ENV)
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Contains(t, cfg.DB.DSN, "host=localhost port=5432")
	assert.Contains(t, cfg.DB.DSN, "dbname=gymbro")
	assert.Equal(t, []string{"*"}, cfg.HTTP.AllowedOrigins)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, 10, cfg.Recommendation.BatchSize)
	assert.Equal(t, time.Hour, cfg.Recommendation.QueueTTL)
	assert.Equal(t, int64(60), cfg.RateLimit.SwipesPerMinute)
	assert.Equal(t, 3, cfg.Backend.Retries)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout)
	assert.False(t, cfg.Log.Source)
}

func TestOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/test.db")
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	t.Setenv("SWIPE_QUEUE_TTL", "30m")
	t.Setenv("BACKEND_RETRIES", "5")
	t.Setenv("LOG_SOURCE", "yes")

	cfg := New()

	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, "/tmp/test.db", cfg.DB.DSN)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 30*time.Minute, cfg.Recommendation.QueueTTL)
	assert.Equal(t, 5, cfg.Backend.Retries)
	assert.True(t, cfg.Log.Source)
}

func TestInvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("BACKEND_RETRIES", "many")
	t.Setenv("BACKEND_TIMEOUT", "soon")

	cfg := New()

	assert.Equal(t, 3, cfg.Backend.Retries)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout)
}

func TestExplicitDSNWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DSN", "postgres://u:p@db:5432/x")
	t.Setenv("POSTGRES_HOST", "ignored")

	cfg := New()

	assert.Equal(t, "postgres://u:p@db:5432/x", cfg.DB.DSN)
	assert.Empty(t, cfg.DB.Host)
}
