package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App struct {
		ENV string
	}

	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
	}

	DB struct {
		Driver   string
		DSN      string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		// ivfflat tuning for the profile embedding index
		VectorLists  int
		VectorProbes int
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	HTTP struct {
		Host           string
		Port           string
		AllowedOrigins []string
		RequestTimeout time.Duration
	}

	GRPC struct {
		Host string
		Port string
	}

	Telegram struct {
		BotToken string
	}

	Admin struct {
		TelegramID string
	}

	Auth struct {
		// ServiceSecret enables X-Telegram-Signature verification when set.
		ServiceSecret string
	}

	Embedding struct {
		URL     string
		Model   string
		APIKey  string
		Timeout time.Duration
	}

	Kafka struct {
		Brokers []string
		Topic   string
	}

	Recommendation struct {
		BatchSize  int
		QueueTTL   time.Duration
		ProfileTTL time.Duration
		SeenTTL    time.Duration
	}

	RateLimit struct {
		SwipesPerMinute int64
	}

	Backend struct {
		URL     string
		Retries int
		Timeout time.Duration
	}
}

func New() *Config {
	// .env is optional; real environment always wins
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.App.ENV = getEnvDefault("APP_ENV", "production")

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "api")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Database
	cfg.DB.Driver = strings.ToLower(getEnvDefault("DB_DRIVER", "postgres"))
	cfg.DB.DSN = os.Getenv("DB_DSN")
	if cfg.DB.DSN == "" {
		switch cfg.DB.Driver {
		case "sqlite":
			cfg.DB.DSN = getEnvDefault("SQLITE_PATH", "gymbro.db")
		default:
			cfg.DB.Host = getEnvDefault("POSTGRES_HOST", "localhost")
			cfg.DB.Port = getEnvDefault("POSTGRES_PORT", "5432")
			cfg.DB.User = getEnvDefault("POSTGRES_USER", "postgres")
			cfg.DB.Password = getEnvDefault("POSTGRES_PASSWORD", "postgres")
			cfg.DB.Name = getEnvDefault("POSTGRES_DB", "gymbro")

			cfg.DB.DSN = fmt.Sprintf(
				"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
				cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name,
			)
		}
	}
	cfg.DB.VectorLists = getEnvInt("VECTOR_INDEX_LISTS", 100)
	cfg.DB.VectorProbes = getEnvInt("VECTOR_PROBES", 10)

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	// HTTP
	cfg.HTTP.Host = getEnvDefault("HTTP_HOST", "0.0.0.0")
	cfg.HTTP.Port = getEnvDefault("HTTP_PORT", "8000")
	cfg.HTTP.AllowedOrigins = getEnvList("HTTP_ALLOWED_ORIGINS", []string{"*"})
	cfg.HTTP.RequestTimeout = getEnvDuration("HTTP_REQUEST_TIMEOUT", 30*time.Second)

	// gRPC (health checks)
	cfg.GRPC.Host = getEnvDefault("GRPC_HOST", "127.0.0.1")
	cfg.GRPC.Port = getEnvDefault("GRPC_PORT", "50051")

	// Telegram / admin
	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.Admin.TelegramID = os.Getenv("ADMIN_TELEGRAM_ID")
	cfg.Auth.ServiceSecret = os.Getenv("SERVICE_SECRET")

	// Embeddings
	cfg.Embedding.URL = os.Getenv("EMBEDDING_URL")
	cfg.Embedding.Model = getEnvDefault("EMBEDDING_MODEL", "sentence-transformers/paraphrase-multilingual-MiniLM-L12-v2")
	cfg.Embedding.APIKey = os.Getenv("EMBEDDING_API_KEY")
	cfg.Embedding.Timeout = getEnvDuration("EMBEDDING_TIMEOUT", 10*time.Second)

	// Kafka
	cfg.Kafka.Brokers = getEnvList("KAFKA_BROKERS", nil)
	cfg.Kafka.Topic = getEnvDefault("KAFKA_TOPIC", "gymbro.events")

	// Recommendation queue
	cfg.Recommendation.BatchSize = getEnvInt("RECOMMENDATION_BATCH_SIZE", 10)
	cfg.Recommendation.QueueTTL = getEnvDuration("SWIPE_QUEUE_TTL", time.Hour)
	cfg.Recommendation.ProfileTTL = getEnvDuration("SWIPE_PROFILE_TTL", 15*time.Minute)
	cfg.Recommendation.SeenTTL = getEnvDuration("SWIPE_SEEN_TTL", 24*time.Hour)

	cfg.RateLimit.SwipesPerMinute = int64(getEnvInt("SWIPE_RATE_LIMIT", 60))

	// Bot -> backend client
	cfg.Backend.URL = getEnvDefault("BACKEND_URL", "http://localhost:8000")
	cfg.Backend.Retries = getEnvInt("BACKEND_RETRIES", 3)
	cfg.Backend.Timeout = getEnvDuration("BACKEND_TIMEOUT", 30*time.Second)

	return cfg
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDuration(k string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getEnvList(k string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
