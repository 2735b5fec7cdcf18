package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oggyb/gymbro-match/internal/app"
	"github.com/oggyb/gymbro-match/internal/cache"
	"github.com/oggyb/gymbro-match/internal/config"
	"github.com/oggyb/gymbro-match/internal/db"
	"github.com/oggyb/gymbro-match/internal/embedding"
	"github.com/oggyb/gymbro-match/internal/events"
	"github.com/oggyb/gymbro-match/internal/logger"
	"github.com/oggyb/gymbro-match/internal/notify"
	"github.com/oggyb/gymbro-match/internal/repository"
	"github.com/oggyb/gymbro-match/internal/seed"
	"github.com/oggyb/gymbro-match/internal/server"
	"github.com/oggyb/gymbro-match/internal/service/action"
	"github.com/oggyb/gymbro-match/internal/service/admin"
	"github.com/oggyb/gymbro-match/internal/service/match"
	"github.com/oggyb/gymbro-match/internal/service/profile"
	"github.com/oggyb/gymbro-match/internal/service/user"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(ctx); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}
	defer redisCache.Close()

	notifier, err := notify.New(cfg.Telegram.BotToken, log)
	if err != nil {
		log.Error("failed to init telegram notifier", "err", err)
		return
	}

	publisher := events.New(cfg, log)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("failed to close event publisher", "err", err)
		}
	}()

	appCtx := app.New(cfg, database, redisCache, log)
	appCtx.Embedder = embedding.New(cfg)
	appCtx.Notifier = notifier
	appCtx.Events = publisher

	if cfg.App.ENV == "development" {
		if _, err := seed.Run(ctx, database, appCtx.Embedder, log, seed.DefaultOptions); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	adminReg := admin.NewRegistrar(appCtx, admin.DefaultBroadcastOptions)
	defer adminReg.Shutdown()

	checks := []server.Check{
		{Name: "db", Fn: func(ctx context.Context) error {
			sqlDB, err := database.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}},
		{Name: "redis", Fn: redisCache.Ping},
	}

	mw := server.NewMiddleware(repository.NewUserRepository(database), cfg.Auth.ServiceSecret, cfg.Admin.TelegramID)
	router := server.NewRouter(cfg, log, mw, checks,
		user.NewRegistrar(appCtx),
		profile.NewRegistrar(appCtx),
		action.NewRegistrar(appCtx),
		match.NewRegistrar(appCtx),
		adminReg,
	)
	httpServer := server.NewHTTPServer(cfg, router)

	health := server.NewHealthRegistrar(log, checks...)
	grpcServer := server.NewGRPCServer(health)
	go health.Watch(ctx, 15*time.Second)

	errCh := make(chan error, 2)
	go func() {
		log.Info("starting HTTP server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		log.Info("starting gRPC server", "addr", cfg.GRPC.Host+":"+cfg.GRPC.Port)
		if err := server.ServeGRPC(cfg, grpcServer); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		log.Error("server failed", "err", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
	grpcServer.GracefulStop()
}
