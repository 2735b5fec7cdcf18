package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/oggyb/gymbro-match/internal/bot"
	"github.com/oggyb/gymbro-match/internal/client"
	"github.com/oggyb/gymbro-match/internal/config"
	"github.com/oggyb/gymbro-match/internal/logger"
)

func main() {
	cfg := config.New()
	cfg.Log.Component = "bot"
	logger.InitFromConfig(cfg)
	log := logger.L()

	if cfg.Telegram.BotToken == "" {
		log.Error("TELEGRAM_BOT_TOKEN is required")
		os.Exit(1)
	}

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		log.Error("failed to init telegram bot", "err", err)
		os.Exit(1)
	}
	log.Info("authorized", "account", api.Self.UserName, "backend", cfg.Backend.URL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)

	b := bot.New(api, client.New(cfg, log), log)
	b.Run(ctx, updates)

	api.StopReceivingUpdates()
	log.Info("bot stopped")
}
