package main

import (
	"context"
	"os"

	"github.com/oggyb/gymbro-match/internal/config"
	"github.com/oggyb/gymbro-match/internal/db"
	"github.com/oggyb/gymbro-match/internal/embedding"
	"github.com/oggyb/gymbro-match/internal/logger"
	"github.com/oggyb/gymbro-match/internal/seed"
)

func main() {
	// Load configuration
	cfg := config.New()
	cfg.Log.Component = "seed"
	logger.InitFromConfig(cfg)
	log := logger.L()

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	if _, err := seed.Run(context.Background(), database, embedding.New(cfg), log, seed.DefaultOptions); err != nil {
		log.Error("failed to seed", "err", err)
		os.Exit(1)
	}
}
