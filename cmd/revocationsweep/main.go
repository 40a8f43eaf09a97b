package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/vncsmyrnk/accounts/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/accounts/internal/config"
	"github.com/vncsmyrnk/accounts/internal/core/services"
	"github.com/vncsmyrnk/accounts/internal/logging"
)

// Runs a single purge of expired revocation records, for use from cron when
// the server's in-process sweeper is not enough.
func main() {
	timeout := flag.Duration("timeout", 5*time.Minute, "maximum duration of the sweep")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, closer, err := logging.New(logging.Config{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		log.Fatal(err)
	}
	defer closer.Close()
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := postgres.Open(ctx, cfg.DSN(), postgres.DefaultPoolConfig())
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	sweeper := services.NewRevocationSweeper(postgres.NewRevocationRepository(db), logger, services.SweeperConfig{
		Timeout: *timeout,
	})

	logger.Info("starting revocation sweep")
	purged, err := sweeper.Sweep(ctx)
	if err != nil {
		logger.Fatal("revocation sweep failed", zap.Error(err))
	}
	logger.Info("revocation sweep completed", zap.Int64("purged", purged))
}
