package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"github.com/Ashutoshmitra/job-platform/internal/audit"
	"github.com/Ashutoshmitra/job-platform/internal/config"
	"github.com/Ashutoshmitra/job-platform/internal/store"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx := context.Background()

	pg, err := store.New(ctx, cfg.PostgresDSN, logger)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pg.Close()

	if err := pg.RunMigrations(ctx); err != nil {
		logger.Fatal("failed to run postgres migrations", zap.Error(err))
	}
	logger.Info("postgres migrations applied")

	conn, err := audit.Connect(ctx, cfg)
	if err != nil {
		logger.Warn("clickhouse unavailable, skipping audit migrations", zap.Error(err))
		return
	}
	defer conn.Close()

	migrator := audit.NewMigrator(conn, logger)
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("failed to run clickhouse migrations", zap.Error(err))
	}
	logger.Info("clickhouse migrations applied")
}
