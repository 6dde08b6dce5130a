package main

import (
	"context"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"vault/internal/catalog"
	"vault/internal/config"
	"vault/internal/database"
	"vault/internal/discogs"
	"vault/internal/draft"
	"vault/internal/enrich"
	"vault/internal/logging"
	"vault/internal/pipeline"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	db, err := database.Open(cfg)
	if err != nil {
		logger.Error("open database", logging.Error(err))
		return
	}
	defer db.Close()

	searcher, err := discogs.New(cfg.Discogs, discogs.WithLogger(logger))
	if err != nil {
		logger.Error("init discogs client", logging.Error(err))
		return
	}
	enricher := enrich.NewService(cfg.Enrichment, enrich.WithLogger(logger))

	drafts := draft.NewStore(db)
	catalogStore := catalog.NewStore(db)

	orchestrator := pipeline.NewOrchestrator(cfg, drafts, catalogStore, searcher, enricher,
		pipeline.WithLogger(logger))
	manager := pipeline.NewManager(cfg, orchestrator, drafts,
		pipeline.WithManagerLogger(logger))

	if err := manager.Start(ctx); err != nil {
		logger.Error("start pipeline manager", logging.Error(err))
		return
	}

	logger.Info("vaultd running", slog.String("database", cfg.DatabasePath()))
	<-ctx.Done()
	logger.Info("vaultd shutting down")
	manager.Stop()
}
