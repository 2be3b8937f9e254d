package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/influmap/influmap/internal/assets"
	"github.com/influmap/influmap/internal/db"
	"github.com/influmap/influmap/internal/metrics"
	"github.com/influmap/influmap/internal/platform"
	"github.com/influmap/influmap/internal/syncer"
	"github.com/influmap/influmap/pkg/config"
	"github.com/influmap/influmap/pkg/logging"
	"github.com/influmap/influmap/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting Influmap Syncer")

	// Initialize telemetry
	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	// Initialize database
	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	repo := db.NewRepository(database.DB)
	sync := syncer.New(syncer.Options{
		Profiles: db.NewProfileRepository(repo),
		Posts:    db.NewPostRepository(repo),
		Collabs:  db.NewCollaborationRepository(repo),
		Stats:    db.NewStatRepository(repo),
		Sources: []syncer.Source{
			platform.NewInstagramSource(&cfg.Instagram, logger),
			platform.NewTikTokSource(&cfg.TikTok, logger),
		},
		Calc:    metrics.NewCalculator(&cfg.Metrics),
		Avatars: assets.NewDownloader(cfg.Sync.AvatarDir, logger),
		Sync:    &cfg.Sync,
		Metrics: &cfg.Metrics,
	})

	scheduler := syncer.NewScheduler(sync, &cfg.Sync)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := scheduler.Run(ctx); err != nil && err != context.Canceled {
			logger.Error("Scheduler stopped", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down syncer...")
	cancel()
	<-done
	logger.Info("Syncer exited")
}
