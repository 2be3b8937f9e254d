package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/influmap/influmap/internal/api"
	"github.com/influmap/influmap/internal/assets"
	"github.com/influmap/influmap/internal/cache"
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
	logger.Info("Starting Influmap API Server")

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

	// Initialize Redis cache
	redisCache, err := cache.New(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisCache.Close()

	sync := buildSyncer(cfg, database)

	// Create Gin router
	if cfg.Logging.Level == "DEBUG" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	apiRouter := api.NewRouter(database, redisCache, sync)
	apiRouter.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server starting", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func buildSyncer(cfg *config.Config, database *db.DB) *syncer.Syncer {
	logger := logging.GetLogger()
	repo := db.NewRepository(database.DB)

	return syncer.New(syncer.Options{
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
}
