package syncer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/influmap/influmap/pkg/config"
	"github.com/influmap/influmap/pkg/logging"
)

// Scheduler runs the three sync cycles on their configured cadences: the
// post batch most often, windowed stats less often, the profile payload
// least often. Cadences coincide at startup and whenever the longer
// intervals line up; the syncer serializes operations per profile, so
// coinciding cycles never interleave writes to the same row. An in-flight
// cycle finishes before shutdown completes.
type Scheduler struct {
	syncer *Syncer
	cfg    *config.SyncConfig
	logger *zap.Logger
}

// NewScheduler creates a sync scheduler
func NewScheduler(syncer *Syncer, cfg *config.SyncConfig) *Scheduler {
	return &Scheduler{
		syncer: syncer,
		cfg:    cfg,
		logger: logging.GetLogger().With(zap.String("component", "scheduler")),
	}
}

// Run starts the cycle loops and blocks until the context is cancelled
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("Starting sync scheduler",
		zap.Duration("posts_interval", s.cfg.PostsInterval),
		zap.Duration("stats_interval", s.cfg.StatsInterval),
		zap.Duration("profile_interval", s.cfg.ProfileInterval))

	var wg sync.WaitGroup
	wg.Add(3)
	go s.loop(ctx, &wg, "posts", s.cfg.PostsInterval, s.syncer.SyncAllPosts)
	go s.loop(ctx, &wg, "stats", s.cfg.StatsInterval, s.syncer.RecomputeAllStats)
	go s.loop(ctx, &wg, "profiles", s.cfg.ProfileInterval, s.syncer.SyncAllProfiles)
	wg.Wait()

	s.logger.Info("Sync scheduler stopped")
	return ctx.Err()
}

func (s *Scheduler) loop(ctx context.Context, wg *sync.WaitGroup, kind string, interval time.Duration, cycle func(context.Context)) {
	defer wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// First pass runs immediately so a fresh deployment does not idle for a
	// full interval.
	s.runCycle(ctx, kind, cycle)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCycle(ctx, kind, cycle)
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context, kind string, cycle func(context.Context)) {
	if ctx.Err() != nil {
		return
	}
	started := time.Now()
	s.logger.Info("Sync cycle started", zap.String("kind", kind))
	cycle(ctx)
	s.logger.Info("Sync cycle finished",
		zap.String("kind", kind),
		zap.Duration("elapsed", time.Since(started)))
}
