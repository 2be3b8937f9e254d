package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/influmap/influmap/internal/classify"
	"github.com/influmap/influmap/internal/metrics"
	"github.com/influmap/influmap/internal/models"
	"github.com/influmap/influmap/pkg/config"
	"github.com/influmap/influmap/pkg/logging"
	"github.com/influmap/influmap/pkg/telemetry"
)

// Summary reports the outcome of a post-batch sync. Errors carry one entry
// per failed item; successfully processed items are unaffected by failures
// elsewhere in the batch.
type Summary struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Errors  []string `json:"errors"`
}

// Syncer orchestrates fetch, transform and persistence for tracked profiles.
// Operations on the same profile are mutually exclusive: the cadence loops
// and admin-triggered syncs may coincide, and the full-row save is not safe
// under concurrent writers.
type Syncer struct {
	profiles ProfileStore
	posts    PostStore
	collabs  CollabStore
	stats    StatStore
	sources  map[models.Platform]Source
	calc     *metrics.Calculator
	avatars  AvatarStore
	cfg      *config.SyncConfig
	window   time.Duration
	locks    sync.Map // profile id -> *sync.Mutex
	logger   *zap.Logger
	now      func() time.Time
}

// Options wires the syncer's collaborators
type Options struct {
	Profiles ProfileStore
	Posts    PostStore
	Collabs  CollabStore
	Stats    StatStore
	Sources  []Source
	Calc     *metrics.Calculator
	Avatars  AvatarStore
	Sync     *config.SyncConfig
	Metrics  *config.MetricsConfig
}

// New creates a syncer
func New(opts Options) *Syncer {
	sources := make(map[models.Platform]Source, len(opts.Sources))
	for _, source := range opts.Sources {
		sources[source.Platform()] = source
	}
	return &Syncer{
		profiles: opts.Profiles,
		posts:    opts.Posts,
		collabs:  opts.Collabs,
		stats:    opts.Stats,
		sources:  sources,
		calc:     opts.Calc,
		avatars:  opts.Avatars,
		cfg:      opts.Sync,
		window:   time.Duration(opts.Metrics.StatsWindowDays) * 24 * time.Hour,
		logger:   logging.GetLogger().With(zap.String("component", "syncer")),
		now:      time.Now,
	}
}

// SyncProfile fetches the profile payload, applies the normalized attributes
// and records a daily snapshot. On failure the error is classified: only a
// permanent failure disables the profile.
func (s *Syncer) SyncProfile(ctx context.Context, profile *models.TrackedProfile) error {
	ctx, span := telemetry.StartSpan(ctx, "syncer.sync_profile")
	defer span.End()
	defer s.lockProfile(profile.ID)()
	s.refresh(ctx, profile)

	source, err := s.source(profile)
	if err != nil {
		return err
	}

	doc, err := source.FetchProfile(ctx, profile)
	if err != nil {
		s.handleFailure(ctx, profile, err)
		return err
	}

	attrs, err := source.TransformProfile(doc)
	if err != nil {
		s.handleFailure(ctx, profile, err)
		return err
	}

	attrs.Apply(profile)
	if err := profile.SetRawData(doc); err != nil {
		s.logger.Warn("Failed to store raw payload",
			zap.String("username", profile.Username),
			zap.Error(err))
	}
	profile.SyncedAt = s.now()

	s.attachAvatar(ctx, profile)

	if err := s.profiles.Save(ctx, profile); err != nil {
		return fmt.Errorf("failed to save profile %s: %w", profile.Username, err)
	}

	// Followers moved, so the derived metrics are stale until recomputed.
	if err := s.recomputeStats(ctx, profile); err != nil {
		s.logger.Warn("Failed to recompute stats",
			zap.String("username", profile.Username),
			zap.Error(err))
	}

	if err := s.writeSnapshot(ctx, profile); err != nil {
		s.logger.Warn("Failed to write daily snapshot",
			zap.String("username", profile.Username),
			zap.Error(err))
	}

	s.logger.Info("Profile synced",
		zap.String("username", profile.Username),
		zap.String("platform", string(profile.Platform)),
		zap.Int64("followers", profile.Followers))
	return nil
}

// SyncPosts fetches the recent post batch for a profile and upserts each item
// keyed on its platform post id. A malformed item is recorded and skipped;
// the rest of the batch proceeds.
func (s *Syncer) SyncPosts(ctx context.Context, profile *models.TrackedProfile) (*Summary, error) {
	ctx, span := telemetry.StartSpan(ctx, "syncer.sync_posts")
	defer span.End()
	defer s.lockProfile(profile.ID)()
	s.refresh(ctx, profile)

	source, err := s.source(profile)
	if err != nil {
		return nil, err
	}

	items, err := source.FetchPostItems(ctx, profile)
	if err != nil {
		s.handleFailure(ctx, profile, err)
		return nil, err
	}

	summary := &Summary{Errors: []string{}}
	for _, item := range items {
		if err := s.upsertPost(ctx, source, profile, item, summary); err != nil {
			summary.Errors = append(summary.Errors,
				fmt.Sprintf("post %s: %v", source.PostID(item), err))
		}
	}

	if err := s.recomputeStats(ctx, profile); err != nil {
		s.logger.Warn("Failed to recompute stats",
			zap.String("username", profile.Username),
			zap.Error(err))
	}

	s.logger.Info("Posts synced",
		zap.String("username", profile.Username),
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Int("errors", len(summary.Errors)))
	return summary, nil
}

func (s *Syncer) upsertPost(ctx context.Context, source Source, profile *models.TrackedProfile, item map[string]interface{}, summary *Summary) error {
	attrs, err := source.TransformPost(item)
	if err != nil {
		return err
	}
	if attrs.PlatformPostID == "" {
		return fmt.Errorf("missing platform post id")
	}

	post, existed, err := s.posts.FindOrCreate(ctx, profile.ID, attrs.PlatformPostID)
	if err != nil {
		return err
	}

	attrs.Apply(post)
	if err := post.SetRawData(item); err != nil {
		s.logger.Warn("Failed to store raw post payload",
			zap.String("platform_post_id", attrs.PlatformPostID),
			zap.Error(err))
	}
	if err := s.posts.Save(ctx, post); err != nil {
		return err
	}

	if existed {
		summary.Updated++
	} else {
		summary.Created++
	}

	s.recordCollaborations(ctx, source, profile, post, item)
	return nil
}

// recordCollaborations derives collaboration edges from the coauthors credited
// on a post. Unknown usernames and self-references are skipped; edges are
// written at most once per (post, pair).
func (s *Syncer) recordCollaborations(ctx context.Context, source Source, profile *models.TrackedProfile, post *models.Post, item map[string]interface{}) {
	usernames := make([]string, 0)
	for _, username := range source.Coauthors(item) {
		if username != profile.Username {
			usernames = append(usernames, username)
		}
	}
	if len(usernames) == 0 {
		return
	}

	known, err := s.profiles.GetByUsernames(ctx, usernames)
	if err != nil {
		s.logger.Warn("Failed to resolve coauthors",
			zap.String("username", profile.Username),
			zap.Error(err))
		return
	}

	for _, other := range known {
		collab := &models.Collaboration{
			PostID:         post.ID,
			CollaboratorID: profile.ID,
			CollaboratedID: other.ID,
			PostedAt:       post.PostedAt,
		}
		if err := s.collabs.FindOrCreate(ctx, collab); err != nil {
			s.logger.Warn("Failed to record collaboration",
				zap.String("username", profile.Username),
				zap.String("coauthor", other.Username),
				zap.Error(err))
		}
	}
}

// RecomputeStats sums the post counters over the stats window, derives the
// engagement and reach figures and persists them on the profile.
func (s *Syncer) RecomputeStats(ctx context.Context, profile *models.TrackedProfile) error {
	defer s.lockProfile(profile.ID)()
	s.refresh(ctx, profile)
	return s.recomputeStats(ctx, profile)
}

// recomputeStats is the unlocked body of RecomputeStats; SyncProfile and
// SyncPosts call it while already holding the profile's mutex.
func (s *Syncer) recomputeStats(ctx context.Context, profile *models.TrackedProfile) error {
	ctx, span := telemetry.StartSpan(ctx, "syncer.recompute_stats")
	defer span.End()

	since := s.now().Add(-s.window)
	agg, err := s.posts.AggregatesSince(ctx, profile.ID, since)
	if err != nil {
		return fmt.Errorf("failed to aggregate posts for %s: %w", profile.Username, err)
	}

	profile.TotalPosts = agg.TotalPosts
	profile.TotalVideos = agg.TotalVideos
	profile.TotalLikes = agg.TotalLikes
	profile.TotalComments = agg.TotalComments
	profile.TotalVideoViews = agg.TotalVideoViews
	profile.TotalInteractions = agg.TotalCount
	profile.EngagementRate = s.calc.EngagementRate(agg.TotalCount, profile.Followers)

	snapshot := metrics.Snapshot{
		Followers:         profile.Followers,
		TotalPosts:        profile.TotalPosts,
		TotalVideos:       profile.TotalVideos,
		TotalInteractions: profile.TotalInteractions,
		WindowTotalCount:  agg.TotalCount,
		EngagementRate:    profile.EngagementRate,
		IsVerified:        profile.IsVerified,
		IsBusiness:        profile.IsBusiness,
		Category:          profile.Category,
	}
	profile.EstimatedReach = s.calc.EstimatedReach(snapshot)
	profile.ReachPercentage = s.calc.ReachPercentage(snapshot)

	if err := s.profiles.Save(ctx, profile); err != nil {
		return fmt.Errorf("failed to save stats for %s: %w", profile.Username, err)
	}

	s.logger.Debug("Stats recomputed",
		zap.String("username", profile.Username),
		zap.Int64("engagement_rate", profile.EngagementRate),
		zap.Int64("estimated_reach", profile.EstimatedReach))
	return nil
}

// SyncAllProfiles syncs every enabled profile across all registered sources.
// Individual failures are logged and do not stop the batch.
func (s *Syncer) SyncAllProfiles(ctx context.Context) {
	s.forEachEnabled(ctx, "profiles", func(ctx context.Context, profile *models.TrackedProfile) error {
		return s.SyncProfile(ctx, profile)
	})
}

// SyncAllPosts syncs the post batch for every enabled profile
func (s *Syncer) SyncAllPosts(ctx context.Context) {
	s.forEachEnabled(ctx, "posts", func(ctx context.Context, profile *models.TrackedProfile) error {
		_, err := s.SyncPosts(ctx, profile)
		return err
	})
}

// RecomputeAllStats recomputes windowed stats for every enabled profile
func (s *Syncer) RecomputeAllStats(ctx context.Context) {
	s.forEachEnabled(ctx, "stats", func(ctx context.Context, profile *models.TrackedProfile) error {
		return s.RecomputeStats(ctx, profile)
	})
}

func (s *Syncer) forEachEnabled(ctx context.Context, kind string, fn func(context.Context, *models.TrackedProfile) error) {
	for platform := range s.sources {
		profiles, err := s.profiles.ListEnabled(ctx, platform)
		if err != nil {
			s.logger.Error("Failed to list enabled profiles",
				zap.String("platform", string(platform)),
				zap.Error(err))
			continue
		}
		for _, profile := range profiles {
			if ctx.Err() != nil {
				return
			}
			if err := fn(ctx, profile); err != nil {
				s.logger.Warn("Sync failed for profile",
					zap.String("kind", kind),
					zap.String("username", profile.Username),
					zap.Error(err))
			}
		}
	}
}

// handleFailure classifies a sync error and applies the recommended action.
// Only a permanent failure flips the enabled flag; temporary and unknown
// failures leave the profile untouched for the next cycle.
func (s *Syncer) handleFailure(ctx context.Context, profile *models.TrackedProfile, err error) {
	desc := classify.Describe(err.Error())
	fields := []zap.Field{
		zap.String("username", profile.Username),
		zap.String("classification", desc.Kind.String()),
		zap.String("action", desc.Action),
		zap.Error(err),
	}

	if desc.Action != classify.ActionDisableProfile {
		s.logger.Warn("Sync failed", fields...)
		return
	}

	profile.Enabled = false
	if saveErr := s.profiles.Save(ctx, profile); saveErr != nil {
		s.logger.Error("Failed to disable profile", append(fields, zap.NamedError("save_error", saveErr))...)
		return
	}
	s.logger.Warn("Profile disabled after permanent failure", fields...)
}

func (s *Syncer) attachAvatar(ctx context.Context, profile *models.TrackedProfile) {
	if s.avatars == nil || profile.AvatarPath != "" {
		return
	}
	srcURL := profile.AvatarURLHD
	if srcURL == "" {
		srcURL = profile.AvatarURL
	}
	if srcURL == "" {
		return
	}
	filename := fmt.Sprintf("%s_%s", profile.Platform, profile.Username)
	if path, ok := s.avatars.DownloadAndAttach(ctx, srcURL, filename, s.cfg.PlaceholderURL); ok {
		profile.AvatarPath = path
	}
}

// lockProfile acquires the profile's mutex and returns the unlock. Every
// exported sync operation holds it for its whole duration, so cycles that
// coincide on the same profile run one after another.
func (s *Syncer) lockProfile(id int64) func() {
	mu, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// refresh reloads the profile row into the given instance. A cycle may have
// listed the profile before another operation saved it; working from the
// stored row keeps that operation's writes from being clobbered. A profile
// not persisted yet is left as is.
func (s *Syncer) refresh(ctx context.Context, profile *models.TrackedProfile) {
	fresh, err := s.profiles.GetByID(ctx, profile.ID)
	if err != nil {
		s.logger.Warn("Failed to reload profile",
			zap.String("username", profile.Username),
			zap.Error(err))
		return
	}
	if fresh != nil {
		*profile = *fresh
	}
}

func (s *Syncer) source(profile *models.TrackedProfile) (Source, error) {
	source, ok := s.sources[profile.Platform]
	if !ok {
		return nil, fmt.Errorf("no data source registered for platform %s", profile.Platform)
	}
	return source, nil
}

func (s *Syncer) writeSnapshot(ctx context.Context, profile *models.TrackedProfile) error {
	now := s.now().UTC()
	stat := &models.DailyStat{
		ProfileID:         profile.ID,
		Date:              time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		Followers:         profile.Followers,
		TotalLikes:        profile.TotalLikes,
		TotalComments:     profile.TotalComments,
		TotalVideoViews:   profile.TotalVideoViews,
		TotalInteractions: profile.TotalInteractions,
		TotalPosts:        profile.TotalPosts,
		TotalVideos:       profile.TotalVideos,
		EngagementRate:    profile.EngagementRate,
	}
	return s.stats.WriteSnapshot(ctx, stat)
}
