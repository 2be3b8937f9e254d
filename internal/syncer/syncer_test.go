package syncer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/influmap/influmap/internal/db"
	"github.com/influmap/influmap/internal/metrics"
	"github.com/influmap/influmap/internal/models"
	"github.com/influmap/influmap/internal/platform"
	"github.com/influmap/influmap/internal/transform"
	"github.com/influmap/influmap/pkg/config"
)

type fakeSource struct {
	platform   models.Platform
	profileDoc map[string]interface{}
	profileErr error
	items      []map[string]interface{}
	itemsErr   error
}

func (f *fakeSource) Platform() models.Platform { return f.platform }

func (f *fakeSource) FetchProfile(ctx context.Context, p *models.TrackedProfile) (map[string]interface{}, error) {
	return f.profileDoc, f.profileErr
}

func (f *fakeSource) FetchPostItems(ctx context.Context, p *models.TrackedProfile) ([]map[string]interface{}, error) {
	return f.items, f.itemsErr
}

func (f *fakeSource) TransformProfile(doc map[string]interface{}) (*transform.ProfileAttrs, error) {
	followers, _ := doc["followers"].(int64)
	return &transform.ProfileAttrs{
		FullName:  "Test Account",
		Followers: followers,
		AvatarURL: "https://cdn.example/a.jpg",
	}, nil
}

func (f *fakeSource) TransformPost(item map[string]interface{}) (*transform.PostAttrs, error) {
	if item["malformed"] == true {
		return nil, &transform.MissingFieldError{Fields: []string{"createTime"}}
	}
	id, _ := item["id"].(string)
	likes, _ := item["likes"].(int64)
	return &transform.PostAttrs{
		PlatformPostID: id,
		LikesCount:     likes,
		TotalCount:     likes,
		PostedAt:       time.Unix(1735689600, 0).UTC(),
	}, nil
}

func (f *fakeSource) PostID(item map[string]interface{}) string {
	id, _ := item["id"].(string)
	return id
}

func (f *fakeSource) Coauthors(item map[string]interface{}) []string {
	coauthors, _ := item["coauthors"].([]string)
	return coauthors
}

type fakeStore struct {
	profiles  map[string]*models.TrackedProfile
	posts     map[string]*models.Post
	collabs   []*models.Collaboration
	stats     []*models.DailyStat
	agg       *db.PostAggregates
	nextID    int64
	saveCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles: map[string]*models.TrackedProfile{},
		posts:    map[string]*models.Post{},
		agg:      &db.PostAggregates{},
	}
}

func (f *fakeStore) GetByID(ctx context.Context, id int64) (*models.TrackedProfile, error) {
	for _, p := range f.profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListEnabled(ctx context.Context, platform models.Platform) ([]*models.TrackedProfile, error) {
	var out []*models.TrackedProfile
	for _, p := range f.profiles {
		if p.Enabled && p.Platform == platform {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) GetByUsernames(ctx context.Context, usernames []string) ([]*models.TrackedProfile, error) {
	var out []*models.TrackedProfile
	for _, username := range usernames {
		if p, ok := f.profiles[username]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) Save(ctx context.Context, profile *models.TrackedProfile) error {
	f.saveCalls++
	f.profiles[profile.Username] = profile
	return nil
}

func (f *fakeStore) FindOrCreate(ctx context.Context, profileID int64, platformPostID string) (*models.Post, bool, error) {
	if post, ok := f.posts[platformPostID]; ok {
		return post, true, nil
	}
	f.nextID++
	post := &models.Post{ID: f.nextID, ProfileID: profileID, PlatformPostID: platformPostID}
	f.posts[platformPostID] = post
	return post, false, nil
}

func (f *fakeStore) SavePost(ctx context.Context, post *models.Post) error {
	f.posts[post.PlatformPostID] = post
	return nil
}

func (f *fakeStore) AggregatesSince(ctx context.Context, profileID int64, since time.Time) (*db.PostAggregates, error) {
	return f.agg, nil
}

func (f *fakeStore) FindOrCreateCollab(ctx context.Context, collab *models.Collaboration) error {
	f.collabs = append(f.collabs, collab)
	return nil
}

func (f *fakeStore) WriteSnapshot(ctx context.Context, stat *models.DailyStat) error {
	for _, existing := range f.stats {
		if existing.ProfileID == stat.ProfileID && existing.Date.Equal(stat.Date) {
			return nil
		}
	}
	f.stats = append(f.stats, stat)
	return nil
}

// postStoreAdapter exposes the fake's post methods under the PostStore names
type postStoreAdapter struct{ *fakeStore }

func (a postStoreAdapter) Save(ctx context.Context, post *models.Post) error {
	return a.SavePost(ctx, post)
}

type collabStoreAdapter struct{ *fakeStore }

func (a collabStoreAdapter) FindOrCreate(ctx context.Context, collab *models.Collaboration) error {
	return a.FindOrCreateCollab(ctx, collab)
}

func newTestSyncer(store *fakeStore, source Source) *Syncer {
	metricsCfg := &config.MetricsConfig{
		StatsWindowDays:        7,
		EngagementBenchmark:    3.0,
		BaseReachPct:           0.15,
		FollowerWeight:         0.6,
		InteractionWeight:      0.4,
		MaxReachRatio:          0.5,
		HighVideoRatio:         0.4,
		VideoInteractionRate:   0.12,
		DefaultInteractionRate: 0.10,
		VerifiedMultiplier:     1.2,
		BusinessMultiplier:     1.1,
		MediaMultiplier:        1.15,
		MemeMultiplier:         1.3,
		BrandMultiplier:        0.9,
	}
	return New(Options{
		Profiles: store,
		Posts:    postStoreAdapter{store},
		Collabs:  collabStoreAdapter{store},
		Stats:    store,
		Sources:  []Source{source},
		Calc:     metrics.NewCalculator(metricsCfg),
		Sync:     &config.SyncConfig{},
		Metrics:  metricsCfg,
	})
}

func enabledProfile() *models.TrackedProfile {
	return &models.TrackedProfile{
		ID:       1,
		Platform: models.PlatformInstagram,
		Username: "testaccount",
		Enabled:  true,
	}
}

func postItems(n int) []map[string]interface{} {
	items := make([]map[string]interface{}, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, map[string]interface{}{
			"id":    fmt.Sprintf("post-%d", i),
			"likes": int64(10 * (i + 1)),
		})
	}
	return items
}

func TestSyncProfile(t *testing.T) {
	store := newFakeStore()
	source := &fakeSource{
		platform:   models.PlatformInstagram,
		profileDoc: map[string]interface{}{"followers": int64(5000)},
	}
	s := newTestSyncer(store, source)
	profile := enabledProfile()

	if err := s.SyncProfile(context.Background(), profile); err != nil {
		t.Fatalf("SyncProfile() error = %v", err)
	}
	if profile.Followers != 5000 {
		t.Errorf("Followers = %d, want 5000", profile.Followers)
	}
	if profile.SyncedAt.IsZero() {
		t.Error("SyncedAt not set")
	}
	if !profile.RawJSON.Valid {
		t.Error("raw payload not stored")
	}
	if len(store.stats) != 1 {
		t.Errorf("snapshots = %d, want 1", len(store.stats))
	}
}

func TestSyncProfileSnapshotOncePerDay(t *testing.T) {
	store := newFakeStore()
	source := &fakeSource{
		platform:   models.PlatformInstagram,
		profileDoc: map[string]interface{}{"followers": int64(5000)},
	}
	s := newTestSyncer(store, source)
	profile := enabledProfile()

	for i := 0; i < 3; i++ {
		if err := s.SyncProfile(context.Background(), profile); err != nil {
			t.Fatalf("SyncProfile() error = %v", err)
		}
	}
	if len(store.stats) != 1 {
		t.Errorf("snapshots = %d, want 1 per calendar date", len(store.stats))
	}
}

func TestSyncProfilePermanentErrorDisables(t *testing.T) {
	store := newFakeStore()
	source := &fakeSource{
		platform:   models.PlatformInstagram,
		profileErr: errors.New("User not found (404)"),
	}
	s := newTestSyncer(store, source)
	profile := enabledProfile()
	store.profiles[profile.Username] = profile

	if err := s.SyncProfile(context.Background(), profile); err == nil {
		t.Fatal("SyncProfile() expected error")
	}
	if profile.Enabled {
		t.Error("Enabled = true, want disabled after permanent failure")
	}
	if store.saveCalls == 0 {
		t.Error("disabled state never persisted")
	}
}

func TestSyncProfileTemporaryErrorKeepsEnabled(t *testing.T) {
	store := newFakeStore()
	source := &fakeSource{
		platform:   models.PlatformInstagram,
		profileErr: errors.New("Connection timed out"),
	}
	s := newTestSyncer(store, source)
	profile := enabledProfile()

	if err := s.SyncProfile(context.Background(), profile); err == nil {
		t.Fatal("SyncProfile() expected error")
	}
	if !profile.Enabled {
		t.Error("Enabled = false, temporary failures must not disable")
	}
}

func TestSyncProfileUnknownErrorKeepsEnabled(t *testing.T) {
	store := newFakeStore()
	source := &fakeSource{
		platform:   models.PlatformInstagram,
		profileErr: errors.New("weird new upstream field"),
	}
	s := newTestSyncer(store, source)
	profile := enabledProfile()

	if err := s.SyncProfile(context.Background(), profile); err == nil {
		t.Fatal("SyncProfile() expected error")
	}
	if !profile.Enabled {
		t.Error("Enabled = false, unknown failures must never disable")
	}
}

func TestSyncProfileStructuralParseErrorKeepsEnabled(t *testing.T) {
	store := newFakeStore()
	// A missing user container without a not-found signal is ambiguous: it
	// usually means the upstream payload format drifted, not that the
	// account is gone.
	source := &fakeSource{
		platform:   models.PlatformInstagram,
		profileErr: &platform.ParseError{Message: "invalid response structure: missing user data"},
	}
	s := newTestSyncer(store, source)
	profile := enabledProfile()
	store.profiles[profile.Username] = profile

	if err := s.SyncProfile(context.Background(), profile); err == nil {
		t.Fatal("SyncProfile() expected error")
	}
	if !profile.Enabled {
		t.Error("Enabled = false, structural parse failures must never disable")
	}
}

func TestSyncPostsCreatesThenUpdates(t *testing.T) {
	store := newFakeStore()
	store.agg = &db.PostAggregates{TotalPosts: 3, TotalCount: 60}
	source := &fakeSource{
		platform: models.PlatformInstagram,
		items:    postItems(3),
	}
	s := newTestSyncer(store, source)
	profile := enabledProfile()

	first, err := s.SyncPosts(context.Background(), profile)
	if err != nil {
		t.Fatalf("SyncPosts() error = %v", err)
	}
	if first.Created != 3 || first.Updated != 0 {
		t.Errorf("first run = {Created: %d, Updated: %d}, want {3, 0}", first.Created, first.Updated)
	}

	// Same batch again: upsert is keyed on the platform post id, so the
	// second run updates in place and creates nothing.
	second, err := s.SyncPosts(context.Background(), profile)
	if err != nil {
		t.Fatalf("SyncPosts() error = %v", err)
	}
	if second.Created != 0 || second.Updated != 3 {
		t.Errorf("second run = {Created: %d, Updated: %d}, want {0, 3}", second.Created, second.Updated)
	}
	if len(store.posts) != 3 {
		t.Errorf("stored posts = %d, want 3", len(store.posts))
	}
	if profile.TotalPosts != 3 || profile.TotalInteractions != 60 {
		t.Errorf("windowed counters = {posts: %d, interactions: %d}, want recomputed after batch",
			profile.TotalPosts, profile.TotalInteractions)
	}
}

func TestSyncPostsPartialFailure(t *testing.T) {
	items := postItems(30)
	items[16] = map[string]interface{}{"id": "post-16", "malformed": true}

	store := newFakeStore()
	source := &fakeSource{platform: models.PlatformInstagram, items: items}
	s := newTestSyncer(store, source)

	summary, err := s.SyncPosts(context.Background(), enabledProfile())
	if err != nil {
		t.Fatalf("SyncPosts() error = %v", err)
	}
	if summary.Created != 29 {
		t.Errorf("Created = %d, want 29 (one malformed item skipped)", summary.Created)
	}
	if len(summary.Errors) != 1 {
		t.Fatalf("Errors = %v, want exactly one entry", summary.Errors)
	}
	if want := "post post-16:"; summary.Errors[0][:len(want)] != want {
		t.Errorf("error entry = %q, want prefix %q", summary.Errors[0], want)
	}
}

func TestSyncPostsRecordsCollaborations(t *testing.T) {
	store := newFakeStore()
	other := &models.TrackedProfile{ID: 2, Username: "partner", Platform: models.PlatformInstagram, Enabled: true}
	store.profiles[other.Username] = other

	items := []map[string]interface{}{
		{
			"id":        "collab-post",
			"likes":     int64(5),
			"coauthors": []string{"partner", "testaccount", "nobody-we-track"},
		},
	}
	source := &fakeSource{platform: models.PlatformInstagram, items: items}
	s := newTestSyncer(store, source)

	if _, err := s.SyncPosts(context.Background(), enabledProfile()); err != nil {
		t.Fatalf("SyncPosts() error = %v", err)
	}
	if len(store.collabs) != 1 {
		t.Fatalf("collabs = %d, want 1 (self and unknown usernames skipped)", len(store.collabs))
	}
	collab := store.collabs[0]
	if collab.CollaboratorID != 1 || collab.CollaboratedID != 2 {
		t.Errorf("edge = %d -> %d, want 1 -> 2", collab.CollaboratorID, collab.CollaboratedID)
	}
}

func TestRecomputeStats(t *testing.T) {
	store := newFakeStore()
	store.agg = &db.PostAggregates{
		TotalPosts:    10,
		TotalVideos:   4,
		TotalLikes:    40000,
		TotalComments: 10000,
		TotalCount:    50000,
	}
	source := &fakeSource{platform: models.PlatformInstagram}
	s := newTestSyncer(store, source)

	profile := enabledProfile()
	profile.Followers = 1000000

	if err := s.RecomputeStats(context.Background(), profile); err != nil {
		t.Fatalf("RecomputeStats() error = %v", err)
	}
	if profile.TotalPosts != 10 || profile.TotalVideos != 4 {
		t.Errorf("windowed counters = {posts: %d, videos: %d}", profile.TotalPosts, profile.TotalVideos)
	}
	if profile.TotalInteractions != 50000 {
		t.Errorf("TotalInteractions = %d, want 50000", profile.TotalInteractions)
	}
	// 50000 / 1000000 * 100 = 5
	if profile.EngagementRate != 5 {
		t.Errorf("EngagementRate = %d, want 5", profile.EngagementRate)
	}
	if profile.EstimatedReach <= 0 {
		t.Error("EstimatedReach not computed")
	}
	if profile.EstimatedReach > profile.Followers/2 {
		t.Errorf("EstimatedReach = %d exceeds the half-follower cap", profile.EstimatedReach)
	}
	if store.saveCalls == 0 {
		t.Error("recomputed stats never persisted")
	}
}

// blockingSource parks FetchPostItems until released so a test can observe
// what runs while a sync operation is in flight
type blockingSource struct {
	fakeSource
	fetchStarted chan struct{}
	release      chan struct{}
}

func (b *blockingSource) FetchPostItems(ctx context.Context, p *models.TrackedProfile) ([]map[string]interface{}, error) {
	b.fetchStarted <- struct{}{}
	<-b.release
	return b.items, nil
}

func TestSyncOpsSerializePerProfile(t *testing.T) {
	store := newFakeStore()
	source := &blockingSource{
		fakeSource:   fakeSource{platform: models.PlatformInstagram, items: postItems(1)},
		fetchStarted: make(chan struct{}),
		release:      make(chan struct{}),
	}
	s := newTestSyncer(store, source)
	profile := enabledProfile()
	store.profiles[profile.Username] = profile

	postsDone := make(chan struct{})
	go func() {
		defer close(postsDone)
		if _, err := s.SyncPosts(context.Background(), profile); err != nil {
			t.Errorf("SyncPosts() error = %v", err)
		}
	}()
	// SyncPosts now holds the profile's mutex inside the fetch
	<-source.fetchStarted

	statsDone := make(chan struct{})
	go func() {
		defer close(statsDone)
		if err := s.RecomputeStats(context.Background(), profile); err != nil {
			t.Errorf("RecomputeStats() error = %v", err)
		}
	}()

	select {
	case <-statsDone:
		t.Fatal("RecomputeStats ran while SyncPosts held the profile lock")
	case <-time.After(20 * time.Millisecond):
	}

	close(source.release)
	<-postsDone
	<-statsDone
}

func TestRecomputeStatsReloadsStoredProfile(t *testing.T) {
	store := newFakeStore()
	store.agg = &db.PostAggregates{TotalPosts: 10, TotalCount: 500}
	current := enabledProfile()
	current.Followers = 10000
	store.profiles[current.Username] = current

	// A cycle listed this profile before another operation bumped its
	// follower count; the stored row must win over the stale instance.
	stale := enabledProfile()
	s := newTestSyncer(store, &fakeSource{platform: models.PlatformInstagram})

	if err := s.RecomputeStats(context.Background(), stale); err != nil {
		t.Fatalf("RecomputeStats() error = %v", err)
	}
	if stale.Followers != 10000 {
		t.Errorf("Followers = %d, want 10000 reloaded from the store", stale.Followers)
	}
	// 500 / 10000 * 100 = 5
	if stale.EngagementRate != 5 {
		t.Errorf("EngagementRate = %d, want 5 computed from stored followers", stale.EngagementRate)
	}
	if saved := store.profiles[current.Username]; saved.Followers != 10000 {
		t.Errorf("stored Followers = %d, want 10000 preserved", saved.Followers)
	}
}

func TestSyncAllProfilesContinuesPastFailures(t *testing.T) {
	store := newFakeStore()
	good := enabledProfile()
	bad := &models.TrackedProfile{ID: 2, Username: "gone", Platform: models.PlatformInstagram, Enabled: true}
	store.profiles[good.Username] = good
	store.profiles[bad.Username] = bad

	// Every fetch fails permanently; the batch must still visit both
	// profiles and disable each one.
	source := &fakeSource{
		platform:   models.PlatformInstagram,
		profileErr: errors.New("User not found (404)"),
	}
	s := newTestSyncer(store, source)

	s.SyncAllProfiles(context.Background())
	if good.Enabled || bad.Enabled {
		t.Errorf("enabled = {%v, %v}, want both disabled", good.Enabled, bad.Enabled)
	}
}
