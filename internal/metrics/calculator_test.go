package metrics

import (
	"testing"

	"github.com/influmap/influmap/internal/models"
	"github.com/influmap/influmap/pkg/config"
)

func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
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
}

func TestZeroFollowers(t *testing.T) {
	calc := NewCalculator(testConfig())
	s := Snapshot{
		Followers:         0,
		TotalPosts:        10,
		TotalVideos:       5,
		TotalInteractions: 5000,
		WindowTotalCount:  5000,
		EngagementRate:    5,
	}

	if got := calc.EngagementRate(s.WindowTotalCount, s.Followers); got != 0 {
		t.Errorf("EngagementRate with zero followers = %d, want 0", got)
	}
	if got := calc.EstimatedReach(s); got != 0 {
		t.Errorf("EstimatedReach with zero followers = %d, want 0", got)
	}
	if got := calc.ReachPercentage(s); got != 0 {
		t.Errorf("ReachPercentage with zero followers = %f, want 0", got)
	}
}

func TestZeroPosts(t *testing.T) {
	calc := NewCalculator(testConfig())

	if got := calc.MedianInteractions(1000, 0); got != 0 {
		t.Errorf("MedianInteractions with zero posts = %d, want 0", got)
	}

	s := Snapshot{Followers: 10000, TotalPosts: 0}
	if got := calc.EstimatedReach(s); got != 0 {
		t.Errorf("EstimatedReach with zero posts = %d, want 0", got)
	}
}

func TestEngagementRate(t *testing.T) {
	calc := NewCalculator(testConfig())

	tests := []struct {
		name      string
		total     int64
		followers int64
		expected  int64
	}{
		{"three percent", 300, 10000, 3},
		{"rounds up", 250, 10000, 3},
		{"rounds down", 240, 10000, 2},
		{"over one hundred", 25000, 10000, 250},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := calc.EngagementRate(tt.total, tt.followers); got != tt.expected {
				t.Errorf("EngagementRate(%d, %d) = %d, want %d", tt.total, tt.followers, got, tt.expected)
			}
		})
	}
}

func TestMedianInteractions(t *testing.T) {
	calc := NewCalculator(testConfig())

	if got := calc.MedianInteractions(900, 30); got != 30 {
		t.Errorf("MedianInteractions(900, 30) = %d, want 30", got)
	}
	if got := calc.MedianInteractions(7, 2); got != 3 {
		t.Errorf("MedianInteractions(7, 2) = %d, want 3 (integer division)", got)
	}
}

// Reach never exceeds half the follower count, whatever the multipliers
func TestReachCap(t *testing.T) {
	calc := NewCalculator(testConfig())

	snapshots := []Snapshot{
		{
			// Every bonus active and an absurd interaction count
			Followers:         1000,
			TotalPosts:        10,
			TotalVideos:       10,
			TotalInteractions: 100000000,
			EngagementRate:    90,
			IsVerified:        true,
			IsBusiness:        true,
			Category:          models.CategoryMemes,
		},
		{
			Followers:         50000,
			TotalPosts:        25,
			TotalVideos:       20,
			TotalInteractions: 2000000,
			EngagementRate:    40,
			IsVerified:        true,
			Category:          models.CategoryMedia,
		},
		{
			Followers:      100,
			TotalPosts:     1,
			EngagementRate: 1,
		},
	}

	for _, s := range snapshots {
		reach := calc.EstimatedReach(s)
		maxReach := int64(float64(s.Followers) * 0.5)
		if reach > maxReach {
			t.Errorf("EstimatedReach = %d exceeds cap %d for followers=%d", reach, maxReach, s.Followers)
		}
		if pct := calc.ReachPercentage(s); pct > 50.0 {
			t.Errorf("ReachPercentage = %f exceeds 50%%", pct)
		}
	}
}

func TestEngagementMultiplierBounds(t *testing.T) {
	calc := NewCalculator(testConfig())

	tests := []struct {
		name     string
		rate     float64
		expected float64
	}{
		{"zero engagement floors at 0.5", 0, 0.5},
		{"benchmark engagement is 1.0", 3.0, 1.0},
		{"high engagement", 8.0, 1.5},
		{"ceiling at 2.0", 50.0, 2.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := calc.engagementMultiplier(tt.rate); got != tt.expected {
				t.Errorf("engagementMultiplier(%f) = %f, want %f", tt.rate, got, tt.expected)
			}
		})
	}
}

func TestContentTypeMultiplier(t *testing.T) {
	calc := NewCalculator(testConfig())

	tests := []struct {
		name     string
		posts    int64
		videos   int64
		expected float64
	}{
		{"no videos", 10, 0, 1.0},
		{"half videos", 10, 5, 1.25},
		{"all videos", 10, 10, 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Snapshot{TotalPosts: tt.posts, TotalVideos: tt.videos}
			if got := calc.contentTypeMultiplier(s); got != tt.expected {
				t.Errorf("contentTypeMultiplier = %f, want %f", got, tt.expected)
			}
		})
	}
}

func TestAccountQualityMultiplier(t *testing.T) {
	calc := NewCalculator(testConfig())

	tests := []struct {
		name     string
		snapshot Snapshot
		expected float64
	}{
		{"plain account", Snapshot{}, 1.0},
		{"verified", Snapshot{IsVerified: true}, 1.2},
		{"business", Snapshot{IsBusiness: true}, 1.1},
		{"meme account", Snapshot{Category: models.CategoryMemes}, 1.3},
		{"brand account", Snapshot{Category: models.CategoryBrand}, 0.9},
		{"state media", Snapshot{Category: models.CategoryState}, 1.15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.accountQualityMultiplier(tt.snapshot)
			if diff := got - tt.expected; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("accountQualityMultiplier = %f, want %f", got, tt.expected)
			}
		})
	}
}

func TestInteractionRate(t *testing.T) {
	calc := NewCalculator(testConfig())

	videoHeavy := Snapshot{TotalPosts: 10, TotalVideos: 5}
	if got := calc.interactionRate(videoHeavy); got != 0.12 {
		t.Errorf("interactionRate video-heavy = %f, want 0.12", got)
	}

	imageHeavy := Snapshot{TotalPosts: 10, TotalVideos: 2}
	if got := calc.interactionRate(imageHeavy); got != 0.10 {
		t.Errorf("interactionRate image-heavy = %f, want 0.10", got)
	}

	// Exactly at the threshold stays at the default rate
	atThreshold := Snapshot{TotalPosts: 10, TotalVideos: 4}
	if got := calc.interactionRate(atThreshold); got != 0.10 {
		t.Errorf("interactionRate at threshold = %f, want 0.10", got)
	}
}
