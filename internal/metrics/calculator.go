package metrics

import (
	"math"

	"github.com/influmap/influmap/internal/models"
	"github.com/influmap/influmap/pkg/config"
)

// Snapshot is the windowed counter set the calculator derives metrics from
type Snapshot struct {
	Followers         int64
	TotalPosts        int64
	TotalVideos       int64
	TotalInteractions int64
	WindowTotalCount  int64
	EngagementRate    int64
	IsVerified        bool
	IsBusiness        bool
	Category          models.ProfileCategory
}

// Calculator derives engagement, median and reach figures from accumulated
// counters. All functions are pure; tuning values come from configuration.
type Calculator struct {
	cfg *config.MetricsConfig
}

// NewCalculator creates a metrics calculator
func NewCalculator(cfg *config.MetricsConfig) *Calculator {
	return &Calculator{cfg: cfg}
}

// EngagementRate is the windowed interaction total over followers, as a
// rounded percentage. Zero followers yields 0; callers must not treat that
// as a valid rate.
func (c *Calculator) EngagementRate(windowTotalCount, followers int64) int64 {
	if followers == 0 {
		return 0
	}
	return int64(math.Round(float64(windowTotalCount) / float64(followers) * 100))
}

// MedianInteractions approximates interactions per post over the window.
// A zero post count returns 0 rather than dividing.
func (c *Calculator) MedianInteractions(totalInteractions, totalPosts int64) int64 {
	if totalPosts == 0 {
		return 0
	}
	return totalInteractions / totalPosts
}

// EstimatedReach blends a follower-based and an interaction-based estimator
// 60/40 and caps the result at half the follower count. The cap is a sanity
// bound: multiplier compounding must never produce an implausible figure.
func (c *Calculator) EstimatedReach(s Snapshot) int64 {
	if s.Followers == 0 || s.TotalPosts == 0 {
		return 0
	}

	followerBased := c.followerBasedReach(s)
	interactionBased := c.interactionBasedReach(s)

	weighted := followerBased*c.cfg.FollowerWeight + interactionBased*c.cfg.InteractionWeight
	maxReach := float64(s.Followers) * c.cfg.MaxReachRatio

	return int64(math.Round(math.Min(weighted, maxReach)))
}

// ReachPercentage expresses estimated reach as a percentage of followers,
// rounded to two decimals. Zero followers yields 0.
func (c *Calculator) ReachPercentage(s Snapshot) float64 {
	if s.Followers == 0 {
		return 0
	}
	reach := c.EstimatedReach(s)
	return math.Round(float64(reach)/float64(s.Followers)*100*100) / 100
}

func (c *Calculator) followerBasedReach(s Snapshot) float64 {
	reach := float64(s.Followers) * c.cfg.BaseReachPct
	reach *= c.engagementMultiplier(float64(s.EngagementRate))
	reach *= c.contentTypeMultiplier(s)
	reach *= c.accountQualityMultiplier(s)
	return reach
}

func (c *Calculator) interactionBasedReach(s Snapshot) float64 {
	if s.TotalPosts == 0 {
		return 0
	}
	median := c.MedianInteractions(s.TotalInteractions, s.TotalPosts)
	return float64(median) / c.interactionRate(s)
}

// engagementMultiplier scales 0.5-2.0 around the engagement benchmark
func (c *Calculator) engagementMultiplier(actual float64) float64 {
	benchmark := c.cfg.EngagementBenchmark
	if actual >= benchmark {
		return math.Min(1.0+(actual-benchmark)/10.0, 2.0)
	}
	return math.Min(0.5+(actual/benchmark)*0.5, 1.0)
}

// contentTypeMultiplier scales 1.0-1.5 with the fraction of video posts
func (c *Calculator) contentTypeMultiplier(s Snapshot) float64 {
	if s.TotalPosts == 0 {
		return 1.0
	}
	videoRatio := float64(s.TotalVideos) / float64(s.TotalPosts)
	return 1.0 + videoRatio*0.5
}

// accountQualityMultiplier applies verification, business and category bonuses
func (c *Calculator) accountQualityMultiplier(s Snapshot) float64 {
	multiplier := 1.0
	if s.IsVerified {
		multiplier *= c.cfg.VerifiedMultiplier
	}
	if s.IsBusiness {
		multiplier *= c.cfg.BusinessMultiplier
	}
	switch s.Category {
	case models.CategoryMedia, models.CategoryState:
		multiplier *= c.cfg.MediaMultiplier
	case models.CategoryMemes:
		multiplier *= c.cfg.MemeMultiplier
	case models.CategoryBrand:
		multiplier *= c.cfg.BrandMultiplier
	}
	return multiplier
}

// interactionRate is the assumed fraction of reached viewers who interact;
// video-heavy accounts interact at a higher rate
func (c *Calculator) interactionRate(s Snapshot) float64 {
	if s.TotalPosts == 0 {
		return c.cfg.DefaultInteractionRate
	}
	videoRatio := float64(s.TotalVideos) / float64(s.TotalPosts)
	if videoRatio > c.cfg.HighVideoRatio {
		return c.cfg.VideoInteractionRate
	}
	return c.cfg.DefaultInteractionRate
}
