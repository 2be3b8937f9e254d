package models

import "time"

// DailyStat is an append-only snapshot of a profile's counters for one
// calendar date, used for trend charts. Unique per (profile, date); rows for
// past dates are never mutated.
type DailyStat struct {
	ID                int64     `gorm:"primaryKey;autoIncrement;column:id"`
	ProfileID         int64     `gorm:"not null;uniqueIndex:daily_stats_ux1;column:profile_id"`
	Date              time.Time `gorm:"type:date;not null;uniqueIndex:daily_stats_ux1;column:date"`
	Followers         int64     `gorm:"not null;default:0;column:followers"`
	TotalLikes        int64     `gorm:"not null;default:0;column:total_likes"`
	TotalComments     int64     `gorm:"not null;default:0;column:total_comments"`
	TotalVideoViews   int64     `gorm:"not null;default:0;column:total_video_views"`
	TotalInteractions int64     `gorm:"not null;default:0;column:total_interactions"`
	TotalPosts        int64     `gorm:"not null;default:0;column:total_posts"`
	TotalVideos       int64     `gorm:"not null;default:0;column:total_videos"`
	EngagementRate    int64     `gorm:"not null;default:0;column:engagement_rate"`
	CreatedAt         time.Time `gorm:"not null;column:created_at"`

	Profile *TrackedProfile `gorm:"foreignKey:ProfileID;references:ID"`
}

// TableName specifies the table name for DailyStat
func (DailyStat) TableName() string {
	return "daily_stats"
}
