package models

import (
	"database/sql"
	"time"
)

// Media type values normalized across platforms
const (
	MediaImage    = "image"
	MediaVideo    = "video"
	MediaCarousel = "carousel"
	MediaUnknown  = "unknown"
)

// Post represents a single post observed on a tracked profile. The
// platform-assigned post id is the idempotency key: it is unique across the
// whole table, not just per profile.
type Post struct {
	ID             int64  `gorm:"primaryKey;autoIncrement;column:id"`
	ProfileID      int64  `gorm:"not null;index;column:profile_id"`
	PlatformPostID string `gorm:"type:varchar(64);not null;uniqueIndex:posts_ux1;column:platform_post_id"`

	// Content
	Caption     string `gorm:"type:text;not null;default:'';column:caption"`
	Media       string `gorm:"type:varchar(16);not null;default:'unknown';column:media"`
	URL         string `gorm:"type:varchar(1024);not null;default:'';column:url"`
	Shortcode   string `gorm:"type:varchar(64);not null;default:'';column:shortcode"`
	ProductType string `gorm:"type:varchar(32);not null;default:'';column:product_type"`

	// Engagement counts
	LikesCount    int64 `gorm:"not null;default:0;column:likes_count"`
	CommentsCount int64 `gorm:"not null;default:0;column:comments_count"`
	ViewsCount    int64 `gorm:"not null;default:0;column:views_count"`
	SharesCount   int64 `gorm:"not null;default:0;column:shares_count"`
	CollectsCount int64 `gorm:"not null;default:0;column:collects_count"`
	TotalCount    int64 `gorm:"not null;default:0;column:total_count"`

	// Video extras
	VideoURL      string `gorm:"type:varchar(1024);not null;default:'';column:video_url"`
	CoverURL      string `gorm:"type:varchar(1024);not null;default:'';column:cover_url"`
	VideoDuration int64  `gorm:"not null;default:0;column:video_duration"`
	CoverPath     string `gorm:"type:varchar(255);not null;default:'';column:cover_path"`

	// Music extras (TikTok)
	MusicTitle  string `gorm:"type:varchar(255);not null;default:'';column:music_title"`
	MusicAuthor string `gorm:"type:varchar(255);not null;default:'';column:music_author"`

	// Raw data
	RawJSON sql.NullString `gorm:"type:text;column:raw_json"`

	PostedAt  time.Time `gorm:"not null;index;column:posted_at"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
	UpdatedAt time.Time `gorm:"not null;column:updated_at"`

	Profile *TrackedProfile `gorm:"foreignKey:ProfileID;references:ID"`
}

// TableName specifies the table name for Post
func (Post) TableName() string {
	return "posts"
}

// SetRawData stores the raw post payload, accepting a decoded document or a
// JSON-encoded string.
func (p *Post) SetRawData(value interface{}) error {
	raw, err := encodeRawData(value)
	if err != nil {
		return err
	}
	p.RawJSON = raw
	return nil
}

// RawData decodes the stored payload
func (p *Post) RawData() (map[string]interface{}, error) {
	return decodeRawData(p.RawJSON)
}

// IsVideo reports whether the post is video content
func (p *Post) IsVideo() bool {
	return p.Media == MediaVideo
}
