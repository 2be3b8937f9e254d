package models

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Platform identifies the social network a profile is tracked on
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
)

// ProfileCategory classifies a tracked account for reach modelling
type ProfileCategory string

const (
	CategoryNone  ProfileCategory = ""
	CategoryMan   ProfileCategory = "man"
	CategoryWoman ProfileCategory = "woman"
	CategoryBrand ProfileCategory = "brand"
	CategoryMedia ProfileCategory = "media"
	CategoryState ProfileCategory = "state"
	CategoryMemes ProfileCategory = "memes"
	CategoryShow  ProfileCategory = "show"
)

// TrackedProfile represents a social account tracked by the ingestion engine
type TrackedProfile struct {
	ID       int64    `gorm:"primaryKey;autoIncrement;column:id"`
	Platform Platform `gorm:"type:varchar(16);not null;default:'instagram';index;column:platform"`
	Username string   `gorm:"type:varchar(30);uniqueIndex:tracked_profiles_ux1;column:username"`

	// Platform-assigned identifiers
	UID    string `gorm:"type:varchar(64);not null;default:'';column:uid"`
	SecUID string `gorm:"type:varchar(128);not null;default:'';column:sec_uid"`

	// Profile fields
	FullName  string `gorm:"type:varchar(100);not null;default:'';column:full_name"`
	Biography string `gorm:"type:varchar(500);not null;default:'';column:biography"`

	// Counters
	Followers int64 `gorm:"not null;default:0;column:followers"`
	Following int64 `gorm:"not null;default:0;column:following"`
	Hearts    int64 `gorm:"not null;default:0;column:hearts"`
	Videos    int64 `gorm:"not null;default:0;column:videos"`

	// Status flags
	IsPrivate  bool `gorm:"not null;default:false;column:is_private"`
	IsVerified bool `gorm:"not null;default:false;column:is_verified"`
	IsBusiness bool `gorm:"not null;default:false;column:is_business"`
	Enabled    bool `gorm:"not null;default:true;index;column:enabled"`

	// Classification
	CategoryName string          `gorm:"type:varchar(100);not null;default:'';column:category_name"`
	Category     ProfileCategory `gorm:"type:varchar(16);not null;default:'';column:category"`
	Country      string          `gorm:"type:varchar(60);not null;default:'';column:country"`

	// Avatar
	AvatarURL   string `gorm:"type:varchar(1024);not null;default:'';column:avatar_url"`
	AvatarURLHD string `gorm:"type:varchar(1024);not null;default:'';column:avatar_url_hd"`
	AvatarPath  string `gorm:"type:varchar(255);not null;default:'';column:avatar_path"`

	// Rolling aggregates over the stats window
	TotalPosts        int64   `gorm:"not null;default:0;column:total_posts"`
	TotalVideos       int64   `gorm:"not null;default:0;column:total_videos"`
	TotalLikes        int64   `gorm:"not null;default:0;column:total_likes"`
	TotalComments     int64   `gorm:"not null;default:0;column:total_comments"`
	TotalVideoViews   int64   `gorm:"not null;default:0;column:total_video_views"`
	TotalInteractions int64   `gorm:"not null;default:0;column:total_interactions"`
	EngagementRate    int64   `gorm:"not null;default:0;column:engagement_rate"`
	EstimatedReach    int64   `gorm:"not null;default:0;column:estimated_reach"`
	ReachPercentage   float64 `gorm:"type:float(6);not null;default:0;column:reach_percentage"`

	// Raw data
	RawJSON sql.NullString `gorm:"type:text;column:raw_json"`

	CreatedAt time.Time `gorm:"not null;column:created_at"`
	UpdatedAt time.Time `gorm:"not null;column:updated_at"`
	SyncedAt  time.Time `gorm:"not null;default:'1970-01-01 00:00:00';column:synced_at"`
}

// TableName specifies the table name for TrackedProfile
func (TrackedProfile) TableName() string {
	return "tracked_profiles"
}

// SetRawData stores the last-fetched payload. It accepts either a decoded
// document or a JSON-encoded string (admin forms submit strings, the sync
// pipeline submits maps).
func (p *TrackedProfile) SetRawData(value interface{}) error {
	raw, err := encodeRawData(value)
	if err != nil {
		return err
	}
	p.RawJSON = raw
	return nil
}

// RawData decodes the stored payload, returning an empty document when none
// has been stored yet.
func (p *TrackedProfile) RawData() (map[string]interface{}, error) {
	return decodeRawData(p.RawJSON)
}

// VideoRatio returns the fraction of windowed posts that are videos
func (p *TrackedProfile) VideoRatio() float64 {
	if p.TotalPosts == 0 {
		return 0
	}
	return float64(p.TotalVideos) / float64(p.TotalPosts)
}

func encodeRawData(value interface{}) (sql.NullString, error) {
	switch v := value.(type) {
	case nil:
		return sql.NullString{}, nil
	case map[string]interface{}:
		encoded, err := json.Marshal(v)
		if err != nil {
			return sql.NullString{}, fmt.Errorf("failed to encode raw data: %w", err)
		}
		return sql.NullString{String: string(encoded), Valid: true}, nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return sql.NullString{}, nil
		}
		var doc map[string]interface{}
		if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
			return sql.NullString{}, fmt.Errorf("failed to parse raw data JSON: %w", err)
		}
		return sql.NullString{String: trimmed, Valid: true}, nil
	default:
		return sql.NullString{}, fmt.Errorf("unsupported raw data type: %T", value)
	}
}

func decodeRawData(raw sql.NullString) (map[string]interface{}, error) {
	if !raw.Valid || raw.String == "" {
		return map[string]interface{}{}, nil
	}
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(raw.String), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode raw data: %w", err)
	}
	return doc, nil
}
