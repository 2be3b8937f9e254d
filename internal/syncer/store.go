package syncer

import (
	"context"
	"time"

	"github.com/influmap/influmap/internal/db"
	"github.com/influmap/influmap/internal/models"
	"github.com/influmap/influmap/internal/transform"
)

// Source abstracts a platform data source. The platform packages provide
// concrete implementations; the syncer never knows about transports or
// payload shapes.
type Source interface {
	Platform() models.Platform
	FetchProfile(ctx context.Context, profile *models.TrackedProfile) (map[string]interface{}, error)
	FetchPostItems(ctx context.Context, profile *models.TrackedProfile) ([]map[string]interface{}, error)
	TransformProfile(doc map[string]interface{}) (*transform.ProfileAttrs, error)
	TransformPost(item map[string]interface{}) (*transform.PostAttrs, error)
	PostID(item map[string]interface{}) string
	Coauthors(item map[string]interface{}) []string
}

// ProfileStore is the persistence surface the syncer needs for profiles
type ProfileStore interface {
	GetByID(ctx context.Context, id int64) (*models.TrackedProfile, error)
	ListEnabled(ctx context.Context, platform models.Platform) ([]*models.TrackedProfile, error)
	GetByUsernames(ctx context.Context, usernames []string) ([]*models.TrackedProfile, error)
	Save(ctx context.Context, profile *models.TrackedProfile) error
}

// PostStore is the persistence surface the syncer needs for posts
type PostStore interface {
	FindOrCreate(ctx context.Context, profileID int64, platformPostID string) (*models.Post, bool, error)
	Save(ctx context.Context, post *models.Post) error
	AggregatesSince(ctx context.Context, profileID int64, since time.Time) (*db.PostAggregates, error)
}

// CollabStore records collaboration edges
type CollabStore interface {
	FindOrCreate(ctx context.Context, collab *models.Collaboration) error
}

// StatStore records daily snapshots
type StatStore interface {
	WriteSnapshot(ctx context.Context, stat *models.DailyStat) error
}

// AvatarStore mirrors profile avatars to local storage
type AvatarStore interface {
	DownloadAndAttach(ctx context.Context, srcURL, filename, placeholderURL string) (string, bool)
}
