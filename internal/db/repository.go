package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/influmap/influmap/internal/models"
)

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ProfileRepository provides tracked-profile database operations
type ProfileRepository struct {
	*Repository
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(repo *Repository) *ProfileRepository {
	return &ProfileRepository{Repository: repo}
}

// GetByID retrieves a profile by ID
func (r *ProfileRepository) GetByID(ctx context.Context, id int64) (*models.TrackedProfile, error) {
	var profile models.TrackedProfile
	if err := r.db.WithContext(ctx).First(&profile, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// GetByUsername retrieves a profile by username
func (r *ProfileRepository) GetByUsername(ctx context.Context, username string) (*models.TrackedProfile, error) {
	var profile models.TrackedProfile
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// ListEnabled retrieves enabled profiles for a platform, ordered by follower
// count. Disabled profiles are never targeted by scheduled sync.
func (r *ProfileRepository) ListEnabled(ctx context.Context, platform models.Platform) ([]*models.TrackedProfile, error) {
	var profiles []*models.TrackedProfile
	q := r.db.WithContext(ctx).Where("enabled = ?", true)
	if platform != "" {
		q = q.Where("platform = ?", platform)
	}
	if err := q.Order("followers DESC").Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// List retrieves profiles with an offset/limit page
func (r *ProfileRepository) List(ctx context.Context, offset, limit int) ([]*models.TrackedProfile, error) {
	var profiles []*models.TrackedProfile
	if err := r.db.WithContext(ctx).Order("followers DESC").Offset(offset).Limit(limit).Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// GetByUsernames retrieves multiple profiles by usernames
func (r *ProfileRepository) GetByUsernames(ctx context.Context, usernames []string) ([]*models.TrackedProfile, error) {
	var profiles []*models.TrackedProfile
	if err := r.db.WithContext(ctx).Where("username IN ?", usernames).Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// Create creates a new profile
func (r *ProfileRepository) Create(ctx context.Context, profile *models.TrackedProfile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

// Save persists all fields of a profile
func (r *ProfileRepository) Save(ctx context.Context, profile *models.TrackedProfile) error {
	return r.db.WithContext(ctx).Save(profile).Error
}

// PostRepository provides post database operations
type PostRepository struct {
	*Repository
}

// NewPostRepository creates a new post repository
func NewPostRepository(repo *Repository) *PostRepository {
	return &PostRepository{Repository: repo}
}

// GetByPlatformPostID retrieves a post by its platform-assigned id
func (r *PostRepository) GetByPlatformPostID(ctx context.Context, platformPostID string) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Where("platform_post_id = ?", platformPostID).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// FindOrCreate looks up a post by platform post id, creating a shell record
// bound to the profile when absent. The returned bool is true when the post
// already existed.
func (r *PostRepository) FindOrCreate(ctx context.Context, profileID int64, platformPostID string) (*models.Post, bool, error) {
	existing, err := r.GetByPlatformPostID(ctx, platformPostID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, true, nil
	}

	post := &models.Post{
		ProfileID:      profileID,
		PlatformPostID: platformPostID,
	}
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return nil, false, err
	}
	return post, false, nil
}

// Save persists all fields of a post
func (r *PostRepository) Save(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Save(post).Error
}

// ListByProfile retrieves recent posts for a profile
func (r *PostRepository) ListByProfile(ctx context.Context, profileID int64, limit int) ([]*models.Post, error) {
	var posts []*models.Post
	if err := r.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Order("posted_at DESC").
		Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// ListByProfileSince retrieves a profile's posts newer than the given time
func (r *PostRepository) ListByProfileSince(ctx context.Context, profileID int64, since time.Time) ([]*models.Post, error) {
	var posts []*models.Post
	if err := r.db.WithContext(ctx).
		Where("profile_id = ? AND posted_at >= ?", profileID, since).
		Order("posted_at DESC").
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// PostAggregates holds summed counters over a window of posts
type PostAggregates struct {
	TotalPosts      int64
	TotalVideos     int64
	TotalLikes      int64
	TotalComments   int64
	TotalVideoViews int64
	TotalCount      int64
}

// AggregatesSince sums post counters for a profile over a window
func (r *PostRepository) AggregatesSince(ctx context.Context, profileID int64, since time.Time) (*PostAggregates, error) {
	var agg PostAggregates
	err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Select(`COUNT(*) AS total_posts,
			COALESCE(SUM(CASE WHEN media = ? THEN 1 ELSE 0 END), 0) AS total_videos,
			COALESCE(SUM(likes_count), 0) AS total_likes,
			COALESCE(SUM(comments_count), 0) AS total_comments,
			COALESCE(SUM(views_count), 0) AS total_video_views,
			COALESCE(SUM(total_count), 0) AS total_count`, models.MediaVideo).
		Where("profile_id = ? AND posted_at >= ?", profileID, since).
		Scan(&agg).Error
	if err != nil {
		return nil, err
	}
	return &agg, nil
}

// CollaborationRepository provides collaboration database operations
type CollaborationRepository struct {
	*Repository
}

// NewCollaborationRepository creates a new collaboration repository
func NewCollaborationRepository(repo *Repository) *CollaborationRepository {
	return &CollaborationRepository{Repository: repo}
}

// FindOrCreate records a collaboration edge once per (post, pair)
func (r *CollaborationRepository) FindOrCreate(ctx context.Context, collab *models.Collaboration) error {
	var existing models.Collaboration
	err := r.db.WithContext(ctx).
		Where("post_id = ? AND collaborator_id = ? AND collaborated_id = ?",
			collab.PostID, collab.CollaboratorID, collab.CollaboratedID).
		First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return r.db.WithContext(ctx).Create(collab).Error
}

// ListByCollaborator retrieves recent collaborations originated by a profile
func (r *CollaborationRepository) ListByCollaborator(ctx context.Context, profileID int64, limit int) ([]*models.Collaboration, error) {
	var collabs []*models.Collaboration
	if err := r.db.WithContext(ctx).
		Where("collaborator_id = ?", profileID).
		Order("posted_at DESC").
		Limit(limit).
		Find(&collabs).Error; err != nil {
		return nil, err
	}
	return collabs, nil
}

// StatRepository provides daily-stat database operations
type StatRepository struct {
	*Repository
}

// NewStatRepository creates a new stat repository
func NewStatRepository(repo *Repository) *StatRepository {
	return &StatRepository{Repository: repo}
}

// WriteSnapshot records a snapshot for the stat's (profile, date). A snapshot
// already written for that date is left untouched: rows are append-only.
func (r *StatRepository) WriteSnapshot(ctx context.Context, stat *models.DailyStat) error {
	var existing models.DailyStat
	err := r.db.WithContext(ctx).
		Where("profile_id = ? AND date = ?", stat.ProfileID, stat.Date).
		First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return r.db.WithContext(ctx).Create(stat).Error
}

// ListByProfile retrieves a profile's snapshots in a date range
func (r *StatRepository) ListByProfile(ctx context.Context, profileID int64, from, to time.Time) ([]*models.DailyStat, error) {
	var stats []*models.DailyStat
	if err := r.db.WithContext(ctx).
		Where("profile_id = ? AND date BETWEEN ? AND ?", profileID, from, to).
		Order("date ASC").
		Find(&stats).Error; err != nil {
		return nil, err
	}
	return stats, nil
}
