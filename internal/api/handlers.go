package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/influmap/influmap/internal/cache"
	"github.com/influmap/influmap/internal/models"
	"github.com/influmap/influmap/internal/platform"
	"github.com/influmap/influmap/internal/transform"
)

const (
	defaultPostLimit = 30
	maxPostLimit     = 100
	defaultStatDays  = 30
	profileCacheTTL  = 5 * time.Minute
)

func (r *Router) healthHandler(c *gin.Context) {
	status := gin.H{"status": "ok"}
	code := http.StatusOK

	if err := r.db.Health(c.Request.Context()); err != nil {
		status["status"] = "degraded"
		status["database"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	if err := r.cache.Health(c.Request.Context()); err != nil && err != cache.ErrCacheDisabled {
		status["cache"] = err.Error()
	}

	c.JSON(code, status)
}

func (r *Router) listProfiles(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	profiles, err := r.profiles.List(c.Request.Context(), offset, limit)
	if err != nil {
		r.fail(c, http.StatusInternalServerError, "failed to list profiles", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profiles": profiles})
}

func (r *Router) getProfile(c *gin.Context) {
	username := c.Param("username")

	if cached, err := r.cache.Get(cache.ProfileKey(username)); err == nil {
		c.Data(http.StatusOK, "application/json", []byte(cached))
		return
	}

	profile, err := r.profiles.GetByUsername(c.Request.Context(), username)
	if err != nil {
		r.fail(c, http.StatusInternalServerError, "failed to load profile", err)
		return
	}
	if profile == nil {
		c.JSON(http.StatusNotFound, NewError(http.StatusNotFound, "profile not found"))
		return
	}

	if encoded, err := json.Marshal(profile); err == nil {
		if err := r.cache.Set(cache.ProfileKey(username), string(encoded), profileCacheTTL); err != nil && err != cache.ErrCacheDisabled {
			r.logger.Warn("Failed to cache profile", zap.String("username", username), zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, profile)
}

func (r *Router) listPosts(c *gin.Context) {
	profile, ok := r.resolveProfile(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPostLimit)))
	if limit <= 0 || limit > maxPostLimit {
		limit = defaultPostLimit
	}

	posts, err := r.posts.ListByProfile(c.Request.Context(), profile.ID, limit)
	if err != nil {
		r.fail(c, http.StatusInternalServerError, "failed to list posts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

func (r *Router) listStats(c *gin.Context) {
	profile, ok := r.resolveProfile(c)
	if !ok {
		return
	}

	days, _ := strconv.Atoi(c.DefaultQuery("days", strconv.Itoa(defaultStatDays)))
	if days <= 0 || days > 365 {
		days = defaultStatDays
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -days)
	stats, err := r.stats.ListByProfile(c.Request.Context(), profile.ID, from, to)
	if err != nil {
		r.fail(c, http.StatusInternalServerError, "failed to list stats", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func (r *Router) listCollaborations(c *gin.Context) {
	profile, ok := r.resolveProfile(c)
	if !ok {
		return
	}

	collabs, err := r.collabs.ListByCollaborator(c.Request.Context(), profile.ID, 100)
	if err != nil {
		r.fail(c, http.StatusInternalServerError, "failed to list collaborations", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"collaborations": collabs})
}

// listMentions surfaces the accounts a profile mentions in its recent
// captions, split into profiles already tracked and bare handles.
func (r *Router) listMentions(c *gin.Context) {
	profile, ok := r.resolveProfile(c)
	if !ok {
		return
	}

	posts, err := r.posts.ListByProfile(c.Request.Context(), profile.ID, maxPostLimit)
	if err != nil {
		r.fail(c, http.StatusInternalServerError, "failed to list posts", err)
		return
	}

	seen := make(map[string]struct{})
	handles := make([]string, 0)
	for _, post := range posts {
		for _, handle := range transform.ExtractMentions(post.Caption) {
			if handle == profile.Username {
				continue
			}
			if _, ok := seen[handle]; ok {
				continue
			}
			seen[handle] = struct{}{}
			handles = append(handles, handle)
		}
	}

	tracked := []*models.TrackedProfile{}
	if len(handles) > 0 {
		tracked, err = r.profiles.GetByUsernames(c.Request.Context(), handles)
		if err != nil {
			r.fail(c, http.StatusInternalServerError, "failed to resolve mentions", err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"handles":  handles,
		"profiles": tracked,
	})
}

type createProfileRequest struct {
	Username string `json:"username" binding:"required"`
	Platform string `json:"platform" binding:"required"`
	Category string `json:"category"`
	Country  string `json:"country"`
}

func (r *Router) createProfile(c *gin.Context) {
	var req createProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewError(http.StatusBadRequest, err.Error()))
		return
	}
	if err := platform.ValidateUsername(req.Username); err != nil {
		c.JSON(http.StatusBadRequest, NewError(http.StatusBadRequest, err.Error()))
		return
	}
	p := models.Platform(req.Platform)
	if p != models.PlatformInstagram && p != models.PlatformTikTok {
		c.JSON(http.StatusBadRequest, NewError(http.StatusBadRequest, "unsupported platform"))
		return
	}

	existing, err := r.profiles.GetByUsername(c.Request.Context(), req.Username)
	if err != nil {
		r.fail(c, http.StatusInternalServerError, "failed to check profile", err)
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, NewError(http.StatusConflict, "profile already tracked"))
		return
	}

	profile := &models.TrackedProfile{
		Username: req.Username,
		Platform: p,
		Category: models.ProfileCategory(req.Category),
		Country:  req.Country,
		Enabled:  true,
	}
	if err := r.profiles.Create(c.Request.Context(), profile); err != nil {
		r.fail(c, http.StatusInternalServerError, "failed to create profile", err)
		return
	}
	c.JSON(http.StatusCreated, profile)
}

func (r *Router) syncProfile(c *gin.Context) {
	profile, ok := r.resolveProfile(c)
	if !ok {
		return
	}

	if err := r.syncer.SyncProfile(c.Request.Context(), profile); err != nil {
		r.fail(c, http.StatusBadGateway, "profile sync failed", err)
		return
	}
	r.invalidate(profile.Username)
	c.JSON(http.StatusOK, profile)
}

func (r *Router) syncPosts(c *gin.Context) {
	profile, ok := r.resolveProfile(c)
	if !ok {
		return
	}

	summary, err := r.syncer.SyncPosts(c.Request.Context(), profile)
	if err != nil {
		r.fail(c, http.StatusBadGateway, "posts sync failed", err)
		return
	}
	r.invalidate(profile.Username)
	c.JSON(http.StatusOK, summary)
}

func (r *Router) resolveProfile(c *gin.Context) (*models.TrackedProfile, bool) {
	username := c.Param("username")
	profile, err := r.profiles.GetByUsername(c.Request.Context(), username)
	if err != nil {
		r.fail(c, http.StatusInternalServerError, "failed to load profile", err)
		return nil, false
	}
	if profile == nil {
		c.JSON(http.StatusNotFound, NewError(http.StatusNotFound, "profile not found"))
		return nil, false
	}
	return profile, true
}

func (r *Router) invalidate(username string) {
	if err := r.cache.InvalidateProfile(username); err != nil && err != cache.ErrCacheDisabled {
		r.logger.Warn("Failed to invalidate cache", zap.String("username", username), zap.Error(err))
	}
}

func (r *Router) fail(c *gin.Context, code int, message string, err error) {
	r.logger.Error(message, zap.Error(err))
	c.JSON(code, NewError(code, message))
}
