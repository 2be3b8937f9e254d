package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/influmap/influmap/internal/cache"
	"github.com/influmap/influmap/internal/db"
	"github.com/influmap/influmap/internal/syncer"
	"github.com/influmap/influmap/pkg/logging"
)

// Router sets up API routes
type Router struct {
	profiles *db.ProfileRepository
	posts    *db.PostRepository
	collabs  *db.CollaborationRepository
	stats    *db.StatRepository
	db       *db.DB
	cache    *cache.Cache
	syncer   *syncer.Syncer
	logger   *zap.Logger
}

// NewRouter creates a new API router
func NewRouter(database *db.DB, redisCache *cache.Cache, sync *syncer.Syncer) *Router {
	repo := db.NewRepository(database.DB)
	return &Router{
		profiles: db.NewProfileRepository(repo),
		posts:    db.NewPostRepository(repo),
		collabs:  db.NewCollaborationRepository(repo),
		stats:    db.NewStatRepository(repo),
		db:       database,
		cache:    redisCache,
		syncer:   sync,
		logger:   logging.GetLogger().With(zap.String("component", "api-router")),
	}
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)

	v1 := engine.Group("/api/v1")
	{
		v1.GET("/profiles", r.listProfiles)
		v1.GET("/profiles/:username", r.getProfile)
		v1.GET("/profiles/:username/posts", r.listPosts)
		v1.GET("/profiles/:username/stats", r.listStats)
		v1.GET("/profiles/:username/collaborations", r.listCollaborations)
		v1.GET("/profiles/:username/mentions", r.listMentions)

		v1.POST("/profiles", r.createProfile)
		v1.POST("/profiles/:username/sync", r.syncProfile)
		v1.POST("/profiles/:username/sync-posts", r.syncPosts)
	}
}
