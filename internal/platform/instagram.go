package platform

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/influmap/influmap/internal/models"
	"github.com/influmap/influmap/internal/transform"
	"github.com/influmap/influmap/pkg/config"
	"github.com/influmap/influmap/pkg/telemetry"
)

// InstagramSource fetches and normalizes Instagram profile and post data.
// Requests go through a rotating proxy when a proxy token is configured;
// posts and reels ship inside the same profile response.
type InstagramSource struct {
	client             *Client
	cfg                *config.InstagramConfig
	profileTransformer *transform.InstagramProfileTransformer
	postTransformer    *transform.InstagramPostTransformer
	logger             *zap.Logger
}

// NewInstagramSource creates an Instagram data source
func NewInstagramSource(cfg *config.InstagramConfig, logger *zap.Logger) *InstagramSource {
	logger = logger.With(zap.String("component", "instagram-source"))
	return &InstagramSource{
		client:             NewClient(cfg.Timeout, cfg.MaxRetries, logger),
		cfg:                cfg,
		profileTransformer: transform.NewInstagramProfileTransformer(transform.ShapeEnvelope),
		postTransformer:    transform.NewInstagramPostTransformer(transform.ShapeEnvelope, false),
		logger:             logger,
	}
}

// Platform identifies the source
func (s *InstagramSource) Platform() models.Platform {
	return models.PlatformInstagram
}

// FetchProfile retrieves and shape-validates the raw profile document
func (s *InstagramSource) FetchProfile(ctx context.Context, profile *models.TrackedProfile) (map[string]interface{}, error) {
	ctx, span := telemetry.StartSpan(ctx, "instagram.fetch_profile")
	defer span.End()

	doc, err := s.fetchUserDocument(ctx, profile.Username)
	if err != nil {
		return nil, err
	}
	if err := ValidateInstagramProfileShape(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// FetchPostItems retrieves the raw post items for a profile: regular posts
// and the video/reel timeline, concatenated
func (s *InstagramSource) FetchPostItems(ctx context.Context, profile *models.TrackedProfile) ([]map[string]interface{}, error) {
	ctx, span := telemetry.StartSpan(ctx, "instagram.fetch_posts")
	defer span.End()

	doc, err := s.fetchUserDocument(ctx, profile.Username)
	if err != nil {
		return nil, err
	}
	if err := ValidateInstagramProfileShape(doc); err != nil {
		return nil, err
	}

	items := InstagramPostItems(doc)
	s.logger.Debug("Retrieved post items",
		zap.String("username", profile.Username),
		zap.Int("count", len(items)))
	return items, nil
}

// TransformProfile maps a raw profile document into normalized attributes
func (s *InstagramSource) TransformProfile(doc map[string]interface{}) (*transform.ProfileAttrs, error) {
	return s.profileTransformer.Transform(doc)
}

// TransformPost maps one raw post item into normalized attributes
func (s *InstagramSource) TransformPost(item map[string]interface{}) (*transform.PostAttrs, error) {
	return s.postTransformer.Transform(item)
}

// PostID extracts the platform post id from a raw item without a full
// transform; the timeline shortcode doubles as id for older payloads
func (s *InstagramSource) PostID(item map[string]interface{}) string {
	node, _ := item["node"].(map[string]interface{})
	if node == nil {
		return ""
	}
	if id, _ := node["id"].(string); id != "" {
		return id
	}
	shortcode, _ := node["shortcode"].(string)
	return shortcode
}

// Coauthors lists the usernames credited on a collaborative post
func (s *InstagramSource) Coauthors(item map[string]interface{}) []string {
	node, _ := item["node"].(map[string]interface{})
	if node == nil {
		return nil
	}
	producers, _ := node["coauthor_producers"].([]interface{})
	usernames := make([]string, 0, len(producers))
	for _, raw := range producers {
		producer, _ := raw.(map[string]interface{})
		if producer == nil {
			continue
		}
		if username, _ := producer["username"].(string); username != "" {
			usernames = append(usernames, username)
		}
	}
	return usernames
}

func (s *InstagramSource) fetchUserDocument(ctx context.Context, username string) (map[string]interface{}, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}

	raw, _, err := s.client.Fetch(ctx, s.buildRequest(username))
	if err != nil {
		return nil, err
	}
	return Decode(raw)
}

// buildRequest embeds the target URL in the rotating-proxy URL when a token
// is configured, otherwise calls the endpoint directly
func (s *InstagramSource) buildRequest(username string) Request {
	headers := map[string]string{"x-ig-app-id": s.cfg.AppID}

	if s.cfg.ProxyToken == "" {
		return Request{
			URL:     fmt.Sprintf("%s/users/web_profile_info/", s.cfg.APIBaseURL),
			Headers: headers,
			Query:   url.Values{"username": {username}},
		}
	}

	target := fmt.Sprintf("%s/users/web_profile_info/?username=%s",
		s.cfg.APIBaseURL, url.QueryEscape(username))
	return Request{
		URL:     s.cfg.ProxyURL,
		Headers: headers,
		Query: url.Values{
			"token": {s.cfg.ProxyToken},
			"url":   {target},
		},
	}
}
