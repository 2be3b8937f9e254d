package platform

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/influmap/influmap/internal/models"
	"github.com/influmap/influmap/internal/transform"
	"github.com/influmap/influmap/pkg/config"
	"github.com/influmap/influmap/pkg/telemetry"
)

// TikTokSource fetches and normalizes TikTok profile and post data through
// the tikapi-style gateway. Profiles resolve by username; posts require the
// sec_uid the profile response carries.
type TikTokSource struct {
	client             *Client
	cfg                *config.TikTokConfig
	profileTransformer *transform.TikTokProfileTransformer
	postTransformer    *transform.TikTokPostTransformer
	logger             *zap.Logger
}

// NewTikTokSource creates a TikTok data source
func NewTikTokSource(cfg *config.TikTokConfig, logger *zap.Logger) *TikTokSource {
	logger = logger.With(zap.String("component", "tiktok-source"))
	return &TikTokSource{
		client:             NewClient(cfg.Timeout, cfg.MaxRetries, logger),
		cfg:                cfg,
		profileTransformer: transform.NewTikTokProfileTransformer(transform.ShapeEnvelope),
		postTransformer:    transform.NewTikTokPostTransformer(transform.ShapeFlat),
		logger:             logger,
	}
}

// Platform identifies the source
func (s *TikTokSource) Platform() models.Platform {
	return models.PlatformTikTok
}

// FetchProfile retrieves and shape-validates the raw profile envelope
func (s *TikTokSource) FetchProfile(ctx context.Context, profile *models.TrackedProfile) (map[string]interface{}, error) {
	ctx, span := telemetry.StartSpan(ctx, "tiktok.fetch_profile")
	defer span.End()

	if err := ValidateUsername(profile.Username); err != nil {
		return nil, err
	}

	raw, _, err := s.client.Fetch(ctx, Request{
		URL:     s.cfg.APIBaseURL + "/check",
		Headers: s.headers(),
		Query:   url.Values{"username": {profile.Username}},
	})
	if err != nil {
		return nil, err
	}

	doc, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	if err := ValidateTikTokEnvelope(doc); err != nil {
		return nil, err
	}
	if err := ValidateTikTokProfileShape(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// FetchPostItems retrieves the recent post items for a profile. The sec_uid
// must already be known from a prior profile sync.
func (s *TikTokSource) FetchPostItems(ctx context.Context, profile *models.TrackedProfile) ([]map[string]interface{}, error) {
	ctx, span := telemetry.StartSpan(ctx, "tiktok.fetch_posts")
	defer span.End()

	if profile.SecUID == "" {
		return nil, &InvalidIdentifierError{
			Message: fmt.Sprintf("profile %s has no sec_uid, sync the profile first", profile.Username),
		}
	}

	raw, _, err := s.client.Fetch(ctx, Request{
		URL:     s.cfg.APIBaseURL + "/posts",
		Headers: s.headers(),
		Query: url.Values{
			"secUid": {profile.SecUID},
			"count":  {strconv.Itoa(s.cfg.PostCount)},
		},
	})
	if err != nil {
		return nil, err
	}

	doc, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	if err := ValidateTikTokEnvelope(doc); err != nil {
		return nil, err
	}

	items, err := TikTokPostItems(doc)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Retrieved post items",
		zap.String("username", profile.Username),
		zap.Int("count", len(items)))
	return items, nil
}

// TransformProfile maps a raw profile envelope into normalized attributes
func (s *TikTokSource) TransformProfile(doc map[string]interface{}) (*transform.ProfileAttrs, error) {
	return s.profileTransformer.Transform(doc)
}

// TransformPost maps one raw post item into normalized attributes
func (s *TikTokSource) TransformPost(item map[string]interface{}) (*transform.PostAttrs, error) {
	return s.postTransformer.Transform(item)
}

// PostID extracts the platform post id from a raw item without a full transform
func (s *TikTokSource) PostID(item map[string]interface{}) string {
	id, _ := item["id"].(string)
	return id
}

// Coauthors lists usernames mentioned in the post text; TikTok does not
// expose a structured coauthor list, so mentions stand in for it
func (s *TikTokSource) Coauthors(item map[string]interface{}) []string {
	extras, _ := item["textExtra"].([]interface{})
	usernames := make([]string, 0, len(extras))
	for _, raw := range extras {
		extra, _ := raw.(map[string]interface{})
		if extra == nil {
			continue
		}
		if username, _ := extra["userUniqueId"].(string); username != "" {
			usernames = append(usernames, username)
		}
	}
	return usernames
}

func (s *TikTokSource) headers() map[string]string {
	return map[string]string{
		"X-API-KEY": s.cfg.APIKey,
		"accept":    "application/json",
	}
}
