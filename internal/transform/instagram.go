package transform

import (
	"fmt"
	"time"

	"github.com/influmap/influmap/internal/models"
)

// instagramProfileRequired are the fields a profile payload must carry
var instagramProfileRequired = []string{
	"edge_followed_by",
	"edge_follow",
	"profile_pic_url",
	"is_private",
	"is_verified",
	"full_name",
	"biography",
	"is_embeds_disabled",
	"id",
}

// instagramPostRequired are the fields a post record must carry
var instagramPostRequired = []string{
	"__typename",
	"shortcode",
	"taken_at_timestamp",
	"edge_media_to_comment",
}

// instagramMediaTypes maps graph typenames to normalized media types
var instagramMediaTypes = map[string]string{
	"GraphImage":   models.MediaImage,
	"GraphVideo":   models.MediaVideo,
	"GraphSidecar": models.MediaCarousel,
}

// InstagramProfileTransformer maps a raw Instagram profile payload into the
// normalized profile attribute set. Pure function, no I/O.
type InstagramProfileTransformer struct {
	shape Shape
}

// NewInstagramProfileTransformer creates a profile transformer. ShapeEnvelope
// expects the user record under data.user; ShapeFlat expects the user record
// itself.
func NewInstagramProfileTransformer(shape Shape) *InstagramProfileTransformer {
	return &InstagramProfileTransformer{shape: shape}
}

// Transform validates the required-field checklist and builds the attribute set
func (t *InstagramProfileTransformer) Transform(doc map[string]interface{}) (*ProfileAttrs, error) {
	if doc == nil {
		return nil, &ParseFailure{Message: "data cannot be nil"}
	}

	user := doc
	if t.shape == ShapeEnvelope {
		user = digMap(doc, "data", "user")
		if user == nil {
			return nil, &ParseFailure{Message: "missing data.user structure"}
		}
	}

	if err := missingFields(user, instagramProfileRequired); err != nil {
		return nil, err
	}

	return &ProfileAttrs{
		UID:       digString(user, "id"),
		FullName:  digString(user, "full_name"),
		Biography: digString(user, "biography"),

		Followers: digInt(user, "edge_followed_by", "count"),
		Following: digInt(user, "edge_follow", "count"),

		IsPrivate:  digBool(user, "is_private"),
		IsVerified: digBool(user, "is_verified"),
		// Business and category fields fall back to explicit defaults when
		// absent from the payload
		IsBusiness:   digBool(user, "is_business_account") || digBool(user, "is_professional_account"),
		CategoryName: firstNonEmpty(digString(user, "category_name"), digString(user, "business_category_name")),

		AvatarURL:   digString(user, "profile_pic_url"),
		AvatarURLHD: digString(user, "profile_pic_url_hd"),
	}, nil
}

// InstagramPostTransformer maps one raw timeline item into the normalized
// post attribute set. Cursor-paged responses report likes under a different
// edge than profile-embedded timelines; the mode is fixed at construction.
type InstagramPostTransformer struct {
	shape  Shape
	cursor bool
}

// NewInstagramPostTransformer creates a post transformer. ShapeEnvelope
// expects the post record under a "node" envelope.
func NewInstagramPostTransformer(shape Shape, cursor bool) *InstagramPostTransformer {
	return &InstagramPostTransformer{shape: shape, cursor: cursor}
}

// Transform validates the required-field checklist and builds the attribute set
func (t *InstagramPostTransformer) Transform(item map[string]interface{}) (*PostAttrs, error) {
	if item == nil {
		return nil, &ParseFailure{Message: "data cannot be nil"}
	}

	node := item
	if t.shape == ShapeEnvelope {
		node = digMap(item, "node")
		if node == nil {
			return nil, &ParseFailure{Message: "missing node structure"}
		}
	}

	if err := missingFields(node, instagramPostRequired); err != nil {
		return nil, err
	}

	postedAt, err := unixTime(dig(node, "taken_at_timestamp"))
	if err != nil {
		return nil, err
	}

	likes := t.likesCount(node)
	comments := digInt(node, "edge_media_to_comment", "count")
	shortcode := digString(node, "shortcode")

	media, ok := instagramMediaTypes[digString(node, "__typename")]
	if !ok {
		media = models.MediaUnknown
	}

	productType := digString(node, "product_type")
	if productType == "" {
		productType = "feed"
	}

	return &PostAttrs{
		PlatformPostID: firstNonEmpty(digString(node, "id"), shortcode),
		Caption:        instagramCaption(node),
		Media:          media,
		URL:            fmt.Sprintf("https://www.instagram.com/p/%s", shortcode),
		Shortcode:      shortcode,
		ProductType:    productType,
		PostedAt:       postedAt,

		LikesCount:    likes,
		CommentsCount: comments,
		ViewsCount:    digInt(node, "video_view_count"),
		// The Instagram total deliberately excludes shares/saves: the payload
		// does not expose them, and the definition must not drift between
		// syncs
		TotalCount: likes + comments,
	}, nil
}

func (t *InstagramPostTransformer) likesCount(node map[string]interface{}) int64 {
	if t.cursor {
		return digInt(node, "edge_media_preview_like", "count")
	}
	return digInt(node, "edge_liked_by", "count")
}

// ParseFailure indicates a structurally unusable item handed to a transformer
type ParseFailure struct {
	Message string
}

// Error implements the error interface
func (e *ParseFailure) Error() string {
	return e.Message
}

// instagramCaption reads the text of the first caption edge, if any
func instagramCaption(node map[string]interface{}) string {
	edges, _ := dig(node, "edge_media_to_caption", "edges").([]interface{})
	if len(edges) == 0 {
		return ""
	}
	first, _ := edges[0].(map[string]interface{})
	if first == nil {
		return ""
	}
	return digString(first, "node", "text")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func unixTime(value interface{}) (time.Time, error) {
	switch v := value.(type) {
	case float64:
		return time.Unix(int64(v), 0).UTC(), nil
	case int64:
		return time.Unix(v, 0).UTC(), nil
	case string:
		var ts int64
		if _, err := fmt.Sscanf(v, "%d", &ts); err != nil {
			return time.Time{}, &ParseFailure{Message: fmt.Sprintf("invalid timestamp: %q", v)}
		}
		return time.Unix(ts, 0).UTC(), nil
	default:
		return time.Time{}, &ParseFailure{Message: fmt.Sprintf("invalid timestamp type: %T", value)}
	}
}
