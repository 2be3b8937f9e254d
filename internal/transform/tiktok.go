package transform

import (
	"fmt"

	"github.com/influmap/influmap/internal/models"
)

// tiktokPostRequired are the fields a post item must carry
var tiktokPostRequired = []string{
	"id",
	"createTime",
}

// TikTokProfileTransformer maps a raw TikTok profile payload into the
// normalized profile attribute set. Pure function, no I/O.
type TikTokProfileTransformer struct {
	shape Shape
}

// NewTikTokProfileTransformer creates a profile transformer. ShapeEnvelope
// expects the user record under userInfo; ShapeFlat expects a document with
// top-level user/stats containers.
func NewTikTokProfileTransformer(shape Shape) *TikTokProfileTransformer {
	return &TikTokProfileTransformer{shape: shape}
}

// Transform validates the payload structure and builds the attribute set
func (t *TikTokProfileTransformer) Transform(doc map[string]interface{}) (*ProfileAttrs, error) {
	if doc == nil {
		return nil, &ParseFailure{Message: "data cannot be nil"}
	}

	userInfo := doc
	if t.shape == ShapeEnvelope {
		userInfo = digMap(doc, "userInfo")
		if userInfo == nil {
			return nil, &ParseFailure{Message: "missing userInfo structure"}
		}
	}

	user := digMap(userInfo, "user")
	if user == nil {
		return nil, &MissingFieldError{Fields: []string{"user"}}
	}
	stats := digMap(userInfo, "stats")
	if stats == nil {
		stats = map[string]interface{}{}
	}

	hearts := digInt(stats, "heartCount")
	if hearts == 0 {
		hearts = digInt(stats, "heart")
	}

	return &ProfileAttrs{
		Username:  digString(user, "uniqueId"),
		UID:       digString(user, "id"),
		SecUID:    digString(user, "secUid"),
		FullName:  digString(user, "nickname"),
		Biography: digString(user, "signature"),

		Followers: digInt(stats, "followerCount"),
		Following: digInt(stats, "followingCount"),
		Hearts:    hearts,
		Videos:    digInt(stats, "videoCount"),

		IsPrivate:  digBool(user, "privateAccount"),
		IsVerified: digBool(user, "verified"),
		IsBusiness: digBool(user, "commerceUserInfo", "commerceUser"),

		AvatarURL:   digString(user, "avatarMedium"),
		AvatarURLHD: digString(user, "avatarLarger"),
	}, nil
}

// TikTokPostTransformer maps one raw item-list entry into the normalized post
// attribute set.
type TikTokPostTransformer struct {
	shape Shape
}

// NewTikTokPostTransformer creates a post transformer. Item lists ship flat
// records; ShapeEnvelope additionally unwraps an "item" envelope for the
// detail-endpoint variant.
func NewTikTokPostTransformer(shape Shape) *TikTokPostTransformer {
	return &TikTokPostTransformer{shape: shape}
}

// Transform validates the required-field checklist and builds the attribute set
func (t *TikTokPostTransformer) Transform(item map[string]interface{}) (*PostAttrs, error) {
	if item == nil {
		return nil, &ParseFailure{Message: "data cannot be nil"}
	}

	record := item
	if t.shape == ShapeEnvelope {
		record = digMap(item, "item")
		if record == nil {
			return nil, &ParseFailure{Message: "missing item structure"}
		}
	}

	if err := missingFields(record, tiktokPostRequired); err != nil {
		return nil, err
	}

	postedAt, err := unixTime(dig(record, "createTime"))
	if err != nil {
		return nil, err
	}

	likes := digInt(record, "stats", "diggCount")
	comments := digInt(record, "stats", "commentCount")
	shares := digInt(record, "stats", "shareCount")
	collects := digInt(record, "stats", "collectCount")

	id := digString(record, "id")
	author := digString(record, "author", "uniqueId")

	return &PostAttrs{
		PlatformPostID: id,
		Caption:        digString(record, "desc"),
		Media:          models.MediaVideo,
		URL:            tiktokPostURL(author, id),
		PostedAt:       postedAt,

		LikesCount:    likes,
		CommentsCount: comments,
		ViewsCount:    digInt(record, "stats", "playCount"),
		SharesCount:   shares,
		CollectsCount: collects,
		// The TikTok total includes shares and collects; the definition is
		// per platform and must not drift between syncs
		TotalCount: likes + comments + shares + collects,

		VideoURL:      digString(record, "video", "playAddr"),
		CoverURL:      digString(record, "video", "cover"),
		VideoDuration: digInt(record, "video", "duration"),
		MusicTitle:    digString(record, "music", "title"),
		MusicAuthor:   digString(record, "music", "authorName"),
	}, nil
}

func tiktokPostURL(author, id string) string {
	if author == "" {
		return fmt.Sprintf("https://www.tiktok.com/video/%s", id)
	}
	return fmt.Sprintf("https://www.tiktok.com/@%s/video/%s", author, id)
}
