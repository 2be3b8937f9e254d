package transform

import (
	"time"

	"github.com/influmap/influmap/internal/models"
)

// ProfileAttrs is the normalized attribute set a profile transformer produces
type ProfileAttrs struct {
	Username  string
	UID       string
	SecUID    string
	FullName  string
	Biography string

	Followers int64
	Following int64
	Hearts    int64
	Videos    int64

	IsPrivate  bool
	IsVerified bool
	IsBusiness bool

	CategoryName string

	AvatarURL   string
	AvatarURLHD string
}

// Apply writes the normalized attributes onto a tracked profile. The username
// is only taken from the payload when the profile does not carry one yet;
// identity is otherwise owned by discovery, not by sync.
func (a *ProfileAttrs) Apply(p *models.TrackedProfile) {
	if p.Username == "" && a.Username != "" {
		p.Username = a.Username
	}
	if a.UID != "" {
		p.UID = a.UID
	}
	if a.SecUID != "" {
		p.SecUID = a.SecUID
	}
	p.FullName = a.FullName
	p.Biography = a.Biography
	p.Followers = a.Followers
	p.Following = a.Following
	p.Hearts = a.Hearts
	p.Videos = a.Videos
	p.IsPrivate = a.IsPrivate
	p.IsVerified = a.IsVerified
	p.IsBusiness = a.IsBusiness
	p.CategoryName = a.CategoryName
	p.AvatarURL = a.AvatarURL
	p.AvatarURLHD = a.AvatarURLHD
}

// PostAttrs is the normalized attribute set a post transformer produces
type PostAttrs struct {
	PlatformPostID string
	Caption        string
	Media          string
	URL            string
	Shortcode      string
	ProductType    string
	PostedAt       time.Time

	LikesCount    int64
	CommentsCount int64
	ViewsCount    int64
	SharesCount   int64
	CollectsCount int64
	TotalCount    int64

	VideoURL      string
	CoverURL      string
	VideoDuration int64
	MusicTitle    string
	MusicAuthor   string
}

// Apply writes the normalized attributes onto a post
func (a *PostAttrs) Apply(p *models.Post) {
	p.Caption = a.Caption
	p.Media = a.Media
	p.URL = a.URL
	p.Shortcode = a.Shortcode
	p.ProductType = a.ProductType
	p.PostedAt = a.PostedAt
	p.LikesCount = a.LikesCount
	p.CommentsCount = a.CommentsCount
	p.ViewsCount = a.ViewsCount
	p.SharesCount = a.SharesCount
	p.CollectsCount = a.CollectsCount
	p.TotalCount = a.TotalCount
	p.VideoURL = a.VideoURL
	p.CoverURL = a.CoverURL
	p.VideoDuration = a.VideoDuration
	p.MusicTitle = a.MusicTitle
	p.MusicAuthor = a.MusicAuthor
}
