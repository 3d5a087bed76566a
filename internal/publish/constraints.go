package publish

import (
	"fmt"
	"strings"
)

const (
	kb = 1024
	mb = 1024 * kb
	gb = 1024 * mb
)

// Constraints is one provider's table of content limits. Zero values mean the
// limit does not apply, except for MaxImages and MaxVideos where a negative
// value means unlimited and zero forbids the kind.
type Constraints struct {
	MaxTextLength    int
	MaxHashtags      int
	RequireMedia     bool
	MaxImages        int
	MaxVideos        int
	AllowMixed       bool
	MaxImageBytes    int64
	MaxVideoBytes    int64
	ImageTypes       []string
	VideoTypes       []string
	MinVideoDuration float64
	MaxVideoDuration float64

	// Extra holds provider rules that do not fit the table. It must be pure.
	Extra func(PostContent) []string
}

var (
	jpegPNG   = []string{"image/jpeg", "image/png"}
	webImages = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}
	mp4MOV    = []string{"video/mp4", "video/quicktime"}
)

func DefaultConstraints() map[Provider]Constraints {
	return map[Provider]Constraints{
		ProviderFacebook: {
			MaxTextLength:    63206,
			MaxHashtags:      30,
			MaxImages:        10,
			MaxVideos:        1,
			MaxImageBytes:    10 * mb,
			MaxVideoBytes:    1 * gb,
			ImageTypes:       webImages,
			VideoTypes:       mp4MOV,
			MaxVideoDuration: 4 * 60 * 60,
		},
		ProviderInstagram: {
			MaxTextLength:    2200,
			MaxHashtags:      30,
			RequireMedia:     true,
			MaxImages:        10,
			MaxVideos:        10,
			AllowMixed:       true,
			MaxImageBytes:    8 * mb,
			MaxVideoBytes:    1 * gb,
			ImageTypes:       []string{"image/jpeg"},
			VideoTypes:       mp4MOV,
			MinVideoDuration: 3,
			MaxVideoDuration: 15 * 60,
			Extra:            instagramRules,
		},
		ProviderTwitter: {
			MaxTextLength:    280,
			MaxImages:        4,
			MaxVideos:        1,
			MaxImageBytes:    5 * mb,
			MaxVideoBytes:    512 * mb,
			ImageTypes:       webImages,
			VideoTypes:       mp4MOV,
			MaxVideoDuration: 140,
		},
		ProviderTiktok: {
			MaxTextLength:    2200,
			RequireMedia:     true,
			MaxImages:        35,
			MaxVideos:        1,
			MaxImageBytes:    20 * mb,
			MaxVideoBytes:    4 * gb,
			ImageTypes:       []string{"image/jpeg", "image/webp"},
			VideoTypes:       []string{"video/mp4", "video/quicktime", "video/webm"},
			MinVideoDuration: 3,
			MaxVideoDuration: 10 * 60,
			Extra:            tiktokRules,
		},
		ProviderMarketplace: {
			MaxTextLength: 2000,
			MaxHashtags:   30,
			RequireMedia:  true,
			MaxImages:     10,
			MaxVideos:     0,
			MaxImageBytes: 10 * mb,
			ImageTypes:    jpegPNG,
			Extra:         marketplaceRules,
		},
		ProviderYoutube: {
			MaxTextLength: 5000,
			MaxHashtags:   15,
			RequireMedia:  true,
			MaxImages:     0,
			MaxVideos:     1,
			MaxVideoBytes: 256 * gb,
			VideoTypes:    []string{"video/mp4", "video/quicktime", "video/webm", "video/x-msvideo", "video/mpeg"},
			Extra:         youtubeRules,
		},
	}
}

func instagramRules(c PostContent) []string {
	var v []string
	for i, m := range c.Media {
		if m.Width > 0 && m.Height > 0 && m.Kind == MediaImage {
			ratio := float64(m.Width) / float64(m.Height)
			if ratio < 0.8 || ratio > 1.91 {
				v = append(v, fmt.Sprintf("media[%d]: aspect ratio %.2f is outside 4:5 to 1.91:1", i, ratio))
			}
		}
	}
	return v
}

const (
	TiktokPostVideo = "video"
	TiktokPostPhoto = "photo"
)

// TiktokPostType returns the requested post type, inferring it from the media
// when the extension is not set.
func TiktokPostType(c PostContent) string {
	if c.Extensions.PostType != "" {
		return strings.ToLower(c.Extensions.PostType)
	}
	if _, videos := c.CountKinds(); videos > 0 {
		return TiktokPostVideo
	}
	return TiktokPostPhoto
}

func tiktokRules(c PostContent) []string {
	images, videos := c.CountKinds()
	switch TiktokPostType(c) {
	case TiktokPostVideo:
		if videos != 1 || images != 0 {
			return []string{"tiktok video posts require exactly one video and no images"}
		}
	case TiktokPostPhoto:
		if videos != 0 || images == 0 {
			return []string{"tiktok photo posts require 1 to 35 images and no video"}
		}
	default:
		return []string{fmt.Sprintf("tiktok post type %q is not supported", c.Extensions.PostType)}
	}
	return nil
}

func marketplaceRules(c PostContent) []string {
	var v []string
	if c.Extensions.Brand == nil || strings.TrimSpace(c.Extensions.Brand.Name) == "" {
		v = append(v, "marketplace posts require brand metadata")
	}
	refs := 0
	for _, ref := range c.Extensions.CatalogRefs {
		if strings.TrimSpace(ref) != "" {
			refs++
		}
	}
	if refs == 0 {
		v = append(v, "marketplace posts require at least one catalog reference")
	}
	return v
}

func youtubeRules(c PostContent) []string {
	title := YoutubeTitle(c)
	if title == "" {
		return []string{"youtube videos require a title"}
	}
	if len([]rune(title)) > 100 {
		return []string{"youtube title exceeds 100 characters"}
	}
	return nil
}

// YoutubeTitle is the explicit title, or the first line of the text.
func YoutubeTitle(c PostContent) string {
	if t := strings.TrimSpace(c.Extensions.Title); t != "" {
		return t
	}
	first, _, _ := strings.Cut(strings.TrimSpace(c.Text), "\n")
	return strings.TrimSpace(first)
}
