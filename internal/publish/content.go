package publish

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html/atom"
)

type Provider string

const (
	ProviderFacebook    Provider = "facebook"
	ProviderInstagram   Provider = "instagram"
	ProviderTwitter     Provider = "twitter"
	ProviderTiktok      Provider = "tiktok"
	ProviderMarketplace Provider = "marketplace"
	ProviderYoutube     Provider = "youtube"
)

func (p Provider) String() string { return string(p) }

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// MediaAsset describes one piece of media referenced by a post. It is passed by
// value and never modified once built.
type MediaAsset struct {
	ID       string    `json:"id"`
	URL      string    `json:"url"`
	Kind     MediaKind `json:"kind"`
	MIMEType string    `json:"mimeType"`
	Size     int64     `json:"size"`
	Duration float64   `json:"duration,omitempty"`
	Width    int       `json:"width,omitempty"`
	Height   int       `json:"height,omitempty"`
	AltText  string    `json:"altText,omitempty"`
}

func (m MediaAsset) IsVideo() bool { return m.Kind == MediaVideo }

type Brand struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Website string `json:"website,omitempty"`
}

// Extensions carries the provider-specific settings of a post. Providers ignore
// the fields they do not understand.
type Extensions struct {
	Title          string   `json:"title,omitempty"`
	PrivacyLevel   string   `json:"privacyLevel,omitempty"`
	PostType       string   `json:"postType,omitempty"`
	DisableComment bool     `json:"disableComment,omitempty"`
	DisableDuet    bool     `json:"disableDuet,omitempty"`
	DisableStitch  bool     `json:"disableStitch,omitempty"`
	Brand          *Brand   `json:"brand,omitempty"`
	CatalogRefs    []string `json:"catalogRefs,omitempty"`
}

type PostContent struct {
	Text       string       `json:"text"`
	Hashtags   []string     `json:"hashtags,omitempty"`
	Mentions   []string     `json:"mentions,omitempty"`
	Media      []MediaAsset `json:"media,omitempty"`
	Extensions Extensions   `json:"extensions"`
}

func (c PostContent) CountKinds() (images, videos int) {
	for _, m := range c.Media {
		switch m.Kind {
		case MediaImage:
			images++
		case MediaVideo:
			videos++
		}
	}
	return images, videos
}

// ComposeText returns the text sent to providers: the post text followed by the
// mentions and hashtags that the text does not already contain.
func (c PostContent) ComposeText() string {
	text := strings.TrimSpace(c.Text)
	lower := strings.ToLower(text)

	var extra []string
	for _, m := range c.Mentions {
		tag := "@" + strings.TrimPrefix(strings.TrimSpace(m), "@")
		if tag == "@" || strings.Contains(lower, strings.ToLower(tag)) {
			continue
		}
		extra = append(extra, tag)
	}
	for _, h := range c.Hashtags {
		tag := "#" + strings.TrimPrefix(strings.TrimSpace(h), "#")
		if tag == "#" || strings.Contains(lower, strings.ToLower(tag)) {
			continue
		}
		extra = append(extra, tag)
	}

	if len(extra) == 0 {
		return text
	}
	if text == "" {
		return strings.Join(extra, " ")
	}
	return text + "\n\n" + strings.Join(extra, " ")
}

var (
	textPolicy = bluemonday.StrictPolicy()
	tagPattern = regexp.MustCompile(`</?([A-Za-z][A-Za-z0-9]*)[^<>]*>`)
)

// NormalizeText strips HTML markup from a caption and unescapes entities.
// Angle-bracket runs whose name is not an HTML element or attribute are kept
// as plain text.
func NormalizeText(text string) string {
	if !strings.ContainsAny(text, "<>") {
		return text
	}
	text = tagPattern.ReplaceAllStringFunc(text, func(tag string) string {
		name := tagPattern.FindStringSubmatch(tag)[1]
		if atom.Lookup([]byte(strings.ToLower(name))) != 0 {
			return tag
		}
		return "&lt;" + tag[1:]
	})
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(text)))
}

type ErrorInfo struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// PublishResult is the only shape handed back to callers of the dispatcher.
type PublishResult struct {
	Success        bool       `json:"success"`
	PlatformPostID string     `json:"platformPostId,omitempty"`
	URL            string     `json:"url,omitempty"`
	MediaSkipped   bool       `json:"mediaSkipped,omitempty"`
	Warnings       []string   `json:"warnings,omitempty"`
	Error          *ErrorInfo `json:"error,omitempty"`
}

func Failure(err *Error) PublishResult {
	return PublishResult{
		Success: false,
		Error:   &ErrorInfo{Kind: err.Kind, Message: err.Error()},
	}
}

// HTTPStatus returns the status code a handler should answer with.
func (r PublishResult) HTTPStatus() int {
	if r.Success || r.Error == nil {
		return 200
	}
	return r.Error.Kind.HTTPStatus()
}
