package publish

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

type Validation struct {
	Valid      bool     `json:"valid"`
	Violations []string `json:"violations,omitempty"`
}

type Validator struct {
	tables map[Provider]Constraints
}

func NewValidator(tables map[Provider]Constraints) *Validator {
	if tables == nil {
		tables = DefaultConstraints()
	}
	return &Validator{tables: tables}
}

// Validate checks the content against the provider's whole table and reports
// every violation, in table order. It has no side effects.
func (v *Validator) Validate(provider Provider, c PostContent) Validation {
	t, ok := v.tables[provider]
	if !ok {
		return Validation{Violations: []string{fmt.Sprintf("platform %q is not supported", provider)}}
	}

	var out []string
	add := func(format string, args ...any) {
		out = append(out, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(c.Text) == "" && len(c.Media) == 0 {
		add("content must include text or at least one media asset")
	}
	if t.RequireMedia && len(c.Media) == 0 {
		add("%s requires at least one media asset", provider)
	}

	text := c.ComposeText()
	if n := utf8.RuneCountInString(text); t.MaxTextLength > 0 && n > t.MaxTextLength {
		add("text is %d characters, the limit is %d", n, t.MaxTextLength)
	}
	if n := countHashtags(c); t.MaxHashtags > 0 && n > t.MaxHashtags {
		add("%d hashtags used, the limit is %d", n, t.MaxHashtags)
	}

	images, videos := c.CountKinds()
	if t.MaxImages >= 0 && images > t.MaxImages {
		if t.MaxImages == 0 {
			add("%s does not accept images", provider)
		} else {
			add("%d images attached, the limit is %d", images, t.MaxImages)
		}
	}
	if t.MaxVideos >= 0 && videos > t.MaxVideos {
		if t.MaxVideos == 0 {
			add("%s does not accept videos", provider)
		} else {
			add("%d videos attached, the limit is %d", videos, t.MaxVideos)
		}
	}
	if !t.AllowMixed && images > 0 && videos > 0 {
		add("%s does not allow images and videos in the same post", provider)
	}

	for i, m := range c.Media {
		switch m.Kind {
		case MediaImage:
			if m.URL == "" {
				add("media[%d]: source url is missing", i)
			}
			if t.MaxImageBytes > 0 && m.Size > t.MaxImageBytes {
				add("media[%d]: image is %s, the limit is %s", i, humanBytes(m.Size), humanBytes(t.MaxImageBytes))
			}
			if len(t.ImageTypes) > 0 && m.MIMEType != "" && !slices.Contains(t.ImageTypes, strings.ToLower(m.MIMEType)) {
				add("media[%d]: image type %s is not supported", i, m.MIMEType)
			}
		case MediaVideo:
			if m.URL == "" {
				add("media[%d]: source url is missing", i)
			}
			if t.MaxVideoBytes > 0 && m.Size > t.MaxVideoBytes {
				add("media[%d]: video is %s, the limit is %s", i, humanBytes(m.Size), humanBytes(t.MaxVideoBytes))
			}
			if len(t.VideoTypes) > 0 && m.MIMEType != "" && !slices.Contains(t.VideoTypes, strings.ToLower(m.MIMEType)) {
				add("media[%d]: video type %s is not supported", i, m.MIMEType)
			}
			if t.MaxVideoDuration > 0 && m.Duration > t.MaxVideoDuration {
				add("media[%d]: video is %.0fs long, the limit is %.0fs", i, m.Duration, t.MaxVideoDuration)
			}
			if t.MinVideoDuration > 0 && m.Duration > 0 && m.Duration < t.MinVideoDuration {
				add("media[%d]: video is %.1fs long, the minimum is %.0fs", i, m.Duration, t.MinVideoDuration)
			}
		default:
			add("media[%d]: unknown media kind %q", i, m.Kind)
		}
	}

	if t.Extra != nil {
		out = append(out, t.Extra(c)...)
	}

	return Validation{Valid: len(out) == 0, Violations: out}
}

func countHashtags(c PostContent) int {
	seen := map[string]struct{}{}
	for _, h := range c.Hashtags {
		h = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h), "#"))
		if h != "" {
			seen[h] = struct{}{}
		}
	}
	for _, word := range strings.Fields(c.Text) {
		if strings.HasPrefix(word, "#") && len(word) > 1 {
			seen[strings.ToLower(strings.TrimRight(word[1:], ".,!?;:"))] = struct{}{}
		}
	}
	return len(seen)
}

func humanBytes(n int64) string {
	switch {
	case n >= gb:
		return fmt.Sprintf("%.1f GB", float64(n)/gb)
	case n >= mb:
		return fmt.Sprintf("%.1f MB", float64(n)/mb)
	case n >= kb:
		return fmt.Sprintf("%.1f KB", float64(n)/kb)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
