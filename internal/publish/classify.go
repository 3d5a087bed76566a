package publish

import (
	"errors"
	"net/http"
	"slices"
	"strings"
)

type classifyRule struct {
	kind       ErrorKind
	statuses   []int
	codes      []int
	codeRanges [][2]int
	substrings []string
}

// Rules are evaluated top to bottom and the first match wins.
// Numeric codes cover Graph API (Facebook, Instagram) and Twitter v1.1 codes;
// TikTok reports string codes, which are matched through the substrings.
var classifyRules = []classifyRule{
	{
		kind:       KindAuth,
		statuses:   []int{http.StatusUnauthorized},
		codes:      []int{102, 190, 463, 467, 2500, 89, 135, 215},
		substrings: []string{"auth", "token", "login", "credential", "session has expired"},
	},
	{
		kind:       KindRateLimit,
		statuses:   []int{http.StatusTooManyRequests},
		codes:      []int{4, 17, 341, 368, 613, 88, 185},
		codeRanges: [][2]int{{80001, 80014}},
		substrings: []string{"rate limit", "rate_limit", "throttl", "too many", "spam_risk", "quota"},
	},
	{
		kind:       KindPermission,
		statuses:   []int{http.StatusForbidden},
		codes:      []int{3, 10, 87, 261},
		codeRanges: [][2]int{{200, 299}},
		substrings: []string{"permission", "not permitted", "forbidden", "access denied", "not allowed"},
	},
	{
		kind:       KindMedia,
		codes:      []int{323, 324, 325, 36000, 36003, 36004},
		codeRanges: [][2]int{{2207001, 2207999}},
		substrings: []string{"media", "image", "video", "photo", "upload"},
	},
}

// Classify maps any failure to its canonical kind. The original error is kept
// as the cause so no diagnostic detail is lost.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var canonical *Error
	if errors.As(err, &canonical) {
		return canonical
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		text := strings.ToLower(pe.Message + " " + pe.UserMessage + " " + pe.CodeText)
		for _, r := range classifyRules {
			if r.matchStatus(pe.StatusCode) || r.matchCode(pe.Code) || r.matchCode(pe.Subcode) || r.matchText(text) {
				return &Error{Kind: r.kind, Err: err}
			}
		}
		return &Error{Kind: KindAPI, Err: err}
	}

	text := strings.ToLower(err.Error())
	for _, r := range classifyRules {
		if r.matchText(text) {
			return &Error{Kind: r.kind, Err: err}
		}
	}
	return &Error{Kind: KindInternal, Err: err}
}

func (r classifyRule) matchStatus(status int) bool {
	return status != 0 && slices.Contains(r.statuses, status)
}

func (r classifyRule) matchCode(code int) bool {
	if code == 0 {
		return false
	}
	if slices.Contains(r.codes, code) {
		return true
	}
	for _, rng := range r.codeRanges {
		if code >= rng[0] && code <= rng[1] {
			return true
		}
	}
	return false
}

func (r classifyRule) matchText(text string) bool {
	for _, s := range r.substrings {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}
