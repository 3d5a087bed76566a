package publish

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyProviderErrors(t *testing.T) {
	tests := []struct {
		name string
		err  *ProviderError
		want ErrorKind
	}{
		{"graph expired token", &ProviderError{Provider: ProviderFacebook, StatusCode: 400, Code: 190, Message: "Error validating access token"}, KindAuth},
		{"http 401", &ProviderError{Provider: ProviderTwitter, StatusCode: 401, Message: "Unauthorized"}, KindAuth},
		{"graph app rate limit", &ProviderError{Provider: ProviderFacebook, StatusCode: 400, Code: 4, Message: "Application request limit reached"}, KindRateLimit},
		{"http 429", &ProviderError{Provider: ProviderTwitter, StatusCode: 429, Message: "Too Many Requests"}, KindRateLimit},
		{"tiktok string code", &ProviderError{Provider: ProviderTiktok, StatusCode: 400, CodeText: "spam_risk_too_many_posts"}, KindRateLimit},
		{"graph permission range", &ProviderError{Provider: ProviderInstagram, StatusCode: 400, Code: 200, Message: "Requires pages_manage_posts"}, KindPermission},
		{"http 403", &ProviderError{Provider: ProviderMarketplace, StatusCode: 403, Message: "nope"}, KindPermission},
		{"instagram media subcode", &ProviderError{Provider: ProviderInstagram, StatusCode: 400, Code: 9004, Subcode: 2207026, Message: "unsupported format"}, KindMedia},
		{"twitter media code", &ProviderError{Provider: ProviderTwitter, StatusCode: 400, Code: 324, Message: "bad"}, KindMedia},
		{"unmatched provider error", &ProviderError{Provider: ProviderMarketplace, StatusCode: 500, Message: "internal failure"}, KindAPI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			assert.Equal(t, tt.want, got.Kind)
			assert.Contains(t, got.Error(), tt.err.Error())

			var pe *ProviderError
			assert.True(t, errors.As(got, &pe), "cause must be kept")
		})
	}
}

func TestClassifyPlainErrors(t *testing.T) {
	assert.Equal(t, KindAuth, Classify(errors.New("invalid OAuth token")).Kind)
	assert.Equal(t, KindRateLimit, Classify(errors.New("request was throttled")).Kind)
	assert.Equal(t, KindMedia, Classify(errors.New("video is too long")).Kind)
	assert.Equal(t, KindInternal, Classify(errors.New("connection reset by peer")).Kind)
}

func TestClassifyFirstRuleWins(t *testing.T) {
	// matches both the auth and the media rule
	got := Classify(errors.New("token rejected during media upload"))
	assert.Equal(t, KindAuth, got.Kind)
}

func TestClassifyKeepsCanonicalKind(t *testing.T) {
	orig := NewError(KindContent, "privacy level not allowed")
	wrapped := fmt.Errorf("publishing: %w", orig)

	got := Classify(wrapped)
	assert.Equal(t, KindContent, got.Kind)
	assert.Equal(t, "privacy level not allowed", got.Message)
	assert.Nil(t, Classify(nil))
}

func TestErrorKindStatus(t *testing.T) {
	assert.Equal(t, 401, KindAuth.HTTPStatus())
	assert.Equal(t, 429, KindRateLimit.HTTPStatus())
	assert.Equal(t, 400, KindContent.HTTPStatus())
	assert.Equal(t, 400, KindMedia.HTTPStatus())
	assert.Equal(t, 403, KindPermission.HTTPStatus())
	assert.Equal(t, 500, KindAPI.HTTPStatus())
	assert.Equal(t, 500, KindInternal.HTTPStatus())
	assert.Equal(t, 400, KindNotConnected.HTTPStatus())
	assert.Equal(t, 401, KindTokenExpired.HTTPStatus())
	assert.Equal(t, 500, ErrorKind("SOMETHING").HTTPStatus())
}

func TestProviderErrorKeepsBothMessages(t *testing.T) {
	pe := &ProviderError{Provider: ProviderInstagram, StatusCode: 400, Code: 100, Message: "Invalid parameter", UserMessage: "The media could not be fetched"}
	assert.Equal(t, "instagram: Invalid parameter: The media could not be fetched (code 100, status 400)", pe.Error())
	assert.Equal(t, KindMedia, Classify(pe).Kind)
}
