package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/maheshrc27/crosspost/internal/publish"
	"github.com/maheshrc27/crosspost/internal/upload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const clipURL = "https://cdn.example.com/clip.mp4"

func clipFetcher() staticFetcher {
	return staticFetcher{blobs: map[string]*upload.Blob{
		clipURL: {Data: []byte("not really a video"), MIMEType: "video/mp4"},
	}}
}

func clipContent() publish.PostContent {
	return publish.PostContent{
		Text:       "Launch day\nEverything we shipped",
		Hashtags:   []string{"#golang", "release"},
		Media:      []publish.MediaAsset{{URL: clipURL, Kind: publish.MediaVideo, MIMEType: "video/mp4"}},
		Extensions: publish.Extensions{PrivacyLevel: "Unlisted"},
	}
}

func TestYoutubeUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/youtube/v3/videos"), r.URL.Path)
		assert.Equal(t, "Bearer yt-token", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"title":"Launch day"`)
		assert.Contains(t, string(body), `"tags":["golang","release"]`)
		assert.Contains(t, string(body), `"privacyStatus":"unlisted"`)
		assert.Contains(t, string(body), "not really a video")

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"vid-1"}`)
	}))
	defer srv.Close()

	adapter := NewYoutubeService(testClient(srv.URL+"/"), clipFetcher())
	res, err := adapter.Publish(context.Background(), bearerConn(publish.ProviderYoutube, "", "yt-token"), clipContent())
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "vid-1", res.PlatformPostID)
	assert.Equal(t, "https://youtu.be/vid-1", res.URL)
}

func TestYoutubeQuotaError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"error":{"code":403,"message":"The request cannot be completed because you have exceeded your quota.","errors":[{"reason":"quotaExceeded","message":"quota"}]}}`)
	}))
	defer srv.Close()

	adapter := NewYoutubeService(testClient(srv.URL+"/"), clipFetcher())
	_, err := adapter.Publish(context.Background(), bearerConn(publish.ProviderYoutube, "", "yt-token"), clipContent())
	require.Error(t, err)

	var pe *publish.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusForbidden, pe.StatusCode)
	assert.Equal(t, "quotaExceeded", pe.CodeText)
	assert.Equal(t, publish.KindRateLimit, publish.Classify(err).Kind)
}

func TestYoutubeNeedsOneVideo(t *testing.T) {
	adapter := NewYoutubeService(testClient("http://127.0.0.1:1/"), clipFetcher())

	content := clipContent()
	content.Media[0].Kind = publish.MediaImage
	_, err := adapter.Publish(context.Background(), bearerConn(publish.ProviderYoutube, "", "yt-token"), content)
	assert.Equal(t, publish.KindContent, publish.Classify(err).Kind)

	content = clipContent()
	content.Media[0].URL = "https://cdn.example.com/missing.mp4"
	_, err = adapter.Publish(context.Background(), bearerConn(publish.ProviderYoutube, "", "yt-token"), content)
	assert.Equal(t, publish.KindMedia, publish.Classify(err).Kind)
}
