package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/maheshrc27/crosspost/internal/publish"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFacebookTextOnlyPost(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/page-1":
			json.NewEncoder(w).Encode(map[string]string{"id": "page-1", "access_token": "page-token"})
		case "/page-1/feed":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "Hello world", r.PostForm.Get("message"))
			assert.Equal(t, "page-token", r.PostForm.Get("access_token"))
			json.NewEncoder(w).Encode(map[string]string{"id": "page-1_123"})
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	adapter := NewFacebookService(testClient(srv.URL))
	res, err := adapter.Publish(context.Background(), bearerConn(publish.ProviderFacebook, "page-1", "user-token"), publish.PostContent{Text: "Hello world"})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "page-1_123", res.PlatformPostID)
	assert.Equal(t, "https://www.facebook.com/page-1_123", res.URL)
	assert.Equal(t, []string{"GET /page-1", "POST /page-1/feed"}, calls)
}

func TestFacebookPhotoPost(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/page-1":
			assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
			assert.Empty(t, r.URL.Query().Get("access_token"))
			json.NewEncoder(w).Encode(map[string]string{"id": "page-1", "access_token": "page-token"})
		case "/page-1/photos":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "page-token", r.PostForm.Get("access_token"))
			assert.Equal(t, "https://cdn.example.com/a.jpg", r.PostForm.Get("url"))
			assert.Equal(t, "Hello\n\n#golang", r.PostForm.Get("caption"))
			json.NewEncoder(w).Encode(map[string]string{"id": "99", "post_id": "page-1_99"})
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	adapter := NewFacebookService(testClient(srv.URL))
	res, err := adapter.Publish(context.Background(), bearerConn(publish.ProviderFacebook, "page-1", "user-token"), publish.PostContent{
		Text:     "Hello",
		Hashtags: []string{"golang"},
		Media:    []publish.MediaAsset{{URL: "https://cdn.example.com/a.jpg", Kind: publish.MediaImage}},
	})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "page-1_99", res.PlatformPostID)
	assert.Equal(t, "https://www.facebook.com/page-1_99", res.URL)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, []string{"GET /page-1", "POST /page-1/photos"}, calls)
}

func TestFacebookExtraMediaWarns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page-1":
			json.NewEncoder(w).Encode(map[string]string{"access_token": "page-token"})
		case "/page-1/videos":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "https://cdn.example.com/v.mp4", r.PostForm.Get("file_url"))
			json.NewEncoder(w).Encode(map[string]string{"id": "vid-1"})
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	adapter := NewFacebookService(testClient(srv.URL))
	res, err := adapter.Publish(context.Background(), bearerConn(publish.ProviderFacebook, "page-1", "user-token"), publish.PostContent{
		Text: "Two things",
		Media: []publish.MediaAsset{
			{URL: "https://cdn.example.com/v.mp4", Kind: publish.MediaVideo},
			{URL: "https://cdn.example.com/b.jpg", Kind: publish.MediaImage},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "vid-1", res.PlatformPostID)
	assert.Equal(t, []string{"facebook feed posts carry one media asset; 1 additional assets were not published"}, res.Warnings)
}

func TestFacebookGraphErrorIsClassifiedAsAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Error validating access token","type":"OAuthException","code":190,"error_subcode":463}}`))
	}))
	defer srv.Close()

	adapter := NewFacebookService(testClient(srv.URL))
	_, err := adapter.Publish(context.Background(), bearerConn(publish.ProviderFacebook, "page-1", "expired"), publish.PostContent{Text: "hi"})
	require.Error(t, err)

	var pe *publish.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 190, pe.Code)
	assert.Equal(t, 463, pe.Subcode)
	assert.Equal(t, publish.KindAuth, publish.Classify(err).Kind)
}

func TestFacebookNeedsPage(t *testing.T) {
	adapter := NewFacebookService(testClient("http://127.0.0.1:1"))
	_, err := adapter.Publish(context.Background(), bearerConn(publish.ProviderFacebook, "", "tok"), publish.PostContent{Text: "hi"})
	assert.Equal(t, publish.KindPermission, publish.Classify(err).Kind)
}
