package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/maheshrc27/crosspost/internal/publish"
	"github.com/maheshrc27/crosspost/internal/upload"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const googleRevokeURL = "https://oauth2.googleapis.com/revoke"

type youtubeService struct {
	opts    ClientOptions
	fetcher upload.Fetcher
}

// NewYoutubeService uploads through the YouTube Data API. An empty BaseURL
// keeps the library's default endpoint.
func NewYoutubeService(opts ClientOptions, fetcher upload.Fetcher) publish.Adapter {
	opts = opts.withDefaults("")
	return &youtubeService{opts: opts, fetcher: fetcher}
}

func (s *youtubeService) Publish(ctx context.Context, conn *publish.Connection, content publish.PostContent) (publish.PublishResult, error) {
	if len(content.Media) != 1 || !content.Media[0].IsVideo() {
		return publish.PublishResult{}, publish.NewError(publish.KindContent, "youtube uploads need exactly one video")
	}
	asset := content.Media[0]

	blob, err := s.fetcher.Fetch(ctx, asset.URL)
	if err != nil {
		return publish.PublishResult{}, publish.WrapError(publish.KindMedia, err, "fetching %s", asset.URL)
	}

	service, err := s.client(ctx, conn.AccessToken)
	if err != nil {
		return publish.PublishResult{}, err
	}

	video := youtubeVideo(content)
	mimeType := firstNonEmpty(asset.MIMEType, blob.MIMEType)
	call := service.Videos.Insert([]string{"snippet", "status"}, video).
		Media(bytes.NewReader(blob.Data), googleapi.ContentType(mimeType)).
		Context(ctx)

	response, err := call.Do()
	if err != nil {
		return publish.PublishResult{}, youtubeError(err)
	}

	return publish.PublishResult{
		Success:        true,
		PlatformPostID: response.Id,
		URL:            "https://youtu.be/" + response.Id,
	}, nil
}

func (s *youtubeService) client(ctx context.Context, accessToken string) (*youtube.Service, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.opts.HTTPClient)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if s.opts.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(s.opts.BaseURL))
	}
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating YouTube service: %w", err)
	}
	return service, nil
}

func youtubeVideo(content publish.PostContent) *youtube.Video {
	tags := make([]string, 0, len(content.Hashtags))
	for _, h := range content.Hashtags {
		if t := strings.TrimPrefix(strings.TrimSpace(h), "#"); t != "" {
			tags = append(tags, t)
		}
	}

	privacy := strings.ToLower(content.Extensions.PrivacyLevel)
	switch privacy {
	case "public", "unlisted", "private":
	default:
		privacy = "public"
	}

	return &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       publish.YoutubeTitle(content),
			Description: content.Text,
			Tags:        tags,
			CategoryId:  "22",
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: privacy,
		},
	}
}

func youtubeError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	pe := &publish.ProviderError{
		Provider:   publish.ProviderYoutube,
		StatusCode: gerr.Code,
		Message:    gerr.Message,
	}
	if len(gerr.Errors) > 0 {
		pe.CodeText = gerr.Errors[0].Reason
		if pe.Message == "" {
			pe.Message = gerr.Errors[0].Message
		}
	}
	return pe
}

func RevokeGoogleAccess(ctx context.Context, client *http.Client, accessToken string) error {
	payload := []byte("token=" + accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, googleRevokeURL, bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to revoke token, status code: %d", resp.StatusCode)
	}
	return nil
}
