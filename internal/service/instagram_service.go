package service

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/maheshrc27/crosspost/internal/publish"
	"github.com/maheshrc27/crosspost/internal/transfer"
	"github.com/maheshrc27/crosspost/internal/upload"
)

type instagramService struct {
	api     *apiClient
	pollCfg upload.Config
	sleep   upload.SleepFunc
}

func NewInstagramService(opts ClientOptions, pollCfg upload.Config) publish.Adapter {
	opts = opts.withDefaults(graphBaseURL)
	return &instagramService{
		api:     newAPIClient(publish.ProviderInstagram, opts),
		pollCfg: pollCfg,
		sleep:   upload.Sleep,
	}
}

func (s *instagramService) Publish(ctx context.Context, conn *publish.Connection, content publish.PostContent) (publish.PublishResult, error) {
	if len(content.Media) == 0 {
		return publish.PublishResult{}, publish.NewError(publish.KindContent, "instagram posts need at least one image or video")
	}

	igUserID, err := s.businessAccount(ctx, conn.AccessToken)
	if err != nil {
		return publish.PublishResult{}, err
	}

	containers := &instagramContainers{api: s.api, igUserID: igUserID, token: conn.AccessToken}
	publisher := upload.NewContainerPublisher(containers, s.pollCfg).WithSleep(s.sleep)

	mediaID, err := publisher.Publish(ctx, content.ComposeText(), content.Media)
	if err != nil {
		return publish.PublishResult{}, err
	}

	return publish.PublishResult{
		Success:        true,
		PlatformPostID: mediaID,
		URL:            s.permalink(ctx, mediaID, conn.AccessToken),
	}, nil
}

// businessAccount returns the Instagram business account of the first page
// that exposes one.
func (s *instagramService) businessAccount(ctx context.Context, token string) (string, error) {
	var resp transfer.GraphAccountsResponse
	q := url.Values{"fields": {"instagram_business_account,name"}}
	if err := s.api.getJSON(ctx, "/me/accounts", q, &resp, withBearer(token)); err != nil {
		return "", err
	}

	for _, page := range resp.Data {
		if page.InstagramBusinessAccount != nil && page.InstagramBusinessAccount.ID != "" {
			return page.InstagramBusinessAccount.ID, nil
		}
	}
	return "", publish.NewError(publish.KindPermission, "none of the connected facebook pages has an instagram business account")
}

func (s *instagramService) permalink(ctx context.Context, mediaID, token string) string {
	var media transfer.GraphMedia
	q := url.Values{"fields": {"permalink"}}
	if err := s.api.getJSON(ctx, "/"+mediaID, q, &media, withBearer(token)); err != nil {
		slog.Info("instagram permalink lookup failed", slog.String("media_id", mediaID), slog.String("error", err.Error()))
		return ""
	}
	return media.Permalink
}

// instagramContainers speaks the Graph API container protocol for one
// business account.
type instagramContainers struct {
	api      *apiClient
	igUserID string
	token    string
}

func (c *instagramContainers) CreateContainer(ctx context.Context, spec upload.ContainerSpec) (string, error) {
	form := url.Values{"access_token": {c.token}}

	switch {
	case spec.Asset == nil:
		form.Set("media_type", "CAROUSEL")
		form.Set("children", strings.Join(spec.Children, ","))
	case spec.Asset.IsVideo():
		if spec.CarouselItem {
			form.Set("media_type", "VIDEO")
		} else {
			form.Set("media_type", "REELS")
		}
		form.Set("video_url", spec.Asset.URL)
	default:
		form.Set("image_url", spec.Asset.URL)
		if spec.Asset.AltText != "" {
			form.Set("alt_text", spec.Asset.AltText)
		}
	}
	if spec.CarouselItem {
		form.Set("is_carousel_item", "true")
	} else if spec.Caption != "" {
		form.Set("caption", spec.Caption)
	}

	var resp transfer.GraphObject
	if err := c.api.postForm(ctx, "/"+c.igUserID+"/media", form, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", publish.NewError(publish.KindAPI, "instagram did not return a container id")
	}
	return resp.ID, nil
}

func (c *instagramContainers) ContainerStatus(ctx context.Context, containerID string) (*upload.Processing, error) {
	var resp transfer.GraphContainerStatus
	q := url.Values{"fields": {"status_code,status"}}
	if err := c.api.getJSON(ctx, "/"+containerID, q, &resp, withBearer(c.token)); err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case "FINISHED", "PUBLISHED":
		return &upload.Processing{State: upload.StateSucceeded}, nil
	case "ERROR", "EXPIRED":
		return &upload.Processing{State: upload.StateFailed, Detail: firstNonEmpty(resp.Status, resp.StatusCode)}, nil
	default:
		return &upload.Processing{State: upload.StateInProgress}, nil
	}
}

func (c *instagramContainers) PublishContainer(ctx context.Context, containerID string) (string, error) {
	var resp transfer.GraphObject
	form := url.Values{"creation_id": {containerID}, "access_token": {c.token}}
	if err := c.api.postForm(ctx, "/"+c.igUserID+"/media_publish", form, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", publish.NewError(publish.KindAPI, "instagram did not return a media id")
	}
	return resp.ID, nil
}
