package service

import (
	"context"
	"fmt"
	"net/url"

	"github.com/maheshrc27/crosspost/internal/publish"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

const (
	graphBaseURL   = "https://graph.facebook.com/v21.0"
	facebookWebURL = "https://www.facebook.com"
)

type facebookService struct {
	api *apiClient
}

func NewFacebookService(opts ClientOptions) publish.Adapter {
	opts = opts.withDefaults(graphBaseURL)
	return &facebookService{api: newAPIClient(publish.ProviderFacebook, opts)}
}

func (s *facebookService) Publish(ctx context.Context, conn *publish.Connection, content publish.PostContent) (publish.PublishResult, error) {
	if conn.AccountID == "" {
		return publish.PublishResult{}, publish.NewError(publish.KindPermission, "no facebook page is linked to this account")
	}

	pageToken, err := s.pageToken(ctx, conn.AccountID, conn.AccessToken)
	if err != nil {
		return publish.PublishResult{}, err
	}

	var (
		warnings []string
		resp     transfer.GraphPostResponse
		message  = content.ComposeText()
	)

	switch len(content.Media) {
	case 0:
		form := url.Values{"message": {message}, "access_token": {pageToken}}
		err = s.api.postForm(ctx, "/"+conn.AccountID+"/feed", form, &resp)
	default:
		if len(content.Media) > 1 {
			warnings = append(warnings, fmt.Sprintf("facebook feed posts carry one media asset; %d additional assets were not published", len(content.Media)-1))
		}
		err = s.postMedia(ctx, conn.AccountID, pageToken, message, content.Media[0], &resp)
	}
	if err != nil {
		return publish.PublishResult{}, err
	}

	id := firstNonEmpty(resp.PostID, resp.ID)
	if id == "" {
		return publish.PublishResult{}, publish.NewError(publish.KindAPI, "facebook did not return a post id")
	}

	return publish.PublishResult{
		Success:        true,
		PlatformPostID: id,
		URL:            facebookWebURL + "/" + id,
		Warnings:       warnings,
	}, nil
}

func (s *facebookService) postMedia(ctx context.Context, pageID, pageToken, message string, m publish.MediaAsset, out *transfer.GraphPostResponse) error {
	if m.IsVideo() {
		form := url.Values{"file_url": {m.URL}, "description": {message}, "access_token": {pageToken}}
		return s.api.postForm(ctx, "/"+pageID+"/videos", form, out)
	}
	form := url.Values{"url": {m.URL}, "caption": {message}, "access_token": {pageToken}}
	return s.api.postForm(ctx, "/"+pageID+"/photos", form, out)
}

// pageToken exchanges the user token for the page's own token.
func (s *facebookService) pageToken(ctx context.Context, pageID, userToken string) (string, error) {
	var page transfer.GraphPage
	q := url.Values{"fields": {"access_token"}}
	if err := s.api.getJSON(ctx, "/"+pageID, q, &page, withBearer(userToken)); err != nil {
		return "", err
	}
	if page.AccessToken == "" {
		return "", publish.NewError(publish.KindPermission, "facebook page %s did not grant a page access token", pageID)
	}
	return page.AccessToken, nil
}
