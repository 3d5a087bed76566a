package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/maheshrc27/crosspost/internal/publish"
	"github.com/maheshrc27/crosspost/internal/transfer"
	"github.com/maheshrc27/crosspost/internal/upload"
)

const (
	tiktokAPIURL           = "https://open.tiktokapis.com"
	tiktokRevokeURL        = "https://open-api.tiktok.com/oauth/revoke/"
	tiktokDefaultPrivacy   = "PUBLIC_TO_EVERYONE"
	tiktokPhotoTitleLength = 90
)

type tiktokService struct {
	api     *apiClient
	pollCfg upload.Config
	sleep   upload.SleepFunc
}

func NewTiktokService(opts ClientOptions, pollCfg upload.Config) publish.Adapter {
	opts = opts.withDefaults(tiktokAPIURL)
	if pollCfg.MaxPollAttempts <= 0 {
		pollCfg = upload.DefaultConfig()
	}
	return &tiktokService{
		api:     newAPIClient(publish.ProviderTiktok, opts),
		pollCfg: pollCfg,
		sleep:   upload.Sleep,
	}
}

// Publish negotiates the creator's capabilities first; nothing is uploaded
// when the requested settings are not allowed for the creator.
func (s *tiktokService) Publish(ctx context.Context, conn *publish.Connection, content publish.PostContent) (publish.PublishResult, error) {
	bearer := withBearer(conn.AccessToken)

	info, err := s.creatorInfo(ctx, bearer)
	if err != nil {
		return publish.PublishResult{}, err
	}

	privacy := content.Extensions.PrivacyLevel
	if privacy == "" {
		privacy = tiktokDefaultPrivacy
	}
	if !slices.Contains(info.PrivacyLevelOptions, privacy) {
		return publish.PublishResult{}, publish.NewError(publish.KindContent,
			"privacy level %s is not available for this creator (allowed: %s)", privacy, strings.Join(info.PrivacyLevelOptions, ", "))
	}

	var publishID string
	switch publish.TiktokPostType(content) {
	case publish.TiktokPostVideo:
		publishID, err = s.initVideo(ctx, bearer, info, privacy, content)
	default:
		publishID, err = s.initPhotos(ctx, bearer, info, privacy, content)
	}
	if err != nil {
		return publish.PublishResult{}, err
	}

	postID, err := s.waitForPublish(ctx, bearer, publishID)
	if err != nil {
		return publish.PublishResult{}, err
	}

	res := publish.PublishResult{Success: true, PlatformPostID: publishID}
	if postID != "" {
		res.PlatformPostID = postID
		if info.CreatorUsername != "" {
			res.URL = fmt.Sprintf("https://www.tiktok.com/@%s/video/%s", info.CreatorUsername, postID)
		}
	}
	return res, nil
}

func (s *tiktokService) creatorInfo(ctx context.Context, bearer requestOption) (*transfer.TiktokCreatorInfo, error) {
	var resp transfer.TiktokCreatorInfoResponse
	if err := s.api.postJSON(ctx, "/v2/post/publish/creator_info/query/", nil, &resp, bearer); err != nil {
		return nil, err
	}
	if !resp.Error.OK() {
		return nil, tiktokError(resp.Error)
	}
	return &resp.Data, nil
}

func (s *tiktokService) initVideo(ctx context.Context, bearer requestOption, info *transfer.TiktokCreatorInfo, privacy string, content publish.PostContent) (string, error) {
	video := content.Media[0]
	if limit := info.MaxVideoPostDurationSec; limit > 0 && video.Duration > float64(limit) {
		return "", publish.NewError(publish.KindContent, "video is %.0fs long, this creator can post at most %ds", video.Duration, limit)
	}

	req := transfer.VideoUploadRequest{
		PostInfo: transfer.VideoPostInfo{
			Title:                 content.ComposeText(),
			PrivacyLevel:          privacy,
			DisableComment:        content.Extensions.DisableComment || info.CommentDisabled,
			DisableDuet:           content.Extensions.DisableDuet || info.DuetDisabled,
			DisableStitch:         content.Extensions.DisableStitch || info.StitchDisabled,
			VideoCoverTimestampMs: 1000,
		},
		SourceInfo: transfer.VideoSourceInfo{
			Source:   "PULL_FROM_URL",
			VideoURL: video.URL,
		},
	}
	return s.init(ctx, "/v2/post/publish/video/init/", req, bearer)
}

func (s *tiktokService) initPhotos(ctx context.Context, bearer requestOption, info *transfer.TiktokCreatorInfo, privacy string, content publish.PostContent) (string, error) {
	photos := make([]string, 0, len(content.Media))
	for _, m := range content.Media {
		photos = append(photos, m.URL)
	}

	text := content.ComposeText()
	title := []rune(strings.TrimSpace(strings.SplitN(text, "\n", 2)[0]))
	if len(title) > tiktokPhotoTitleLength {
		title = title[:tiktokPhotoTitleLength]
	}

	req := transfer.PhotoUploadRequest{
		PostInfo: transfer.PhotoPostInfo{
			Title:          string(title),
			Description:    text,
			PrivacyLevel:   privacy,
			DisableComment: content.Extensions.DisableComment || info.CommentDisabled,
			AutoAddMusic:   true,
		},
		SourceInfo: transfer.PhotoSourceInfo{
			Source:          "PULL_FROM_URL",
			PhotoCoverIndex: 0,
			PhotoImages:     photos,
		},
		PostMode:  "DIRECT_POST",
		MediaType: "PHOTO",
	}
	return s.init(ctx, "/v2/post/publish/content/init/", req, bearer)
}

func (s *tiktokService) init(ctx context.Context, path string, payload any, bearer requestOption) (string, error) {
	var resp transfer.TiktokPublishResponse
	if err := s.api.postJSON(ctx, path, payload, &resp, bearer); err != nil {
		return "", err
	}
	if !resp.Error.OK() {
		return "", tiktokError(resp.Error)
	}
	if resp.Data.PublishID == "" {
		return "", publish.NewError(publish.KindAPI, "tiktok did not return a publish id")
	}
	return resp.Data.PublishID, nil
}

// waitForPublish polls the publish status and returns the public post id
// when TikTok reports one.
func (s *tiktokService) waitForPublish(ctx context.Context, bearer requestOption, publishID string) (string, error) {
	poller := upload.NewPoller(s.pollCfg)
	poller.Sleep = s.sleep

	var postID string
	status := func(ctx context.Context) (*upload.Processing, error) {
		var resp transfer.TiktokStatusResponse
		if err := s.api.postJSON(ctx, "/v2/post/publish/status/fetch/", transfer.TiktokStatusRequest{PublishID: publishID}, &resp, bearer); err != nil {
			return nil, err
		}
		if !resp.Error.OK() {
			return nil, tiktokError(resp.Error)
		}
		if ids := resp.Data.PubliclyAvailablePostIDs; len(ids) > 0 {
			postID = strconv.FormatInt(ids[0], 10)
		}
		return tiktokProcessing(resp.Data.Status, resp.Data.FailReason), nil
	}

	err := poller.Wait(ctx, publishID, &upload.Processing{State: upload.StatePending}, status)
	if err != nil {
		var failed *upload.ProcessingFailedError
		if errors.As(err, &failed) || errors.Is(err, upload.ErrProcessingTimeout) {
			return "", publish.WrapError(publish.KindMedia, err, "tiktok publish %s", publishID)
		}
		return "", err
	}
	return postID, nil
}

func tiktokProcessing(status, reason string) *upload.Processing {
	switch {
	case status == "PUBLISH_COMPLETE":
		return &upload.Processing{State: upload.StateSucceeded}
	case status == "FAILED":
		return &upload.Processing{State: upload.StateFailed, Detail: reason}
	case strings.HasPrefix(status, "PROCESSING_"):
		return &upload.Processing{State: upload.StateInProgress}
	default:
		slog.Info("unexpected tiktok publish status", slog.String("status", status))
		return &upload.Processing{State: upload.StateInProgress}
	}
}

func tiktokError(e transfer.TiktokError) error {
	return &publish.ProviderError{
		Provider:   publish.ProviderTiktok,
		StatusCode: http.StatusOK,
		CodeText:   e.Code,
		Message:    e.Message,
	}
}

func RevokeTiktokAccess(ctx context.Context, client *http.Client, openID, accessToken string) error {
	params := url.Values{}
	params.Add("open_id", openID)
	params.Add("access_token", accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tiktokRevokeURL, strings.NewReader(params.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var result transfer.TiktokRevokeData
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to revoke token, status code: %s", result.Description)
	}
	return nil
}
