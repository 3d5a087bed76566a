package service

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dghubble/oauth1"
	"github.com/maheshrc27/crosspost/internal/publish"
	"github.com/maheshrc27/crosspost/internal/transfer"
	"github.com/maheshrc27/crosspost/internal/upload"
	"golang.org/x/oauth2"
)

const (
	twitterAPIURL    = "https://api.twitter.com"
	twitterUploadURL = "https://upload.twitter.com"
	twitterWebURL    = "https://x.com/i/web/status/"

	tweetMaxLength    = 280
	mediaOmittedNote  = "[media omitted: this account is connected without media upload access]"
	mediaSkippedWarn  = "media was not attached because the account is connected with a bearer token only"
	twitterUploadPath = "/1.1/media/upload.json"
)

type TwitterOptions struct {
	ConsumerKey    string
	ConsumerSecret string
	API            ClientOptions
	UploadBaseURL  string
	UploadTimeout  time.Duration
	Upload         upload.Config
	Fetcher        upload.Fetcher
}

type twitterService struct {
	opts  TwitterOptions
	sleep upload.SleepFunc
}

func NewTwitterService(opts TwitterOptions) publish.Adapter {
	opts.API = opts.API.withDefaults(twitterAPIURL)
	if opts.UploadBaseURL == "" {
		opts.UploadBaseURL = twitterUploadURL
	}
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = 5 * time.Minute
	}
	if opts.Upload == (upload.Config{}) {
		opts.Upload = upload.DefaultConfig()
	}
	return &twitterService{opts: opts, sleep: upload.Sleep}
}

// Publish posts a tweet. Accounts connected with a token and secret pair get a
// signed client and full media support; bearer-only accounts post text only.
func (s *twitterService) Publish(ctx context.Context, conn *publish.Connection, content publish.PostContent) (publish.PublishResult, error) {
	text := content.ComposeText()

	if conn.Scheme != publish.SchemeSecondary {
		client := s.bearerClient(ctx, conn.AccessToken)
		res := publish.PublishResult{}
		if len(content.Media) > 0 {
			text = annotate(text, mediaOmittedNote, tweetMaxLength)
			res.MediaSkipped = true
			res.Warnings = append(res.Warnings, mediaSkippedWarn)
		}
		id, err := s.tweet(ctx, client, transfer.TweetRequest{Text: text})
		if err != nil {
			return publish.PublishResult{}, err
		}
		res.Success = true
		res.PlatformPostID = id
		res.URL = twitterWebURL + id
		return res, nil
	}

	client := s.signedClient(ctx, conn.AccessToken, conn.Secret)
	req := transfer.TweetRequest{Text: text}

	if len(content.Media) > 0 {
		transport := &twitterMedia{api: newAPIClient(publish.ProviderTwitter, ClientOptions{
			HTTPClient: client,
			BaseURL:    s.opts.UploadBaseURL,
			Timeout:    s.opts.UploadTimeout,
		})}
		pipeline := upload.NewPipeline(transport, s.opts.Fetcher, s.opts.Upload).WithSleep(s.sleep)

		ids, err := pipeline.UploadAll(ctx, content.Media)
		if err != nil {
			return publish.PublishResult{}, err
		}
		req.Media = &transfer.TweetMedia{MediaIDs: ids}
	}

	id, err := s.tweet(ctx, client, req)
	if err != nil {
		return publish.PublishResult{}, err
	}
	return publish.PublishResult{Success: true, PlatformPostID: id, URL: twitterWebURL + id}, nil
}

func (s *twitterService) tweet(ctx context.Context, client *http.Client, req transfer.TweetRequest) (string, error) {
	api := newAPIClient(publish.ProviderTwitter, ClientOptions{
		HTTPClient: client,
		BaseURL:    s.opts.API.BaseURL,
		Timeout:    s.opts.API.Timeout,
	})

	var resp transfer.TweetResponse
	if err := api.postJSON(ctx, "/2/tweets", req, &resp); err != nil {
		return "", err
	}
	if resp.Data.ID == "" {
		return "", publish.NewError(publish.KindAPI, "twitter did not return a tweet id")
	}
	return resp.Data.ID, nil
}

func (s *twitterService) signedClient(ctx context.Context, token, secret string) *http.Client {
	ctx = context.WithValue(ctx, oauth1.HTTPClient, s.opts.API.HTTPClient)
	cfg := oauth1.NewConfig(s.opts.ConsumerKey, s.opts.ConsumerSecret)
	return cfg.Client(ctx, oauth1.NewToken(token, secret))
}

func (s *twitterService) bearerClient(ctx context.Context, token string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.opts.API.HTTPClient)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
}

// annotate appends note to text, shortening text when both would not fit in
// limit runes.
func annotate(text, note string, limit int) string {
	if text == "" {
		return note
	}
	sep := "\n\n"
	room := limit - utf8.RuneCountInString(note) - utf8.RuneCountInString(sep)
	if utf8.RuneCountInString(text) > room {
		r := []rune(text)
		text = strings.TrimSpace(string(r[:max(room-1, 0)])) + "…"
	}
	return text + sep + note
}

// twitterMedia is the v1.1 chunked media upload protocol.
type twitterMedia struct {
	api *apiClient
}

func mediaCategory(kind publish.MediaKind, mimeType string) string {
	switch {
	case kind == publish.MediaVideo:
		return "tweet_video"
	case mimeType == "image/gif":
		return "tweet_gif"
	default:
		return "tweet_image"
	}
}

func (t *twitterMedia) UploadSimple(ctx context.Context, blob *upload.Blob, kind publish.MediaKind) (string, error) {
	var resp transfer.TwitterMediaResponse
	fields := map[string]string{"media_category": mediaCategory(kind, blob.MIMEType)}
	if err := t.api.postMultipart(ctx, twitterUploadPath, fields, "media", blob.Data, &resp); err != nil {
		return "", err
	}
	return mediaIDOf(resp)
}

func (t *twitterMedia) Init(ctx context.Context, req upload.InitRequest) (string, error) {
	var resp transfer.TwitterMediaResponse
	form := url.Values{
		"command":        {"INIT"},
		"total_bytes":    {strconv.FormatInt(req.TotalBytes, 10)},
		"media_type":     {req.MIMEType},
		"media_category": {mediaCategory(req.Kind, req.MIMEType)},
	}
	if err := t.api.postForm(ctx, twitterUploadPath, form, &resp); err != nil {
		return "", err
	}
	return mediaIDOf(resp)
}

func (t *twitterMedia) Append(ctx context.Context, mediaID string, segment int, chunk []byte) error {
	fields := map[string]string{
		"command":       "APPEND",
		"media_id":      mediaID,
		"segment_index": strconv.Itoa(segment),
	}
	return t.api.postMultipart(ctx, twitterUploadPath, fields, "media", chunk, nil)
}

func (t *twitterMedia) Finalize(ctx context.Context, mediaID string) (*upload.Processing, error) {
	var resp transfer.TwitterMediaResponse
	form := url.Values{"command": {"FINALIZE"}, "media_id": {mediaID}}
	if err := t.api.postForm(ctx, twitterUploadPath, form, &resp); err != nil {
		return nil, err
	}
	return processingOf(resp.ProcessingInfo), nil
}

func (t *twitterMedia) Status(ctx context.Context, mediaID string) (*upload.Processing, error) {
	var resp transfer.TwitterMediaResponse
	q := url.Values{"command": {"STATUS"}, "media_id": {mediaID}}
	if err := t.api.getJSON(ctx, twitterUploadPath, q, &resp); err != nil {
		return nil, err
	}
	if resp.ProcessingInfo == nil {
		return &upload.Processing{State: upload.StateSucceeded}, nil
	}
	return processingOf(resp.ProcessingInfo), nil
}

func mediaIDOf(resp transfer.TwitterMediaResponse) (string, error) {
	if resp.MediaIDString != "" {
		return resp.MediaIDString, nil
	}
	if resp.MediaID != 0 {
		return strconv.FormatInt(resp.MediaID, 10), nil
	}
	return "", publish.NewError(publish.KindMedia, "twitter did not return a media id")
}

func processingOf(info *transfer.TwitterProcessingInfo) *upload.Processing {
	if info == nil {
		return nil
	}
	p := &upload.Processing{
		State:      upload.State(info.State),
		CheckAfter: time.Duration(info.CheckAfterSecs) * time.Second,
		Progress:   info.ProgressPercent,
	}
	if info.Error != nil {
		p.Detail = firstNonEmpty(info.Error.Message, info.Error.Name)
	}
	return p
}
