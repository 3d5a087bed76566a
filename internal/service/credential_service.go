package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/publish"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/transfer"
	"github.com/maheshrc27/crosspost/pkg/utils"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	instagramGraphURL    = "https://graph.instagram.com"
	defaultRefreshWindow = 10 * time.Minute
)

type CredentialOptions struct {
	SecretKey          string
	API                ClientOptions
	InstagramURL       string
	TiktokURL          string
	TiktokClientKey    string
	TiktokClientSecret string
	Google             oauth2.Config
	// RefreshWindow is how close to expiry a token gets refreshed before use.
	RefreshWindow time.Duration
}

// CredentialService hands decrypted credentials to the dispatcher and keeps
// refreshable tokens fresh.
type CredentialService interface {
	publish.CredentialStore
	RefreshAccount(ctx context.Context, sa *models.SocialAccount) error
}

type credentialService struct {
	sa        repository.SocialAccountRepository
	key       []byte
	opts      CredentialOptions
	instagram *apiClient
	tiktok    *apiClient
	now       func() time.Time
}

func NewCredentialService(opts CredentialOptions, sa repository.SocialAccountRepository) CredentialService {
	opts.API = opts.API.withDefaults("")
	if opts.InstagramURL == "" {
		opts.InstagramURL = instagramGraphURL
	}
	if opts.TiktokURL == "" {
		opts.TiktokURL = tiktokAPIURL
	}
	if opts.Google.Endpoint.TokenURL == "" {
		opts.Google.Endpoint = google.Endpoint
	}
	if opts.RefreshWindow <= 0 {
		opts.RefreshWindow = defaultRefreshWindow
	}

	instagramOpts := opts.API
	instagramOpts.BaseURL = opts.InstagramURL
	tiktokOpts := opts.API
	tiktokOpts.BaseURL = opts.TiktokURL

	return &credentialService{
		sa:        sa,
		key:       []byte(opts.SecretKey),
		opts:      opts,
		instagram: newAPIClient(publish.ProviderInstagram, instagramOpts),
		tiktok:    newAPIClient(publish.ProviderTiktok, tiktokOpts),
		now:       time.Now,
	}
}

// GetConnection returns nil without error when the user has no active account
// on provider.
func (s *credentialService) GetConnection(ctx context.Context, userID int64, provider publish.Provider) (*publish.ConnectionRecord, error) {
	account, err := s.sa.GetByUserAndPlatform(ctx, userID, provider.String())
	if err != nil {
		return nil, fmt.Errorf("error loading %s account: %w", provider, err)
	}
	if account == nil {
		return nil, nil
	}
	return s.record(account)
}

func (s *credentialService) record(account *models.SocialAccount) (*publish.ConnectionRecord, error) {
	accessToken, err := s.decrypt(account.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("error decrypting access token: %w", err)
	}
	refreshToken, err := s.decrypt(account.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("error decrypting refresh token: %w", err)
	}
	secret, err := s.decrypt(account.AccessSecret)
	if err != nil {
		return nil, fmt.Errorf("error decrypting access secret: %w", err)
	}

	return &publish.ConnectionRecord{
		UserID:       account.UserID,
		Provider:     publish.Provider(account.Platform),
		AccountID:    account.AccountID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Secret:       secret,
		ExpiresAt:    account.TokenExpiresAt,
	}, nil
}

// RefreshIfNeeded refreshes rec when it expires within the refresh window and
// the provider supports refreshing. Otherwise rec is returned unchanged.
func (s *credentialService) RefreshIfNeeded(ctx context.Context, rec *publish.ConnectionRecord) (*publish.ConnectionRecord, error) {
	if rec == nil || rec.ExpiresAt.IsZero() || !refreshable(rec.Provider) {
		return rec, nil
	}
	if rec.ExpiresAt.After(s.now().Add(s.opts.RefreshWindow)) {
		return rec, nil
	}

	account, err := s.sa.GetByUserAndPlatform(ctx, rec.UserID, rec.Provider.String())
	if err != nil {
		return nil, fmt.Errorf("error loading %s account: %w", rec.Provider, err)
	}
	if account == nil {
		return rec, nil
	}

	refreshed, err := s.refresh(ctx, rec)
	if err != nil {
		return nil, err
	}
	if err := s.store(ctx, account.ID, refreshed); err != nil {
		return nil, err
	}
	return refreshed, nil
}

// RefreshAccount refreshes one stored account regardless of how close it is
// to expiry.
func (s *credentialService) RefreshAccount(ctx context.Context, account *models.SocialAccount) error {
	if !refreshable(publish.Provider(account.Platform)) {
		return nil
	}
	rec, err := s.record(account)
	if err != nil {
		return err
	}
	refreshed, err := s.refresh(ctx, rec)
	if err != nil {
		return err
	}
	return s.store(ctx, account.ID, refreshed)
}

func refreshable(provider publish.Provider) bool {
	switch provider {
	case publish.ProviderInstagram, publish.ProviderTiktok, publish.ProviderYoutube:
		return true
	default:
		return false
	}
}

func (s *credentialService) refresh(ctx context.Context, rec *publish.ConnectionRecord) (*publish.ConnectionRecord, error) {
	var (
		out = *rec
		err error
	)
	switch rec.Provider {
	case publish.ProviderInstagram:
		err = s.refreshInstagram(ctx, &out)
	case publish.ProviderTiktok:
		err = s.refreshTiktok(ctx, &out)
	case publish.ProviderYoutube:
		err = s.refreshYoutube(ctx, &out)
	}
	if err != nil {
		slog.Info("token refresh failed", slog.String("platform", rec.Provider.String()), slog.Int64("user_id", rec.UserID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("error refreshing %s token: %w", rec.Provider, err)
	}
	return &out, nil
}

func (s *credentialService) refreshInstagram(ctx context.Context, rec *publish.ConnectionRecord) error {
	var resp transfer.InstagramTokenResponse
	q := url.Values{"grant_type": {"ig_refresh_token"}, "access_token": {rec.AccessToken}}
	if err := s.instagram.getJSON(ctx, "/refresh_access_token", q, &resp); err != nil {
		return err
	}
	if resp.AccessToken == "" {
		return fmt.Errorf("instagram returned no access token")
	}

	rec.AccessToken = resp.AccessToken
	rec.RefreshToken = resp.AccessToken
	rec.ExpiresAt = GetExpiresAt(s.now(), resp.ExpiresIn)
	return nil
}

func (s *credentialService) refreshTiktok(ctx context.Context, rec *publish.ConnectionRecord) error {
	if rec.RefreshToken == "" {
		return fmt.Errorf("no refresh token stored")
	}
	form := url.Values{
		"client_key":    {s.opts.TiktokClientKey},
		"client_secret": {s.opts.TiktokClientSecret},
		"grant_type":    {"refresh_token"},
		"refresh_token": {rec.RefreshToken},
	}

	var resp transfer.TiktokTokenResponse
	if err := s.tiktok.postForm(ctx, "/v2/oauth/token/", form, &resp); err != nil {
		return err
	}
	if resp.Error != "" {
		return &publish.ProviderError{
			Provider:   publish.ProviderTiktok,
			StatusCode: http.StatusOK,
			CodeText:   resp.Error,
			Message:    firstNonEmpty(resp.ErrorDescription, resp.Error),
		}
	}

	rec.AccessToken = resp.AccessToken
	if resp.RefreshToken != "" {
		rec.RefreshToken = resp.RefreshToken
	}
	rec.ExpiresAt = GetExpiresAt(s.now(), int64(resp.ExpiresIn))
	return nil
}

func (s *credentialService) refreshYoutube(ctx context.Context, rec *publish.ConnectionRecord) error {
	if rec.RefreshToken == "" {
		return fmt.Errorf("no refresh token stored")
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.opts.API.HTTPClient)

	token, err := s.opts.Google.TokenSource(ctx, &oauth2.Token{RefreshToken: rec.RefreshToken}).Token()
	if err != nil {
		return err
	}

	rec.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		rec.RefreshToken = token.RefreshToken
	}
	rec.ExpiresAt = token.Expiry
	return nil
}

func (s *credentialService) store(ctx context.Context, accountID int64, rec *publish.ConnectionRecord) error {
	accessToken, err := utils.Encrypt([]byte(rec.AccessToken), s.key)
	if err != nil {
		return err
	}
	refreshToken := ""
	if rec.RefreshToken != "" {
		if refreshToken, err = utils.Encrypt([]byte(rec.RefreshToken), s.key); err != nil {
			return err
		}
	}

	return s.sa.UpdateToken(ctx, &models.SocialAccount{
		ID:             accountID,
		AccessToken:    accessToken,
		RefreshToken:   refreshToken,
		TokenExpiresAt: rec.ExpiresAt,
		AccountStatus:  models.AccountStatusActive,
	})
}

func (s *credentialService) decrypt(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	return utils.Decrypt(value, s.key)
}
