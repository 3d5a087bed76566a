package publish

import (
	"time"
)

type AuthScheme string

const (
	// SchemePrimary is a single bearer-style access token.
	SchemePrimary AuthScheme = "primary"
	// SchemeSecondary is a token plus secret pair used for signed requests.
	SchemeSecondary AuthScheme = "secondary"
)

// ConnectionRecord is a stored credential as handed over by the credential
// store. Tokens are already decrypted.
type ConnectionRecord struct {
	UserID       int64
	Provider     Provider
	AccountID    string
	AccessToken  string
	RefreshToken string
	Secret       string
	ExpiresAt    time.Time
}

// Connection is a validity-checked credential with its auth scheme decided.
type Connection struct {
	Provider     Provider
	AccountID    string
	AccessToken  string
	RefreshToken string
	Secret       string
	Scheme       AuthScheme
	ExpiresAt    time.Time
}

type Resolver struct {
	now func() time.Time
}

func NewResolver(now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{now: now}
}

// Resolve turns a stored record into a usable connection. A zero ExpiresAt
// means the credential never expires.
func (r *Resolver) Resolve(provider Provider, rec *ConnectionRecord) (*Connection, error) {
	if rec == nil || rec.AccessToken == "" {
		return nil, NewError(KindNotConnected, "%s account is not connected", provider)
	}
	if !rec.ExpiresAt.IsZero() && !r.now().Before(rec.ExpiresAt) {
		return nil, NewError(KindTokenExpired, "%s access token expired at %s", provider, rec.ExpiresAt.UTC().Format(time.RFC3339))
	}

	return &Connection{
		Provider:     provider,
		AccountID:    rec.AccountID,
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		Secret:       rec.Secret,
		Scheme:       SchemeFor(rec),
		ExpiresAt:    rec.ExpiresAt,
	}, nil
}

func SchemeFor(rec *ConnectionRecord) AuthScheme {
	if rec.Secret != "" {
		return SchemeSecondary
	}
	return SchemePrimary
}
