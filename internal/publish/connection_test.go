package publish

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestResolveNotConnected(t *testing.T) {
	r := NewResolver(nil)

	_, err := r.Resolve(ProviderFacebook, nil)
	require.Error(t, err)
	assert.Equal(t, KindNotConnected, Classify(err).Kind)

	_, err = r.Resolve(ProviderFacebook, &ConnectionRecord{AccountID: "page-1"})
	require.Error(t, err)
	assert.Equal(t, KindNotConnected, Classify(err).Kind)
}

func TestResolveExpiry(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	r := NewResolver(fixedClock(now))

	_, err := r.Resolve(ProviderTiktok, &ConnectionRecord{AccessToken: "tok", ExpiresAt: now.Add(-time.Second)})
	require.Error(t, err)
	assert.Equal(t, KindTokenExpired, Classify(err).Kind)

	_, err = r.Resolve(ProviderTiktok, &ConnectionRecord{AccessToken: "tok", ExpiresAt: now})
	require.Error(t, err, "a token expiring exactly now is no longer usable")

	conn, err := r.Resolve(ProviderTiktok, &ConnectionRecord{AccessToken: "tok", ExpiresAt: now.Add(time.Second)})
	require.NoError(t, err)
	assert.Equal(t, "tok", conn.AccessToken)
	assert.Equal(t, SchemePrimary, conn.Scheme)
}

func TestResolveZeroExpiryNeverExpires(t *testing.T) {
	r := NewResolver(fixedClock(time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)))

	conn, err := r.Resolve(ProviderTwitter, &ConnectionRecord{AccessToken: "tok", Secret: "sec", AccountID: "42"})
	require.NoError(t, err)
	assert.Equal(t, SchemeSecondary, conn.Scheme)
	assert.Equal(t, "42", conn.AccountID)
	assert.Equal(t, ProviderTwitter, conn.Provider)
}
