package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestEncryptRoundTrip(t *testing.T) {
	enc, err := Encrypt([]byte("access-token"), []byte(testKey))
	require.NoError(t, err)
	assert.NotContains(t, enc, "access-token")

	other, err := Encrypt([]byte("access-token"), []byte(testKey))
	require.NoError(t, err)
	assert.NotEqual(t, enc, other, "nonce must differ between calls")

	plain, err := Decrypt(enc, []byte(testKey))
	require.NoError(t, err)
	assert.Equal(t, "access-token", plain)
}

func TestDecryptRejectsBadInput(t *testing.T) {
	_, err := Decrypt("not base64!", []byte(testKey))
	assert.Error(t, err)

	_, err = Decrypt("AAAA", []byte(testKey))
	assert.EqualError(t, err, "ciphertext too short")

	enc, err := Encrypt([]byte("secret"), []byte(testKey))
	require.NoError(t, err)
	_, err = Decrypt(enc, []byte(strings.Repeat("x", 32)))
	assert.Error(t, err)
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(testKey, "42", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(testKey, token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.UserID)
	assert.Equal(t, tokenIssuer, claims.Issuer)
}

func TestValidateTokenFailures(t *testing.T) {
	expired, err := GenerateToken(testKey, "42", -time.Minute)
	require.NoError(t, err)
	_, err = ValidateToken(testKey, expired)
	assert.Error(t, err)

	token, err := GenerateToken(testKey, "42", time.Hour)
	require.NoError(t, err)
	_, err = ValidateToken("another-secret-key-of-some-size", token)
	assert.Error(t, err)

	_, err = ValidateToken(testKey, "garbage")
	assert.Error(t, err)
}
