package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/crosspost/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "0123456789abcdef0123456789abcdef"
	testCookie = "crosspost_session"
)

type keyResolverFunc func(ctx context.Context, apiKey string) (int64, error)

func (f keyResolverFunc) GetUserID(ctx context.Context, apiKey string) (int64, error) {
	return f(ctx, apiKey)
}

func newApp() *fiber.App {
	keys := keyResolverFunc(func(_ context.Context, apiKey string) (int64, error) {
		if apiKey == "good-key" {
			return 21, nil
		}
		return 0, errors.New("Key doesn't exist")
	})
	m := NewAuthMiddleware(testSecret, testCookie, keys)

	app := fiber.New()
	app.Get("/api/me", m.AuthMiddleware(), func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("user_id").(string))
	})
	return app
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestAuthWithAPIKey(t *testing.T) {
	app := newApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/me?api_key=good-key", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "21", body(t, resp))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/me?api_key=bad", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthWithCookie(t *testing.T) {
	app := newApp()
	token, err := utils.GenerateToken(testSecret, "5", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: token})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "5", body(t, resp))
}

func TestAuthRejectsBadCookie(t *testing.T) {
	app := newApp()

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: "forged"})
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var cleared bool
	for _, c := range resp.Cookies() {
		if c.Name == testCookie && c.Value == "" {
			cleared = true
		}
	}
	assert.True(t, cleared, "session cookie must be cleared")
}

func TestAuthRequiresCredentials(t *testing.T) {
	resp, err := newApp().Test(httptest.NewRequest(http.MethodGet, "/api/me", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body(t, resp), "Missing Keys or cookies")
}
