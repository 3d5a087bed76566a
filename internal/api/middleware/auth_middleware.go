package middleware

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/crosspost/pkg/utils"
)

// KeyResolver maps an API key to its user.
type KeyResolver interface {
	GetUserID(ctx context.Context, apiKey string) (int64, error)
}

type AuthMiddleware struct {
	s          KeyResolver
	secretKey  string
	cookieName string
}

func NewAuthMiddleware(secretKey, cookieName string, service KeyResolver) *AuthMiddleware {
	return &AuthMiddleware{s: service, secretKey: secretKey, cookieName: cookieName}
}

// AuthMiddleware accepts an api_key query parameter or the session cookie and
// stores the user id in the "user_id" local.
func (m *AuthMiddleware) AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := c.Cookies(m.cookieName)
		apiKey := c.Query("api_key")

		if tokenString == "" && apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing Keys or cookies",
			})
		}

		if apiKey != "" {
			userID, err := m.s.GetUserID(c.Context(), apiKey)
			if err != nil {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": err.Error(),
				})
			}
			c.Locals("user_id", strconv.FormatInt(userID, 10))
			return c.Next()
		}

		claims, err := utils.ValidateToken(m.secretKey, tokenString)
		if err != nil {
			c.Cookie(&fiber.Cookie{
				Name:   m.cookieName,
				Value:  "",
				Path:   "/",
				MaxAge: -1,
			})

			slog.Info("token validation failed", slog.String("error", err.Error()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals("user_id", claims.UserID)
		return c.Next()
	}
}
