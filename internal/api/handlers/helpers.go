package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// GetUserID returns the user set by the auth middleware, or 0.
func GetUserID(c *fiber.Ctx) int64 {
	raw, _ := c.Locals("user_id").(string)
	userID, _ := strconv.ParseInt(raw, 10, 64)
	return userID
}
