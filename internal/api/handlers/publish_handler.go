package handlers

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/crosspost/internal/publish"
)

type Dispatcher interface {
	DispatchForUser(ctx context.Context, userID int64, provider publish.Provider, content publish.PostContent) publish.PublishResult
}

type PublishHandler struct {
	d Dispatcher
}

func NewPublishHandler(d Dispatcher) *PublishHandler {
	return &PublishHandler{d: d}
}

// Publish posts the JSON body to one platform right away and answers with the
// result and the status code of its error kind.
func (h *PublishHandler) Publish(c *fiber.Ctx) error {
	userID := GetUserID(c)
	provider := publish.Provider(strings.ToLower(c.Params("platform")))

	var content publish.PostContent
	if err := c.BodyParser(&content); err != nil {
		slog.Info(err.Error())
		result := publish.Failure(publish.WrapError(publish.KindContent, err, "invalid post content"))
		return c.Status(result.HTTPStatus()).JSON(result)
	}

	result := h.d.DispatchForUser(c.UserContext(), userID, provider, content)
	return c.Status(result.HTTPStatus()).JSON(result)
}
