package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/crosspost/internal/queue"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

type PostHandler struct {
	s           service.PostService
	AsynqClient queue.Enqueuer
}

func NewPostHandler(service service.PostService, asynqClient queue.Enqueuer) *PostHandler {
	return &PostHandler{s: service, AsynqClient: asynqClient}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	form, err := c.MultipartForm()
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse form",
		})
	}

	files := form.File["files"]
	caption := c.FormValue("caption")
	if len(files) == 0 && caption == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "A post needs a caption or files",
		})
	}

	postID, delay, err := h.s.CreatePost(c.Context(), userID, &transfer.PostCreation{
		Caption:          caption,
		Title:            c.FormValue("title"),
		Hashtags:         c.FormValue("hashtags"),
		Mentions:         c.FormValue("mentions"),
		PrivacyLevel:     c.FormValue("privacy_level"),
		Extensions:       c.FormValue("extensions"),
		ScheduledTime:    c.FormValue("scheduling_time"),
		SelectedAccounts: c.FormValue("selected_accounts")},
		files)

	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	err = queue.EnqueuePost(h.AsynqClient, queue.SchedulePostPayload{PostID: postID}, delay)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Error scheduling post",
			"post_id": postID,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Post scheduled successfully",
		"post_id": postID,
	})
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	userId := GetUserID(c)
	postId := c.QueryInt("id", 0)

	if postId != 0 {
		post, err := h.s.PostInfo(c.Context(), int64(postId), userId)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to get post",
			})
		}

		return c.Status(fiber.StatusOK).JSON(post)
	}

	posts, err := h.s.List(c.Context(), userId)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list posts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postId := c.QueryInt("id", 0)

	err := h.s.Remove(c.Context(), userID, int64(postId))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to remove post",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

// PostingHistory lists publish attempts, of one post when ?id is given.
func (h *PostHandler) PostingHistory(c *fiber.Ctx) error {
	userID := GetUserID(c)

	history, err := h.s.History(c.Context(), userID, int64(c.QueryInt("id", 0)), c.QueryInt("limit", 0))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to get posting history",
		})
	}

	resp := make([]transfer.PostingHistoryResponse, 0, len(history))
	for _, ph := range history {
		resp = append(resp, transfer.PostingHistoryResponse{
			AttemptID:      ph.AttemptID,
			PostID:         ph.PostID,
			AccountID:      ph.AccountID,
			Platform:       ph.Platform,
			Success:        ph.Success,
			PlatformPostID: ph.PlatformPostID,
			URL:            ph.PostURL,
			ErrorKind:      ph.ErrorKind,
			ErrorMessage:   ph.ErrorMessage,
			AttemptedAt:    ph.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}
