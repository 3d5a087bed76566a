package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/maheshrc27/crosspost/internal/publish"
	"github.com/maheshrc27/crosspost/internal/repository"
)

const (
	TaskTypeSchedulePost = "schedule:post"

	publishConcurrency = 10
)

// Publisher is the part of the dispatcher the worker needs.
type Publisher interface {
	DispatchForUser(ctx context.Context, userID int64, provider publish.Provider, content publish.PostContent) publish.PublishResult
}

type Queue struct {
	pr  repository.PostRepository
	sa  repository.SelectedAccountRepository
	ac  repository.SocialAccountRepository
	ma  repository.MediaAssetRepository
	ph  repository.PostingHistoryRepository
	pub Publisher
	now func() time.Time
	log *slog.Logger
}

func NewQueue(
	pr repository.PostRepository,
	sa repository.SelectedAccountRepository,
	ma repository.MediaAssetRepository,
	ac repository.SocialAccountRepository,
	ph repository.PostingHistoryRepository,
	pub Publisher) *Queue {
	return &Queue{
		pr:  pr,
		sa:  sa,
		ac:  ac,
		ma:  ma,
		ph:  ph,
		pub: pub,
		now: time.Now,
		log: slog.Default(),
	}
}

type SchedulePostPayload struct {
	PostID int64 `json:"post_id"`
}
