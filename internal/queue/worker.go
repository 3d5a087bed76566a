package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/crosspost/internal/ids"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/publish"
)

var ErrNoAccounts = errors.New("no accounts selected for publishing")

type target struct {
	account  *models.SocialAccount
	provider publish.Provider
}

// HandleSchedulePostTask publishes a scheduled post. Loading failures are
// retried by asynq. Once dispatching starts the task returns nil.
func (j *Queue) HandleSchedulePostTask(ctx context.Context, task *asynq.Task) error {
	var payload SchedulePostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
	}

	_, err := j.PublishPost(ctx, payload.PostID)
	if errors.Is(err, ErrNoAccounts) {
		return fmt.Errorf("post %d: %v: %w", payload.PostID, err, asynq.SkipRetry)
	}
	return err
}

// PublishPost dispatches the post to every selected account, stores one
// posting history row per attempt and returns the final post status.
func (j *Queue) PublishPost(ctx context.Context, postID int64) (string, error) {
	post, err := j.pr.GetByID(ctx, postID)
	if err != nil {
		return "", err
	}
	if post == nil {
		return "", fmt.Errorf("post %d not found: %w", postID, asynq.SkipRetry)
	}

	content, err := j.content(ctx, post)
	if err != nil {
		return "", err
	}

	targets, err := j.targets(ctx, post)
	if err != nil {
		return "", err
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		semaphore = make(chan struct{}, publishConcurrency)
	)

	for _, t := range targets {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(t target) {
			defer wg.Done()
			defer func() { <-semaphore }()

			result := j.pub.DispatchForUser(ctx, post.UserID, t.provider, content)
			j.record(ctx, post, t, result)

			if result.Success {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(t)
	}
	wg.Wait()

	status := models.PostStatusFailed
	switch {
	case succeeded == len(targets):
		status = models.PostStatusPosted
	case succeeded > 0:
		status = models.PostStatusPartial
	}

	if err := j.pr.UpdatePostStatus(ctx, status, postID); err != nil {
		j.log.Error("error updating post status", slog.Int64("post_id", postID), slog.String("error", err.Error()))
	}

	j.log.Info("post processed",
		slog.Int64("post_id", postID),
		slog.String("status", status),
		slog.Int("accounts", len(targets)),
		slog.Int("succeeded", succeeded),
	)
	return status, nil
}

func (j *Queue) content(ctx context.Context, post *models.Post) (publish.PostContent, error) {
	assets, err := j.ma.ListByPostID(ctx, post.ID)
	if err != nil {
		return publish.PostContent{}, fmt.Errorf("error loading media of post %d: %w", post.ID, err)
	}

	var ext publish.Extensions
	if len(post.Extensions) > 0 {
		if err := json.Unmarshal(post.Extensions, &ext); err != nil {
			return publish.PostContent{}, fmt.Errorf("invalid extensions on post %d: %v: %w", post.ID, err, asynq.SkipRetry)
		}
	}
	if ext.Title == "" {
		ext.Title = post.Title
	}
	if ext.PrivacyLevel == "" {
		ext.PrivacyLevel = post.PrivacyLevel
	}

	media := make([]publish.MediaAsset, 0, len(assets))
	for _, a := range assets {
		media = append(media, publish.MediaAsset{
			ID:       strconv.FormatInt(a.ID, 10),
			URL:      a.FileURL,
			Kind:     publish.MediaKind(a.MediaKind),
			MIMEType: a.FileType,
			Size:     a.FileSize,
			Duration: a.Duration,
			Width:    a.Width,
			Height:   a.Height,
			AltText:  a.AltText,
		})
	}

	return publish.PostContent{
		Text:       post.Caption,
		Hashtags:   post.Hashtags,
		Mentions:   post.Mentions,
		Media:      media,
		Extensions: ext,
	}, nil
}

// targets resolves the selected accounts. Accounts are published through the
// user's active connection of their platform, so a platform selected twice is
// dispatched once.
func (j *Queue) targets(ctx context.Context, post *models.Post) ([]target, error) {
	selected, err := j.sa.ListByPostID(ctx, post.ID)
	if err != nil {
		return nil, err
	}

	seen := make(map[publish.Provider]bool, len(selected))
	targets := make([]target, 0, len(selected))
	for _, s := range selected {
		account, err := j.ac.GetByID(ctx, s.AccountID)
		if err != nil {
			j.log.Error("error retrieving social account", slog.Int64("account_id", s.AccountID), slog.String("error", err.Error()))
			continue
		}
		if account == nil || account.UserID != post.UserID {
			j.log.Warn("selected account is gone", slog.Int64("post_id", post.ID), slog.Int64("account_id", s.AccountID))
			continue
		}

		provider := publish.Provider(account.Platform)
		if seen[provider] {
			j.log.Warn("platform selected more than once", slog.Int64("post_id", post.ID), slog.String("platform", account.Platform))
			continue
		}
		seen[provider] = true
		targets = append(targets, target{account: account, provider: provider})
	}

	if len(targets) == 0 {
		return nil, ErrNoAccounts
	}
	return targets, nil
}

func (j *Queue) record(ctx context.Context, post *models.Post, t target, result publish.PublishResult) {
	history := models.PostingHistory{
		AttemptID:      ids.New(j.now()),
		UserID:         post.UserID,
		PostID:         post.ID,
		AccountID:      t.account.ID,
		Platform:       string(t.provider),
		Success:        result.Success,
		PlatformPostID: result.PlatformPostID,
		PostURL:        result.URL,
	}
	if result.Error != nil {
		history.ErrorKind = string(result.Error.Kind)
		history.ErrorMessage = result.Error.Message
	}

	if _, err := j.ph.Create(ctx, &history); err != nil {
		j.log.Error("error saving posting history", slog.Int64("post_id", post.ID), slog.String("error", err.Error()))
	}
}
