package job

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/robfig/cron"
)

const (
	RefreshSchedule  = "0 */10 * * * *"
	refreshLookahead = 30 * time.Minute
	refreshTimeout   = 2 * time.Minute
	concurrencyLimit = 10
)

// Refresher refreshes the stored credential of one account.
type Refresher interface {
	RefreshAccount(ctx context.Context, account *models.SocialAccount) error
}

type TokenRefreshJob struct {
	sr  repository.SocialAccountRepository
	rf  Refresher
	now func() time.Time
}

func NewTokenRefreshJob(sr repository.SocialAccountRepository, rf Refresher) *TokenRefreshJob {
	return &TokenRefreshJob{
		sr:  sr,
		rf:  rf,
		now: time.Now,
	}
}

// Schedule registers the job on cr.
func (c *TokenRefreshJob) Schedule(cr *cron.Cron) error {
	return cr.AddFunc(RefreshSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		c.RefreshTokens(ctx)
	})
}

// RefreshTokens refreshes every account whose token expires within the next
// 30 minutes and returns how many were refreshed.
func (c *TokenRefreshJob) RefreshTokens(ctx context.Context) int {
	currentTime := c.now()

	accounts, err := c.sr.ListByTimeInterval(ctx, currentTime, currentTime.Add(refreshLookahead))
	if err != nil {
		slog.Info(err.Error())
		return 0
	}

	var (
		wg        sync.WaitGroup
		refreshed atomic.Int64
		semaphore = make(chan struct{}, concurrencyLimit)
	)

	for _, acc := range accounts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.SocialAccount) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := c.rf.RefreshAccount(ctx, acc); err != nil {
				slog.Info("unable to refresh token",
					slog.String("platform", acc.Platform),
					slog.Int64("account_id", acc.ID),
					slog.String("error", err.Error()),
				)
				return
			}
			refreshed.Add(1)
		}(acc)
	}
	wg.Wait()

	if len(accounts) > 0 {
		slog.Info("token refresh finished", slog.Int("accounts", len(accounts)), slog.Int64("refreshed", refreshed.Load()))
	}
	return int(refreshed.Load())
}
