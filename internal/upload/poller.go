package upload

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrProcessingTimeout = errors.New("media processing did not finish in time")

type ProcessingFailedError struct {
	MediaID string
	Detail  string
}

func (e *ProcessingFailedError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("media %s failed processing", e.MediaID)
	}
	return fmt.Sprintf("media %s failed processing: %s", e.MediaID, e.Detail)
}

type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type StatusFunc func(ctx context.Context) (*Processing, error)

type Poller struct {
	Interval    time.Duration
	MaxInterval time.Duration
	MaxAttempts int
	Sleep       SleepFunc
}

func NewPoller(cfg Config) Poller {
	return Poller{
		Interval:    cfg.PollInterval,
		MaxInterval: cfg.MaxPollInterval,
		MaxAttempts: cfg.MaxPollAttempts,
		Sleep:       Sleep,
	}
}

// Wait polls until processing succeeds or fails, issuing at most MaxAttempts
// status queries. The whole loop runs under a deadline of MaxAttempts times
// MaxInterval.
func (p Poller) Wait(ctx context.Context, mediaID string, current *Processing, status StatusFunc) error {
	return p.Track(ctx, &Session{MediaID: mediaID, State: StatePending}, current, status)
}

// Track is Wait for a live session: every status answer and query count is
// recorded on s, and s ends in StateSucceeded or StateFailed.
func (p Poller) Track(ctx context.Context, s *Session, current *Processing, status StatusFunc) error {
	err := p.track(ctx, s, current, status)
	if err != nil {
		s.State = StateFailed
	}
	return err
}

func (p Poller) track(ctx context.Context, s *Session, current *Processing, status StatusFunc) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	budget := time.Duration(p.MaxAttempts) * p.MaxInterval
	if budget <= 0 {
		budget = time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	s.observe(current)
	for {
		if current.Done() {
			return nil
		}
		if current.State == StateFailed {
			return &ProcessingFailedError{MediaID: s.MediaID, Detail: current.Detail}
		}
		if s.Attempts >= p.MaxAttempts {
			return fmt.Errorf("media %s after %d status checks: %w", s.MediaID, s.Attempts, ErrProcessingTimeout)
		}

		if err := sleep(ctx, p.delay(current)); err != nil {
			return p.ctxError(ctx, s.MediaID, err)
		}

		s.Attempts++
		next, err := status(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return p.ctxError(ctx, s.MediaID, err)
			}
			return fmt.Errorf("checking media %s status: %w", s.MediaID, err)
		}
		current = next
		s.observe(current)
	}
}

func (p Poller) delay(cur *Processing) time.Duration {
	d := p.Interval
	if cur != nil && cur.CheckAfter > 0 {
		d = cur.CheckAfter
	}
	if p.MaxInterval > 0 && d > p.MaxInterval {
		d = p.MaxInterval
	}
	return d
}

func (p Poller) ctxError(ctx context.Context, mediaID string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("media %s: %w", mediaID, ErrProcessingTimeout)
	}
	return fmt.Errorf("waiting for media %s: %w", mediaID, err)
}
