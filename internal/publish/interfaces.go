package publish

import (
	"context"
	"time"
)

// Adapter runs one provider's publish protocol.
type Adapter interface {
	Publish(ctx context.Context, conn *Connection, content PostContent) (PublishResult, error)
}

// Recorder receives one observation per dispatch. Implementations must not
// block.
type Recorder interface {
	RecordSuccess(provider Provider, latency time.Duration)
	RecordFailure(provider Provider, message string, kind ErrorKind)
}

type RateDecision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

type RateLimiter interface {
	Check(provider Provider, userID int64) RateDecision
}

type CredentialStore interface {
	GetConnection(ctx context.Context, userID int64, provider Provider) (*ConnectionRecord, error)
	RefreshIfNeeded(ctx context.Context, rec *ConnectionRecord) (*ConnectionRecord, error)
}

type nopRecorder struct{}

func (nopRecorder) RecordSuccess(Provider, time.Duration)     {}
func (nopRecorder) RecordFailure(Provider, string, ErrorKind) {}
