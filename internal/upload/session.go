package upload

import (
	"context"
	"time"

	"github.com/maheshrc27/crosspost/internal/publish"
)

type State string

const (
	StatePending    State = "pending"
	StateInProgress State = "in_progress"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Processing is the provider's view of server-side media processing. A nil
// *Processing after FINALIZE means the media is ready.
type Processing struct {
	State      State
	CheckAfter time.Duration
	Progress   int
	Detail     string
}

func (p *Processing) Done() bool {
	return p == nil || p.State == StateSucceeded
}

// Session tracks one chunked upload. It never outlives a single Upload call.
// Attempts counts status queries issued while waiting on processing.
type Session struct {
	MediaID    string
	TotalBytes int64
	BytesSent  int64
	Segments   int
	State      State
	Processing *Processing
	Attempts   int
}

// observe records the latest processing status on the session.
func (s *Session) observe(p *Processing) {
	s.Processing = p
	switch {
	case p.Done():
		s.State = StateSucceeded
	case p.State != "":
		s.State = p.State
	}
}

type InitRequest struct {
	TotalBytes int64
	MIMEType   string
	Kind       publish.MediaKind
}

// Transport is the provider side of a binary media upload.
type Transport interface {
	UploadSimple(ctx context.Context, blob *Blob, kind publish.MediaKind) (string, error)
	Init(ctx context.Context, req InitRequest) (string, error)
	Append(ctx context.Context, mediaID string, segment int, chunk []byte) error
	Finalize(ctx context.Context, mediaID string) (*Processing, error)
	Status(ctx context.Context, mediaID string) (*Processing, error)
}
