package upload

import (
	"context"
	"errors"
	"time"

	"github.com/maheshrc27/crosspost/internal/publish"
)

type Config struct {
	ChunkSize        int
	SimpleThreshold  int64
	AlwaysChunkVideo bool
	PollInterval     time.Duration
	MaxPollInterval  time.Duration
	MaxPollAttempts  int
}

func DefaultConfig() Config {
	return Config{
		ChunkSize:        4 << 20,
		SimpleThreshold:  5 << 20,
		AlwaysChunkVideo: true,
		PollInterval:     5 * time.Second,
		MaxPollInterval:  30 * time.Second,
		MaxPollAttempts:  20,
	}
}

type Pipeline struct {
	transport Transport
	fetcher   Fetcher
	cfg       Config
	poller    Poller
}

func NewPipeline(t Transport, f Fetcher, cfg Config) *Pipeline {
	def := DefaultConfig()
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.MaxPollInterval <= 0 {
		cfg.MaxPollInterval = def.MaxPollInterval
	}
	if cfg.MaxPollAttempts <= 0 {
		cfg.MaxPollAttempts = def.MaxPollAttempts
	}
	return &Pipeline{transport: t, fetcher: f, cfg: cfg, poller: NewPoller(cfg)}
}

// WithSleep replaces the sleep used between status checks.
func (p *Pipeline) WithSleep(sleep SleepFunc) *Pipeline {
	p.poller.Sleep = sleep
	return p
}

// Upload moves one asset to the provider and returns its media id. Every
// failure is a MEDIA_ERROR carrying the underlying cause.
func (p *Pipeline) Upload(ctx context.Context, asset publish.MediaAsset) (string, error) {
	blob, err := p.fetcher.Fetch(ctx, asset.URL)
	if err != nil {
		return "", publish.WrapError(publish.KindMedia, err, "fetching %s", asset.URL)
	}
	if asset.MIMEType != "" {
		blob.MIMEType = asset.MIMEType
	}

	var id string
	if p.simple(asset, blob) {
		id, err = p.transport.UploadSimple(ctx, blob, asset.Kind)
	} else {
		id, err = p.chunked(ctx, asset, blob)
	}
	if err != nil {
		var canonical *publish.Error
		if errors.As(err, &canonical) && canonical.Kind == publish.KindMedia {
			return "", err
		}
		return "", publish.WrapError(publish.KindMedia, err, "uploading %s", asset.URL)
	}
	return id, nil
}

// UploadAll uploads assets one after another and stops at the first failure.
func (p *Pipeline) UploadAll(ctx context.Context, assets []publish.MediaAsset) ([]string, error) {
	ids := make([]string, 0, len(assets))
	for _, a := range assets {
		id, err := p.Upload(ctx, a)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (p *Pipeline) simple(asset publish.MediaAsset, blob *Blob) bool {
	if p.cfg.AlwaysChunkVideo && asset.IsVideo() {
		return false
	}
	return int64(len(blob.Data)) <= p.cfg.SimpleThreshold
}

func (p *Pipeline) chunked(ctx context.Context, asset publish.MediaAsset, blob *Blob) (string, error) {
	s := &Session{TotalBytes: int64(len(blob.Data)), State: StatePending}
	if err := p.transfer(ctx, s, asset, blob); err != nil {
		s.State = StateFailed
		return "", err
	}
	return s.MediaID, nil
}

func (p *Pipeline) transfer(ctx context.Context, s *Session, asset publish.MediaAsset, blob *Blob) error {
	id, err := p.transport.Init(ctx, InitRequest{TotalBytes: s.TotalBytes, MIMEType: blob.MIMEType, Kind: asset.Kind})
	if err != nil {
		return err
	}
	s.MediaID = id
	s.State = StateInProgress

	for off := 0; off < len(blob.Data); off += p.cfg.ChunkSize {
		end := min(off+p.cfg.ChunkSize, len(blob.Data))
		if err := p.transport.Append(ctx, s.MediaID, s.Segments, blob.Data[off:end]); err != nil {
			return err
		}
		s.Segments++
		s.BytesSent += int64(end - off)
	}

	processing, err := p.transport.Finalize(ctx, s.MediaID)
	if err != nil {
		return err
	}

	return p.poller.Track(ctx, s, processing, func(ctx context.Context) (*Processing, error) {
		return p.transport.Status(ctx, s.MediaID)
	})
}
