package publish

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

type Option func(*Dispatcher)

func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) {
		if r != nil {
			d.recorder = r
		}
	}
}

func WithRateLimiter(l RateLimiter) Option {
	return func(d *Dispatcher) { d.limiter = l }
}

func WithCredentialStore(s CredentialStore) Option {
	return func(d *Dispatcher) { d.store = s }
}

func WithValidator(v *Validator) Option {
	return func(d *Dispatcher) { d.validator = v }
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
		d.resolver = NewResolver(now)
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// Dispatcher is the single entry point for publishing. It holds a fixed
// provider to adapter mapping and keeps no per-request state.
type Dispatcher struct {
	adapters  map[Provider]Adapter
	resolver  *Resolver
	validator *Validator
	recorder  Recorder
	limiter   RateLimiter
	store     CredentialStore
	logger    *slog.Logger
	now       func() time.Time
}

func NewDispatcher(adapters map[Provider]Adapter, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		adapters:  adapters,
		resolver:  NewResolver(time.Now),
		validator: NewValidator(nil),
		recorder:  nopRecorder{},
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch publishes content with an already loaded credential record. It never
// retries; a failed attempt is returned as a classified result.
func (d *Dispatcher) Dispatch(ctx context.Context, provider Provider, rec *ConnectionRecord, content PostContent) PublishResult {
	start := d.now()

	adapter, ok := d.adapters[provider]
	if !ok {
		return d.fail(provider, start, NewError(KindContent, "platform %q is not supported", provider))
	}

	conn, err := d.resolver.Resolve(provider, rec)
	if err != nil {
		return d.fail(provider, start, Classify(err))
	}

	content.Text = NormalizeText(content.Text)
	if v := d.validator.Validate(provider, content); !v.Valid {
		return d.fail(provider, start, NewError(KindContent, "%s", strings.Join(v.Violations, "; ")))
	}

	result, err := adapter.Publish(ctx, conn, content)
	if err != nil {
		return d.fail(provider, start, Classify(err))
	}
	if !result.Success {
		if result.Error == nil {
			return d.fail(provider, start, NewError(KindInternal, "%s adapter reported failure without an error", provider))
		}
		d.observeFailure(provider, result.Error.Message, result.Error.Kind)
		return result
	}

	d.observeSuccess(provider, d.now().Sub(start))
	d.logger.Info("post published",
		slog.String("platform", string(provider)),
		slog.String("platform_post_id", result.PlatformPostID),
		slog.Bool("media_skipped", result.MediaSkipped),
		slog.Int("warnings", len(result.Warnings)),
	)
	return result
}

// DispatchForUser loads the user's credential for the provider and dispatches.
// The rate limiter, when configured, is consulted first.
func (d *Dispatcher) DispatchForUser(ctx context.Context, userID int64, provider Provider, content PostContent) PublishResult {
	start := d.now()

	if _, ok := d.adapters[provider]; !ok {
		return d.fail(provider, start, NewError(KindContent, "platform %q is not supported", provider))
	}

	if d.limiter != nil {
		dec := d.limiter.Check(provider, userID)
		if !dec.Allowed {
			return d.fail(provider, start, NewError(KindRateLimit,
				"publish limit of %d reached for %s, retry after %s", dec.Limit, provider, dec.RetryAfter.Round(time.Second)))
		}
	}

	if d.store == nil {
		return d.fail(provider, start, NewError(KindInternal, "no credential store configured"))
	}

	rec, err := d.store.GetConnection(ctx, userID, provider)
	if err != nil {
		return d.fail(provider, start, WrapError(KindInternal, err, "loading %s connection", provider))
	}
	if rec != nil {
		refreshed, err := d.store.RefreshIfNeeded(ctx, rec)
		if err != nil {
			d.logger.Warn("credential refresh failed",
				slog.String("platform", string(provider)),
				slog.Int64("user_id", userID),
				slog.String("error", err.Error()),
			)
		} else if refreshed != nil {
			rec = refreshed
		}
	}

	return d.Dispatch(ctx, provider, rec, content)
}

// unknownProvider labels failures for names that have no adapter, so caller
// input never becomes a metric label.
const unknownProvider Provider = "unknown"

func (d *Dispatcher) fail(provider Provider, start time.Time, err *Error) PublishResult {
	label := provider
	if _, ok := d.adapters[provider]; !ok {
		label = unknownProvider
	}
	d.observeFailure(label, err.Error(), err.Kind)
	d.logger.Warn("publish failed",
		slog.String("platform", string(label)),
		slog.String("kind", string(err.Kind)),
		slog.Duration("elapsed", d.now().Sub(start)),
		slog.String("error", err.Error()),
	)
	return Failure(err)
}

func (d *Dispatcher) observeSuccess(provider Provider, latency time.Duration) {
	defer d.recoverObserver("success")
	d.recorder.RecordSuccess(provider, latency)
}

func (d *Dispatcher) observeFailure(provider Provider, message string, kind ErrorKind) {
	defer d.recoverObserver("failure")
	d.recorder.RecordFailure(provider, message, kind)
}

func (d *Dispatcher) recoverObserver(event string) {
	if r := recover(); r != nil {
		d.logger.Error("recorder panicked", slog.String("event", event), slog.String("panic", fmt.Sprint(r)))
	}
}
