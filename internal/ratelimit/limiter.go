package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/maheshrc27/crosspost/internal/publish"
	"golang.org/x/time/rate"
)

type Config struct {
	// Limit publishes are allowed per Window for one user on one provider.
	Limit           int
	Window          time.Duration
	CleanupInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Limit:           30,
		Window:          time.Hour,
		CleanupInterval: 10 * time.Minute,
	}
}

type entry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// Limiter keeps one token bucket per (provider, user) pair.
type Limiter struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	buckets map[string]*entry

	stopCh chan struct{}
	once   sync.Once
}

func New(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.Limit <= 0 {
		cfg.Limit = def.Limit
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	return &Limiter{
		cfg:     cfg,
		now:     time.Now,
		buckets: make(map[string]*entry),
		stopCh:  make(chan struct{}),
	}
}

func (l *Limiter) Check(provider publish.Provider, userID int64) publish.RateDecision {
	now := l.now()
	lim := l.bucket(fmt.Sprintf("%s:%d", provider, userID), now)

	decision := publish.RateDecision{Limit: l.cfg.Limit}
	r := lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		decision.RetryAfter = delay
		decision.ResetAt = now.Add(delay)
		return decision
	}

	decision.Allowed = true
	decision.Remaining = max(int(lim.TokensAt(now)), 0)
	decision.ResetAt = now.Add(l.refillTime(decision.Remaining))
	return decision
}

// refillTime is how long an emptied bucket with remaining tokens left takes to
// fill up again.
func (l *Limiter) refillTime(remaining int) time.Duration {
	missing := l.cfg.Limit - remaining
	return time.Duration(missing) * l.cfg.Window / time.Duration(l.cfg.Limit)
}

func (l *Limiter) bucket(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.buckets[key]; ok {
		e.lastAccess = now
		return e.limiter
	}

	every := l.cfg.Window / time.Duration(l.cfg.Limit)
	e := &entry{limiter: rate.NewLimiter(rate.Every(every), l.cfg.Limit), lastAccess: now}
	l.buckets[key] = e
	return e.limiter
}

func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Start drops idle buckets in the background until Stop is called.
func (l *Limiter) Start() {
	go func() {
		ticker := time.NewTicker(l.cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.cleanup(l.now())
			case <-l.stopCh:
				return
			}
		}
	}()
}

func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stopCh) })
}

// cleanup removes buckets idle for longer than a full window, which are full
// again by then.
func (l *Limiter) cleanup(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, e := range l.buckets {
		if now.Sub(e.lastAccess) > l.cfg.Window {
			delete(l.buckets, key)
		}
	}
}
