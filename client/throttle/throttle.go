package throttle

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket shared by every transport it wraps. A client
// keeps one Limiter for its lifetime, so rebuilding the transport does not
// refill the bucket.
type Limiter struct {
	limiter *rate.Limiter
	cfg     atomic.Pointer[Config]
	logFn   func() *slog.Logger
}

// New returns a Limiter allowing cfg.RPS requests per second with bursts of
// cfg.Burst. logFn lazily resolves the logger at request time, making option
// ordering irrelevant. A nil logFn, or one returning nil, disables logging.
func New(cfg Config, logFn func() *slog.Logger) (*Limiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if logFn == nil {
		logFn = func() *slog.Logger { return nil }
	}

	l := Limiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		logFn:   logFn,
	}
	l.cfg.Store(&cfg)

	return &l, nil
}

// SetLimit changes the rate and burst. Requests already waiting pick up the
// new limit.
func (l *Limiter) SetLimit(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	now := time.Now()
	l.limiter.SetLimitAt(now, rate.Limit(cfg.RPS))
	l.limiter.SetBurstAt(now, cfg.Burst)
	l.cfg.Store(&cfg)

	return nil
}

// Config returns the current limits.
func (l *Limiter) Config() Config {
	return *l.cfg.Load()
}

// Wrap returns an [http.RoundTripper] that waits on l before delegating to
// next.
func (l *Limiter) Wrap(next http.RoundTripper) http.RoundTripper {
	return &throttle{limiter: l, next: next}
}

// throttle is an http.RoundTripper, using the time/rate token
// bucket limiter to restrict outbound calls.
type throttle struct {
	limiter *Limiter
	next    http.RoundTripper
}

func (t *throttle) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w early: %w", ErrContextEnded, err)
	}

	var waited time.Duration
	cfg := t.limiter.Config()
	logger := t.limiter.logFn()
	if logger != nil && t.limiter.limiter.Tokens() < 1 {
		logger.Info("throttle tokens exhausted", "rate", cfg.RPS, "burst", cfg.Burst, "path", r.URL.Path)

		defer func() {
			logger.Info("throttle wait complete", "waited", waited.String(), "rate", cfg.RPS, "burst", cfg.Burst)
		}()
	}

	start := time.Now()

	err := t.limiter.limiter.Wait(ctx)
	waited = time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWaitingFailed, err)
	}

	if err := ctx.Err(); err != nil { // Check context hasn't expired again.
		return nil, fmt.Errorf("%w post-wait: %w", ErrContextEnded, err)
	}

	return t.next.RoundTrip(r)
}

// CloseIdleConnections forwards to the wrapped transport so that
// [http.Client.CloseIdleConnections] reaches it.
func (t *throttle) CloseIdleConnections() {
	type closeIdler interface{ CloseIdleConnections() }
	if ci, ok := t.next.(closeIdler); ok {
		ci.CloseIdleConnections()
	}
}
