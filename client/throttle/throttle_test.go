package throttle

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNew_Validation(t *testing.T) {
	testCases := map[string]struct {
		cfg    Config
		expErr error
	}{
		"zeroRPS":       {cfg: Config{RPS: 0, Burst: 10}, expErr: ErrMustNotBeZero},
		"negativeRPS":   {cfg: Config{RPS: -5, Burst: 10}, expErr: ErrMustNotBeZero},
		"zeroBurst":     {cfg: Config{RPS: 10, Burst: 0}, expErr: ErrMustNotBeZero},
		"negativeBurst": {cfg: Config{RPS: 10, Burst: -5}, expErr: ErrMustNotBeZero},
		"valid":         {cfg: Config{RPS: 10, Burst: 20}},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			l, err := New(tc.cfg, nil)
			if !errors.Is(err, tc.expErr) {
				t.Fatalf("exp err %v, got: %v", tc.expErr, err)
			}
			if tc.expErr == nil && l.Config() != tc.cfg {
				t.Errorf("exp config %+v, got %+v", tc.cfg, l.Config())
			}
		})
	}
}

// okTransport answers every request with 200 after delay.
func okTransport(calls *atomic.Int32, delay time.Duration) roundTripFunc {
	return func(r *http.Request) (*http.Response, error) {
		time.Sleep(delay)
		calls.Add(1)
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: r}, nil
	}
}

func TestLimiter_Wrap(t *testing.T) {
	testCases := map[string]struct {
		cfg        Config
		requests   int
		reqTimeout time.Duration
		cancelled  bool
		expErrs    int
		expErr     error
		minElapsed time.Duration
		maxElapsed time.Duration
	}{
		"withinBurst": {
			cfg:        Config{RPS: 5, Burst: 5},
			requests:   5,
			maxElapsed: 100 * time.Millisecond,
		},
		"highLimitConcurrent": {
			cfg:        Config{RPS: 10000, Burst: 100},
			requests:   50,
			maxElapsed: 200 * time.Millisecond,
		},
		"waitsPastBurst": {
			cfg:        Config{RPS: 10, Burst: 5},
			requests:   8,
			reqTimeout: 500 * time.Millisecond,
			minElapsed: 300 * time.Millisecond,
		},
		"deadlineWhileWaiting": {
			cfg:        Config{RPS: 5, Burst: 2},
			requests:   5,
			reqTimeout: 50 * time.Millisecond,
			expErrs:    3,
			expErr:     ErrWaitingFailed,
		},
		"cancelledBeforeWait": {
			cfg:        Config{RPS: 20, Burst: 10},
			requests:   1,
			cancelled:  true,
			expErrs:    1,
			expErr:     ErrContextEnded,
			maxElapsed: 50 * time.Millisecond,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			l, err := New(tc.cfg, nil)
			if err != nil {
				t.Fatal(err)
			}

			var calls atomic.Int32
			hc := &http.Client{Transport: l.Wrap(okTransport(&calls, time.Millisecond))}

			errs := make([]error, tc.requests)
			var wg sync.WaitGroup
			start := time.Now()

			for i := range tc.requests {
				wg.Go(func() {
					ctx, cancel := t.Context(), context.CancelFunc(func() {})
					switch {
					case tc.cancelled:
						ctx, cancel = context.WithCancel(ctx)
						cancel()
					case tc.reqTimeout > 0:
						ctx, cancel = context.WithTimeout(ctx, tc.reqTimeout)
					}
					defer cancel()

					req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://example.invalid/items", nil)
					if err != nil {
						errs[i] = err
						return
					}

					resp, err := hc.Do(req)
					if err != nil {
						errs[i] = err
						return
					}
					resp.Body.Close()
				})
			}

			wg.Wait()
			elapsed := time.Since(start)

			var failed int
			for _, err := range errs {
				if err == nil {
					continue
				}
				failed++
				if !errors.Is(err, tc.expErr) {
					t.Errorf("exp %v, got: %v", tc.expErr, err)
				}
			}

			if failed != tc.expErrs {
				t.Errorf("exp %d failed requests, got %d", tc.expErrs, failed)
			}
			if got := int(calls.Load()); got != tc.requests-failed {
				t.Errorf("exp %d requests to reach the transport, got %d", tc.requests-failed, got)
			}
			if tc.minElapsed > 0 && elapsed < tc.minElapsed {
				t.Errorf("exp throttling to take at least %v, took %v", tc.minElapsed, elapsed)
			}
			if tc.maxElapsed > 0 && elapsed > tc.maxElapsed {
				t.Errorf("exp requests to finish within %v, took %v", tc.maxElapsed, elapsed)
			}
		})
	}
}

func TestLimiter_SharedAcrossWrappers(t *testing.T) {
	var calls atomic.Int32
	next := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls.Add(1)
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: r}, nil
	})

	l, err := New(Config{RPS: 1, Burst: 1}, nil)
	if err != nil {
		t.Fatal(err)
	}

	first := &http.Client{Transport: l.Wrap(next)}
	second := &http.Client{Transport: l.Wrap(next)}

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, "http://example.invalid", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := first.Do(req); err != nil {
		t.Fatalf("first request: %v", err)
	}

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, "http://example.invalid", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := second.Do(req); !errors.Is(err, ErrWaitingFailed) {
		t.Errorf("exp second wrapper to share the drained bucket, got: %v", err)
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("exp 1 call to reach the transport, got %d", got)
	}
}

func TestLimiter_SetLimit(t *testing.T) {
	l, err := New(Config{RPS: 1, Burst: 1}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := l.SetLimit(Config{RPS: 0, Burst: 1}); !errors.Is(err, ErrMustNotBeZero) {
		t.Errorf("exp ErrMustNotBeZero, got: %v", err)
	}
	if got := l.Config(); got != (Config{RPS: 1, Burst: 1}) {
		t.Errorf("rejected limit was applied: %+v", got)
	}

	if err := l.SetLimit(Config{RPS: 1000, Burst: 50}); err != nil {
		t.Fatal(err)
	}

	next := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: r}, nil
	})
	client := &http.Client{Transport: l.Wrap(next)}

	start := time.Now()
	for range 20 {
		req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, "http://example.invalid", nil)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := client.Do(req); err != nil {
			t.Fatal(err)
		}
	}
	if d := time.Since(start); d > 200*time.Millisecond {
		t.Errorf("raised limit should not throttle 20 requests, took %v", d)
	}
}

func TestThrottle_CloseIdleConnections(t *testing.T) {
	l, err := New(Config{RPS: 1, Burst: 1}, nil)
	if err != nil {
		t.Fatal(err)
	}

	next := &idleCounter{}
	client := &http.Client{Transport: l.Wrap(next)}
	client.CloseIdleConnections()

	if next.closed.Load() != 1 {
		t.Errorf("exp CloseIdleConnections to reach wrapped transport")
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

type idleCounter struct {
	closed atomic.Int32
}

func (i *idleCounter) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("not implemented")
}

func (i *idleCounter) CloseIdleConnections() { i.closed.Add(1) }
