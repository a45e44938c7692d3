package download

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/adamwoolhether/apiclient/client/request"
)

// WorkFunc is the signature for async work.
type WorkFunc func(ctx context.Context) error

// Adder matches the client.DownloadAsync func signature,
// letting a [Result] enqueue further downloads.
type Adder func(ctx context.Context, d *request.Descriptor, destPath string, opts ...Option) (*Result, error)

// Queue manages a batch of concurrent async downloads.
type Queue struct {
	wg       sync.WaitGroup
	mu       sync.Mutex
	sem      chan struct{}
	shutdown atomic.Bool
	errs     []error
}

// NewQueue creates a Queue with the given concurrency limit.
// If maxConcurrent <= 0, concurrency is unlimited.
func NewQueue(maxConcurrent int) *Queue {
	q := &Queue{}
	if maxConcurrent > 0 {
		q.sem = make(chan struct{}, maxConcurrent)
	}
	return q
}

// Wait blocks until all downloads in the queue complete.
// Returns all errors joined via errors.Join.
func (q *Queue) Wait() error {
	q.wg.Wait()

	q.mu.Lock()
	defer q.mu.Unlock()

	return errors.Join(q.errs...)
}

// Shutdown prevents queued work that has not started from running.
func (q *Queue) Shutdown() {
	q.shutdown.Store(true)
}

// Start launches fn in a new goroutine managed by the queue
// and returns a Result for tracking the individual download.
func (q *Queue) Start(ctx context.Context, fn WorkFunc, adder Adder) *Result {
	ctx, cancel := context.WithCancel(ctx)
	r := &Result{
		adder:  adder,
		done:   make(chan struct{}),
		cancel: cancel,
		queue:  q,
	}

	q.wg.Go(func() {
		defer func() {
			cancel()
			close(r.done)
		}()

		if q.sem != nil {
			select {
			case q.sem <- struct{}{}:
				defer func() { <-q.sem }()
			case <-ctx.Done():
				r.fail(ctx.Err())
				return
			}
		}

		if q.shutdown.Load() {
			r.fail(ErrQueueShutdown)
			return
		}

		if err := fn(ctx); err != nil {
			r.fail(err)
		}
	})

	return r
}

// recordErr appends err to the queue's error slice under the mutex.
func (q *Queue) recordErr(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.errs = append(q.errs, err)
}
