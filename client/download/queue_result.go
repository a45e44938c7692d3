package download

import (
	"context"
	"slices"

	"github.com/adamwoolhether/apiclient/client/request"
)

// Result tracks one async download. Every Result started in the same
// [Queue] shares the queue's joined error through [Result.Wait].
type Result struct {
	adder  Adder
	done   chan struct{}
	err    error
	cancel context.CancelFunc
	queue  *Queue
}

// Add runs another download described by d in the same queue. Passing
// [WithBatch] fails with [ErrConflictingBatch].
//
// A download that cannot be started yields an already completed Result
// whose error is also reported by [Result.Wait], so callers may add a
// batch and check only the final Wait.
func (r *Result) Add(ctx context.Context, d *request.Descriptor, destPath string, optFns ...Option) *Result {
	added, err := r.adder(ctx, d, destPath, slices.Concat([]Option{withBatch(r.queue)}, optFns)...)
	if err == nil {
		return added
	}

	r.queue.recordErr(err)

	return r.settled(err)
}

// settled returns a completed Result in r's queue carrying err.
func (r *Result) settled(err error) *Result {
	done := make(chan struct{})
	close(done)

	return &Result{adder: r.adder, done: done, err: err, cancel: func() {}, queue: r.queue}
}

// Done is closed once the download finishes, whatever its outcome.
func (r *Result) Done() <-chan struct{} { return r.done }

// Err waits for this download and returns its error.
func (r *Result) Err() error {
	<-r.done
	return r.err
}

// Wait waits for every download in the queue and returns their errors
// joined.
func (r *Result) Wait() error {
	return r.queue.Wait()
}

// Cancel stops this download. A partially written temp file is removed.
func (r *Result) Cancel() {
	r.cancel()
}

func (r *Result) fail(err error) {
	r.err = err
	r.queue.recordErr(err)
}
