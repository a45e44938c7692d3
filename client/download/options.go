package download

import (
	"errors"
	"fmt"
	"hash"
	"time"
)

// Option defines optional settings for downloading files.
type Option func(*options) error

type options struct {
	checksum         *digest
	progress         bool
	progressFn       ProgressFunc
	progressInterval time.Duration
	bufferSize       int
	skipExisting     bool
	batchLimit       *int
	queue            *Queue
}

func apply(optFns []Option) (options, error) {
	opts := options{
		progressInterval: time.Second,
		bufferSize:       defaultBufferSize,
	}

	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return options{}, fmt.Errorf("applying option: %w", err)
		}
	}

	if opts.batchLimit != nil && opts.queue != nil {
		return options{}, ErrConflictingBatch
	}

	return opts, nil
}

// WithChecksum enables checksum validation of the downloaded file.
// h is a hash.Hash instance (e.g. sha256.New()), and expected is the
// hex-encoded expected checksum string.
func WithChecksum(h hash.Hash, expected string) Option {
	return func(opts *options) error {
		if h == nil {
			return errors.New("hash must not be nil")
		}

		if expected == "" {
			return errors.New("expected checksum must not be empty")
		}

		opts.checksum = newDigest(h, expected)
		return nil
	}
}

// WithProgress enables periodic download progress logging via the
// logger supplied to Handle.
func WithProgress() Option {
	return func(opts *options) error {
		opts.progress = true
		return nil
	}
}

// WithProgressFunc reports progress to fn at most once per progress
// interval, followed by a final call once the body is fully written.
func WithProgressFunc(fn ProgressFunc) Option {
	return func(opts *options) error {
		if fn == nil {
			return errors.New("progress func must not be nil")
		}
		opts.progressFn = fn
		return nil
	}
}

// WithProgressInterval sets the minimum time between progress reports.
// It defaults to one second.
func WithProgressInterval(d time.Duration) Option {
	return func(opts *options) error {
		if d < 0 {
			return errors.New("progress interval must not be negative")
		}
		opts.progressInterval = d
		return nil
	}
}

// WithBufferSize sets the chunk size used to copy the body.
func WithBufferSize(n int) Option {
	return func(opts *options) error {
		if n <= 0 {
			return fmt.Errorf("buffer size[%d] must be positive", n)
		}
		opts.bufferSize = n
		return nil
	}
}

// WithSkipExisting causes Handle to return immediately when
// the destination file already exists, avoiding a redundant download.
func WithSkipExisting() Option {
	return func(opts *options) error {
		opts.skipExisting = true
		return nil
	}
}

// WithBatch runs an async download in a new [Queue] with the given
// concurrency limit. If maxConcurrent <= 0, concurrency is unlimited.
// It cannot be passed to [Result.Add], which reuses the existing queue.
func WithBatch(maxConcurrent int) Option {
	return func(opts *options) error {
		opts.batchLimit = &maxConcurrent
		return nil
	}
}

func withBatch(q *Queue) Option {
	return func(opts *options) error {
		opts.queue = q
		return nil
	}
}

// QueueFor returns the queue an async download described by optFns should
// run in: the queue of the [Result] it was added through, a new queue for
// [WithBatch], or a new single-use queue.
func QueueFor(optFns ...Option) (*Queue, error) {
	opts, err := apply(optFns)
	if err != nil {
		return nil, err
	}

	switch {
	case opts.queue != nil:
		return opts.queue, nil
	case opts.batchLimit != nil:
		return NewQueue(*opts.batchLimit), nil
	default:
		return NewQueue(0), nil
	}
}
