package download

import (
	"errors"
	"fmt"
)

var (
	ErrContentLengthMismatch = errors.New("content length mismatch")
	ErrChecksumMismatch      = errors.New("checksum mismatch")
	ErrDownloadCancelled     = errors.New("download cancelled")
	ErrQueueShutdown         = errors.New("download queue shut down")
	ErrConflictingBatch      = errors.New("batch already set by the queue")
)

// defaultBufferSize is the chunk size used to copy a body to disk.
const defaultBufferSize = 32 << 10

// Error wraps a sentinel error with additional detail.
type Error struct {
	Detail string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ProgressFunc receives the bytes written so far and the expected total,
// which is -1 while unknown. The final call always reports (n, n).
type ProgressFunc func(written, total int64)
