package client

import (
	"github.com/adamwoolhether/apiclient/client/download"
)

// Download types, so callers need not import [download].
type (
	// DownloadOption configures [Client.Download] and [Client.DownloadAsync].
	DownloadOption = download.Option

	// DownloadError carries a download sentinel plus the observed detail.
	DownloadError = download.Error

	// DownloadResult tracks one download started by [Client.DownloadAsync].
	DownloadResult = download.Result

	// ProgressFunc receives the bytes written so far and the expected
	// total, which is -1 when the server sent no Content-Length.
	ProgressFunc = download.ProgressFunc
)

// Download errors, matched with [errors.Is].
var (
	ErrContentLengthMismatch = download.ErrContentLengthMismatch
	ErrChecksumMismatch      = download.ErrChecksumMismatch
	ErrDownloadCancelled     = download.ErrDownloadCancelled
	ErrQueueShutdown         = download.ErrQueueShutdown
	ErrConflictingBatch      = download.ErrConflictingBatch
)

// Download options. See the [download] package for details.
var (
	// WithChecksum verifies the file against a hex digest, e.g.
	// WithChecksum(sha256.New(), "9f86d0...").
	WithChecksum = download.WithChecksum

	// WithProgress logs progress through the client's logger.
	WithProgress = download.WithProgress

	// WithProgressFunc reports progress to a callback, ending with a
	// (n, n) call once the file is complete.
	WithProgressFunc = download.WithProgressFunc

	// WithProgressInterval bounds how often progress is reported.
	WithProgressInterval = download.WithProgressInterval

	// WithBufferSize sets the copy chunk size.
	WithBufferSize = download.WithBufferSize

	// WithSkipExisting leaves an existing destination file untouched.
	WithSkipExisting = download.WithSkipExisting

	// WithBatch runs [Client.DownloadAsync] in a new queue limited to n
	// concurrent downloads. Further downloads join with [DownloadResult.Add].
	WithBatch = download.WithBatch
)
