// Package download streams HTTP response bodies to disk with optional
// checksum validation and progress reporting.
//
// # Single Download
//
// [Handle] copies the response body in fixed-size chunks to a temporary
// file alongside the destination path, then atomically renames it on
// success:
//
//	n, err := download.Handle(ctx, resp.Body, resp.ContentLength, destPath, logger,
//		download.WithProgressFunc(func(written, total int64) { ... }),
//	)
//
// # Queues
//
// A [Queue] runs downloads concurrently up to a limit and joins their
// errors. [Result.Add] enqueues more work on the queue a result belongs to.
//
// Most callers should use the higher-level
// [github.com/adamwoolhether/apiclient/client] package, which invokes
// Handle internally and re-exports the download options as
// client.With* functions.
package download
