// Package download enables streaming HTTP response bodies to disk
// with optional checksum validation and progress reporting.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Handle streams body to a temp file in the same directory as destPath,
// which is renamed to destPath on success. On any error the temp file is
// removed. It returns the number of bytes written.
func Handle(ctx context.Context, body io.Reader, contentLength int64, destPath string, logger *slog.Logger, optFns ...Option) (int64, error) {
	opts, err := apply(optFns)
	if err != nil {
		return 0, err
	}

	if opts.skipExisting {
		if _, err := os.Stat(destPath); err == nil {
			logger.Info("skipping existing file", "path", destPath)
			return 0, nil
		}
	}

	body = &contextReader{ctx: ctx, r: body}

	file, err := os.CreateTemp(filepath.Dir(destPath), ".apiclient-dl-*")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}

	var successful bool
	defer func() {
		if err := file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			logger.Error("defer closing temp file", "error", err)
		}
		if !successful {
			if err := os.Remove(file.Name()); err != nil {
				logger.Error("failed to remove temp file", "error", err)
			}
		}
	}()

	writer := opts.checksum.writer(file)

	progress := newProgressReporter(opts, logger, contentLength)

	n, err := copyChunks(writer, body, make([]byte, opts.bufferSize), progress)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return n, fmt.Errorf("%w: %w", ErrDownloadCancelled, err)
		}

		return n, fmt.Errorf("copying file body: %w", err)
	}

	if contentLength >= 0 && n != contentLength {
		return n, &Error{
			Err:    ErrContentLengthMismatch,
			Detail: fmt.Sprintf("expected %d bytes, got %d", contentLength, n),
		}
	}

	if err := opts.checksum.verify(); err != nil {
		return n, err
	}

	if err := file.Sync(); err != nil {
		return n, fmt.Errorf("syncing temp file: %w", err)
	}
	if err := file.Close(); err != nil {
		return n, fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(file.Name(), destPath); err != nil {
		return n, fmt.Errorf("renaming temp file: %w", err)
	}

	successful = true
	progress.finish(n)

	return n, nil
}

// copyChunks copies src to dst through buf, reporting progress after each
// chunk is written.
func copyChunks(dst io.Writer, src io.Reader, buf []byte, progress *progressReporter) (int64, error) {
	var written int64
	for {
		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			written += int64(nw)
			if werr != nil {
				return written, werr
			}
			if nw != nr {
				return written, io.ErrShortWrite
			}
			progress.update(written)
		}

		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}

// contextReader fails reads once ctx is done, so a stalled copy stops
// between chunks.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}

	return cr.r.Read(p)
}
