package download

import (
	"fmt"
	"log/slog"
	"time"
)

// progressReporter forwards byte counts to a ProgressFunc and, when
// enabled, the logger. Reports are rate limited to one per interval;
// finish always reports.
type progressReporter struct {
	fn       ProgressFunc
	logger   *slog.Logger
	total    int64
	interval time.Duration
	start    time.Time
	last     time.Time
}

func newProgressReporter(opts options, logger *slog.Logger, total int64) *progressReporter {
	if opts.progressFn == nil && !opts.progress {
		return nil
	}

	pr := progressReporter{
		fn:       opts.progressFn,
		total:    total,
		interval: opts.progressInterval,
		start:    time.Now(),
	}
	if opts.progress {
		pr.logger = logger
	}
	pr.last = pr.start

	return &pr
}

func (pr *progressReporter) update(written int64) {
	if pr == nil {
		return
	}

	now := time.Now()
	if now.Sub(pr.last) < pr.interval {
		return
	}
	pr.last = now

	pr.report("downloading", written, pr.total)
}

func (pr *progressReporter) finish(written int64) {
	if pr == nil {
		return
	}

	pr.report("download complete", written, written)
}

func (pr *progressReporter) report(msg string, written, total int64) {
	if pr.fn != nil {
		pr.fn(written, total)
	}

	if pr.logger == nil {
		return
	}

	elapsed := time.Since(pr.start)
	attrs := []any{
		"elapsed", elapsed.Round(time.Millisecond),
		"transferred", written,
		"total", total,
		"mbps", fmt.Sprintf("%.2f", float64(written)/elapsed.Seconds()/(1024*1024)),
	}
	if total > 0 {
		attrs = append(attrs, "progress", fmt.Sprintf("%.1f%%", float64(written)/float64(total)*100))
	}
	pr.logger.Info(msg, attrs...)
}
