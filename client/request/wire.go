package request

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
)

// Wire is a compiled request. It is never modified after [Compile]
// returns; accessors hand out copies.
type Wire struct {
	method  string
	url     string
	header  http.Header
	body    []byte
	hasBody bool

	// fallback names headers Compile synthesized rather than merged.
	fallback []string
}

// Method returns the HTTP method.
func (w *Wire) Method() string { return w.method }

// URL returns the absolute URL including the query string.
func (w *Wire) URL() string { return w.url }

// Header returns a copy of the merged request headers.
func (w *Wire) Header() http.Header { return w.header.Clone() }

// Fallbacks returns the names of headers Compile synthesized because no
// input supplied them. A sender laying default headers under the request
// may replace these.
func (w *Wire) Fallbacks() []string { return slices.Clone(w.fallback) }

// HasBody reports whether the request carries a body, which may be empty.
func (w *Wire) HasBody() bool { return w.hasBody }

// Body returns a copy of the request body.
func (w *Wire) Body() []byte { return bytes.Clone(w.body) }

// NewHTTPRequest builds a fresh [http.Request] for w bound to ctx.
// Scheme-relative URLs are sent over https.
func (w *Wire) NewHTTPRequest(ctx context.Context) (*http.Request, error) {
	target := w.url
	if strings.HasPrefix(target, "//") {
		target = "https:" + target
	}

	var body io.Reader
	if w.hasBody {
		body = bytes.NewReader(w.body)
	}

	req, err := http.NewRequestWithContext(ctx, w.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("instantiating request: %w", err)
	}
	req.Header = w.header.Clone()

	return req, nil
}

// WriteTo writes the canonical text form of w: request line, headers
// sorted by name, a blank line and the body.
func (w *Wire) WriteTo(dst io.Writer) (int64, error) {
	cw := &countingWriter{w: bufio.NewWriter(dst)}

	fmt.Fprintf(cw, "%s %s HTTP/1.1\r\n", w.method, w.url)
	if err := w.header.Write(cw); err != nil {
		return cw.n, err
	}
	cw.Write([]byte("\r\n"))
	cw.Write(w.body)

	if cw.err != nil {
		return cw.n, cw.err
	}

	return cw.n, cw.w.Flush()
}

// String returns the canonical text form of w.
func (w *Wire) String() string {
	var sb strings.Builder
	_, _ = w.WriteTo(&sb)

	return sb.String()
}

type countingWriter struct {
	w   *bufio.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}

	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err

	return n, err
}
