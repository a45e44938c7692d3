package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/adamwoolhether/apiclient/client/download"
	"github.com/adamwoolhether/apiclient/client/request"
	"github.com/adamwoolhether/apiclient/client/serializer"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var errNilDescriptor = errors.New("request descriptor must not be nil")

// Do sends the request described by d. The response must carry a 2xx
// status, or the code given by [WithExpectedStatus]. With
// [WithDestination] the body is decoded by the serializer registered for
// the destination type; empty bodies leave the destination untouched.
func (c *Client) Do(ctx context.Context, d *request.Descriptor, opts ...DoOption) error {
	var settings doOpts
	for _, opt := range opts {
		err := opt(&settings)
		if err != nil {
			return err
		}
	}

	var response reflect.Type
	if settings.responseBody != nil {
		response = reflect.TypeOf(settings.responseBody)
	}

	doFunc := func(resp *http.Response) error {
		if settings.responseBody == nil || resp.StatusCode == http.StatusNoContent || resp.ContentLength == 0 {
			return nil
		}

		s, err := c.serializers.Resolve(response, serializer.In)
		if err != nil {
			return fmt.Errorf("resolving serializer: %w", err)
		}
		if j, ok := s.(serializer.JSON); ok && settings.useJSONNum {
			j.UseNumber = true
			s = j
		}

		// A chunked response may turn out empty; that is not a decode error.
		err = serializer.Decode(ctx, s, resp.Body, settings.responseBody)
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("decoding body: %w", err)
		}

		return nil
	}

	return c.exec(ctx, d, response, settings.expCode, doFunc)
}

// Perform sends the request described by d and decodes the response
// into a new T.
func Perform[T any](ctx context.Context, c *Client, d *request.Descriptor, opts ...DoOption) (T, error) {
	var out T
	err := c.Do(ctx, d, slices.Concat(opts, []DoOption{WithDestination(&out)})...)

	return out, err
}

// Raw sends the request described by d and returns the response as soon
// as its headers arrive, whatever its status. The caller must close the
// body.
func (c *Client) Raw(ctx context.Context, d *request.Descriptor) (resp *http.Response, err error) {
	if d == nil {
		return nil, errNilDescriptor
	}

	ctx, span := c.startSpan(ctx, d)
	defer func() { endSpan(span, err) }()

	return c.send(ctx, d, nil)
}

// Download executes a request that's intended to stream the response body to destPath.
// Data streams to a temp file in the same directory, then the temp file is renamed to
// destPath on success or cleared on failure.
func (c *Client) Download(ctx context.Context, d *request.Descriptor, destPath string, opts ...DownloadOption) error {
	if destPath == "" {
		return errors.New("destPath must not be empty")
	}

	dlFunc := func(resp *http.Response) error {
		n, err := download.Handle(ctx, resp.Body, resp.ContentLength, destPath, c.logger, opts...)
		if err != nil {
			return fmt.Errorf("download: %w", err)
		}
		c.metrics.Downloaded(n)

		return nil
	}

	return c.exec(ctx, d, nil, 0, dlFunc)
}

// DownloadAsync starts [Client.Download] in the background and returns a
// handle to it. Pass [WithBatch] to start a queue that more downloads can
// join through [download.Result.Add].
func (c *Client) DownloadAsync(ctx context.Context, d *request.Descriptor, destPath string, opts ...DownloadOption) (*DownloadResult, error) {
	if destPath == "" {
		return nil, errors.New("destPath must not be empty")
	}
	if d == nil {
		return nil, errNilDescriptor
	}

	q, err := download.QueueFor(opts...)
	if err != nil {
		return nil, err
	}

	d = d.Clone()
	work := func(ctx context.Context) error {
		return c.Download(ctx, d, destPath, opts...)
	}

	return q.Start(ctx, work, c.DownloadAsync), nil
}

// exec runs the request and injected function on success after validating the status code.
func (c *Client) exec(ctx context.Context, d *request.Descriptor, response reflect.Type, expCode int, fn execFn) (err error) {
	if d == nil {
		return errNilDescriptor
	}

	ctx, span := c.startSpan(ctx, d)
	defer func() { endSpan(span, err) }()

	resp, err := c.send(ctx, d, response)
	if err != nil {
		return err
	}

	discardBody := true
	defer func() {
		if discardBody {
			if _, derr := io.Copy(io.Discard, resp.Body); derr != nil {
				c.logger.Error("failed to discard unused body", "error", derr)
			}
		}
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Error("failed to close response body", "error", cerr)
		}
	}()

	if !statusOK(resp.StatusCode, expCode) {
		b, rerr := io.ReadAll(io.LimitReader(resp.Body, maxErrBodySize))
		if rerr != nil {
			b = []byte("unable to read body")
		}
		c.metrics.Failed("status")

		return newStatusError(resp, b)
	}

	if err := fn(resp); err != nil {
		discardBody = false
		c.metrics.Failed("process")
		return fmt.Errorf("exec fn: %w", err)
	}

	return nil
}

// send runs the pipeline until response headers arrive: validation,
// compilation, transport acquisition and the round trip. The transport is
// released before send returns.
func (c *Client) send(ctx context.Context, d *request.Descriptor, response reflect.Type) (*http.Response, error) {
	d = d.Clone()
	d.Path = c.resolvePath(d.Path)
	if d.Response == nil {
		d.Response = response
	}

	if err := c.check(ctx, d); err != nil {
		c.metrics.Failed("validate")
		return nil, err
	}

	// Client headers are laid under the request by the transport once it is
	// acquired, so changes made up to that point are sent.
	wire, err := request.Compile(d, c.serializers, nil)
	if err != nil {
		c.metrics.Failed("compile")
		return nil, fmt.Errorf("compiling request: %w", err)
	}

	req, err := wire.NewHTTPRequest(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.prepare(ctx, req); err != nil {
		return nil, err
	}

	t, release, err := c.Acquire()
	if err != nil {
		c.metrics.Failed("transport")
		return nil, err
	}
	defer release()

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("url.full", req.URL.Redacted()),
		attribute.Int64("apiclient.transport.generation", int64(t.Generation())),
	)

	done := c.metrics.Started(req.Method)
	start := time.Now()

	resp, err := t.do(req, wire.Fallbacks())
	if err != nil {
		done(0, 0)
		c.metrics.Failed("send")
		return nil, fmt.Errorf("exec http do: %w", err)
	}

	done(resp.StatusCode, time.Since(start))
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	c.logger.Debug("request sent",
		"method", req.Method,
		"url", req.URL.Redacted(),
		"status", resp.StatusCode,
		"request_id", req.Header.Get(c.requestID),
		"took", time.Since(start),
	)

	return resp, nil
}

// prepare stamps the request ID and trace context on req, then runs the
// prepared-request hook.
func (c *Client) prepare(ctx context.Context, req *http.Request) error {
	if c.requestID != "" && req.Header.Get(c.requestID) == "" {
		req.Header.Set(c.requestID, uuid.NewString())
	}

	c.propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))

	if c.hooks.OnRequestPrepared != nil {
		if err := c.hooks.OnRequestPrepared(req); err != nil {
			return fmt.Errorf("request prepared hook: %w", err)
		}
	}

	return nil
}

func (c *Client) startSpan(ctx context.Context, d *request.Descriptor) (context.Context, trace.Span) {
	method := strings.ToUpper(d.Method)
	if method == "" {
		method = http.MethodGet
	}

	return c.tracer.Start(ctx, "HTTP "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.request.method", method)),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func statusOK(code, exp int) bool {
	if exp != 0 {
		return code == exp
	}

	return code >= 200 && code < 300
}
