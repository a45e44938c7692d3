package client

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/adamwoolhether/apiclient/client/header"
	"github.com/adamwoolhether/apiclient/client/metrics"
	"github.com/adamwoolhether/apiclient/client/serializer"
	"github.com/adamwoolhether/apiclient/client/throttle"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/adamwoolhether/apiclient/client"

// Client sends requests described by [request.Descriptor] values.
// It is safe for concurrent use. Configuration changes made through
// [Client.Headers], [Client.SetHandlerFactory] and the reset methods take
// effect on the next request.
type Client struct {
	// mu is held shared while a request is being sent and exclusively
	// while the transport is rebuilt.
	mu         sync.RWMutex
	signal     atomic.Int32
	transport  *Transport
	generation uint64

	factoryMu sync.Mutex
	factory   HandlerFactory

	headers     *header.Collection
	base        http.Client
	limiter     atomic.Pointer[throttle.Limiter]
	baseURL     string
	serializers *serializer.Registry
	hooks       Hooks
	requestID   string
	logger      *slog.Logger
	tracer      trace.Tracer
	propagator  propagation.TextMapPropagator
	metrics     *metrics.Collector
}

// Build creates a [Client]. No connection is made until the first request.
func Build(optFns ...Option) (*Client, error) {
	client := &Client{
		logger:      slog.Default(),
		serializers: serializer.Default,
		requestID:   defaultRequestIDHeader,
	}
	client.signal.Store(signalRebuild)
	client.headers = header.New(client.Reset)

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	if opts.client != nil {
		client.base = *opts.client
	}

	if opts.logger != nil {
		client.logger = opts.logger
	}

	if opts.timeout != nil {
		client.base.Timeout = *opts.timeout
	}

	if opts.noFollowRedirects {
		client.base.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	if opts.rt != nil {
		client.base.Transport = opts.rt
	}
	client.factory = opts.factory

	if opts.throttle != nil {
		l, err := throttle.New(*opts.throttle, func() *slog.Logger { return client.logger })
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		client.limiter.Store(l)
	}

	if opts.userAgent != "" {
		client.headers.Set("User-Agent", opts.userAgent)
	}
	for _, h := range opts.headers {
		client.headers.Set(h[0], h[1])
	}

	client.baseURL = opts.baseURL
	client.hooks = opts.hooks

	if opts.serializers != nil {
		client.serializers = opts.serializers
	}

	if opts.requestIDHeader != nil {
		client.requestID = *opts.requestIDHeader
	}

	tp := opts.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	client.tracer = tp.Tracer(tracerName)

	client.propagator = opts.propagator
	if client.propagator == nil {
		client.propagator = otel.GetTextMapPropagator()
	}

	if opts.registerer != nil {
		client.metrics = metrics.New(opts.registerer)
	}

	return client, nil
}

// Headers returns the default headers sent with every request. Changing
// them makes the next request re-apply them to the transport.
func (c *Client) Headers() *header.Collection {
	return c.headers
}

// Serializers returns the registry used to encode and decode bodies.
func (c *Client) Serializers() *serializer.Registry {
	return c.serializers
}

// SetRateLimit changes the client's rate limit. Waiting requests pick up
// the new limit. The first call on a client built without [WithThrottle]
// installs a limiter, which takes effect with a transport rebuild.
func (c *Client) SetRateLimit(rps, burst int) error {
	cfg := throttle.Config{RPS: rps, Burst: burst}

	if l := c.limiter.Load(); l != nil {
		return l.SetLimit(cfg)
	}

	l, err := throttle.New(cfg, func() *slog.Logger { return c.logger })
	if err != nil {
		return err
	}
	if !c.limiter.CompareAndSwap(nil, l) {
		return c.limiter.Load().SetLimit(cfg)
	}
	c.ResetTransport()

	return nil
}

// resolvePath joins a path without a scheme onto the base URL.
func (c *Client) resolvePath(path string) string {
	if c.baseURL == "" {
		return path
	}

	lower := strings.ToLower(path)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(path, "//") {
		return path
	}

	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// URL builds an absolute URL from its parts, for use as a
// [request.Descriptor] path.
func URL(scheme, host, path string, opts ...URLOption) string {
	var settings urlOpts
	for _, opt := range opts {
		opt(&settings)
	}

	if settings.port != nil {
		host = fmt.Sprintf("%s:%d", host, *settings.port)
	}

	endpoint := url.URL{
		Scheme: scheme,
		Host:   host,
		Path:   path,
	}

	return endpoint.String()
}
