package client

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/adamwoolhether/apiclient/client/serializer"
	"github.com/adamwoolhether/apiclient/client/throttle"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Option is a functional option for configuring a [Client] via [Build].
type Option func(*options) error
type options struct {
	client            *http.Client
	rt                http.RoundTripper
	factory           HandlerFactory
	timeout           *time.Duration
	userAgent         string
	headers           [][2]string
	throttle          *throttle.Config
	noFollowRedirects bool
	logger            *slog.Logger
	baseURL           string
	serializers       *serializer.Registry
	hooks             Hooks
	requestIDHeader   *string
	tracerProvider    trace.TracerProvider
	propagator        propagation.TextMapPropagator
	registerer        prometheus.Registerer
}

// WithClient uses hc as the template for every transport the [Client]
// builds: its Timeout, CheckRedirect and Jar are copied, and its Transport
// is used when no handler factory is set.
func WithClient(hc *http.Client) Option {
	return func(c *options) error {
		if hc == nil {
			return errors.New("client must not be nil")
		}
		c.client = hc
		return nil
	}
}

// WithTransport sets a custom [http.RoundTripper] as the base transport.
// The same instance is reused across rebuilds; use [WithHandlerFactory]
// for a fresh handler per rebuild.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *options) error {
		if rt == nil {
			return errors.New("transport must not be nil")
		}
		c.rt = rt
		return nil
	}
}

// WithHandlerFactory sets the factory that creates the low-level handler
// each time the transport is built.
func WithHandlerFactory(f HandlerFactory) Option {
	return func(c *options) error {
		if f == nil {
			return errors.New("handler factory must not be nil")
		}
		c.factory = f
		return nil
	}
}

// WithTimeout bounds each request, including reading the response body.
// It is applied to every transport the client builds.
func WithTimeout(d time.Duration) Option {
	return func(c *options) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		c.timeout = &d
		return nil
	}
}

// WithUserAgent sets the User-Agent default header.
func WithUserAgent(header string) Option {
	return func(c *options) error {
		c.userAgent = header
		return nil
	}
}

// WithHeader adds a default header sent with every request. Headers can be
// changed after Build through [Client.Headers].
func WithHeader(name, value string) Option {
	return func(c *options) error {
		if name == "" {
			return errors.New("header name must not be empty")
		}
		c.headers = append(c.headers, [2]string{name, value})
		return nil
	}
}

// WithBearerToken sends token as a bearer Authorization header.
func WithBearerToken(token string) Option {
	return func(c *options) error {
		if token == "" {
			return errors.New("bearer token must not be empty")
		}
		c.headers = append(c.headers, [2]string{authorization, "Bearer " + token})
		return nil
	}
}

// WithThrottle limits the client to rps requests per second with bursts of
// burst. The limiter outlives transport rebuilds; change it later with
// [Client.SetRateLimit].
func WithThrottle(rps, burst int) Option {
	return func(c *options) error {
		cfg := throttle.Config{RPS: rps, Burst: burst}
		if err := cfg.Validate(); err != nil {
			return err
		}
		c.throttle = &cfg
		return nil
	}
}

// WithNoFollowRedirects returns 3xx responses to the caller instead of
// following them.
func WithNoFollowRedirects() Option {
	return func(c *options) error {
		c.noFollowRedirects = true
		return nil
	}
}

// WithLogger sets the logger for transport rebuilds, download progress and
// cleanup failures. It defaults to [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(c *options) error {
		c.logger = logger
		return nil
	}
}

// WithBaseURL resolves request paths without a scheme against base.
func WithBaseURL(base string) Option {
	return func(c *options) error {
		u, err := url.Parse(base)
		if err != nil {
			return fmt.Errorf("parsing base url: %w", err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("base url %q must be an absolute http(s) url", base)
		}
		c.baseURL = strings.TrimRight(base, "/")
		return nil
	}
}

// WithSerializers replaces [serializer.Default] as the registry used to
// encode bodies and decode responses.
func WithSerializers(r *serializer.Registry) Option {
	return func(c *options) error {
		if r == nil {
			return errors.New("serializer registry must not be nil")
		}
		c.serializers = r
		return nil
	}
}

// WithHooks installs lifecycle callbacks.
func WithHooks(h Hooks) Option {
	return func(c *options) error {
		c.hooks = h
		return nil
	}
}

// WithRequestID sets the header a generated request ID is sent in. It
// defaults to X-Request-Id; an empty name disables request IDs.
func WithRequestID(header string) Option {
	return func(c *options) error {
		c.requestIDHeader = &header
		return nil
	}
}

// WithTracerProvider sets the provider used to trace requests. It defaults
// to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *options) error {
		if tp == nil {
			return errors.New("tracer provider must not be nil")
		}
		c.tracerProvider = tp
		return nil
	}
}

// WithPropagator sets the propagator that injects trace context into
// outgoing headers. It defaults to the global propagator.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(c *options) error {
		if p == nil {
			return errors.New("propagator must not be nil")
		}
		c.propagator = p
		return nil
	}
}

// WithMetrics registers the client's Prometheus metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *options) error {
		if reg == nil {
			return errors.New("registerer must not be nil")
		}
		c.registerer = reg
		return nil
	}
}

// DoOption is a functional option for [Client.Do].
type DoOption func(options *doOpts) error

type doOpts struct {
	responseBody any
	useJSONNum   bool
	expCode      int
}

// WithDestination decodes the HTTP response body into bodyTemplate.
// bodyTemplate must be a pointer.
func WithDestination[T any](bodyTemplate *T) DoOption {
	return func(opts *doOpts) error {
		if bodyTemplate == nil {
			return errors.New("destination must not be nil")
		}
		opts.responseBody = bodyTemplate

		return nil
	}
}

// WithJSONNumb tells the JSON decoder to use [json.Decoder.UseNumber],
// preserving number precision as [json.Number] instead of float64.
func WithJSONNumb() DoOption {
	return func(opts *doOpts) error {
		opts.useJSONNum = true

		return nil
	}
}

// WithExpectedStatus requires the response to carry exactly code instead
// of any 2xx status.
func WithExpectedStatus(code int) DoOption {
	return func(opts *doOpts) error {
		if code < 100 || code > 599 {
			return fmt.Errorf("invalid status code %d", code)
		}
		opts.expCode = code

		return nil
	}
}

// URLOption is a functional option for [URL].
type URLOption func(options *urlOpts)

type urlOpts struct {
	port *int
}

// WithPort sets the port number on the URL's host.
func WithPort(port int) URLOption {
	return func(opts *urlOpts) {
		opts.port = &port
	}
}
