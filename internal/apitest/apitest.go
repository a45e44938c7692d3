// Package apitest provides a small routed HTTP API for exercising the
// client end to end. Handlers return errors; middleware turns them into
// structured JSON responses.
package apitest

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// RequestIDHeader is read from requests and echoed on responses.
const RequestIDHeader = "X-Request-Id"

// TraceIDHeader carries the trace ID the server observed.
const TraceIDHeader = "X-Trace-Id"

// Handler is a http.Handler that returns an error.
type Handler func(ctx context.Context, w http.ResponseWriter, r *http.Request) error

// Middleware defines a signature to chain Handler together.
type Middleware func(handler Handler) Handler

// App is a routed test API.
type App struct {
	router     chi.Router
	mw         []Middleware
	logger     *slog.Logger
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// Option configures an [App].
type Option func(*App)

// WithMiddleware appends mw to every route's middleware stack.
func WithMiddleware(mw ...Middleware) Option {
	return func(a *App) { a.mw = append(a.mw, mw...) }
}

// WithLogger sets the logger handler errors are reported to.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) { a.logger = logger }
}

// WithTracer sets the tracer server spans are started with.
func WithTracer(tracer trace.Tracer) Option {
	return func(a *App) { a.tracer = tracer }
}

// New creates an App. Incoming trace context is extracted with the W3C
// trace-context propagator.
func New(opts ...Option) *App {
	a := App{
		router:     chi.NewRouter(),
		logger:     slog.New(slog.DiscardHandler),
		tracer:     noop.NewTracerProvider().Tracer("apitest"),
		propagator: propagation.TraceContext{},
	}
	for _, opt := range opts {
		opt(&a)
	}

	return &a
}

// Start serves a over a test server that is closed when t finishes.
func (a *App) Start(t testing.TB) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(a)
	t.Cleanup(srv.Close)

	return srv
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// Get registers a handler for GET requests at the given path.
func (a *App) Get(path string, fn Handler, mw ...Middleware) {
	a.Handle(http.MethodGet, path, fn, mw...)
}

// Post registers a handler for POST requests at the given path.
func (a *App) Post(path string, fn Handler, mw ...Middleware) {
	a.Handle(http.MethodPost, path, fn, mw...)
}

// Put registers a handler for PUT requests at the given path.
func (a *App) Put(path string, fn Handler, mw ...Middleware) {
	a.Handle(http.MethodPut, path, fn, mw...)
}

// Delete registers a handler for DELETE requests at the given path.
func (a *App) Delete(path string, fn Handler, mw ...Middleware) {
	a.Handle(http.MethodDelete, path, fn, mw...)
}

// Handle registers handler for method and path, wrapped in the route's
// middleware and then the app's.
func (a *App) Handle(method, path string, handler Handler, mw ...Middleware) {
	handler = wrap(mw, handler)
	handler = wrap(a.mw, handler)

	h := func(w http.ResponseWriter, r *http.Request) {
		ctx := a.propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := a.tracer.Start(ctx, "apitest.handler",
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("path", r.URL.Path)),
		)
		defer span.End()

		v := Values{
			RequestID: r.Header.Get(RequestIDHeader),
			TraceID:   span.SpanContext().TraceID().String(),
			Now:       time.Now().UTC(),
		}
		if !span.SpanContext().TraceID().IsValid() {
			v.TraceID = uuid.NewString()
		}

		w.Header().Set(TraceIDHeader, v.TraceID)
		if v.RequestID != "" {
			w.Header().Set(RequestIDHeader, v.RequestID)
		}

		r = r.WithContext(setValues(ctx, &v))

		if err := handler(r.Context(), w, r); err != nil {
			a.logger.Error("apitest", "handle", err)
		}
	}

	a.router.MethodFunc(method, path, h)
}

// wrap middleware around the handler and execute in order given.
func wrap(mw []Middleware, handler Handler) Handler {
	for _, mwFn := range slices.Backward(mw) {
		if mwFn != nil {
			handler = mwFn(handler)
		}
	}

	return handler
}

type ctxKey int

const valuesKey ctxKey = 1

// Values are shared across a request's middleware and handler.
type Values struct {
	RequestID  string
	TraceID    string
	Now        time.Time
	StatusCode int
}

// SetStatusCode records the response status for logging.
func SetStatusCode(ctx context.Context, statusCode int) {
	if v, ok := ctx.Value(valuesKey).(*Values); ok {
		v.StatusCode = statusCode
	}
}

// GetValues returns the request's Values, or an empty set outside a request.
func GetValues(ctx context.Context) *Values {
	v, ok := ctx.Value(valuesKey).(*Values)
	if !ok {
		return &Values{TraceID: uuid.Nil.String(), Now: time.Now()}
	}

	return v
}

func setValues(ctx context.Context, v *Values) context.Context {
	return context.WithValue(ctx, valuesKey, v)
}
