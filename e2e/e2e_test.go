package e2e_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/adamwoolhether/apiclient/client"
	"github.com/adamwoolhether/apiclient/client/auth"
	"github.com/adamwoolhether/apiclient/client/request"
	"github.com/adamwoolhether/apiclient/internal/apitest"
	"github.com/google/go-cmp/cmp"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// -------------------------------------------------------------------------
// Types
// -------------------------------------------------------------------------

type user struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Age   int    `json:"age"`
}

type itemResp struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Tags    []string `json:"tags"`
	Locale  string   `json:"locale"`
	Version string   `json:"version"`
}

type getItem struct {
	Tags    []string `query:"tag,collection=recursive"`
	Locale  string   `header:"Accept-Language"`
	Version int      `query:"v,omitempty"`
}

type validateReq struct {
	Name  string `json:"name"  validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

type loginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

const (
	downloadContent = "hello, this is test download content!"
	signingKey      = "e2e-signing-key"
)

// -------------------------------------------------------------------------
// Helpers
// -------------------------------------------------------------------------

func newTestApp(t *testing.T) string {
	t.Helper()

	log := slog.New(slog.DiscardHandler)

	app := apitest.New(
		apitest.WithMiddleware(
			apitest.Logger(log),
			apitest.Errors(log),
			apitest.Panics(),
		),
		apitest.WithLogger(log),
	)

	registerRoutes(app)

	return app.Start(t).URL
}

func registerRoutes(app *apitest.App) {
	app.Post("/echo", echoHandler)
	app.Get("/items/{id}/{name}", itemHandler)
	app.Get("/error/not-found", notFoundHandler)
	app.Post("/validate", validateHandler)
	app.Post("/login", loginHandler)
	app.Get("/download", downloadHandler)
	app.Get("/whoami", whoamiHandler)
	app.Get("/private", whoamiHandler, apitest.RequireBearer([]byte(signingKey)))
}

func newClient(t *testing.T, baseURL string, opts ...client.Option) *client.Client {
	t.Helper()

	c, err := client.Build(append([]client.Option{
		client.WithBaseURL(baseURL),
		client.WithLogger(slog.New(slog.DiscardHandler)),
	}, opts...)...)
	if err != nil {
		t.Fatalf("building client: %v", err)
	}
	t.Cleanup(c.Close)

	return c
}

// -------------------------------------------------------------------------
// Handlers
// -------------------------------------------------------------------------

func echoHandler(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var u user
	if err := apitest.Decode(r, &u); err != nil {
		return err
	}

	return apitest.RespondJSON(ctx, w, http.StatusCreated, u)
}

func itemHandler(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id, err := apitest.Param(r, "id")
	if err != nil {
		return apitest.NewError(http.StatusBadRequest, err)
	}

	name, err := apitest.Param(r, "name")
	if err != nil {
		return apitest.NewError(http.StatusBadRequest, err)
	}

	return apitest.RespondJSON(ctx, w, http.StatusOK, itemResp{
		ID:      id,
		Name:    name,
		Tags:    r.URL.Query()["tag"],
		Locale:  r.Header.Get("Accept-Language"),
		Version: r.URL.Query().Get("v"),
	})
}

func notFoundHandler(_ context.Context, _ http.ResponseWriter, _ *http.Request) error {
	return apitest.NewError(http.StatusNotFound, fmt.Errorf("widget not found"))
}

func validateHandler(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var v validateReq
	if err := apitest.Decode(r, &v); err != nil {
		return err
	}

	return apitest.RespondJSON(ctx, w, http.StatusOK, v)
}

func loginHandler(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return apitest.NewError(http.StatusBadRequest, err)
	}

	return apitest.RespondJSON(ctx, w, http.StatusOK, map[string]string{
		"username":    r.PostForm.Get("username"),
		"contentType": r.Header.Get("Content-Type"),
	})
}

func downloadHandler(_ context.Context, w http.ResponseWriter, _ *http.Request) error {
	data := []byte(downloadContent)
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(data)

	return err
}

func whoamiHandler(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v := apitest.GetValues(ctx)

	return apitest.RespondJSON(ctx, w, http.StatusOK, map[string]string{
		"requestID": v.RequestID,
		"traceID":   v.TraceID,
		"tenant":    r.Header.Get("X-Tenant"),
	})
}

// -------------------------------------------------------------------------
// Tests
// -------------------------------------------------------------------------

func TestE2E_JSONRoundTrip(t *testing.T) {
	c := newClient(t, newTestApp(t))

	sent := user{Name: "Alice", Email: "alice@test.com", Age: 30}

	d := &request.Descriptor{
		Method: http.MethodPost,
		Path:   "/echo",
		Body:   request.BodySerialized,
		Params: sent,
	}

	got, err := client.Perform[user](t.Context(), c, d, client.WithExpectedStatus(http.StatusCreated))
	if err != nil {
		t.Fatalf("executing request: %v", err)
	}

	if diff := cmp.Diff(sent, got); diff != "" {
		t.Errorf("round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestE2E_PathQueryAndHeaderBindings(t *testing.T) {
	c := newClient(t, newTestApp(t))

	d := &request.Descriptor{
		Method: http.MethodGet,
		Path:   "/items/42/widget",
		Params: getItem{Tags: []string{"a b", "c"}, Locale: "en-GB", Version: 2},
	}

	got, err := client.Perform[itemResp](t.Context(), c, d)
	if err != nil {
		t.Fatalf("executing request: %v", err)
	}

	exp := itemResp{ID: "42", Name: "widget", Tags: []string{"a b", "c"}, Locale: "en-GB", Version: "2"}
	if diff := cmp.Diff(exp, got); diff != "" {
		t.Errorf("item mismatch (-want +got):\n%s", diff)
	}
}

func TestE2E_FormBody(t *testing.T) {
	c := newClient(t, newTestApp(t))

	d := &request.Descriptor{
		Method: http.MethodPost,
		Path:   "/login",
		Body:   request.BodyForm,
		Params: loginForm{Username: "gopher", Password: "p@ss word"},
	}

	got, err := client.Perform[map[string]string](t.Context(), c, d)
	if err != nil {
		t.Fatalf("executing request: %v", err)
	}

	if got["username"] != "gopher" {
		t.Errorf("username = %q, want %q", got["username"], "gopher")
	}
	if got["contentType"] != "application/x-www-form-urlencoded" {
		t.Errorf("content type = %q", got["contentType"])
	}
}

func TestE2E_ErrorHandling(t *testing.T) {
	c := newClient(t, newTestApp(t))

	err := c.Do(t.Context(), &request.Descriptor{Path: "/error/not-found"})

	var statusErr *client.UnexpectedStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected UnexpectedStatusError, got %T: %v", err, err)
	}

	if statusErr.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", statusErr.StatusCode, http.StatusNotFound)
	}

	wantBody := `{"code":404,"message":"widget not found"}`
	if statusErr.Body != wantBody {
		t.Errorf("body = %q, want %q", statusErr.Body, wantBody)
	}
}

func TestE2E_FieldValidationErrors(t *testing.T) {
	c := newClient(t, newTestApp(t))

	// The payload carries no validate tags, so only the server rejects it.
	payload := struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}{
		Email: "not-an-email",
	}

	d := &request.Descriptor{
		Method: http.MethodPost,
		Path:   "/validate",
		Body:   request.BodySerialized,
		Params: payload,
	}

	err := c.Do(t.Context(), d)

	var statusErr *client.UnexpectedStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected UnexpectedStatusError, got %T: %v", err, err)
	}

	if statusErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", statusErr.StatusCode, http.StatusUnprocessableEntity)
	}

	var fields []apitest.FieldError
	if err := json.Unmarshal([]byte(statusErr.Body), &fields); err != nil {
		t.Fatalf("parsing field errors: %v\nbody: %s", err, statusErr.Body)
	}

	if len(fields) != 2 {
		t.Fatalf("expected 2 field errors, got %d: %v", len(fields), fields)
	}
}

func TestE2E_ClientSideValidation(t *testing.T) {
	c := newClient(t, newTestApp(t))

	d := &request.Descriptor{
		Method: http.MethodPost,
		Path:   "/validate",
		Body:   request.BodySerialized,
		Params: validateReq{Email: "not-an-email"},
	}

	err := c.Do(t.Context(), d)

	var fields client.FieldErrors
	if !errors.As(err, &fields) {
		t.Fatalf("expected client.FieldErrors, got %T: %v", err, err)
	}
}

func TestE2E_FileDownload(t *testing.T) {
	c := newClient(t, newTestApp(t))

	destPath := filepath.Join(t.TempDir(), "downloaded.bin")
	sum := sha256.Sum256([]byte(downloadContent))

	var final [2]int64
	progress := func(written, total int64) { final = [2]int64{written, total} }

	err := c.Download(t.Context(), &request.Descriptor{Path: "/download"}, destPath,
		client.WithChecksum(sha256.New(), hex.EncodeToString(sum[:])),
		client.WithProgressFunc(progress),
	)
	if err != nil {
		t.Fatalf("downloading: %v", err)
	}

	got, err := os.ReadFile(destPath)
	if err != nil {
		t.Fatalf("reading downloaded file: %v", err)
	}

	if string(got) != downloadContent {
		t.Errorf("file content = %q, want %q", string(got), downloadContent)
	}

	n := int64(len(downloadContent))
	if final != [2]int64{n, n} {
		t.Errorf("final progress = %v, want [%d %d]", final, n, n)
	}
}

func TestE2E_Auth(t *testing.T) {
	baseURL := newTestApp(t)

	t.Run("rejectedByServer", func(t *testing.T) {
		c := newClient(t, baseURL)

		err := c.Do(t.Context(), &request.Descriptor{Path: "/private"})
		if !errors.Is(err, client.ErrAuthFailure) {
			t.Fatalf("expected ErrAuthFailure, got: %v", err)
		}
	})

	t.Run("gateBeforeSend", func(t *testing.T) {
		c := newClient(t, baseURL)

		err := c.Do(t.Context(), &request.Descriptor{Path: "/private", RequireAuth: true})
		if !errors.Is(err, client.ErrAuthRequired) {
			t.Fatalf("expected ErrAuthRequired, got: %v", err)
		}
	})

	t.Run("signedBySigner", func(t *testing.T) {
		signer := auth.JWTSigner{Key: []byte(signingKey), Issuer: "e2e"}
		c := newClient(t, baseURL, client.WithHooks(client.Hooks{OnValidate: signer.Hook()}))

		if err := c.Do(t.Context(), &request.Descriptor{Path: "/private", RequireAuth: true}); err != nil {
			t.Fatalf("expected signed request to pass, got: %v", err)
		}
	})
}

func TestE2E_RequestIDAndTracing(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	c := newClient(t, newTestApp(t),
		client.WithTracerProvider(tp),
		client.WithPropagator(propagation.TraceContext{}),
	)

	got, err := client.Perform[map[string]string](t.Context(), c, &request.Descriptor{Path: "/whoami"})
	if err != nil {
		t.Fatalf("executing request: %v", err)
	}

	if got["requestID"] == "" {
		t.Error("expected the server to observe a request id")
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	if want := spans[0].SpanContext.TraceID().String(); got["traceID"] != want {
		t.Errorf("server trace id = %q, want %q", got["traceID"], want)
	}
}

func TestE2E_HeadersChangeBetweenRequests(t *testing.T) {
	var builds, applies int
	hooks := client.Hooks{OnTransportReady: func(_ *client.Transport, rebuilt bool) {
		applies++
		if rebuilt {
			builds++
		}
	}}

	c := newClient(t, newTestApp(t), client.WithHooks(hooks))

	for _, tenant := range []string{"acme", "globex", "initech"} {
		c.Headers().Set("X-Tenant", tenant)

		got, err := client.Perform[map[string]string](t.Context(), c, &request.Descriptor{Path: "/whoami"})
		if err != nil {
			t.Fatalf("executing request: %v", err)
		}

		if got["tenant"] != tenant {
			t.Errorf("tenant = %q, want %q", got["tenant"], tenant)
		}
	}

	if builds != 1 || applies != 3 {
		t.Errorf("transport built %d times and configured %d times, want 1 and 3", builds, applies)
	}
}
