package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/adamwoolhether/apiclient/client/request"
)

// maxErrBodySize caps the amount of response body read when
// building an error for an unexpected status code. This prevents
// unbounded memory usage when a large response arrives with a
// wrong status.
const maxErrBodySize = 4 << 10 // 4KB

const (
	authorization          = "Authorization"
	defaultRequestIDHeader = "X-Request-Id"
)

// execFn represents a func to operate on a response.
type execFn func(response *http.Response) error

var (
	// ErrUnexpectedStatusCode is the sentinel error wrapped by [UnexpectedStatusError].
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	// ErrAuthFailure is joined with [ErrUnexpectedStatusCode] when the server
	// responds with 401 Unauthorized or 403 Forbidden.
	ErrAuthFailure = errors.New("auth failure")
	// ErrAuthRequired is returned before sending a request that requires
	// authorization when neither the client nor the request carries an
	// Authorization header.
	ErrAuthRequired = errors.New("authorization required")

	// ErrInvalidPath is returned when a request path has no http or https scheme
	// and no base URL is configured.
	ErrInvalidPath = request.ErrInvalidPath
	// ErrMissingBodyType is returned when a body-carrying request has no
	// usable body policy.
	ErrMissingBodyType = request.ErrMissingBodyType
)

// UnexpectedStatusError is returned when the HTTP response status code
// does not match the expected value.
type UnexpectedStatusError struct {
	StatusCode int
	Status     string
	Body       string
	Err        error
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("%v: %d, body: %s", e.Err, e.StatusCode, e.Body)
}

func (e *UnexpectedStatusError) Unwrap() error {
	return e.Err
}

func newStatusError(resp *http.Response, body []byte) *UnexpectedStatusError {
	err := ErrUnexpectedStatusCode
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		err = errors.Join(ErrUnexpectedStatusCode, ErrAuthFailure)
	}

	return &UnexpectedStatusError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       string(body),
		Err:        err,
	}
}

// Hooks are optional callbacks into the client's lifecycle.
type Hooks struct {
	// OnTransportReady runs under exclusive access after a transport is
	// built (rebuilt is true) or after its default headers are re-applied.
	OnTransportReady func(t *Transport, rebuilt bool)

	// OnValidate runs before tag validation and may modify d.Headers,
	// for example to sign the request.
	OnValidate func(ctx context.Context, d *request.Descriptor) error

	// OnRequestPrepared runs on each outgoing request just before it is sent.
	OnRequestPrepared func(req *http.Request) error
}
