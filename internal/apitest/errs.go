package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"runtime"
)

// Error is a handler failure rendered to the client as
// {"code":..,"message":..}.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`

	// source is the file:line and function that created the error.
	source, fn string
	// internal hides Message behind the status text in the response.
	internal bool
}

// NewError returns an error whose message is sent to the client as is.
func NewError(code int, err error) *Error {
	return newError(code, err, false)
}

// NewInternal returns a 500 error whose message is logged but not sent.
func NewInternal(err error) *Error {
	return newError(http.StatusInternalServerError, err, true)
}

func newError(code int, err error, internal bool) *Error {
	e := Error{Code: code, Message: err.Error(), internal: internal}

	if pc, file, line, ok := runtime.Caller(2); ok {
		e.source = fmt.Sprintf("%s:%d", path.Base(file), line)
		e.fn = path.Base(runtime.FuncForPC(pc).Name())
	}

	return &e
}

func (e *Error) Error() string {
	return e.Message
}

// public returns the error as the client should see it.
func (e *Error) public() *Error {
	if !e.internal {
		return e
	}

	return &Error{Code: e.Code, Message: http.StatusText(e.Code)}
}

// FieldError names a request field that failed validation.
type FieldError struct {
	Field string `json:"field"`
	Err   string `json:"error"`
}

// FieldErrors is rendered as a 422 response listing every failed field.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	d, err := json.Marshal(fe)
	if err != nil {
		return err.Error()
	}
	return string(d)
}
