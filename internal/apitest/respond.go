package apitest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/adamwoolhether/apiclient/client"
	"github.com/go-chi/chi/v5"
)

// RespondJSON records statusCode for the logger and writes data as JSON.
// A 204 or a nil data writes no body.
func RespondJSON(ctx context.Context, w http.ResponseWriter, statusCode int, data any) error {
	SetStatusCode(ctx, statusCode)

	if statusCode == http.StatusNoContent || data == nil {
		w.WriteHeader(statusCode)
		return nil
	}

	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	_, err = w.Write(body)
	return err
}

// Decode reads a JSON request body into val, rejecting unknown fields,
// then runs the same validate-tag checks the client applies before sending.
// Tag failures are returned as [FieldErrors].
func Decode[T any](r *http.Request, val *T) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(val); err != nil {
		return NewError(http.StatusBadRequest, fmt.Errorf("decoding request body: %w", err))
	}

	err := client.Validate(val)
	if err == nil {
		return nil
	}

	fields, ok := errors.AsType[client.FieldErrors](err)
	if !ok {
		return err
	}

	out := make(FieldErrors, 0, len(fields))
	for _, f := range fields {
		out = append(out, FieldError{Field: f.Field, Err: f.Err})
	}

	return out
}

// Param returns the named chi path parameter, or a 400 error when the
// route did not capture it.
func Param(r *http.Request, key string) (string, error) {
	if val := chi.URLParam(r, key); val != "" {
		return val, nil
	}

	return "", NewError(http.StatusBadRequest, fmt.Errorf("path param[%s] not found", key))
}
