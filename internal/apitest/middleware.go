package apitest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Logger logs the start and completion of each request.
func Logger(log *slog.Logger) Middleware {
	m := func(handler Handler) Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			v := GetValues(ctx)

			p := r.URL.Path
			if r.URL.RawQuery != "" {
				p = fmt.Sprintf("%s?%s", p, r.URL.RawQuery)
			}

			log.Info("request started", "method", r.Method, "path", p, "request_id", v.RequestID)

			err := handler(ctx, w, r)

			log.Info("request completed", "method", r.Method, "path", p, "request_id", v.RequestID, "statusCode", v.StatusCode, "since", time.Since(v.Now).String())

			return err
		}

		return h
	}

	return m
}

// Errors handles errors coming out of the call chain.
func Errors(log *slog.Logger) Middleware {
	m := func(handler Handler) Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			err := handler(ctx, w, r)
			if err == nil {
				return nil
			}

			if fieldErr, ok := errors.AsType[FieldErrors](err); ok {
				return RespondJSON(ctx, w, http.StatusUnprocessableEntity, fieldErr)
			}

			appErr, ok := errors.AsType[*Error](err)
			if !ok {
				appErr = NewInternal(err)
			}

			log.Error(err.Error(), "trace_id", GetValues(ctx).TraceID, "source", appErr.source, "func", appErr.fn)

			return RespondJSON(ctx, w, appErr.Code, appErr.public())
		}

		return h
	}

	return m
}

// Panics recovers from panics if they occur.
func Panics() Middleware {
	m := func(handler Handler) Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					trace := debug.Stack()
					err = fmt.Errorf("PANIC [%v] TRACE[%s]", rec, string(trace))
				}
			}()

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

// RequireBearer rejects requests without a bearer token signed with key.
// It must run inside [Errors].
func RequireBearer(key []byte) Middleware {
	m := func(handler Handler) Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				return NewError(http.StatusUnauthorized, errors.New("missing bearer token"))
			}

			keyFn := func(*jwt.Token) (any, error) { return key, nil }
			if _, err := jwt.Parse(raw, keyFn, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})); err != nil {
				return NewError(http.StatusUnauthorized, fmt.Errorf("invalid token: %w", err))
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
