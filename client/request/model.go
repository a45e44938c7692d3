package request

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/adamwoolhether/apiclient/client/serializer"
)

var (
	// ErrInvalidPath is returned when a path carries no http(s) or
	// scheme-relative prefix.
	ErrInvalidPath = errors.New("invalid path")
	// ErrMissingBodyType is returned when a body-bearing method has no
	// body policy, or the policy's source is missing.
	ErrMissingBodyType = errors.New("missing body type")
	// ErrInvalidBinding is returned for malformed binding tags or values
	// that cannot be written to a query, header or form.
	ErrInvalidBinding = errors.New("invalid binding")
	// ErrDefaultsFrozen is returned by [InitDefaults] once defaults are in use.
	ErrDefaultsFrozen = errors.New("defaults already initialized")
)

// Error wraps a sentinel error with additional detail.
type Error struct {
	Detail string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// BodyPolicy selects how a request body is produced.
type BodyPolicy uint8

const (
	// BodyUnset is the zero value. Body-bearing methods reject it.
	BodyUnset BodyPolicy = iota
	// BodyNone sends no body.
	BodyNone
	// BodyForm encodes form-tagged fields as application/x-www-form-urlencoded.
	BodyForm
	// BodySerialized serializes the whole Params value.
	BodySerialized
	// BodyMember serializes the Params field tagged body.
	BodyMember
	// BodyContent sends Descriptor.Content verbatim.
	BodyContent
)

// Param is an ad-hoc query key/value pair.
type Param struct {
	Key   string
	Value string
}

// Descriptor is the declarative form of one HTTP request.
type Descriptor struct {
	Method      string
	Path        string
	Body        BodyPolicy
	RequireAuth bool

	// Headers are request-scoped and override client headers by name.
	Headers http.Header

	// Params holds the tagged parameter struct (or a pointer to one).
	Params any

	// Query pairs are appended after the tagged bindings.
	Query []Param

	// Content and ContentType are used by BodyContent.
	Content     []byte
	ContentType string

	// Response is the type the response body decodes into; it selects the
	// synthesized Accept header.
	Response reflect.Type
}

// Clone returns a copy of d that shares Params but not Headers, Query or Content.
func (d *Descriptor) Clone() *Descriptor {
	cpy := *d
	cpy.Headers = d.Headers.Clone()
	cpy.Query = slices.Clone(d.Query)
	cpy.Content = slices.Clone(d.Content)

	return &cpy
}

// Validator is implemented by parameter structs that run pre-flight
// logic (signing, timestamps) before the request is checked and compiled.
// It may modify d.Headers.
type Validator interface {
	ValidateRequest(ctx context.Context, d *Descriptor) error
}

// QueryAppender is implemented by parameter structs that contribute
// query pairs beyond their tagged fields.
type QueryAppender interface {
	AppendQuery(add func(key, value string))
}

// Resolver looks up the serializer for a type and direction.
// [*serializer.Registry] satisfies it.
type Resolver interface {
	Resolve(t reflect.Type, dir serializer.Direction) (serializer.Serializer, error)
}

// Defaults are the process-wide formatting defaults.
type Defaults struct {
	// TimeLayout formats time.Time values without a format option.
	TimeLayout string
	// Separator joins concatenated collections without a sep option.
	Separator string
}

var (
	defaultsOnce sync.Once
	defaults     = Defaults{TimeLayout: time.RFC3339, Separator: ","}
)

// InitDefaults replaces the process-wide defaults. It succeeds only when
// called before the first compilation, and only once; empty fields keep
// their built-in values.
func InitDefaults(d Defaults) error {
	err := ErrDefaultsFrozen
	defaultsOnce.Do(func() {
		if d.TimeLayout != "" {
			defaults.TimeLayout = d.TimeLayout
		}
		if d.Separator != "" {
			defaults.Separator = d.Separator
		}
		err = nil
	})

	return err
}

// currentDefaults freezes and returns the defaults.
func currentDefaults() Defaults {
	defaultsOnce.Do(func() {})
	return defaults
}
