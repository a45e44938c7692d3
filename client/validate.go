package client

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/adamwoolhether/apiclient/client/request"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// tagValidator checks `validate` struct tags and renders failures in
// English, naming each field by the key it is sent under.
type tagValidator struct {
	v  *validator.Validate
	tr ut.Translator
}

var tags = sync.OnceValue(func() *tagValidator {
	v := validator.New()

	tr, _ := ut.New(en.New()).GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(v, tr); err != nil {
		panic(fmt.Sprintf("client: registering validation translations: %v", err))
	}

	v.RegisterTagNameFunc(wireName)

	return &tagValidator{v: v, tr: tr}
})

// wireName returns the query, header, form or json key of a field, falling
// back to its Go name. "-" hides the field from error output.
func wireName(f reflect.StructField) string {
	for _, key := range []string{"query", "header", "form", "json"} {
		name, _, _ := strings.Cut(f.Tag.Get(key), ",")
		switch name {
		case "":
			continue
		case "-":
			return ""
		default:
			return name
		}
	}

	return f.Name
}

// Validate checks a parameter struct against its `validate` tags and
// returns [FieldErrors] listing every failed field. Values that are not
// structs, or pointers to structs, pass.
func Validate(val any) error {
	v := reflect.ValueOf(val)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}

	tv := tags()

	err := tv.v.Struct(val)
	verrs, ok := errors.AsType[validator.ValidationErrors](err)
	if !ok {
		return err
	}

	fields := make(FieldErrors, len(verrs))
	for i, fe := range verrs {
		fields[i] = FieldError{Field: fe.Field(), Err: tv.message(fe)}
	}

	return fields
}

func (tv *tagValidator) message(fe validator.FieldError) string {
	if fe.Tag() == "required" {
		return "This field is required"
	}

	return fe.Translate(tv.tr)
}

// FieldError is a validate-tag failure on one field.
type FieldError struct {
	Field string `json:"field"`
	Err   string `json:"error"`
}

// FieldErrors lists every field of a parameter struct that failed its
// `validate` tags.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	parts := make([]string, len(fe))
	for i, f := range fe {
		parts[i] = f.Field + ": " + f.Err
	}
	return strings.Join(parts, "; ")
}

// check runs the pre-flight stage: the descriptor's own validation, the
// client hook, tag validation and the auth gate. It runs before any lock is
// taken or connection made.
func (c *Client) check(ctx context.Context, d *request.Descriptor) error {
	if v, ok := d.Params.(request.Validator); ok {
		if err := v.ValidateRequest(ctx, d); err != nil {
			return fmt.Errorf("validating request: %w", err)
		}
	}

	if c.hooks.OnValidate != nil {
		if err := c.hooks.OnValidate(ctx, d); err != nil {
			return fmt.Errorf("validation hook: %w", err)
		}
	}

	if err := Validate(d.Params); err != nil {
		return fmt.Errorf("validating params: %w", err)
	}

	if d.RequireAuth && !c.headers.Has(authorization) && !request.HasHeader(d, authorization) {
		return ErrAuthRequired
	}

	return nil
}
