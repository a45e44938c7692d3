package request

import (
	"fmt"
	"net/http"
	"reflect"
	"slices"
	"strings"

	"github.com/adamwoolhether/apiclient/client/serializer"
)

const contentTypeForm = "application/x-www-form-urlencoded"

// Compile turns d into a wire-ready request. It does not modify d, r or
// clientHeaders, and compiling the same inputs twice yields identical
// output.
//
// Header precedence, lowest first: clientHeaders, the body's Content-Type,
// header-tagged fields, d.Headers. When no Accept header results and
// d.Response is set, Accept is taken from the inbound serializer for
// d.Response and listed in [Wire.Fallbacks]. Callers that apply client
// headers later pass nil clientHeaders.
func Compile(d *Descriptor, r Resolver, clientHeaders http.Header) (*Wire, error) {
	if err := validatePath(d.Path); err != nil {
		return nil, err
	}

	method := mapMethod(d.Method)

	params, tbl, err := bindings(d.Params)
	if err != nil {
		return nil, err
	}

	defaults := currentDefaults()

	query, err := buildQuery(d, params, tbl, defaults)
	if err != nil {
		return nil, err
	}

	w := &Wire{
		method: method,
		url:    joinQuery(d.Path, query),
		header: clientHeaders.Clone(),
	}
	if w.header == nil {
		w.header = make(http.Header)
	}

	if carriesBody(method) {
		body, contentType, err := materializeBody(d, params, tbl, r, defaults)
		if err != nil {
			return nil, err
		}
		if body != nil {
			w.body = body
			w.hasBody = true
			if contentType != "" {
				w.header.Set("Content-Type", contentType)
			}
		}
	}

	if err := mergeHeaders(w.header, d, params, tbl, defaults); err != nil {
		return nil, err
	}

	if w.header.Get("Accept") == "" && d.Response != nil {
		if s, err := r.Resolve(d.Response, serializer.In); err == nil {
			w.header.Set("Accept", s.ContentType())
			w.fallback = append(w.fallback, "Accept")
		}
	}

	return w, nil
}

// HasHeader reports whether d carries name through Headers or a non-empty
// header-tagged field.
func HasHeader(d *Descriptor, name string) bool {
	if d.Headers.Get(name) != "" {
		return true
	}

	params, tbl, err := bindings(d.Params)
	if err != nil || !params.IsValid() {
		return false
	}

	h := make(http.Header)
	if err := headerBindings(h, params, tbl, currentDefaults()); err != nil {
		return false
	}

	return h.Get(name) != ""
}

func validatePath(path string) error {
	lower := strings.ToLower(path)
	for _, prefix := range []string{"http://", "https://", "//"} {
		if strings.HasPrefix(lower, prefix) {
			return nil
		}
	}

	return &Error{Err: ErrInvalidPath, Detail: fmt.Sprintf("%q has no http(s) scheme", path)}
}

func mapMethod(method string) string {
	if method == "" {
		return http.MethodGet
	}

	return strings.ToUpper(method)
}

// carriesBody reports whether method conventionally sends a body.
func carriesBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}

	return false
}

// bindings resolves the parameter struct and its binding table. A nil
// Params yields an invalid Value and an empty table.
func bindings(params any) (reflect.Value, *table, error) {
	v, ok := indirect(reflect.ValueOf(params))
	if !ok {
		return reflect.Value{}, &table{}, nil
	}

	tbl, err := tableFor(v.Type())
	if err != nil {
		return reflect.Value{}, nil, err
	}

	return v, tbl, nil
}

func buildQuery(d *Descriptor, params reflect.Value, tbl *table, defaults Defaults) (string, error) {
	enc := newEncoder(defaults, true)

	var pairs []pair
	if params.IsValid() {
		for _, b := range tbl.query {
			fv, ok := fieldValue(params, b.index)
			if !ok {
				continue
			}

			var err error
			if pairs, err = enc.pairs(pairs, b, fv); err != nil {
				return "", err
			}
		}
	}

	for _, p := range d.Query {
		pairs = append(pairs, pair{key: enc.escape(p.Key), value: enc.escape(p.Value)})
	}

	if qa, ok := d.Params.(QueryAppender); ok {
		qa.AppendQuery(func(key, value string) {
			pairs = append(pairs, pair{key: enc.escape(key), value: enc.escape(value)})
		})
	}

	var sb strings.Builder
	joinPairs(&sb, pairs)

	return sb.String(), nil
}

func joinQuery(path, query string) string {
	if query == "" {
		return path
	}

	switch {
	case !strings.Contains(path, "?"):
		return path + "?" + query
	case strings.HasSuffix(path, "?"), strings.HasSuffix(path, "&"):
		return path + query
	default:
		return path + "&" + query
	}
}

func materializeBody(d *Descriptor, params reflect.Value, tbl *table, r Resolver, defaults Defaults) ([]byte, string, error) {
	switch d.Body {
	case BodyNone:
		return nil, "", nil

	case BodyForm:
		enc := newEncoder(defaults, true)

		var pairs []pair
		if params.IsValid() {
			for _, b := range tbl.form {
				fv, ok := fieldValue(params, b.index)
				if !ok {
					continue
				}

				var err error
				if pairs, err = enc.pairs(pairs, b, fv); err != nil {
					return nil, "", err
				}
			}
		}

		var sb strings.Builder
		joinPairs(&sb, pairs)

		return []byte(sb.String()), contentTypeForm, nil

	case BodySerialized:
		if d.Params == nil {
			return nil, "", &Error{Err: ErrMissingBodyType, Detail: "serialized body requires Params"}
		}

		return serialize(r, reflect.TypeOf(d.Params), d.Params)

	case BodyMember:
		if tbl.body == nil || !params.IsValid() {
			return nil, "", &Error{Err: ErrMissingBodyType, Detail: "no field tagged body"}
		}

		fv, ok := fieldValue(params, tbl.body)
		if !ok || !fv.CanInterface() {
			return nil, "", &Error{Err: ErrMissingBodyType, Detail: "body member is not reachable"}
		}

		return serialize(r, tbl.bodyType, fv.Interface())

	case BodyContent:
		return slices.Clone(d.Content), d.ContentType, nil
	}

	return nil, "", &Error{Err: ErrMissingBodyType, Detail: fmt.Sprintf("%s %s has no body policy", mapMethod(d.Method), d.Path)}
}

func serialize(r Resolver, t reflect.Type, v any) ([]byte, string, error) {
	s, err := r.Resolve(t, serializer.Out)
	if err != nil {
		return nil, "", fmt.Errorf("resolving serializer: %w", err)
	}

	b, err := s.Serialize(v)
	if err != nil {
		return nil, "", fmt.Errorf("serializing body: %w", err)
	}
	if b == nil {
		b = []byte{}
	}

	return b, s.ContentType(), nil
}

func mergeHeaders(dst http.Header, d *Descriptor, params reflect.Value, tbl *table, defaults Defaults) error {
	if params.IsValid() {
		if err := headerBindings(dst, params, tbl, defaults); err != nil {
			return err
		}
	}

	for k, vs := range d.Headers {
		dst.Del(k)
		for _, v := range vs {
			dst.Add(k, v)
		}
	}

	return nil
}

func headerBindings(dst http.Header, params reflect.Value, tbl *table, defaults Defaults) error {
	enc := newEncoder(defaults, false)

	for _, b := range tbl.header {
		fv, ok := fieldValue(params, b.index)
		if !ok {
			continue
		}

		pairs, err := enc.pairs(nil, b, fv)
		if err != nil {
			return err
		}
		if len(pairs) == 0 {
			continue
		}

		dst.Del(b.name)
		for _, p := range pairs {
			dst.Add(b.name, p.value)
		}
	}

	return nil
}
