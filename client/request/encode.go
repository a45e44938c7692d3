package request

import (
	"encoding"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var (
	timeType          = reflect.TypeFor[time.Time]()
	stringerType      = reflect.TypeFor[fmt.Stringer]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
)

// pair is an encoded key/value ready to be joined with '&'.
type pair struct {
	key   string
	value string
}

// encoder writes bindings as percent-encoded pairs, or as raw values for
// headers.
type encoder struct {
	defaults Defaults
	escape   func(string) string
}

func newEncoder(d Defaults, escape bool) encoder {
	e := encoder{defaults: d, escape: func(s string) string { return s }}
	if escape {
		e.escape = url.QueryEscape
	}

	return e
}

// pairs appends the pairs produced by b for the field value v.
func (e encoder) pairs(dst []pair, b binding, v reflect.Value) ([]pair, error) {
	v, ok := indirect(v)
	if !ok {
		return dst, nil
	}

	if isCollection(v) {
		return e.collection(dst, b, v)
	}

	if b.omitEmpty && v.IsZero() {
		return dst, nil
	}

	s, err := e.scalar(b, v)
	if err != nil {
		return dst, err
	}

	return append(dst, pair{key: e.escape(b.name), value: e.escape(s)}), nil
}

func (e encoder) collection(dst []pair, b binding, v reflect.Value) ([]pair, error) {
	values := make([]string, 0, v.Len())
	for i := range v.Len() {
		elem, ok := indirect(v.Index(i))
		if !ok {
			continue
		}

		s, err := e.scalar(b, elem)
		if err != nil {
			return dst, err
		}
		values = append(values, e.escape(s))
	}

	if len(values) == 0 {
		return dst, nil
	}

	key := e.escape(b.name)
	switch b.collection {
	case Ordered:
		for i, s := range values {
			dst = append(dst, pair{key: key + "[" + strconv.Itoa(i) + "]", value: s})
		}
	case Unordered:
		for _, s := range values {
			dst = append(dst, pair{key: key + "[]", value: s})
		}
	case Recursive:
		for _, s := range values {
			dst = append(dst, pair{key: key, value: s})
		}
	default:
		sep := b.sep
		if sep == "" {
			sep = e.defaults.Separator
		}
		dst = append(dst, pair{key: key, value: strings.Join(values, sep)})
	}

	return dst, nil
}

// scalar stringifies a single non-nil value.
func (e encoder) scalar(b binding, v reflect.Value) (string, error) {
	t := v.Type()

	if t == timeType && v.CanInterface() {
		layout := b.format
		if layout == "" {
			layout = e.defaults.TimeLayout
		}
		return v.Interface().(time.Time).Format(layout), nil
	}

	if isEnum(t) {
		return enumString(b.enum, v), nil
	}

	if v.CanInterface() {
		if t.Implements(textMarshalerType) {
			text, err := v.Interface().(encoding.TextMarshaler).MarshalText()
			if err != nil {
				return "", &Error{Err: ErrInvalidBinding, Detail: fmt.Sprintf("field %s: %v", b.field, err)}
			}
			return string(text), nil
		}
		if t.Implements(stringerType) {
			return v.Interface().(fmt.Stringer).String(), nil
		}
	}

	switch v.Kind() {
	case reflect.String:
		return v.String(), nil
	case reflect.Bool:
		return strconv.FormatBool(v.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(v.Uint(), 10), nil
	case reflect.Float32:
		return strconv.FormatFloat(v.Float(), 'f', -1, 32), nil
	case reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64), nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return string(v.Bytes()), nil
		}
	}

	return "", &Error{Err: ErrInvalidBinding, Detail: fmt.Sprintf("field %s: unsupported kind %s", b.field, v.Kind())}
}

// isEnum reports whether t is a named integer type with a String method.
func isEnum(t reflect.Type) bool {
	if t.PkgPath() == "" || !t.Implements(stringerType) {
		return false
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}

	return false
}

func enumString(p EnumPolicy, v reflect.Value) string {
	if p == EnumValue || !v.CanInterface() {
		if v.CanInt() {
			return strconv.FormatInt(v.Int(), 10)
		}
		return strconv.FormatUint(v.Uint(), 10)
	}

	name := v.Interface().(fmt.Stringer).String()
	if p == EnumLower {
		return strings.ToLower(name)
	}

	return name
}

// indirect dereferences pointers and interfaces, reporting false for nil.
func indirect(v reflect.Value) (reflect.Value, bool) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return v, false
		}
		v = v.Elem()
	}

	if (v.Kind() == reflect.Slice || v.Kind() == reflect.Map) && v.IsNil() {
		return v, false
	}

	return v, v.IsValid()
}

func isCollection(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array:
		return true
	case reflect.Slice:
		return v.Type().Elem().Kind() != reflect.Uint8
	}

	return false
}

// fieldValue returns the field at index, or false when an embedded pointer
// on the path is nil.
func fieldValue(v reflect.Value, index []int) (reflect.Value, bool) {
	f, err := v.FieldByIndexErr(index)
	if err != nil {
		return reflect.Value{}, false
	}

	return f, true
}

func joinPairs(sb *strings.Builder, pairs []pair) {
	for i, p := range pairs {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(p.key)
		sb.WriteByte('=')
		sb.WriteString(p.value)
	}
}
