package request

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
)

// CollectionPolicy selects how slice and array values are written.
type CollectionPolicy uint8

const (
	// Concatenated writes k=a<sep>b<sep>c.
	Concatenated CollectionPolicy = iota
	// Ordered writes k[0]=a&k[1]=b.
	Ordered
	// Unordered writes k[]=a&k[]=b.
	Unordered
	// Recursive writes k=a&k=b.
	Recursive
)

// EnumPolicy selects how named integer types implementing fmt.Stringer are written.
type EnumPolicy uint8

const (
	// EnumName writes the String() value.
	EnumName EnumPolicy = iota
	// EnumLower writes the lower-cased String() value.
	EnumLower
	// EnumValue writes the integer value.
	EnumValue
)

type target uint8

const (
	targetQuery target = iota
	targetHeader
	targetForm
)

var tagNames = [...]string{
	targetQuery:  "query",
	targetHeader: "header",
	targetForm:   "form",
}

// binding maps one struct field to a query, header or form parameter.
type binding struct {
	name       string
	field      string
	index      []int
	target     target
	collection CollectionPolicy
	sep        string
	enum       EnumPolicy
	format     string
	omitEmpty  bool
}

// table is the resolved set of bindings for one parameter type.
type table struct {
	query  []binding
	header []binding
	form   []binding

	body     []int
	bodyType reflect.Type
}

type tableEntry struct {
	t   *table
	err error
}

var tables sync.Map // map[reflect.Type]tableEntry

// tableFor returns the cached binding table for t, building it on first use.
func tableFor(t reflect.Type) (*table, error) {
	if e, ok := tables.Load(t); ok {
		entry := e.(tableEntry)
		return entry.t, entry.err
	}

	tbl, err := buildTable(t)
	e, _ := tables.LoadOrStore(t, tableEntry{t: tbl, err: err})
	entry := e.(tableEntry)

	return entry.t, entry.err
}

func buildTable(t reflect.Type) (*table, error) {
	if t.Kind() != reflect.Struct {
		return &table{}, nil
	}

	// VisibleFields drops shadowed promoted fields. Deeper (embedded) fields
	// sort ahead of the fields of the struct embedding them.
	fields := reflect.VisibleFields(t)
	slices.SortStableFunc(fields, func(a, b reflect.StructField) int {
		return cmp.Compare(len(b.Index), len(a.Index))
	})

	var tbl table
	for _, f := range fields {
		if !f.IsExported() || f.Anonymous {
			continue
		}

		if _, ok := f.Tag.Lookup("body"); ok {
			if tbl.body != nil {
				return nil, &Error{Err: ErrInvalidBinding, Detail: fmt.Sprintf("%s: multiple body members", t)}
			}
			tbl.body = f.Index
			tbl.bodyType = f.Type
			continue
		}

		for tgt, tag := range tagNames {
			raw, ok := f.Tag.Lookup(tag)
			if !ok || raw == "-" {
				continue
			}

			b, err := parseTag(raw, f, target(tgt))
			if err != nil {
				return nil, err
			}

			switch b.target {
			case targetQuery:
				tbl.query = append(tbl.query, b)
			case targetHeader:
				tbl.header = append(tbl.header, b)
			case targetForm:
				tbl.form = append(tbl.form, b)
			}
		}
	}

	return &tbl, nil
}

func parseTag(raw string, f reflect.StructField, tgt target) (binding, error) {
	name, opts, _ := strings.Cut(raw, ",")
	if name == "" {
		name = f.Name
	}

	b := binding{
		name:   name,
		field:  f.Name,
		index:  f.Index,
		target: tgt,
	}

	for opt := range strings.SplitSeq(opts, ",") {
		if opt == "" {
			continue
		}

		k, v, _ := strings.Cut(opt, "=")
		switch k {
		case "omitempty":
			b.omitEmpty = true
		case "sep":
			b.sep = v
		case "format":
			b.format = v
		case "collection":
			switch v {
			case "concat", "concatenated", "csv":
				b.collection = Concatenated
			case "ordered", "indexed":
				b.collection = Ordered
			case "unordered", "brackets":
				b.collection = Unordered
			case "recursive", "multi":
				b.collection = Recursive
			default:
				return binding{}, invalidTag(f, opt)
			}
		case "enum":
			switch v {
			case "name":
				b.enum = EnumName
			case "lower":
				b.enum = EnumLower
			case "value":
				b.enum = EnumValue
			default:
				return binding{}, invalidTag(f, opt)
			}
		default:
			return binding{}, invalidTag(f, opt)
		}
	}

	return b, nil
}

func invalidTag(f reflect.StructField, opt string) error {
	return &Error{Err: ErrInvalidBinding, Detail: fmt.Sprintf("field %s: unknown option %q", f.Name, opt)}
}
