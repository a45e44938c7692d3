package serializer_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/adamwoolhether/apiclient/client/serializer"
	"github.com/google/go-cmp/cmp"
)

type invoice struct {
	ID    string  `json:"id" xml:"id" yaml:"id"`
	Total float64 `json:"total" xml:"total" yaml:"total"`
}

type other struct{}

func TestRegistry_Resolve(t *testing.T) {
	r := serializer.NewRegistry(serializer.JSON{})
	if err := serializer.Register[invoice](r, serializer.XML{}, serializer.Both); err != nil {
		t.Fatalf("registering both: %v", err)
	}
	if err := serializer.Register[invoice](r, serializer.YAML{}, serializer.Out); err != nil {
		t.Fatalf("registering out: %v", err)
	}

	testCases := map[string]struct {
		typ     reflect.Type
		dir     serializer.Direction
		expType string
	}{
		"outOverridesBoth": {
			typ:     reflect.TypeFor[invoice](),
			dir:     serializer.Out,
			expType: serializer.ContentTypeYAML,
		},
		"inFallsBackToBoth": {
			typ:     reflect.TypeFor[invoice](),
			dir:     serializer.In,
			expType: serializer.ContentTypeXML,
		},
		"pointerNormalized": {
			typ:     reflect.TypeFor[*invoice](),
			dir:     serializer.In,
			expType: serializer.ContentTypeXML,
		},
		"unknownUsesFallback": {
			typ:     reflect.TypeFor[other](),
			dir:     serializer.Out,
			expType: serializer.ContentTypeJSON,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			s, err := r.Resolve(tc.typ, tc.dir)
			if err != nil {
				t.Fatalf("resolving: %v", err)
			}
			if got := s.ContentType(); got != tc.expType {
				t.Errorf("exp %q, got %q", tc.expType, got)
			}
		})
	}
}

func TestRegistry_NoFallback(t *testing.T) {
	r := serializer.NewRegistry(nil)

	_, err := r.Resolve(reflect.TypeFor[other](), serializer.In)
	if !errors.Is(err, serializer.ErrUnsupportedType) {
		t.Fatalf("exp ErrUnsupportedType, got %v", err)
	}

	var ute *serializer.UnsupportedTypeError
	if !errors.As(err, &ute) {
		t.Fatalf("exp *UnsupportedTypeError, got %T", err)
	}
	if ute.Direction != serializer.In {
		t.Errorf("exp direction in, got %s", ute.Direction)
	}

	r.SetFallback(serializer.YAML{})
	if _, err := r.Resolve(reflect.TypeFor[other](), serializer.In); err != nil {
		t.Errorf("exp fallback after SetFallback, got %v", err)
	}
}

func TestRegistry_RegisterValidation(t *testing.T) {
	r := serializer.NewRegistry(nil)

	if err := r.Register(nil, serializer.JSON{}, serializer.Both); !errors.Is(err, serializer.ErrNilType) {
		t.Errorf("exp ErrNilType, got %v", err)
	}
	if err := r.Register(reflect.TypeFor[other](), nil, serializer.Both); !errors.Is(err, serializer.ErrNilSerializer) {
		t.Errorf("exp ErrNilSerializer, got %v", err)
	}
}

func TestRegistry_ConcurrentRegisterResolve(t *testing.T) {
	r := serializer.NewRegistry(serializer.JSON{})

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Go(func() {
			if i%5 == 0 {
				_ = serializer.Register[invoice](r, serializer.XML{}, serializer.In)
				return
			}
			if _, err := r.Resolve(reflect.TypeFor[invoice](), serializer.In); err != nil {
				t.Errorf("resolve: %v", err)
			}
		})
	}
	wg.Wait()
}

func TestCodecs_RoundTrip(t *testing.T) {
	exp := invoice{ID: "inv-1", Total: 12.5}

	codecs := map[string]serializer.Serializer{
		"json": serializer.JSON{},
		"xml":  serializer.XML{},
		"yaml": serializer.YAML{},
	}

	for name, s := range codecs {
		t.Run(name, func(t *testing.T) {
			b, err := s.Serialize(exp)
			if err != nil {
				t.Fatalf("serializing: %v", err)
			}

			var got invoice
			if err := s.Deserialize(bytes.NewReader(b), &got); err != nil {
				t.Fatalf("deserializing: %v", err)
			}

			if diff := cmp.Diff(exp, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestJSON_UseNumber(t *testing.T) {
	var got map[string]any
	err := serializer.JSON{UseNumber: true}.Deserialize(strings.NewReader(`{"id":12345678901234567}`), &got)
	if err != nil {
		t.Fatalf("deserializing: %v", err)
	}

	n, ok := got["id"].(json.Number)
	if !ok {
		t.Fatalf("expected json.Number, got %T", got["id"])
	}
	if n.String() != "12345678901234567" {
		t.Errorf("exp 12345678901234567, got %s", n)
	}
}
