package serializer

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

var (
	// ErrUnsupportedType is wrapped by [UnsupportedTypeError].
	ErrUnsupportedType = errors.New("unsupported type")
	// ErrNilType is returned when registering a nil type.
	ErrNilType = errors.New("nil type provided")
	// ErrNilSerializer is returned when registering a nil serializer.
	ErrNilSerializer = errors.New("nil serializer provided")
)

// UnsupportedTypeError is returned when no serializer resolves for a type.
type UnsupportedTypeError struct {
	Type      reflect.Type
	Direction Direction
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("%v: %v (direction %s)", ErrUnsupportedType, e.Type, e.Direction)
}

func (e *UnsupportedTypeError) Unwrap() error {
	return ErrUnsupportedType
}

// Default is the process-wide registry, falling back to [JSON].
var Default = NewRegistry(JSON{})

type key struct {
	t   reflect.Type
	dir Direction
}

// Registry maps (type, direction) pairs to serializers. It is safe for
// concurrent use; it is expected to be populated at start-up and read
// for every request afterwards.
type Registry struct {
	mu       sync.RWMutex
	entries  map[key]Serializer
	fallback Serializer
}

// NewRegistry returns an empty Registry. fallback answers every type
// without an entry; nil disables the fallback.
func NewRegistry(fallback Serializer) *Registry {
	return &Registry{
		entries:  make(map[key]Serializer),
		fallback: fallback,
	}
}

// Register stores s for t in the given direction, replacing any previous
// entry for the same pair.
func (r *Registry) Register(t reflect.Type, s Serializer, dir Direction) error {
	if t == nil {
		return ErrNilType
	}
	if s == nil {
		return ErrNilSerializer
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[key{t: normalize(t), dir: dir}] = s

	return nil
}

// Register stores s for T on r.
func Register[T any](r *Registry, s Serializer, dir Direction) error {
	return r.Register(reflect.TypeFor[T](), s, dir)
}

// SetFallback replaces the serializer used for unregistered types.
func (r *Registry) SetFallback(s Serializer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fallback = s
}

// Resolve returns the serializer for t in direction dir: the entry for
// the exact direction, else the [Both] entry, else the fallback.
func (r *Registry) Resolve(t reflect.Type, dir Direction) (Serializer, error) {
	if t == nil {
		return nil, &UnsupportedTypeError{Direction: dir}
	}

	nt := normalize(t)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if dir != Both {
		if s, ok := r.entries[key{t: nt, dir: dir}]; ok {
			return s, nil
		}
	}
	if s, ok := r.entries[key{t: nt, dir: Both}]; ok {
		return s, nil
	}
	if r.fallback != nil {
		return r.fallback, nil
	}

	return nil, &UnsupportedTypeError{Type: t, Direction: dir}
}

// normalize strips pointer indirections so *T and T share entries.
func normalize(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	return t
}
