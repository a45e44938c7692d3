// Package serializer resolves the codec used to encode request bodies and
// decode response bodies.
//
// A [Registry] maps a Go type and a [Direction] to a [Serializer]. Entries
// registered for a single direction shadow an entry registered for [Both],
// and types with no entry fall back to the registry's default codec:
//
//	serializer.Register[Invoice](serializer.Default, serializer.XML{}, serializer.Both)
//	serializer.Register[Invoice](serializer.Default, serializer.JSON{}, serializer.Out)
//
//	s, err := serializer.Default.Resolve(reflect.TypeFor[Invoice](), serializer.In) // XML
package serializer

import (
	"context"
	"io"
)

// Direction selects whether a serializer encodes outbound request bodies
// or decodes inbound response bodies.
type Direction uint8

const (
	// Both registers a serializer for either direction.
	Both Direction = iota
	// In decodes response bodies.
	In
	// Out encodes request bodies.
	Out
)

func (d Direction) String() string {
	switch d {
	case Both:
		return "both"
	case In:
		return "in"
	case Out:
		return "out"
	default:
		return "unknown"
	}
}

// Serializer converts values to and from a wire representation.
type Serializer interface {
	// ContentType is the media type written to Content-Type and Accept.
	ContentType() string
	// Serialize encodes v.
	Serialize(v any) ([]byte, error)
	// Deserialize decodes r into v, which must be a pointer.
	Deserialize(r io.Reader, v any) error
}

// ContextDeserializer is implemented by serializers that can abandon a
// decode when ctx ends. The client prefers it over Deserialize.
type ContextDeserializer interface {
	DeserializeContext(ctx context.Context, r io.Reader, v any) error
}

// Decode deserializes r into v with s, using DeserializeContext when s
// offers it.
func Decode(ctx context.Context, s Serializer, r io.Reader, v any) error {
	if cd, ok := s.(ContextDeserializer); ok {
		return cd.DeserializeContext(ctx, r, v)
	}

	return s.Deserialize(r, v)
}
