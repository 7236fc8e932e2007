// Package serialize holds the narrow Serializer capability consumed by
// storedcache and the cache registry, plus default implementations for the
// value shapes the coordinator ships out of the box.
package serialize

import (
	"encoding/json"
	"fmt"
)

// Serializer is the capability a CacheParameters may supply for its key or
// value type: encode to bytes for on-disk storage, decode back. It is
// intentionally narrow — no inheritance hierarchy, just the two functions a
// store needs.
type Serializer[T any] interface {
	Serialize(v T) ([]byte, error)
	Deserialize(b []byte) (T, error)
}

// AnySerializer is the type-erased form of Serializer[T] that
// CacheParameters and MultiProcessSafeCache hold: a CacheParameters value
// carries one serializer per key/value pair without a static type
// parameter, so the parameter field and the facade that uses it need a
// common, non-generic type. Use Any to build one from a typed Serializer[T].
type AnySerializer interface {
	SerializeAny(v any) ([]byte, error)
	DeserializeAny(raw []byte) (any, error)
}

type typedSerializer[T any] struct{ Serializer[T] }

func (t typedSerializer[T]) SerializeAny(v any) ([]byte, error) {
	tv, ok := v.(T)
	if !ok {
		return nil, fmt.Errorf("serialize: expected %T, got %T", tv, v)
	}
	return t.Serialize(tv)
}

func (t typedSerializer[T]) DeserializeAny(raw []byte) (any, error) {
	return t.Deserialize(raw)
}

// Any adapts a typed Serializer[T] to the type-erased AnySerializer a
// CacheParameters field can hold.
func Any[T any](s Serializer[T]) AnySerializer { return typedSerializer[T]{s} }

// DefaultFor returns the implicit default serializer for a
// CacheParameters.KeyType/ValueType string: "string" and "bytes" get their
// matching identity serializer, anything else falls back to JSON. This is
// also what a nil KeySerializer/ValueSerializer resolves to, and what an
// omitted serializer is compared against for compatibility.
func DefaultFor(typeName string) AnySerializer {
	switch typeName {
	case "string":
		return Any[string](StringSerializer{})
	case "bytes":
		return Any[[]byte](BytesSerializer{})
	default:
		return Any[any](JSONSerializer[any]{})
	}
}

// StringSerializer is the default Serializer for string keys and values.
type StringSerializer struct{}

func (StringSerializer) Serialize(v string) ([]byte, error) { return []byte(v), nil }
func (StringSerializer) Deserialize(b []byte) (string, error) {
	return string(b), nil
}

// BytesSerializer is the default Serializer for []byte values; it is the
// identity function.
type BytesSerializer struct{}

func (BytesSerializer) Serialize(v []byte) ([]byte, error) { return v, nil }
func (BytesSerializer) Deserialize(b []byte) ([]byte, error) {
	return b, nil
}

// JSONSerializer is the default Serializer for any JSON-encodable value.
type JSONSerializer[T any] struct{}

func (JSONSerializer[T]) Serialize(v T) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONSerializer[T]) Deserialize(b []byte) (T, error) {
	var v T
	err := json.Unmarshal(b, &v)
	return v, err
}
