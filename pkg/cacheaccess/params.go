package cacheaccess

import (
	"reflect"

	"cachecoord/pkg/serialize"
)

// CacheParameters describes a named cache's shape. Go has no runtime value
// for a generic type parameter, so KeyType/ValueType are the caller-supplied
// type names used both to resolve the default serializer and for the
// compatibility check in compatibleWith.
type CacheParameters struct {
	Name            string
	KeyType         string
	ValueType       string
	KeySerializer   serialize.AnySerializer // nil for the type's default
	ValueSerializer serialize.AnySerializer // nil for the type's default
	Decorator       CacheDecorator
}

// compatibleWith implements the compatibility rule from the data model:
// name/keyType/valueType match exactly, decorator references are identity
// equal, and serializers are identical or one side is the implicit default
// for the declared type.
func (p CacheParameters) compatibleWith(existing CacheParameters) bool {
	if p.Name != existing.Name || p.KeyType != existing.KeyType || p.ValueType != existing.ValueType {
		return false
	}
	if p.Decorator != existing.Decorator {
		return false
	}
	if !serializerCompatible(p.KeySerializer, existing.KeySerializer, p.KeyType) {
		return false
	}
	return serializerCompatible(p.ValueSerializer, existing.ValueSerializer, p.ValueType)
}

// serializerCompatible compares two (possibly nil) serializers by dynamic
// type identity, never by value — requested/existing may hold a
// non-comparable dynamic type (a struct with a slice/map/func field), and a
// bare `==` on an any would panic in that case. A nil side resolves to the
// default serializer for typeName before comparing, so an omitted
// serializer is only compatible with a caller who also omitted it (or who
// explicitly asked for the default), not with an arbitrary custom one.
func serializerCompatible(requested, existing serialize.AnySerializer, typeName string) bool {
	if requested == nil {
		requested = serialize.DefaultFor(typeName)
	}
	if existing == nil {
		existing = serialize.DefaultFor(typeName)
	}
	if reflect.TypeOf(requested) != reflect.TypeOf(existing) {
		return false
	}
	// serialize.Any wraps every Serializer[T] in the same generic struct, so
	// also compare the dynamic type of the serializer it wraps.
	rv, ev := reflect.ValueOf(requested), reflect.ValueOf(existing)
	if rv.Kind() != reflect.Struct || rv.NumField() != 1 || rv.Field(0).Kind() != reflect.Interface {
		return true
	}
	rf, ef := rv.Field(0), ev.Field(0)
	if rf.IsNil() || ef.IsNil() {
		return rf.IsNil() == ef.IsNil()
	}
	return rf.Elem().Type() == ef.Elem().Type()
}

// CacheEntry is the registry's stored record for one named cache.
type CacheEntry struct {
	Params CacheParameters
	Cache  *MultiProcessSafeCache
}
