package schema

import (
	"encoding/json"
	"fmt"
)

// ValidatingSerializer wraps a JSON serializer with a schema check: values
// that do not conform to the named schema are rejected before they ever
// reach the file lock, rather than corrupting the on-disk store.
type ValidatingSerializer[T any] struct {
	Validator *Validator
	SchemaID  string
}

// Serialize marshals v to JSON and validates it against SchemaID.
func (s ValidatingSerializer[T]) Serialize(v T) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("schema: marshal: %w", err)
	}
	if err := s.Validator.ValidateStrict(s.SchemaID, raw); err != nil {
		return nil, fmt.Errorf("schema: value does not satisfy %q: %w", s.SchemaID, err)
	}
	return raw, nil
}

// Deserialize validates raw against SchemaID, then unmarshals it.
func (s ValidatingSerializer[T]) Deserialize(raw []byte) (T, error) {
	var v T
	if err := s.Validator.ValidateStrict(s.SchemaID, raw); err != nil {
		return v, fmt.Errorf("schema: stored value does not satisfy %q: %w", s.SchemaID, err)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("schema: unmarshal: %w", err)
	}
	return v, nil
}
