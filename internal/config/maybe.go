package config

import "encoding/json"

// Maybe distinguishes "field absent" from "field present with the zero
// value," the way the teacher's vote/methods.go leans on
// dsfetch.Maybe[bool]/dsfetch.Maybe[int] throughout its config structs.
// dsfetch itself lives in the external openslides-go module this repo does
// not depend on, so this is a local equivalent built the same shape.
type Maybe[T any] struct {
	Value T
	Set   bool
}

// UnmarshalJSON marks the field present whenever it appears in the input,
// even if the JSON value is the type's zero value (0, false, ""). An
// explicit JSON null leaves it unset, matching what MarshalJSON writes.
func (m *Maybe[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, &m.Value); err != nil {
		return err
	}
	m.Set = true
	return nil
}

// MarshalJSON round-trips an unset Maybe as JSON null so re-encoding a
// parsed rules document is lossless.
func (m Maybe[T]) MarshalJSON() ([]byte, error) {
	if !m.Set {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

// Or returns m.Value if present, otherwise fallback.
func (m Maybe[T]) Or(fallback T) T {
	if m.Set {
		return m.Value
	}
	return fallback
}
