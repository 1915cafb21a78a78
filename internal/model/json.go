package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONMap is a flat JSON object stored in a jsonb column
type JSONMap map[string]any

// Value implements driver.Valuer
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal json map: %w", err)
	}
	return b, nil
}

// Scan implements sql.Scanner
func (m *JSONMap) Scan(src any) error {
	b, err := scanBytes(src)
	if err != nil {
		return err
	}
	if len(b) == 0 {
		*m = JSONMap{}
		return nil
	}
	out := JSONMap{}
	if err := json.Unmarshal(b, &out); err != nil {
		return fmt.Errorf("failed to unmarshal json map: %w", err)
	}
	*m = out
	return nil
}

// Clone returns a shallow copy
func (m JSONMap) Clone() JSONMap {
	out := make(JSONMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// JSONRaw is an arbitrary JSON document stored in a jsonb column
type JSONRaw json.RawMessage

// Value implements driver.Valuer
func (r JSONRaw) Value() (driver.Value, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return []byte(r), nil
}

// Scan implements sql.Scanner
func (r *JSONRaw) Scan(src any) error {
	b, err := scanBytes(src)
	if err != nil {
		return err
	}
	*r = append((*r)[:0], b...)
	return nil
}

// MarshalJSON keeps the document as is
func (r JSONRaw) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

// UnmarshalJSON stores a copy of data
func (r *JSONRaw) UnmarshalJSON(data []byte) error {
	*r = append((*r)[:0], data...)
	return nil
}

// MustJSON marshals v, falling back to null on failure
func MustJSON(v any) JSONRaw {
	b, err := json.Marshal(v)
	if err != nil {
		return JSONRaw("null")
	}
	return JSONRaw(b)
}

func scanBytes(src any) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported json column type %T", src)
	}
}
