package model

import (
	"bytes"
	"encoding/json"
)

// Properties is a property tree whose top-level keys preserve insertion
// order. Values may be scalars, []any sequences, or nested *Properties.
// The zero value is not usable; construct with NewProperties.
type Properties struct {
	keys   []string
	values map[string]any
}

// NewProperties creates an empty ordered property tree.
func NewProperties() *Properties {
	return &Properties{values: make(map[string]any)}
}

// Set stores a value under key. A new key is appended to the order;
// setting an existing key overwrites in place.
func (p *Properties) Set(key string, value any) {
	if _, exists := p.values[key]; !exists {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// Get returns the value stored under key.
func (p *Properties) Get(key string) (any, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Keys returns the keys in insertion order. The returned slice is a copy.
func (p *Properties) Keys() []string {
	keys := make([]string, len(p.keys))
	copy(keys, p.keys)
	return keys
}

// Len returns the number of top-level keys.
func (p *Properties) Len() int {
	return len(p.keys)
}

// Map converts the tree to plain nested maps, recursively flattening any
// nested *Properties and sequences. The result is suitable for validation
// and for JSON encoding where order no longer matters.
func (p *Properties) Map() map[string]any {
	out := make(map[string]any, len(p.keys))
	for _, k := range p.keys {
		out[k] = flattenValue(p.values[k])
	}
	return out
}

func flattenValue(v any) any {
	switch t := v.(type) {
	case *Properties:
		return t.Map()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = flattenValue(e)
		}
		return out
	default:
		return v
	}
}

// MarshalJSON encodes the tree as a JSON object with keys in insertion
// order.
func (p *Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range p.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(p.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
