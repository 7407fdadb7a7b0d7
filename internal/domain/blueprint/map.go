package blueprint

import (
	"bytes"
	"math"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
)

// Map is a string-keyed map that remembers insertion order. Rendering and
// question batching both depend on a stable key order.
type Map struct {
	keys  []string
	items map[string]Value
}

// NewMap creates an empty map.
func NewMap() *Map {
	return &Map{items: make(map[string]Value)}
}

// Len returns the number of keys.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return Null(), false
	}
	v, ok := m.items[key]
	return v, ok
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Set stores value under key. Existing keys keep their position.
func (m *Map) Set(key string, value Value) {
	if m.items == nil {
		m.items = make(map[string]Value)
	}
	if _, ok := m.items[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.items[key] = value
}

// Delete removes key.
func (m *Map) Delete(key string) {
	if _, ok := m.items[key]; !ok {
		return
	}
	delete(m.items, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Clear removes every key.
func (m *Map) Clear() {
	m.keys = nil
	m.items = make(map[string]Value)
}

// Clone returns a deep copy.
func (m *Map) Clone() *Map {
	out := NewMap()
	if m == nil {
		return out
	}
	for _, key := range m.keys {
		out.Set(key, m.items[key].Clone())
	}
	return out
}

// Equal compares keys, order and values.
func (m *Map) Equal(o *Map) bool {
	if m.Len() != o.Len() {
		return false
	}
	for i, key := range m.Keys() {
		if o.keys[i] != key {
			return false
		}
		if !m.items[key].Equal(o.items[key]) {
			return false
		}
	}
	return true
}

// Lookup follows a dotted path through nested maps.
func (m *Map) Lookup(path string) (Value, bool) {
	segments := SplitPath(path)
	if len(segments) == 0 {
		return Null(), false
	}
	current := m
	for i, seg := range segments {
		v, ok := current.Get(seg)
		if !ok {
			return Null(), false
		}
		if i == len(segments)-1 {
			return v, true
		}
		next, ok := v.Map()
		if !ok {
			return Null(), false
		}
		current = next
	}
	return Null(), false
}

// SetPath writes value at a dotted path, creating intermediate maps and
// replacing any non-map value standing in the way.
func (m *Map) SetPath(path string, value Value) error {
	segments := SplitPath(path)
	if len(segments) == 0 {
		return ErrInvalidPath
	}
	current := m
	for _, seg := range segments[:len(segments)-1] {
		v, ok := current.Get(seg)
		next, isMap := v.Map()
		if !ok || !isMap {
			next = NewMap()
			current.Set(seg, MapValue(next))
		}
		current = next
	}
	current.Set(segments[len(segments)-1], value)
	return nil
}

// Interface converts the map into plain Go data.
func (m *Map) Interface() map[string]any {
	out := make(map[string]any, m.Len())
	for _, key := range m.Keys() {
		out[key] = m.items[key].Interface()
	}
	return out
}

func (m *Map) yamlTree() yaml.MapSlice {
	out := make(yaml.MapSlice, 0, m.Len())
	for _, key := range m.Keys() {
		out = append(out, yaml.MapItem{Key: key, Value: m.items[key].yamlTree()})
	}
	return out
}

// MarshalYAML emits the map as an ordered yaml.MapSlice.
func (m *Map) MarshalYAML() (interface{}, error) {
	if m == nil {
		return yaml.MapSlice{}, nil
	}
	return m.yamlTree(), nil
}

// MarshalJSON writes keys in insertion order.
func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range m.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := sonic.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := m.items[key].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON encodes the value, preserving map order.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindMap:
		return v.m.MarshalJSON()
	case KindList:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case KindFloat:
		// Whole floats keep a fraction so they decode as floats again.
		if v.f == math.Trunc(v.f) && math.Abs(v.f) < 1e21 {
			return strconv.AppendFloat(nil, v.f, 'f', 1, 64), nil
		}
		return sonic.Marshal(v.f)
	default:
		return sonic.Marshal(v.Interface())
	}
}
