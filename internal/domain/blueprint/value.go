package blueprint

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/goccy/go-yaml"
)

// Kind tags the payload carried by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindExpr
	KindList
	KindMap
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "integer"
	case KindFloat:
		return "number"
	case KindBool:
		return "boolean"
	case KindExpr:
		return "expression"
	case KindList:
		return "array"
	case KindMap:
		return "object"
	default:
		return "unknown"
	}
}

// Value is the payload of entity inputs, values and step fields: a literal
// scalar, a nested map, an ordered list, or a variable expression kept
// verbatim.
type Value struct {
	kind Kind
	str  string
	i    int64
	f    float64
	b    bool
	list []Value
	m    *Map
}

// Null returns the empty value.
func Null() Value { return Value{} }

// String wraps a string. Strings that embed a ${{ ... }} expression become
// expression values so they are never treated as plain literals.
func String(s string) Value {
	if HasExpression(s) {
		return Value{kind: KindExpr, str: s}
	}
	return Value{kind: KindString, str: s}
}

// Int wraps an integer.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float wraps a floating point number.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Expr wraps raw expression text such as "${{env.config.name}}".
func Expr(raw string) Value { return Value{kind: KindExpr, str: raw} }

// List wraps an ordered list of values.
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, list: items}
}

// MapValue wraps a map.
func MapValue(m *Map) Value {
	if m == nil {
		m = NewMap()
	}
	return Value{kind: KindMap, m: m}
}

// Kind reports the tag of the value.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsExpr reports whether the value holds an unresolved expression.
func (v Value) IsExpr() bool { return v.kind == KindExpr }

// IsEmpty reports null, "", empty lists and empty maps. Numbers and
// booleans are never empty.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindString, KindExpr:
		return v.str == ""
	case KindList:
		return len(v.list) == 0
	case KindMap:
		return v.m == nil || v.m.Len() == 0
	default:
		return false
	}
}

// Str returns the literal string, or the raw text of an expression.
func (v Value) Str() (string, bool) {
	if v.kind == KindString || v.kind == KindExpr {
		return v.str, true
	}
	return "", false
}

// Literal returns the string only when the value is a plain string literal.
func (v Value) Literal() (string, bool) {
	if v.kind == KindString {
		return v.str, true
	}
	return "", false
}

// Items returns the list items.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	return v.list
}

// Map returns the nested map.
func (v Value) Map() (*Map, bool) {
	if v.kind != KindMap || v.m == nil {
		return nil, false
	}
	return v.m, true
}

// TypeName infers the blueprint input type from the concrete kind.
// Expressions and nulls are strings.
func (v Value) TypeName() string {
	switch v.kind {
	case KindInt, KindFloat, KindBool, KindList, KindMap:
		return v.kind.String()
	default:
		return KindString.String()
	}
}

// Strings returns every string leaf of the value in document order.
func (v Value) Strings() []string {
	var out []string
	v.walkStrings(func(s string) { out = append(out, s) })
	return out
}

func (v Value) walkStrings(fn func(string)) {
	switch v.kind {
	case KindString, KindExpr:
		fn(v.str)
	case KindList:
		for _, item := range v.list {
			item.walkStrings(fn)
		}
	case KindMap:
		for _, key := range v.m.Keys() {
			item, _ := v.m.Get(key)
			item.walkStrings(fn)
		}
	}
}

// Clone returns a deep copy.
func (v Value) Clone() Value {
	switch v.kind {
	case KindList:
		items := make([]Value, len(v.list))
		for i, item := range v.list {
			items[i] = item.Clone()
		}
		return Value{kind: KindList, list: items}
	case KindMap:
		return Value{kind: KindMap, m: v.m.Clone()}
	default:
		return v
	}
}

// Equal reports deep equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString, KindExpr:
		return v.str == o.str
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindBool:
		return v.b == o.b
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return v.m.Equal(o.m)
	}
	return false
}

// Interface converts the value into plain Go data. Maps lose their order.
func (v Value) Interface() any {
	switch v.kind {
	case KindString, KindExpr:
		return v.str
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	case KindMap:
		out := make(map[string]any, v.m.Len())
		for _, key := range v.m.Keys() {
			item, _ := v.m.Get(key)
			out[key] = item.Interface()
		}
		return out
	default:
		return nil
	}
}

// GoString renders scalars for log and error messages.
func (v Value) GoString() string {
	switch v.kind {
	case KindString, KindExpr:
		return strconv.Quote(v.str)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNull:
		return "null"
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}

// MarshalYAML keeps map order by emitting yaml.MapSlice.
func (v Value) MarshalYAML() (interface{}, error) {
	return v.yamlTree(), nil
}

func (v Value) yamlTree() interface{} {
	switch v.kind {
	case KindList:
		out := make([]interface{}, len(v.list))
		for i, item := range v.list {
			out[i] = item.yamlTree()
		}
		return out
	case KindMap:
		return v.m.yamlTree()
	default:
		return v.Interface()
	}
}

// FromAny converts decoded YAML/JSON data into a Value. yaml.MapSlice keeps
// its order; plain maps are ordered by key so conversion stays deterministic.
// Whole float64 numbers become integers.
func FromAny(x any) Value { return valueOf(x, fromFloat) }

// fromTyped converts data from a decoder that keeps integers apart from
// floats, so every float64 stays a float.
func fromTyped(x any) Value { return valueOf(x, Float) }

func valueOf(x any, float func(float64) Value) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case *Map:
		return MapValue(t)
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case int:
		return Int(int64(t))
	case int8:
		return Int(int64(t))
	case int16:
		return Int(int64(t))
	case int32:
		return Int(int64(t))
	case int64:
		return Int(t)
	case uint:
		return fromUint(uint64(t))
	case uint8:
		return Int(int64(t))
	case uint16:
		return Int(int64(t))
	case uint32:
		return Int(int64(t))
	case uint64:
		return fromUint(t)
	case float32:
		return float(float64(t))
	case float64:
		return float(t)
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = valueOf(item, float)
		}
		return List(items...)
	case []string:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = String(item)
		}
		return List(items...)
	case yaml.MapSlice:
		m := NewMap()
		for _, item := range t {
			m.Set(fmt.Sprint(item.Key), valueOf(item.Value, float))
		}
		return MapValue(m)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for key := range t {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		m := NewMap()
		for _, key := range keys {
			m.Set(key, valueOf(t[key], float))
		}
		return MapValue(m)
	case map[any]any:
		converted := make(map[string]any, len(t))
		for key, item := range t {
			converted[fmt.Sprint(key)] = item
		}
		return valueOf(converted, float)
	default:
		return String(fmt.Sprint(t))
	}
}

func fromUint(u uint64) Value {
	if u > math.MaxInt64 {
		return Float(float64(u))
	}
	return Int(int64(u))
}

// JSON decoders hand every number over as float64; whole numbers become integers.
func fromFloat(f float64) Value {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return Int(int64(f))
	}
	return Float(f)
}
