package cache

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the dynamic type carried by a Value
type Kind int

const (
	// KindInvalid is the zero Value
	KindInvalid Kind = iota
	// KindString carries text
	KindString
	// KindInt carries a signed integer
	KindInt
	// KindFloat carries a floating point number
	KindFloat
	// KindBool carries a boolean
	KindBool
	// KindMap carries a nested attribute map
	KindMap
	// KindList carries an ordered list of values
	KindList
)

// Value is a tagged scalar or container for open-ended entity attributes.
// The service adds fields over time, so entity state is a mapping from
// attribute name to Value rather than a fixed struct; unknown keys survive
// merges untouched.
type Value struct {
	kind Kind
	str  string
	num  int64
	flt  float64
	b    bool
	m    Attrs
	l    []Value
}

// Attrs is an entity attribute map
type Attrs map[string]Value

// String creates a text value
func String(s string) Value { return Value{kind: KindString, str: s} }

// Int creates an integer value
func Int(i int64) Value { return Value{kind: KindInt, num: i} }

// Float creates a floating point value
func Float(f float64) Value { return Value{kind: KindFloat, flt: f} }

// Bool creates a boolean value
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Map creates a nested map value
func Map(m Attrs) Value { return Value{kind: KindMap, m: m} }

// List creates a list value
func List(l []Value) Value { return Value{kind: KindList, l: l} }

// FromAny converts a JSON-decoded value into a tagged Value. Unsupported
// types are stored as their string form.
func FromAny(v any) Value {
	switch val := v.(type) {
	case nil:
		return Value{}
	case string:
		return String(val)
	case bool:
		return Bool(val)
	case int:
		return Int(int64(val))
	case int64:
		return Int(val)
	case float64:
		// JSON numbers decode as float64; keep integral values as ints
		if val == float64(int64(val)) {
			return Int(int64(val))
		}
		return Float(val)
	case map[string]any:
		m := make(Attrs, len(val))
		for k, nested := range val {
			m[k] = FromAny(nested)
		}
		return Map(m)
	case []any:
		l := make([]Value, len(val))
		for i, nested := range val {
			l[i] = FromAny(nested)
		}
		return List(l)
	default:
		return String(fmt.Sprintf("%v", val))
	}
}

// FromAnyMap converts a JSON-decoded object into an attribute map
func FromAnyMap(m map[string]any) Attrs {
	attrs := make(Attrs, len(m))
	for k, v := range m {
		attrs[k] = FromAny(v)
	}
	return attrs
}

// Kind returns the dynamic type tag
func (v Value) Kind() Kind { return v.kind }

// IsZero reports whether the value is the invalid zero Value
func (v Value) IsZero() bool { return v.kind == KindInvalid }

// Str returns the text content, or "" for non-string values
func (v Value) Str() string {
	if v.kind == KindString {
		return v.str
	}
	return ""
}

// Int64 returns the integer content. Float values are truncated, booleans
// map to 0/1, numeric strings are parsed.
func (v Value) Int64() int64 {
	switch v.kind {
	case KindInt:
		return v.num
	case KindFloat:
		return int64(v.flt)
	case KindBool:
		if v.b {
			return 1
		}
		return 0
	case KindString:
		if i, err := strconv.ParseInt(strings.TrimSpace(v.str), 10, 64); err == nil {
			return i
		}
	}
	return 0
}

// Float64 returns the numeric content as a float
func (v Value) Float64() float64 {
	switch v.kind {
	case KindFloat:
		return v.flt
	case KindInt:
		return float64(v.num)
	case KindString:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64); err == nil {
			return f
		}
	}
	return 0
}

// AsBool returns the boolean content. Integers and the strings seen in
// service responses ("1", "true") coerce to true.
func (v Value) AsBool() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.num != 0
	case KindString:
		s := strings.ToLower(strings.TrimSpace(v.str))
		return s == "1" || s == "true"
	}
	return false
}

// AttrMap returns the nested map content, or nil for non-map values
func (v Value) AttrMap() Attrs {
	if v.kind == KindMap {
		return v.m
	}
	return nil
}

// ListValues returns the list content, or nil for non-list values
func (v Value) ListValues() []Value {
	if v.kind == KindList {
		return v.l
	}
	return nil
}

// Equal reports deep equality of two values
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindInt:
		return v.num == o.num
	case KindFloat:
		return v.flt == o.flt
	case KindBool:
		return v.b == o.b
	case KindMap:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, val := range v.m {
			if !val.Equal(o.m[k]) {
				return false
			}
		}
		return true
	case KindList:
		if len(v.l) != len(o.l) {
			return false
		}
		for i, val := range v.l {
			if !val.Equal(o.l[i]) {
				return false
			}
		}
		return true
	}
	return true
}

// String implements fmt.Stringer for debugging and CLI output
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return strconv.FormatInt(v.num, 10)
	case KindFloat:
		return strconv.FormatFloat(v.flt, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindMap:
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s:%s", k, v.m[k]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindList:
		parts := make([]string, 0, len(v.l))
		for _, val := range v.l {
			parts = append(parts, val.String())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return "<invalid>"
}

// Clone returns a deep copy of the value
func (v Value) Clone() Value {
	switch v.kind {
	case KindMap:
		m := make(Attrs, len(v.m))
		for k, val := range v.m {
			m[k] = val.Clone()
		}
		return Value{kind: KindMap, m: m}
	case KindList:
		l := make([]Value, len(v.l))
		for i, val := range v.l {
			l[i] = val.Clone()
		}
		return Value{kind: KindList, l: l}
	default:
		return v
	}
}

// Clone returns a deep copy of the attribute map
func (a Attrs) Clone() Attrs {
	if a == nil {
		return nil
	}
	out := make(Attrs, len(a))
	for k, v := range a {
		out[k] = v.Clone()
	}
	return out
}
