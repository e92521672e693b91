package hexdata

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Decimal is a fixed point reading: Raw counts units of 1/Divisor.
// Keeping the raw integer avoids the drift a float conversion would
// accumulate across repeated decode and encode passes. Divisor is a
// power of ten.
type Decimal struct {
	Raw     int64
	Divisor int64
}

// Float64 returns the reading as a float for display or math where
// exactness no longer matters.
func (d Decimal) Float64() float64 {
	if d.Divisor <= 1 {
		return float64(d.Raw)
	}
	return float64(d.Raw) / float64(d.Divisor)
}

// String formats the exact decimal without going through floats.
func (d Decimal) String() string {
	if d.Divisor <= 1 {
		return strconv.FormatInt(d.Raw, 10)
	}
	raw := d.Raw
	neg := raw < 0
	if neg {
		raw = -raw
	}
	digits := 0
	for p := d.Divisor; p > 1; p /= 10 {
		digits++
	}
	s := fmt.Sprintf("%d.%0*d", raw/d.Divisor, digits, raw%d.Divisor)
	if neg {
		s = "-" + s
	}
	return s
}

// ValueKind tags the shape of a decoded field value.
type ValueKind int

const (
	KindInvalid ValueKind = iota
	KindInt
	KindDecimal
	KindFloat
	KindString
	KindBytes
	KindInts
	KindMap
)

// Value is one decoded field value.
type Value struct {
	Kind  ValueKind
	Int   int64
	Dec   Decimal
	Flt   float64
	Str   string
	Bytes []byte
	Ints  []int64
	Sub   map[string]Value
}

func IntValue(v int64) Value          { return Value{Kind: KindInt, Int: v} }
func DecimalValue(d Decimal) Value    { return Value{Kind: KindDecimal, Dec: d} }
func FloatValue(f float64) Value      { return Value{Kind: KindFloat, Flt: f} }
func StringValue(s string) Value      { return Value{Kind: KindString, Str: s} }
func BytesValue(b []byte) Value       { return Value{Kind: KindBytes, Bytes: b} }
func IntsValue(vs []int64) Value      { return Value{Kind: KindInts, Ints: vs} }
func MapValue(m map[string]Value) Value { return Value{Kind: KindMap, Sub: m} }

// Float64 coerces numeric kinds to a float. Non numeric kinds return 0.
func (v Value) Float64() float64 {
	switch v.Kind {
	case KindInt:
		return float64(v.Int)
	case KindDecimal:
		return v.Dec.Float64()
	case KindFloat:
		return v.Flt
	default:
		return 0
	}
}

// String renders the value for logs and CLI output.
func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindDecimal:
		return v.Dec.String()
	case KindFloat:
		return strconv.FormatFloat(v.Flt, 'g', -1, 64)
	case KindString:
		return v.Str
	case KindBytes:
		return fmt.Sprintf("%x", v.Bytes)
	case KindInts:
		parts := make([]string, len(v.Ints))
		for i, n := range v.Ints {
			parts[i] = strconv.FormatInt(n, 10)
		}
		return strings.Join(parts, ".")
	case KindMap:
		keys := make([]string, 0, len(v.Sub))
		for k := range v.Sub {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k)
			b.WriteString(": ")
			b.WriteString(v.Sub[k].String())
		}
		b.WriteByte('}')
		return b.String()
	default:
		return "<invalid>"
	}
}

// Any converts the value to a plain Go type suitable for cache merges
// and JSON output. Decimals become their exact string form so no
// precision is lost downstream.
func (v Value) Any() any {
	switch v.Kind {
	case KindInt:
		return v.Int
	case KindDecimal:
		return v.Dec.String()
	case KindFloat:
		return v.Flt
	case KindString:
		return v.Str
	case KindBytes:
		return fmt.Sprintf("%x", v.Bytes)
	case KindInts:
		return v.String()
	case KindMap:
		m := make(map[string]any, len(v.Sub))
		for k, sv := range v.Sub {
			m[k] = sv.Any()
		}
		return m
	default:
		return nil
	}
}
