// Package types holds the leaf data model shared by the matching and
// condition packages: the tagged Value union and the Event tree built on
// top of it. Nothing in this package depends on rule or condition parsing,
// so both pkg/match and the root sigma package can sit on top of it without
// creating an import cycle.
package types

import (
	"fmt"
	"sort"
	"strconv"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
	KindSeq
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindSeq:
		return "seq"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is the strict tagged scalar used throughout rule compilation and
// event matching. The zero Value is Null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	u    uint64
	f    float64
	s    string
	seq  []Value
	m    *Map
}

// Null is the canonical null Value.
var Null = Value{kind: KindNull}

func Bool(b bool) Value      { return Value{kind: KindBool, b: b} }
func Int(i int64) Value      { return Value{kind: KindInt, i: i} }
func Uint(u uint64) Value    { return Value{kind: KindUint, u: u} }
func Float(f float64) Value  { return Value{kind: KindFloat, f: f} }
func String(s string) Value  { return Value{kind: KindString, s: s} }
func Seq(vs []Value) Value   { return Value{kind: KindSeq, seq: vs} }
func MapValue(m *Map) Value  { return Value{kind: KindMap, m: m} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool)       { return v.b, v.kind == KindBool }
func (v Value) AsInt() (int64, bool)       { return v.i, v.kind == KindInt }
func (v Value) AsUint() (uint64, bool)     { return v.u, v.kind == KindUint }
func (v Value) AsFloat() (float64, bool)   { return v.f, v.kind == KindFloat }
func (v Value) AsString() (string, bool)   { return v.s, v.kind == KindString }
func (v Value) AsSeq() ([]Value, bool)     { return v.seq, v.kind == KindSeq }
func (v Value) AsMap() (*Map, bool)        { return v.m, v.kind == KindMap }

// IsNumeric reports whether v carries one of the numeric tags.
func (v Value) IsNumeric() bool {
	switch v.kind {
	case KindInt, KindUint, KindFloat:
		return true
	default:
		return false
	}
}

// Float64 coerces any numeric tag to a float64, for ordering comparisons.
func (v Value) Float64() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindUint:
		return float64(v.u), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// String renders v as text (for example a non-string map key). Matchers
// never call it: string-kind matchers only accept values that are already
// strings, and the default equality test is strictly typed.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindUint:
		return strconv.FormatUint(v.u, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	case KindSeq:
		return fmt.Sprintf("%v", v.seq)
	case KindMap:
		return fmt.Sprintf("%v", v.m)
	default:
		return ""
	}
}

// Equal is the strict, same-or-cross-tag-numeric equality test described by
// the data model: Int(42) != Str("42"), but Int(5) == UInt(5) == Float(5.0)
// when the exact numeric value matches.
func (v Value) Equal(other Value) bool {
	if v.kind == other.kind {
		switch v.kind {
		case KindNull:
			return true
		case KindBool:
			return v.b == other.b
		case KindInt:
			return v.i == other.i
		case KindUint:
			return v.u == other.u
		case KindFloat:
			return v.f == other.f
		case KindString:
			return v.s == other.s
		case KindSeq:
			return seqEqual(v.seq, other.seq)
		case KindMap:
			return v.m.Equal(other.m)
		}
	}
	if v.IsNumeric() && other.IsNumeric() {
		return numericEqual(v, other)
	}
	return false
}

func seqEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// numericEqual compares across Int/Uint/Float tags only when the value is
// representable identically in both, e.g. Int(-1) never equals Uint(x).
func numericEqual(a, b Value) bool {
	switch a.kind {
	case KindInt:
		switch b.kind {
		case KindInt:
			return a.i == b.i
		case KindUint:
			return a.i >= 0 && uint64(a.i) == b.u
		case KindFloat:
			return float64(a.i) == b.f && int64(b.f) == a.i
		}
	case KindUint:
		switch b.kind {
		case KindInt:
			return numericEqual(b, a)
		case KindUint:
			return a.u == b.u
		case KindFloat:
			return float64(a.u) == b.f && uint64(b.f) == a.u
		}
	case KindFloat:
		switch b.kind {
		case KindInt, KindUint:
			return numericEqual(b, a)
		case KindFloat:
			return a.f == b.f
		}
	}
	return false
}

// Compare orders v against other. ok is false when the two values are not
// mutually ordered (different non-numeric tags, or either is a container).
func (v Value) Compare(other Value) (cmp int, ok bool) {
	if v.IsNumeric() && other.IsNumeric() {
		a, _ := v.Float64()
		b, _ := other.Float64()
		switch {
		case a < b:
			return -1, true
		case a > b:
			return 1, true
		default:
			return 0, true
		}
	}
	if v.kind == KindString && other.kind == KindString {
		switch {
		case v.s < other.s:
			return -1, true
		case v.s > other.s:
			return 1, true
		default:
			return 0, true
		}
	}
	return 0, false
}

// Map is an insertion-ordered string-keyed map of Values, used for the
// Map container variant of Value (event objects and nested objects).
type Map struct {
	keys   []string
	values map[string]Value
}

func NewMap() *Map {
	return &Map{values: make(map[string]Value)}
}

func (m *Map) Set(key string, v Value) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return Null, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return m.keys
}

func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

func (m *Map) Equal(other *Map) bool {
	if m.Len() != other.Len() {
		return false
	}
	for _, k := range m.Keys() {
		a, _ := m.Get(k)
		b, ok := other.Get(k)
		if !ok || !a.Equal(b) {
			return false
		}
	}
	return true
}

// SortedKeys returns the keys in lexicographic order, for callers that
// need a deterministic iteration order.
func (m *Map) SortedKeys() []string {
	keys := append([]string{}, m.Keys()...)
	sort.Strings(keys)
	return keys
}
