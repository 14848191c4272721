package types

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Event is an immutable tree of Values keyed by strings, the structured
// form of one JSON-like log record presented to Rule.IsMatch.
type Event struct {
	root Value
}

// NotPresent is returned alongside a Value when a field path does not
// resolve against the event, distinguishing "absent" from an explicit Null.
var NotPresent = Value{}

// FromValue wraps an already-built Map Value as an Event. v must be a map,
// or the event behaves as empty.
func FromValue(v Value) Event {
	return Event{root: v}
}

// FromInterface builds an Event from a generic decoded tree, as produced by
// encoding/json, json-iterator or yaml.v2 (map[string]interface{},
// map[interface{}]interface{}, []interface{}, and scalar leaves).
func FromInterface(raw interface{}) Event {
	return Event{root: ValueFromInterface(raw)}
}

// Get resolves a dotted field path against the event. At every level the
// full remaining path is tried first as a literal key; only on a miss does
// resolution split on the first '.' and descend into the nested map. This
// makes {"a.b": 1, "a": {"b": 2}} resolve path "a.b" to 1, not 2.
func (e Event) Get(path string) (Value, bool) {
	return getPath(e.root, path)
}

func getPath(v Value, path string) (Value, bool) {
	m, ok := v.AsMap()
	if !ok {
		return NotPresent, false
	}
	if val, ok := m.Get(path); ok {
		return val, true
	}
	idx := strings.IndexByte(path, '.')
	if idx < 0 {
		return NotPresent, false
	}
	head, tail := path[:idx], path[idx+1:]
	child, ok := m.Get(head)
	if !ok {
		return NotPresent, false
	}
	return getPath(child, tail)
}

// ContainsAnywhere implements the keyword-selection semantics: true when
// some scalar value, anywhere in the event tree, satisfies pred.
func (e Event) ContainsAnywhere(pred func(Value) bool) bool {
	return valueContains(e.root, pred)
}

func valueContains(v Value, pred func(Value) bool) bool {
	switch v.Kind() {
	case KindSeq:
		seq, _ := v.AsSeq()
		for _, elem := range seq {
			if valueContains(elem, pred) {
				return true
			}
		}
		return false
	case KindMap:
		m, _ := v.AsMap()
		for _, k := range m.Keys() {
			val, _ := m.Get(k)
			if valueContains(val, pred) {
				return true
			}
		}
		return false
	default:
		return pred(v)
	}
}

// ValueFromInterface classifies a generic decoded value into the strict
// Value union. Map keys that are not strings (map[interface{}]interface{}
// from yaml.v2) are rendered with their string representation.
func ValueFromInterface(raw interface{}) Value {
	switch x := raw.(type) {
	case nil:
		return Null
	case Value:
		return x
	case bool:
		return Bool(x)
	case string:
		return String(x)
	case int:
		return Int(int64(x))
	case int8:
		return Int(int64(x))
	case int16:
		return Int(int64(x))
	case int32:
		return Int(int64(x))
	case int64:
		return Int(x)
	case uint:
		return Uint(uint64(x))
	case uint8:
		return Uint(uint64(x))
	case uint16:
		return Uint(uint64(x))
	case uint32:
		return Uint(uint64(x))
	case uint64:
		return Uint(x)
	case float32:
		return Float(float64(x))
	case float64:
		return Float(x)
	case json.Number:
		return NumberFromString(string(x))
	case []interface{}:
		out := make([]Value, len(x))
		for i, elem := range x {
			out[i] = ValueFromInterface(elem)
		}
		return Seq(out)
	case []string:
		out := make([]Value, len(x))
		for i, elem := range x {
			out[i] = String(elem)
		}
		return Seq(out)
	case map[string]interface{}:
		m := NewMap()
		for k, val := range x {
			m.Set(k, ValueFromInterface(val))
		}
		return MapValue(m)
	case map[interface{}]interface{}:
		m := NewMap()
		for k, val := range x {
			m.Set(toStringKey(k), ValueFromInterface(val))
		}
		return MapValue(m)
	default:
		return Null
	}
}

// NumberFromString classifies a numeric literal the way the external JSON
// decoder hands it over: integer first (both signed and unsigned ranges),
// float as the fallback, matching the "64-bit integer when representable
// without loss, otherwise double" rule from the external interface spec.
func NumberFromString(s string) Value {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(i)
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return Uint(u)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Float(f)
	}
	return String(s)
}

func toStringKey(k interface{}) string {
	if s, ok := k.(string); ok {
		return s
	}
	return ValueFromInterface(k).String()
}
