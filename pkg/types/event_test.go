package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventGetDottedPathLiteralKeyWinsOverNested(t *testing.T) {
	// {"a.b": 1, "a": {"b": 2}} must resolve "a.b" to 1, not descend into
	// the nested "a"/"b" map.
	ev := FromInterface(map[string]interface{}{
		"a.b": 1,
		"a": map[string]interface{}{
			"b": 2,
		},
	})
	v, ok := ev.Get("a.b")
	require.True(t, ok)
	assert.Equal(t, Int(1), v)
}

func TestEventGetDottedPathFallsBackToNestedDescent(t *testing.T) {
	ev := FromInterface(map[string]interface{}{
		"a": map[string]interface{}{
			"b": 2,
		},
	})
	v, ok := ev.Get("a.b")
	require.True(t, ok)
	assert.Equal(t, Int(2), v)
}

func TestEventGetDottedPathMultiLevelDescent(t *testing.T) {
	ev := FromInterface(map[string]interface{}{
		"a": map[string]interface{}{
			"b": map[string]interface{}{
				"c": "deep",
			},
		},
	})
	v, ok := ev.Get("a.b.c")
	require.True(t, ok)
	assert.Equal(t, String("deep"), v)
}

func TestEventGetMissingPath(t *testing.T) {
	ev := FromInterface(map[string]interface{}{"a": 1})
	_, ok := ev.Get("missing")
	assert.False(t, ok)

	_, ok = ev.Get("a.b")
	assert.False(t, ok, "descending into a non-map leaf must fail, not panic")
}

func TestEventGetOnNonMapRoot(t *testing.T) {
	ev := FromInterface("just a string")
	_, ok := ev.Get("anything")
	assert.False(t, ok)
}

func TestEventContainsAnywhere(t *testing.T) {
	ev := FromInterface(map[string]interface{}{
		"cmdline": "powershell.exe -enc AAA",
		"nested": map[string]interface{}{
			"list": []interface{}{"x", "y", "target"},
		},
	})
	assert.True(t, ev.ContainsAnywhere(func(v Value) bool {
		s, ok := v.AsString()
		return ok && s == "target"
	}))
	assert.False(t, ev.ContainsAnywhere(func(v Value) bool {
		s, ok := v.AsString()
		return ok && s == "absent"
	}))
}

func TestValueFromInterfaceScalarKinds(t *testing.T) {
	cases := []struct {
		name string
		in   interface{}
		want Value
	}{
		{"nil", nil, Null},
		{"bool", true, Bool(true)},
		{"string", "s", String("s")},
		{"int", int(7), Int(7)},
		{"int8", int8(7), Int(7)},
		{"int16", int16(7), Int(7)},
		{"int32", int32(7), Int(7)},
		{"int64", int64(7), Int(7)},
		{"uint", uint(7), Uint(7)},
		{"uint8", uint8(7), Uint(7)},
		{"uint16", uint16(7), Uint(7)},
		{"uint32", uint32(7), Uint(7)},
		{"uint64", uint64(7), Uint(7)},
		{"float32", float32(1.5), Float(float64(float32(1.5)))},
		{"float64", float64(1.5), Float(1.5)},
		{"json.Number int", json.Number("9"), Int(9)},
		{"json.Number float", json.Number("9.5"), Float(9.5)},
		{"already a Value", String("pass-through"), String("pass-through")},
		{"unsupported type", struct{}{}, Null},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.True(t, c.want.Equal(ValueFromInterface(c.in)), "ValueFromInterface(%v)", c.in)
		})
	}
}

func TestValueFromInterfaceSeqAndStringSlice(t *testing.T) {
	v := ValueFromInterface([]interface{}{"a", 1, true})
	seq, ok := v.AsSeq()
	require.True(t, ok)
	require.Len(t, seq, 3)
	assert.True(t, seq[0].Equal(String("a")))
	assert.True(t, seq[1].Equal(Int(1)))
	assert.True(t, seq[2].Equal(Bool(true)))

	v2 := ValueFromInterface([]string{"x", "y"})
	seq2, ok := v2.AsSeq()
	require.True(t, ok)
	assert.Equal(t, []Value{String("x"), String("y")}, seq2)
}

func TestValueFromInterfaceMapKinds(t *testing.T) {
	v := ValueFromInterface(map[string]interface{}{"k": "v"})
	m, ok := v.AsMap()
	require.True(t, ok)
	got, ok := m.Get("k")
	require.True(t, ok)
	assert.Equal(t, String("v"), got)

	// map[interface{}]interface{} is what yaml.v2 decodes into; non-string
	// keys must be rendered to their string form.
	v2 := ValueFromInterface(map[interface{}]interface{}{1: "one", "two": 2})
	m2, ok := v2.AsMap()
	require.True(t, ok)
	one, ok := m2.Get("1")
	require.True(t, ok)
	assert.Equal(t, String("one"), one)
	two, ok := m2.Get("two")
	require.True(t, ok)
	assert.Equal(t, Int(2), two)
}

func TestNumberFromStringFallbackChain(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want Value
	}{
		{"signed int", "-42", Int(-42)},
		{"large unsigned beyond int64", "18446744073709551615", Uint(18446744073709551615)},
		{"float", "3.14", Float(3.14)},
		{"not a number falls back to string", "abc", String("abc")},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.True(t, c.want.Equal(NumberFromString(c.in)), "NumberFromString(%q)", c.in)
		})
	}
}

func TestEventFromValueRequiresMapRoot(t *testing.T) {
	ev := FromValue(Int(1))
	_, ok := ev.Get("x")
	assert.False(t, ok, "a non-map root event resolves no paths")
}
