package modifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeBase64(t *testing.T) {
	cases := map[string]string{
		"/bin/bash": "L2Jpbi9iYXNo",
		"/bin/sh":   "L2Jpbi9za",
		"/bin/zsh":  "L2Jpbi96c2",
		"":          "",
	}
	for in, want := range cases {
		assert.Equal(t, want, EncodeBase64(in, Utf16None), "EncodeBase64(%q)", in)
	}
}

func TestEncodeBase64Offset(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"/bin/bash", []string{"L2Jpbi9iYXNo", "9iaW4vYmFza", "vYmluL2Jhc2"}},
		{"/bin/sh", []string{"L2Jpbi9za", "9iaW4vc2", "vYmluL3No"}},
		{"/bin/zsh", []string{"L2Jpbi96c2", "9iaW4venNo", "vYmluL3pza"}},
		{"1", []string{"M", "x"}},
	}
	for _, c := range cases {
		got := EncodeBase64Offset(c.in, Utf16None)
		require.Len(t, got, len(c.want), "EncodeBase64Offset(%q)", c.in)
		assert.Equal(t, c.want, got, "EncodeBase64Offset(%q)", c.in)
	}
}

func TestWindashVariations(t *testing.T) {
	got := WindashVariations(" -param")
	want := map[string]bool{
		" -param": true,
		" /param": true,
		" –param": true,
		" —param": true,
		" ―param": true,
	}
	require.Len(t, got, len(want))
	for _, v := range got {
		assert.True(t, want[v], "unexpected variant %q", v)
	}
}

func TestWindashVariationsNoDash(t *testing.T) {
	got := WindashVariations("plain text")
	require.Len(t, got, 1)
	assert.Equal(t, "plain text", got[0])
}
