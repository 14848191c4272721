package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigmarules/engine/pkg/types"
)

func TestContentPattern(t *testing.T) {
	cases := []struct {
		token, msg string
		lowercase  bool
		want       bool
	}{
		{"python-urllib", "python-urllib", false, true},
		{"Python-Urllib", "python-urllib", false, false},
		{"Python-Urllib", "python-urllib", true, true},
		{"foo", "bar", false, false},
	}
	for _, c := range cases {
		p := ContentPattern{Token: c.token, Lowercase: c.lowercase}
		assert.Equal(t, c.want, p.StringMatch(c.msg))
	}
}

func TestPrefixSuffixContainsPattern(t *testing.T) {
	assert.True(t, PrefixPattern{Token: "C:\\Windows"}.StringMatch("C:\\Windows\\System32\\cmd.exe"))
	assert.False(t, PrefixPattern{Token: "C:\\Windows"}.StringMatch("D:\\Windows\\cmd.exe"))

	assert.True(t, SuffixPattern{Token: "\\cmd.exe"}.StringMatch("C:\\Windows\\System32\\cmd.exe"))
	assert.False(t, SuffixPattern{Token: "\\cmd.exe"}.StringMatch("C:\\Windows\\System32\\cmd.com"))

	assert.True(t, ContainsPattern{Token: "urllib"}.StringMatch("python-urllib/2.5"))
	assert.False(t, ContainsPattern{Token: "urllib"}.StringMatch("python-requests/2.5"))
}

func TestGlobMatcherUnescaped(t *testing.T) {
	m, err := NewGlobMatcher("*\\schtasks.exe", false)
	require.NoError(t, err)
	assert.True(t, m.StringMatch("C:\\Windows\\System32\\schtasks.exe"))
	assert.False(t, m.StringMatch("C:\\Windows\\System32\\nslookup.exe"))
}

func TestGlobMatcherEscapedBracketsPassThroughLiterally(t *testing.T) {
	// Sigma patterns don't use glob's bracket metacharacters, so a literal
	// '[' or ']' in a needle must still compare as a literal character
	// once escaped for gobwas/glob, not as a character class.
	m, err := NewGlobMatcher("tag[1]*", false)
	require.NoError(t, err)
	assert.True(t, m.StringMatch("tag[1]value"))
	assert.False(t, m.StringMatch("tag1value"))
}

func TestHasUnescapedWildcard(t *testing.T) {
	cases := []struct {
		pattern string
		want    bool
	}{
		{"plain", false},
		{"has*wildcard", true},
		{"has\\*escaped", false},
		{"has\\\\*doubleescape", true},
		{"question?mark", true},
		{"question\\?mark", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, HasUnescapedWildcard(c.pattern), c.pattern)
	}
}

func TestNewContainsMatcherSwitchesToAhoCorasick(t *testing.T) {
	needles := []string{"schtasks.exe", "nslookup.exe", "certutil.exe", "bitsadmin.exe", "mshta.exe"}
	require.GreaterOrEqual(t, len(needles), AhoCorasickThreshold)
	m := NewContainsMatcher(needles, false)
	assert.True(t, m.StringMatch("C:\\Windows\\System32\\certutil.exe"))
	assert.False(t, m.StringMatch("C:\\Windows\\System32\\cmd.exe"))
}

func TestNewContainsMatcherSmallSetStaysOrOfContains(t *testing.T) {
	needles := []string{"cmd.exe", "powershell.exe"}
	require.Less(t, len(needles), AhoCorasickThreshold)
	m := NewContainsMatcher(needles, true)
	assert.True(t, m.StringMatch("C:\\Windows\\System32\\CMD.EXE"))
	assert.False(t, m.StringMatch("C:\\Windows\\System32\\wscript.exe"))
}

func TestRegexMatcherLookaround(t *testing.T) {
	m, err := NewRegexMatcher(`(?<=foo)bar`)
	require.NoError(t, err)
	assert.True(t, m.StringMatch("foobar"))
	assert.False(t, m.StringMatch("bazbar"))
}

func TestNumMatcher(t *testing.T) {
	cases := []struct {
		op   NumOp
		v    int64
		want bool
	}{
		{OpGT, 43, true},
		{OpGT, 42, false},
		{OpGTE, 42, true},
		{OpLT, 41, true},
		{OpLT, 42, false},
		{OpLTE, 42, true},
	}
	for _, c := range cases {
		m := NumMatcher{Bound: types.Int(42), Op: c.op}
		assert.Equal(t, c.want, m.Match(types.Int(c.v)))
	}
}

func TestCIDRMatcher(t *testing.T) {
	m, err := NewCIDRMatcher("10.0.0.0/8")
	require.NoError(t, err)
	assert.True(t, m.Match(types.String("10.1.2.3")))
	assert.False(t, m.Match(types.String("192.168.1.1")))
}

func TestCIDRMatcherInvalidCidrErrors(t *testing.T) {
	_, err := NewCIDRMatcher("not-a-cidr")
	require.Error(t, err)
}
