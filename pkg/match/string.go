// Package match holds the compiled leaf matchers consulted by a field
// matcher's per-needle test: string (literal/glob/regex), numeric and CIDR.
// Adapted from the teacher's root pattern.go, split by concern and
// generalized to the strict Value model in pkg/types.
package match

import (
	"regexp"
	"strings"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"
	"github.com/dlclark/regexp2"
	"github.com/gobwas/glob"
)

// StringMatcher tests a single resolved string value.
type StringMatcher interface {
	StringMatch(string) bool
}

// StringMatchers ORs its members; used for the default (Any) aggregator
// across a needle list.
type StringMatchers []StringMatcher

func (s StringMatchers) StringMatch(msg string) bool {
	for _, m := range s {
		if m.StringMatch(msg) {
			return true
		}
	}
	return false
}

// StringMatchersConj ANDs its members: it matches only when every member
// does.
type StringMatchersConj []StringMatcher

func (s StringMatchersConj) StringMatch(msg string) bool {
	for _, m := range s {
		if !m.StringMatch(msg) {
			return false
		}
	}
	return true
}

func lowerIfNeeded(s string, lower bool) string {
	if lower {
		return strings.ToLower(s)
	}
	return s
}

// ContentPattern is a whole-string equality test, case-folded when
// Lowercase is set.
type ContentPattern struct {
	Token     string
	Lowercase bool
}

func (c ContentPattern) StringMatch(msg string) bool {
	return lowerIfNeeded(msg, c.Lowercase) == lowerIfNeeded(c.Token, c.Lowercase)
}

// PrefixPattern backs the startswith modifier: needles are literal, never
// glob-expanded.
type PrefixPattern struct {
	Token     string
	Lowercase bool
}

func (c PrefixPattern) StringMatch(msg string) bool {
	return strings.HasPrefix(lowerIfNeeded(msg, c.Lowercase), lowerIfNeeded(c.Token, c.Lowercase))
}

// SuffixPattern backs the endswith modifier.
type SuffixPattern struct {
	Token     string
	Lowercase bool
}

func (c SuffixPattern) StringMatch(msg string) bool {
	return strings.HasSuffix(lowerIfNeeded(msg, c.Lowercase), lowerIfNeeded(c.Token, c.Lowercase))
}

// ContainsPattern backs the contains modifier.
type ContainsPattern struct {
	Token     string
	Lowercase bool
}

func (c ContainsPattern) StringMatch(msg string) bool {
	return strings.Contains(lowerIfNeeded(msg, c.Lowercase), lowerIfNeeded(c.Token, c.Lowercase))
}

// GlobPattern backs default-kind needles that carry an unescaped '*' or '?'
// (spec: "a default-equality string needle containing unescaped * or ? is
// compiled as a glob match against V").
type GlobPattern struct {
	Glob      glob.Glob
	Lowercase bool
}

func (g GlobPattern) StringMatch(msg string) bool {
	return g.Glob.Match(lowerIfNeeded(msg, g.Lowercase))
}

// RegexPattern backs the `re` modifier. regexp2 is used instead of the
// stdlib regexp/RE2 engine because Sigma rule authors routinely write
// lookaround assertions that RE2 cannot express.
type RegexPattern struct {
	Re *regexp2.Regexp
}

func (r RegexPattern) StringMatch(msg string) bool {
	ok, err := r.Re.MatchString(msg)
	return err == nil && ok
}

// AhoCorasickPattern backs a `contains` chain with many literal needles:
// one automaton walk finds any of the needles in a single pass instead of
// len(needles) separate strings.Contains scans.
type AhoCorasickPattern struct {
	ac *ahocorasick.AhoCorasick
}

// NewAhoCorasickPattern builds the automaton for a literal needle set. The
// caller pre-lowercases needles and the target string alike when case
// folding is in effect, matching how every other matcher here applies
// Lowercase before comparing.
func NewAhoCorasickPattern(needles []string) StringMatcher {
	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		AsciiCaseInsensitive: false,
		MatchOnlyWholeWords:  false,
		MatchKind:            ahocorasick.LeftMostFirstMatch,
		DFA:                  true,
	})
	ac := builder.Build(needles)
	return AhoCorasickPattern{ac: &ac}
}

func (a AhoCorasickPattern) StringMatch(msg string) bool {
	return len(a.ac.FindAll(msg)) > 0
}

// aho-corasick multi-pattern search pays off once the needle set is large
// enough that the per-needle linear scan it replaces would otherwise
// dominate; below the threshold a plain OR of ContainsPattern is cheaper
// to build and just as fast to run.
const AhoCorasickThreshold = 4

// NewContainsMatcher builds the matcher for a `contains` modifier chain,
// switching to Aho-Corasick once there are enough literal needles.
func NewContainsMatcher(needles []string, lowercase bool) StringMatcher {
	if lowercase {
		lowered := make([]string, len(needles))
		for i, n := range needles {
			lowered[i] = strings.ToLower(n)
		}
		if len(needles) >= AhoCorasickThreshold {
			return lowercasedMatcher{inner: NewAhoCorasickPattern(lowered)}
		}
		return orOfContains(lowered, true)
	}
	if len(needles) >= AhoCorasickThreshold {
		return NewAhoCorasickPattern(needles)
	}
	return orOfContains(needles, false)
}

func orOfContains(needles []string, lowercase bool) StringMatcher {
	out := make(StringMatchers, len(needles))
	for i, n := range needles {
		out[i] = ContainsPattern{Token: n, Lowercase: lowercase}
	}
	return out
}

// lowercasedMatcher lowercases the candidate string before delegating, for
// matchers (like the Aho-Corasick automaton here) that were built over
// already-lowercased needles and have no case-folding option of their own.
type lowercasedMatcher struct{ inner StringMatcher }

func (l lowercasedMatcher) StringMatch(msg string) bool {
	return l.inner.StringMatch(strings.ToLower(msg))
}

const (
	sigmaWildcard = byte('*')
	sigmaSingle   = byte('?')
	sigmaEscape   = byte('\\')
	globLBracket  = byte('[')
	globRBracket  = byte(']')
	globLBrace    = byte('{')
	globRBrace    = byte('}')
)

// EscapeSigmaForGlob translates Sigma's wildcard-escaping convention into
// gobwas/glob's. A lone backslash escapes the following wildcard
// character; runs of backslashes must be balanced the same way Sigma's own
// specification balances them, and glob's own bracket metacharacters
// ('[',']','{','}') are escaped since Sigma patterns don't use them.
func EscapeSigmaForGlob(s string) string {
	if s == "" {
		return ""
	}
	isBracket := func(b byte) bool {
		return b == globLBracket || b == globRBracket || b == globLBrace || b == globRBrace
	}
	n := len(s)
	out := make([]byte, 2*n)
	x := 2*n - 1

	wildcard := false
	slashes := 0
	for i := n - 1; i >= 0; i-- {
		switch s[i] {
		case sigmaWildcard, sigmaSingle:
			wildcard = true
		case sigmaEscape:
			if !wildcard {
				slashes++
			}
		default:
			wildcard = false
		}
		if s[i] != sigmaEscape && slashes > 0 {
			if slashes%2 != 0 {
				out[x] = sigmaEscape
				x--
			}
			slashes = 0
		}
		out[x] = s[i]
		x--
		if isBracket(s[i]) {
			out[x] = sigmaEscape
			x--
		}
	}
	if slashes%2 != 0 {
		out[x] = sigmaEscape
	} else {
		x++
	}
	return string(out[x:])
}

// HasUnescapedWildcard reports whether pattern contains a '*' or '?' not
// preceded by an odd number of backslashes (spec §4.2: "containing
// unescaped * or ?").
func HasUnescapedWildcard(pattern string) bool {
	slashes := 0
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case sigmaEscape:
			slashes++
		case sigmaWildcard, sigmaSingle:
			if slashes%2 == 0 {
				return true
			}
			slashes = 0
		default:
			slashes = 0
		}
	}
	return false
}

// NewGlobMatcher compiles a default-kind needle known to contain an
// unescaped wildcard. Field-value needles go through gobwas/glob
// exclusively: its bracket/escape syntax is what EscapeSigmaForGlob targets.
// The plainer '*'/'?' segment scanning of ryanuber/go-glob is reserved for
// the condition parser's selection-name sets (pkg/condition), which never
// need escaping, to keep the two matching semantics distinct.
func NewGlobMatcher(pattern string, lowercase bool) (StringMatcher, error) {
	p := EscapeSigmaForGlob(pattern)
	if lowercase {
		p = strings.ToLower(p)
	}
	g, err := glob.Compile(p)
	if err != nil {
		return nil, err
	}
	return GlobPattern{Glob: g, Lowercase: lowercase}, nil
}

// NewRegexMatcher compiles the `re` modifier's needle with lookaround
// support.
func NewRegexMatcher(pattern string) (StringMatcher, error) {
	re, err := regexp2.Compile(pattern, regexp2.RE2)
	if err != nil {
		return nil, err
	}
	return RegexPattern{Re: re}, nil
}

// ValidateRegexSyntax reports whether pattern compiles under the standard
// library's RE2 syntax. That syntax has no lookaround, so a pattern that
// NewRegexMatcher accepts can still fail here.
func ValidateRegexSyntax(pattern string) error {
	_, err := regexp.Compile(pattern)
	return err
}
