package modifier

import (
	"fmt"
	"strings"

	"github.com/sigmarules/engine/pkg/match"
	"github.com/sigmarules/engine/pkg/types"
)

// MatchKind names the at-most-one match-kind modifier in a chain. The zero
// value, KindEq, is the default strict/glob equality test.
type MatchKind int

const (
	KindEq MatchKind = iota
	KindContains
	KindStartsWith
	KindEndsWith
	KindRe
	KindCidr
	KindGt
	KindGte
	KindLt
	KindLte
	KindExists
	KindFieldRef
)

// Aggregator decides how a FieldMatcher's per-needle booleans combine.
type Aggregator int

const (
	Any Aggregator = iota
	All
)

// CompileError names the offending token and carries whichever fields the
// matching root-package Err* struct needs, so api.go/selection.go can
// type-switch on Kind and rebuild the typed error without re-deriving
// context modifier.go already had in hand. Kind is one of:
// "UnknownModifier" | "IncompatibleModifiers" | "RequiresListNeedle" |
// "InvalidRegex" | "InvalidCidr" | "InvalidBase64" | "TypeMismatch" | ""
// (the empty Kind is the catch-all for compile failures the root taxonomy
// has no dedicated struct for, e.g. a malformed glob needle).
type CompileError struct {
	Kind     string
	Field    string
	Token    string // offending modifier token
	Other    string // second modifier token, for IncompatibleModifiers
	Pattern  string // regex/CIDR text, for InvalidRegex/InvalidCidr
	Err      error  // underlying parse error, for InvalidRegex
	Expected string // needle kind required, for TypeMismatch/RequiresListNeedle
	Actual   string // needle kind actually seen, for TypeMismatch
	Msg      string
}

func (e *CompileError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("modifier: field %q: %s (%s)", e.Field, e.Msg, e.Token)
	}
	return fmt.Sprintf("modifier: field %q: %s", e.Field, e.Msg)
}

// transformOp names a value-transform stage. base64 and base64offset carry
// along whichever utf16 encoding preceded them in the chain (original_
// source's encode_base64/encode_base64_offset take the utf16 mode as a
// parameter of the same operation rather than as a separately-applied
// prior stage), so `|utf16le|base64` fuses into one base64(utf16le(s))
// step instead of naively re-encoding an intermediate raw-byte string.
type transformOp int

const (
	opBase64 transformOp = iota
	opBase64Offset
	opUtf16Only
	opWindash
)

type transformStep struct {
	op  transformOp
	enc Utf16Kind
}

// chain is the parsed, validated shape of a modifier token list, before
// needle compilation.
type chain struct {
	kind       MatchKind
	kindTok    string // the token that set kind, for IncompatibleModifiers messages
	hasKind    bool
	transforms []transformStep
	cased      bool
	agg        Aggregator
}

// matchKindToken reverse-looks-up the token that names kind, for error
// messages built after parsing (validateChain, Compile) where only the
// classified MatchKind is in hand.
func matchKindToken(kind MatchKind) string {
	for tok, k := range matchKindTokens {
		if k == kind {
			return tok
		}
	}
	return "eq"
}

var matchKindTokens = map[string]MatchKind{
	"contains":   KindContains,
	"startswith": KindStartsWith,
	"endswith":   KindEndsWith,
	"re":         KindRe,
	"cidr":       KindCidr,
	"gt":         KindGt,
	"gte":        KindGte,
	"lt":         KindLt,
	"lte":        KindLte,
	"exists":     KindExists,
	"fieldref":   KindFieldRef,
}

// transformTokenKind classifies the handful of transform tokens that are
// not match-kind or flag tokens; "base64"/"base64offset" are resolved
// against the preceding pending utf16 encoding (if any) in parseChain.
type transformTokenKind int

const (
	tokBase64 transformTokenKind = iota
	tokBase64Offset
	tokUtf16LE
	tokUtf16BE
	tokUtf16Both
	tokWindash
)

var transformTokens = map[string]transformTokenKind{
	"base64":       tokBase64,
	"base64offset": tokBase64Offset,
	"utf16le":      tokUtf16LE,
	"utf16be":      tokUtf16BE,
	"utf16":        tokUtf16Both,
	"wide":         tokUtf16Both,
	"windash":      tokWindash,
}

// ParseFieldKey splits a selection key of the form NAME(|MOD)* into the
// field path (which may itself contain dots) and its ordered modifier
// tokens.
func ParseFieldKey(key string) (path string, tokens []string) {
	parts := strings.Split(key, "|")
	return parts[0], parts[1:]
}

// parseChain validates a token list per §4.1's compatibility rules and
// classifies each token.
func parseChain(field string, tokens []string) (chain, error) {
	var c chain
	pendingEnc := Utf16None
	pendingSet := false

	flushPendingUtf16 := func() {
		if pendingSet {
			c.transforms = append(c.transforms, transformStep{op: opUtf16Only, enc: pendingEnc})
			pendingSet = false
		}
	}

	for _, tok := range tokens {
		tok = strings.ToLower(tok)
		switch {
		case tok == "cased":
			c.cased = true
		case tok == "all":
			c.agg = All
		case tok == "":
			continue
		default:
			if k, ok := matchKindTokens[tok]; ok {
				if c.hasKind {
					return chain{}, &CompileError{Kind: "IncompatibleModifiers",
						Field: field, Token: c.kindTok, Other: tok,
						Msg: "at most one match-kind modifier is allowed"}
				}
				c.kind, c.kindTok, c.hasKind = k, tok, true
				continue
			}
			if t, ok := transformTokens[tok]; ok {
				switch t {
				case tokUtf16LE:
					flushPendingUtf16()
					pendingEnc, pendingSet = Utf16LE, true
				case tokUtf16BE:
					flushPendingUtf16()
					pendingEnc, pendingSet = Utf16BE, true
				case tokUtf16Both:
					flushPendingUtf16()
					pendingEnc, pendingSet = Utf16Both, true
				case tokBase64:
					enc := Utf16None
					if pendingSet {
						enc = pendingEnc
						pendingSet = false
					}
					c.transforms = append(c.transforms, transformStep{op: opBase64, enc: enc})
				case tokBase64Offset:
					enc := Utf16None
					if pendingSet {
						enc = pendingEnc
						pendingSet = false
					}
					c.transforms = append(c.transforms, transformStep{op: opBase64Offset, enc: enc})
				case tokWindash:
					flushPendingUtf16()
					c.transforms = append(c.transforms, transformStep{op: opWindash})
				}
				continue
			}
			return chain{}, &CompileError{Kind: "UnknownModifier", Field: field, Token: tok, Msg: "unknown modifier"}
		}
	}
	flushPendingUtf16()

	if err := validateChain(field, c); err != nil {
		return chain{}, err
	}
	return c, nil
}

func validateChain(field string, c chain) error {
	if c.agg == All && c.hasKind && c.kind == KindExists {
		return &CompileError{Kind: "IncompatibleModifiers", Field: field,
			Token: "all", Other: "exists",
			Msg: "all may not be combined with a boolean non-list kind (exists)"}
	}
	if c.agg == All && c.hasKind && isNumericComparator(c.kind) {
		return &CompileError{Kind: "IncompatibleModifiers", Field: field,
			Token: "all", Other: matchKindToken(c.kind),
			Msg: "all may not be combined with a scalar numeric comparator"}
	}
	// cidr vs. contains/startswith/endswith/re/numeric is already excluded
	// by the single-match-kind rule above; no separate check is needed.
	if c.hasKind && c.kind == KindFieldRef && len(c.transforms) > 0 {
		return &CompileError{Kind: "IncompatibleModifiers", Field: field,
			Token: "fieldref", Other: "value-transform",
			Msg: "fieldref is incompatible with value-transform modifiers"}
	}
	return nil
}

func isNumericComparator(k MatchKind) bool {
	switch k {
	case KindGt, KindGte, KindLt, KindLte:
		return true
	default:
		return false
	}
}

// FieldMatcher is the compiled form of one `key|mods: value` selection
// entry.
type FieldMatcher struct {
	Path   string
	Kind   MatchKind
	Agg    Aggregator
	Cased  bool
	Negate bool

	eq       []eqNeedle
	strMatch []match.StringMatcher
	num      []match.NumMatcher
	cidr     []match.CIDRMatcher
	re       []match.StringMatcher
	exists   []bool
	fieldref []string
}

type eqNeedle struct {
	value types.Value
	glob  match.StringMatcher // non-nil when the needle is a default-kind glob
}

// Compile builds a FieldMatcher from a selection key and its raw needle
// value(s) (already normalized to one-or-many types.Value by the caller).
func Compile(key string, raw []types.Value) (*FieldMatcher, error) {
	path, tokens := ParseFieldKey(key)
	c, err := parseChain(path, tokens)
	if err != nil {
		return nil, err
	}

	if c.agg == All && len(raw) < 2 {
		// "all" only has meaning aggregating across a list of needles; a
		// rule author who writes it over a single scalar value has nothing
		// to aggregate, which is the RequiresListNeedle case the taxonomy
		// names: a modifier that only makes sense over a list was applied
		// to a scalar.
		return nil, &CompileError{Kind: "RequiresListNeedle", Field: path,
			Token: "all", Msg: "all requires a list of needles, not a single scalar value"}
	}

	needles, err := applyTransforms(path, c.transforms, raw)
	if err != nil {
		return nil, err
	}

	fm := &FieldMatcher{Path: path, Kind: c.kind, Agg: c.agg, Cased: c.cased}

	switch c.kind {
	case KindEq:
		for _, n := range needles {
			eq := eqNeedle{value: n}
			if s, ok := n.AsString(); ok && match.HasUnescapedWildcard(s) {
				g, err := match.NewGlobMatcher(s, !c.cased)
				if err != nil {
					return nil, &CompileError{Field: path, Msg: "invalid glob needle: " + err.Error(), Err: err}
				}
				eq.glob = g
			}
			fm.eq = append(fm.eq, eq)
		}
	case KindContains, KindStartsWith, KindEndsWith:
		strs, err := stringNeedles(path, needles)
		if err != nil {
			return nil, err
		}
		if c.kind == KindContains && c.agg == Any {
			// The default (Any) aggregator ORs across every needle in the
			// chain, which is exactly what NewContainsMatcher already does
			// internally (switching to an Aho-Corasick automaton past
			// AhoCorasickThreshold literal needles) — collapsing the chain
			// into its single combined matcher here keeps that scan-once
			// path on the real compile pipeline instead of only in tests.
			// `|all` needs each needle's own pass/fail, so it keeps the
			// per-needle matchers below; startswith/endswith are anchored
			// tests that an unanchored substring automaton would get wrong.
			fm.strMatch = []match.StringMatcher{match.NewContainsMatcher(strs, !c.cased)}
			break
		}
		for _, s := range strs {
			fm.strMatch = append(fm.strMatch, literalMatcher(c.kind, s, !c.cased))
		}
	case KindRe:
		strs, err := stringNeedles(path, needles)
		if err != nil {
			return nil, err
		}
		for _, s := range strs {
			r, err := match.NewRegexMatcher(s)
			if err != nil {
				return nil, &CompileError{Kind: "InvalidRegex", Field: path,
					Pattern: s, Err: err, Msg: "invalid regex: " + err.Error()}
			}
			fm.re = append(fm.re, r)
		}
	case KindCidr:
		strs, err := stringNeedles(path, needles)
		if err != nil {
			return nil, err
		}
		for _, s := range strs {
			cm, err := match.NewCIDRMatcher(s)
			if err != nil {
				return nil, &CompileError{Kind: "InvalidCidr", Field: path,
					Pattern: s, Err: err, Msg: "invalid CIDR: " + err.Error()}
			}
			fm.cidr = append(fm.cidr, cm)
		}
	case KindGt, KindGte, KindLt, KindLte:
		for _, n := range needles {
			if !n.IsNumeric() {
				return nil, &CompileError{Kind: "TypeMismatch", Field: path,
					Expected: "numeric", Actual: n.Kind().String(),
					Msg: "gt/gte/lt/lte require numeric needles"}
			}
			fm.num = append(fm.num, match.NumMatcher{Bound: n, Op: numOp(c.kind)})
		}
	case KindExists:
		for _, n := range needles {
			b, ok := n.AsBool()
			if !ok {
				return nil, &CompileError{Kind: "TypeMismatch", Field: path,
					Expected: "boolean", Actual: n.Kind().String(),
					Msg: "exists requires a boolean needle"}
			}
			fm.exists = append(fm.exists, b)
		}
	case KindFieldRef:
		strs, err := stringNeedles(path, needles)
		if err != nil {
			return nil, err
		}
		fm.fieldref = strs
	}

	return fm, nil
}

func numOp(k MatchKind) match.NumOp {
	switch k {
	case KindGt:
		return match.OpGT
	case KindGte:
		return match.OpGTE
	case KindLt:
		return match.OpLT
	default:
		return match.OpLTE
	}
}

func stringNeedles(path string, needles []types.Value) ([]string, error) {
	out := make([]string, 0, len(needles))
	for _, n := range needles {
		s, ok := n.AsString()
		if !ok {
			return nil, &CompileError{Kind: "TypeMismatch", Field: path,
				Expected: "string", Actual: n.Kind().String(),
				Msg: "modifier requires a string needle"}
		}
		out = append(out, s)
	}
	return out, nil
}

func literalMatcher(kind MatchKind, s string, lowercase bool) match.StringMatcher {
	switch kind {
	case KindStartsWith:
		return match.PrefixPattern{Token: s, Lowercase: lowercase}
	case KindEndsWith:
		return match.SuffixPattern{Token: s, Lowercase: lowercase}
	default:
		return match.ContainsPattern{Token: s, Lowercase: lowercase}
	}
}

// applyTransforms runs the parsed value-transform chain left to right,
// each stage mapping one needle to one-or-more replacement needles.
func applyTransforms(path string, steps []transformStep, needles []types.Value) ([]types.Value, error) {
	cur := needles
	for _, step := range steps {
		var next []types.Value
		for _, n := range cur {
			s, ok := n.AsString()
			if !ok {
				if step.op == opBase64 || step.op == opBase64Offset {
					return nil, &CompileError{Kind: "InvalidBase64", Field: path,
						Token: "base64", Actual: n.Kind().String(),
						Msg: "base64/base64offset requires a string needle"}
				}
				return nil, &CompileError{Kind: "TypeMismatch", Field: path,
					Expected: "string", Actual: n.Kind().String(),
					Msg: "value-transform modifiers require string needles"}
			}
			for _, out := range expandOne(step, s) {
				next = append(next, types.String(out))
			}
		}
		cur = next
	}
	return cur, nil
}

func expandOne(step transformStep, s string) []string {
	switch step.op {
	case opBase64:
		if step.enc == Utf16Both {
			return []string{EncodeBase64(s, Utf16LE), EncodeBase64(s, Utf16BE)}
		}
		return []string{EncodeBase64(s, step.enc)}
	case opBase64Offset:
		if step.enc == Utf16Both {
			out := EncodeBase64Offset(s, Utf16LE)
			return append(out, EncodeBase64Offset(s, Utf16BE)...)
		}
		return EncodeBase64Offset(s, step.enc)
	case opUtf16Only:
		if step.enc == Utf16Both {
			return []string{utf16String(s, Utf16LE), utf16String(s, Utf16BE)}
		}
		return []string{utf16String(s, step.enc)}
	case opWindash:
		return WindashVariations(s)
	default:
		return []string{s}
	}
}

func utf16String(s string, enc Utf16Kind) string {
	return string(utf16Bytes(s, enc))
}
