package condition

import (
	"fmt"
	"strings"

	rglob "github.com/ryanuber/go-glob"
)

// Resolver supplies the per-selection boolean a condition tree consults.
// Implementations need not memoize: Eval below keeps its own
// per-evaluation memo, so each name is resolved at most once per Eval
// call.
type Resolver interface {
	Eval(name string) bool
}

// CompileError reports a build-time condition problem discovered once
// the rule's full selection-name set is known: an identifier with no
// matching selection, a glob quantifier target matching none, or a glob
// identifier used without a quantifier.
type CompileError struct {
	Kind string // "UnknownSelection" | "EmptyGlobSet" | "BareGlobIdentifier"
	Name string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s(%s)", e.Kind, e.Name)
}

// Compile validates every identifier and quantifier target in the tree
// against the rule's defined selection names, and resolves each
// quantifier's Members. It must run once, after parsing and before any
// Eval call — Eval assumes Members is already populated and never
// errors itself, matching §7's "strict at compile time, forgiving at
// runtime" design.
func Compile(n *Node, names []string) error {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case NodeSelection:
		if isGlobPattern(n.Name) {
			// A glob-bearing identifier is only meaningful as a quantifier
			// target ("1 of selection_*", "all of selection_*"); used bare
			// as a boolean primary it has no defined truth value. Rejected
			// here the way original_source's parse_ast rejects it via
			// UndefinedIdentifiers and the teacher's tree-builders reject it
			// ("invalid wildcard ident, missing 1 of/ all of prefix").
			return &CompileError{Kind: "BareGlobIdentifier", Name: n.Name}
		}
		if !contains(names, n.Name) {
			return &CompileError{Kind: "UnknownSelection", Name: n.Name}
		}
		return nil
	case NodeNot:
		return Compile(n.Left, names)
	case NodeAnd, NodeOr:
		if err := Compile(n.Left, names); err != nil {
			return err
		}
		return Compile(n.Right, names)
	case NodeQuant:
		if n.Them {
			n.Members = append([]string{}, names...)
			return nil
		}
		if isGlobPattern(n.Target) {
			n.Members = matchAll(n.Target, names)
			if len(n.Members) == 0 {
				return &CompileError{Kind: "EmptyGlobSet", Name: n.Target}
			}
			return nil
		}
		if !contains(names, n.Target) {
			return &CompileError{Kind: "UnknownSelection", Name: n.Target}
		}
		n.Members = []string{n.Target}
		return nil
	default:
		return nil
	}
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func isGlobPattern(s string) bool {
	for _, c := range s {
		if c == '*' || c == '?' {
			return true
		}
	}
	return false
}

// matchAll filters names by a shell-style glob (only '*' and '?', no
// character classes — §9's "straightforward NFA-free matcher" since
// selection-name patterns never need brackets).
func matchAll(pattern string, names []string) []string {
	var out []string
	for _, n := range names {
		if MatchGlob(pattern, n) {
			out = append(out, n)
		}
	}
	return out
}

// MatchGlob reports whether name matches pattern, where '*' matches any
// run of characters (including none) and '?' matches exactly one.
// Selection-name sets never need bracket/escape syntax, so patterns made
// only of '*' segments delegate straight to ryanuber/go-glob rather than
// compiling through gobwas/glob, which field-value needle matching in
// pkg/match reserves for patterns that do. ryanuber/go-glob has no notion
// of '?', so the rarer single-character wildcard still falls back to a
// direct rune scan.
func MatchGlob(pattern, name string) bool {
	if !strings.ContainsRune(pattern, '?') {
		return rglob.Glob(pattern, name)
	}
	return matchGlobRunes([]rune(pattern), []rune(name))
}

func matchGlobRunes(pattern, name []rune) bool {
	var p, n, starP, starN int = 0, 0, -1, -1
	for n < len(name) {
		if p < len(pattern) && (pattern[p] == '?' || pattern[p] == name[n]) {
			p++
			n++
			continue
		}
		if p < len(pattern) && pattern[p] == '*' {
			starP = p
			starN = n
			p++
			continue
		}
		if starP != -1 {
			p = starP + 1
			starN++
			n = starN
			continue
		}
		return false
	}
	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}

// Eval walks the condition tree against a per-evaluation Resolver,
// memoizing each bare selection reference's result on first use and
// short-circuiting and/or/quantifier evaluation.
func Eval(n *Node, r Resolver) bool {
	memo := map[string]bool{}
	return evalNode(n, r, memo)
}

func evalNode(n *Node, r Resolver, memo map[string]bool) bool {
	switch n.Kind {
	case NodeSelection:
		if isGlobPattern(n.Name) {
			// Compile rejects a bare glob identifier used as a primary
			// before Eval ever runs; unreachable unless a tree was built
			// by hand and never passed through Compile. Defensively false
			// rather than panic.
			return false
		}
		return memoEval(n.Name, r, memo)
	case NodeNot:
		return !evalNode(n.Left, r, memo)
	case NodeAnd:
		return evalNode(n.Left, r, memo) && evalNode(n.Right, r, memo)
	case NodeOr:
		return evalNode(n.Left, r, memo) || evalNode(n.Right, r, memo)
	case NodeQuant:
		return evalQuant(n, r, memo)
	default:
		return false
	}
}

func memoEval(name string, r Resolver, memo map[string]bool) bool {
	if v, ok := memo[name]; ok {
		return v
	}
	v := r.Eval(name)
	memo[name] = v
	return v
}

func evalQuant(n *Node, r Resolver, memo map[string]bool) bool {
	switch n.QKind {
	case QuantAll:
		for _, name := range n.Members {
			if !memoEval(name, r, memo) {
				return false
			}
		}
		return true
	case QuantExactly:
		count := 0
		for _, name := range n.Members {
			if memoEval(name, r, memo) {
				count++
			}
		}
		return count == n.Count
	default: // QuantAtLeast
		if n.Count == 0 {
			return true
		}
		count := 0
		for _, name := range n.Members {
			if memoEval(name, r, memo) {
				count++
				if count >= n.Count {
					return true
				}
			}
		}
		return false
	}
}
