package sigma

import (
	"github.com/sigmarules/engine/pkg/modifier"
	"github.com/sigmarules/engine/pkg/types"
)

// reservedNames may not be used as selection names within a detection
// block: they are syntax, not data.
var reservedNames = map[string]bool{
	"condition": true,
	"timeframe": true,
}

// Clause is one top-level member of a Selection: And holds a map entry's
// field matchers (all must hold); Or holds a sequence-of-maps entry's
// per-map clauses (any must hold).
type Clause struct {
	And []*modifier.FieldMatcher
	Or  []Clause
}

// Test evaluates one clause against an event per §4.4: And conjoins its
// field matchers, Or disjoins its sub-clauses.
func (c Clause) Test(ev types.Event) bool {
	if len(c.Or) > 0 {
		for _, sub := range c.Or {
			if sub.Test(ev) {
				return true
			}
		}
		return false
	}
	for _, fm := range c.And {
		if !fm.Test(ev) {
			return false
		}
	}
	return true
}

// Selection is a named bundle of clauses. A selection matches when every
// top-level clause matches (§3: "map-of-maps is conjunctive").
type Selection struct {
	Name    string
	Clauses []Clause
}

// Test evaluates the selection: true only if every clause holds.
func (s *Selection) Test(ev types.Event) bool {
	for _, c := range s.Clauses {
		if !c.Test(ev) {
			return false
		}
	}
	return true
}

// buildSelection compiles one detection-block entry (already known not to
// be the "condition" key) into a Selection. raw is either a map (one And
// clause) or a sequence of maps (one Or clause over several And clauses).
func buildSelection(name string, raw interface{}) (*Selection, error) {
	sel := &Selection{Name: name}

	switch v := raw.(type) {
	case map[string]interface{}:
		clause, err := buildAndClause(name, v)
		if err != nil {
			return nil, err
		}
		sel.Clauses = []Clause{clause}
	case map[interface{}]interface{}:
		clause, err := buildAndClause(name, stringKeyMap(v))
		if err != nil {
			return nil, err
		}
		sel.Clauses = []Clause{clause}
	case []interface{}:
		var or Clause
		for _, item := range v {
			m, ok := asStringKeyMap(item)
			if !ok {
				return nil, ErrInvalidSelection{Name: name, Got: item}
			}
			and, err := buildAndClause(name, m)
			if err != nil {
				return nil, err
			}
			or.Or = append(or.Or, Clause{And: and.And})
		}
		sel.Clauses = []Clause{or}
	default:
		return nil, ErrInvalidSelection{Name: name, Got: raw}
	}
	return sel, nil
}

func buildAndClause(selName string, m map[string]interface{}) (Clause, error) {
	var clause Clause
	for key, rawVal := range m {
		needles := toValueList(rawVal)
		fm, err := modifier.Compile(key, needles)
		if err != nil {
			return Clause{}, convertModifierError(err)
		}
		clause.And = append(clause.And, fm)
	}
	return clause, nil
}

// convertModifierError maps a *modifier.CompileError onto the matching
// root-package Err* struct the same way buildRule converts
// *condition.CompileError, so callers can type-switch on a stable taxonomy
// instead of a bag-of-strings error from an internal package.
func convertModifierError(err error) error {
	ce, ok := err.(*modifier.CompileError)
	if !ok {
		return err
	}
	switch ce.Kind {
	case "UnknownModifier":
		return ErrUnknownModifier{Field: ce.Field, Token: ce.Token}
	case "IncompatibleModifiers":
		return ErrIncompatibleModifiers{Field: ce.Field, A: ce.Token, B: ce.Other}
	case "RequiresListNeedle":
		return ErrRequiresListNeedle{Field: ce.Field, Modifier: ce.Token}
	case "InvalidRegex":
		return ErrInvalidRegex{Field: ce.Field, Pattern: ce.Pattern, Err: ce.Err}
	case "InvalidCidr":
		return ErrInvalidCidr{Field: ce.Field, Text: ce.Pattern}
	case "InvalidBase64":
		return ErrInvalidBase64{Field: ce.Field, Text: ce.Actual}
	case "TypeMismatch":
		return ErrTypeMismatch{Field: ce.Field, Expected: ce.Expected, Actual: ce.Actual}
	default:
		return ErrInvalidNeedle{Field: ce.Field, Err: ce}
	}
}

// toValueList normalizes a raw decoded field value into the needle list
// modifier.Compile expects: a YAML/JSON sequence becomes one needle per
// element, anything else becomes a single-element list.
func toValueList(raw interface{}) []types.Value {
	if seq, ok := raw.([]interface{}); ok {
		out := make([]types.Value, 0, len(seq))
		for _, elem := range seq {
			out = append(out, types.ValueFromInterface(elem))
		}
		return out
	}
	return []types.Value{types.ValueFromInterface(raw)}
}

func asStringKeyMap(raw interface{}) (map[string]interface{}, bool) {
	switch v := raw.(type) {
	case map[string]interface{}:
		return v, true
	case map[interface{}]interface{}:
		return stringKeyMap(v), true
	default:
		return nil, false
	}
}

func stringKeyMap(m map[interface{}]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[toKeyString(k)] = v
	}
	return out
}

func toKeyString(k interface{}) string {
	if s, ok := k.(string); ok {
		return s
	}
	return types.ValueFromInterface(k).String()
}
