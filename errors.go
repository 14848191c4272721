package sigma

import "fmt"

// ErrInvalidYaml wraps a YAML decoding failure from the external decoder.
type ErrInvalidYaml struct{ Err error }

func (e ErrInvalidYaml) Error() string { return fmt.Sprintf("invalid yaml: %s", e.Err) }

// ErrInvalidJSON wraps a JSON decoding failure from the external decoder.
type ErrInvalidJSON struct{ Err error }

func (e ErrInvalidJSON) Error() string { return fmt.Sprintf("invalid json: %s", e.Err) }

// ErrMissingField indicates a required rule section is absent.
type ErrMissingField struct{ Name string }

func (e ErrMissingField) Error() string { return fmt.Sprintf("missing required field %q", e.Name) }

// ErrUnknownModifier names an unrecognized pipe-suffix token.
type ErrUnknownModifier struct {
	Field, Token string
}

func (e ErrUnknownModifier) Error() string {
	return fmt.Sprintf("field %q: unknown modifier %q", e.Field, e.Token)
}

// ErrIncompatibleModifiers names two modifiers that cannot coexist in one
// chain.
type ErrIncompatibleModifiers struct {
	Field, A, B string
}

func (e ErrIncompatibleModifiers) Error() string {
	return fmt.Sprintf("field %q: modifiers %q and %q are incompatible", e.Field, e.A, e.B)
}

// ErrRequiresListNeedle indicates a modifier that only makes sense over a
// list of needles was applied to a scalar.
type ErrRequiresListNeedle struct {
	Field, Modifier string
}

func (e ErrRequiresListNeedle) Error() string {
	return fmt.Sprintf("field %q: modifier %q requires a list needle", e.Field, e.Modifier)
}

// ErrInvalidRegex contextualizes an uncompilable regex needle.
type ErrInvalidRegex struct {
	Field, Pattern string
	Err            error
}

func (e ErrInvalidRegex) Error() string {
	return fmt.Sprintf("field %q: invalid regex /%s/: %s", e.Field, e.Pattern, e.Err)
}

// ErrInvalidCidr contextualizes an unparseable CIDR needle.
type ErrInvalidCidr struct {
	Field, Text string
}

func (e ErrInvalidCidr) Error() string {
	return fmt.Sprintf("field %q: invalid CIDR %q", e.Field, e.Text)
}

// ErrInvalidBase64 contextualizes a base64 transform failure.
type ErrInvalidBase64 struct {
	Field, Text string
}

func (e ErrInvalidBase64) Error() string {
	return fmt.Sprintf("field %q: invalid base64 input %q", e.Field, e.Text)
}

// ErrInvalidNeedle is the catch-all for a modifier-compile failure outside
// the named taxonomy above — currently only a malformed default-kind glob
// needle (an unparseable wildcard pattern), which is neither an
// incompatible-modifier nor a type-mismatch problem.
type ErrInvalidNeedle struct {
	Field string
	Err   error
}

func (e ErrInvalidNeedle) Error() string {
	return fmt.Sprintf("field %q: invalid needle: %s", e.Field, e.Err)
}

// ErrConditionParse wraps a condition-string parse failure with the
// offending token.
type ErrConditionParse struct {
	Token, Reason string
}

func (e ErrConditionParse) Error() string {
	return fmt.Sprintf("condition parse error at %q: %s", e.Token, e.Reason)
}

// ErrUnknownSelection names a condition identifier with no matching
// selection in the rule's detection block.
type ErrUnknownSelection struct{ Name string }

func (e ErrUnknownSelection) Error() string {
	return fmt.Sprintf("condition references unknown selection %q", e.Name)
}

// ErrEmptyGlobSet indicates a quantifier's glob pattern matched zero
// defined selections.
type ErrEmptyGlobSet struct{ Pattern string }

func (e ErrEmptyGlobSet) Error() string {
	return fmt.Sprintf("quantifier glob %q matches no selections", e.Pattern)
}

// ErrBareGlobIdentifier indicates a condition referenced a glob-bearing
// selection name directly as a boolean primary, without the "1 of"/"all
// of" quantifier prefix a glob target requires.
type ErrBareGlobIdentifier struct{ Pattern string }

func (e ErrBareGlobIdentifier) Error() string {
	return fmt.Sprintf("selection glob %q used as a bare identifier; requires a quantifier prefix, e.g. \"all of %s\"", e.Pattern, e.Pattern)
}

// ErrTypeMismatch indicates a modifier mandates a needle type the rule
// author's value does not have.
type ErrTypeMismatch struct {
	Field, Expected string
	Actual          interface{}
}

func (e ErrTypeMismatch) Error() string {
	return fmt.Sprintf("field %q: expected %s needle, got %#v", e.Field, e.Expected, e.Actual)
}

// ErrNoSelections indicates a detection block with no selections at all
// (only a condition key, or nothing).
type ErrNoSelections struct{}

func (e ErrNoSelections) Error() string { return "detection defines no selections" }

// ErrReservedName indicates a detection block used a reserved key
// ("condition", "timeframe") as a selection name.
type ErrReservedName struct{ Name string }

func (e ErrReservedName) Error() string {
	return fmt.Sprintf("%q is a reserved name and cannot be used as a selection", e.Name)
}

// ErrInvalidSelection indicates a selection entry is neither a map nor a
// sequence of maps.
type ErrInvalidSelection struct {
	Name string
	Got  interface{}
}

func (e ErrInvalidSelection) Error() string {
	return fmt.Sprintf("selection %q must be a map or a sequence of maps, got %T", e.Name, e.Got)
}

// ErrMultipartYaml indicates a rule file held more than one
// "---"-delimited YAML document; this engine evaluates one rule per
// file and declines rather than silently picking only the first.
type ErrMultipartYaml struct{}

func (e ErrMultipartYaml) Error() string {
	return "file contains more than one YAML document"
}

// ErrBulkParseYaml aggregates per-file parse errors from NewRuleFileList
// consumers that choose to continue past individually broken rule files.
type ErrBulkParseYaml struct {
	Errs []ErrParseYaml
}

func (e ErrBulkParseYaml) Error() string {
	return fmt.Sprintf("got %d broken yaml files", len(e.Errs))
}

// ErrParseYaml names the file and underlying error for one broken rule.
type ErrParseYaml struct {
	Path string
	Err  error
}

func (e ErrParseYaml) Error() string {
	return fmt.Sprintf("file %s: %s", e.Path, e.Err)
}
