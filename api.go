package sigma

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v2"

	"github.com/sigmarules/engine/pkg/condition"
	"github.com/sigmarules/engine/pkg/types"
)

// ruleMetadata mirrors the rule's top-level scalar/list fields. Decoding
// through mapstructure here replaces a hand-rolled chain of type
// assertions per field with one declarative pass; only the detection
// block (selections + condition), which needs modifier-chain-aware
// handling, stays on manual traversal below.
type ruleMetadata struct {
	Title       string        `mapstructure:"title"`
	ID          string        `mapstructure:"id"`
	Name        string        `mapstructure:"name"`
	Level       string        `mapstructure:"level"`
	Status      string        `mapstructure:"status"`
	Description string        `mapstructure:"description"`
	Author      string        `mapstructure:"author"`
	Tags        []string      `mapstructure:"tags"`
	References  []string      `mapstructure:"references"`
	Date        string        `mapstructure:"date"`
	Modified    string        `mapstructure:"modified"`
	Related     []string      `mapstructure:"related"`
	FalsePos    []string      `mapstructure:"falsepositives"`
	Logsource   Logsource     `mapstructure:"logsource"`
}

// jsonAPI decodes numbers as json.Number rather than float64, so
// types.ValueFromInterface can classify them per §6's "64-bit integer
// when representable, otherwise double" rule instead of losing integer
// precision to a blanket float64 decode.
var jsonAPI = jsoniter.Config{UseNumber: true}.Froze()

// RuleFromYAML parses Sigma rule YAML text into a compiled Rule.
func RuleFromYAML(text []byte) (*Rule, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(text, &raw); err != nil {
		return nil, ErrInvalidYaml{Err: err}
	}
	return buildRule(normalizeTree(raw).(map[string]interface{}))
}

// RuleFromJSON parses a Sigma rule expressed as JSON text into a compiled
// Rule (§6's optional capability — the same builder drives both formats
// once decoded to a generic tree).
func RuleFromJSON(text []byte) (*Rule, error) {
	var raw map[string]interface{}
	if err := jsonAPI.Unmarshal(text, &raw); err != nil {
		return nil, ErrInvalidJSON{Err: err}
	}
	return buildRule(raw)
}

// EventFromJSON decodes an arbitrary JSON object into an Event.
func EventFromJSON(text []byte) (types.Event, error) {
	var raw interface{}
	if err := jsonAPI.Unmarshal(text, &raw); err != nil {
		return types.Event{}, ErrInvalidJSON{Err: err}
	}
	return types.FromInterface(raw), nil
}

// EventFromMap wraps an already-decoded generic map as an Event.
func EventFromMap(m map[string]interface{}) types.Event {
	return types.FromInterface(m)
}

// normalizeTree recursively rewrites yaml.v2's map[interface{}]interface{}
// into map[string]interface{} so the rest of the builder (and
// types.ValueFromInterface) only ever has to deal with one map shape,
// regardless of whether the tree came from YAML or JSON.
func normalizeTree(v interface{}) interface{} {
	switch val := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, v2 := range val {
			out[toKeyString(k)] = normalizeTree(v2)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, v2 := range val {
			out[k] = normalizeTree(v2)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, elem := range val {
			out[i] = normalizeTree(elem)
		}
		return out
	default:
		return val
	}
}

// buildRule consumes the generic decoded tree per §4.5's expected shape:
// title, optional logsource, detection (selections + condition).
func buildRule(raw map[string]interface{}) (*Rule, error) {
	r := &Rule{selections: map[string]*Selection{}}

	var meta ruleMetadata
	if err := mapstructure.Decode(raw, &meta); err != nil {
		return nil, ErrMissingField{Name: "title"}
	}
	if meta.Title == "" {
		return nil, ErrMissingField{Name: "title"}
	}
	r.title = meta.Title
	r.id = meta.ID
	r.name = meta.Name
	r.level = meta.Level
	r.status = meta.Status
	r.description = meta.Description
	r.author = meta.Author
	r.tags = meta.Tags
	r.references = meta.References
	r.date = meta.Date
	r.modified = meta.Modified
	r.related = meta.Related
	r.falsePos = meta.FalsePos
	r.logsource = meta.Logsource

	detectionRaw, ok := raw["detection"]
	if !ok {
		return nil, ErrMissingField{Name: "detection"}
	}
	detection, ok := detectionRaw.(map[string]interface{})
	if !ok {
		return nil, ErrMissingField{Name: "detection"}
	}

	condText, err := extractConditionText(detection)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(detection)-1)
	for name, selRaw := range detection {
		if name == "condition" || name == "timeframe" {
			continue
		}
		if reservedNames[name] {
			return nil, ErrReservedName{Name: name}
		}
		sel, err := buildSelection(name, selRaw)
		if err != nil {
			return nil, err
		}
		r.selections[name] = sel
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, ErrNoSelections{}
	}
	r.selectionOrder = names

	tree, err := condition.Parse(condText)
	if err != nil {
		pe := err.(*condition.ParseError)
		return nil, ErrConditionParse{Token: pe.Token, Reason: pe.Reason}
	}
	if err := condition.Compile(tree, names); err != nil {
		ce := err.(*condition.CompileError)
		switch ce.Kind {
		case "EmptyGlobSet":
			return nil, ErrEmptyGlobSet{Pattern: ce.Name}
		case "BareGlobIdentifier":
			return nil, ErrBareGlobIdentifier{Pattern: ce.Name}
		default:
			return nil, ErrUnknownSelection{Name: ce.Name}
		}
	}
	r.tree = tree

	return r, nil
}

// extractConditionText reads the detection block's "condition" key,
// accepting either a single string or a list of strings joined with "or"
// — some Sigma rule packs use the list form to mean "any of these
// expressions", which this engine folds into one parenthesized
// disjunction rather than treating as a separate grammar production.
func extractConditionText(detection map[string]interface{}) (string, error) {
	raw, ok := detection["condition"]
	if !ok {
		return "", ErrMissingField{Name: "condition"}
	}
	switch v := raw.(type) {
	case string:
		return v, nil
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return "", ErrMissingField{Name: "condition"}
			}
			parts = append(parts, "("+s+")")
		}
		if len(parts) == 0 {
			return "", ErrMissingField{Name: "condition"}
		}
		joined := parts[0]
		for _, p := range parts[1:] {
			joined += " or " + p
		}
		return joined, nil
	default:
		return "", ErrMissingField{Name: "condition"}
	}
}
