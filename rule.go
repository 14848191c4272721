package sigma

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/sigmarules/engine/pkg/condition"
	"github.com/sigmarules/engine/pkg/types"
)

// Logsource carries the rule's logsource block verbatim. §3 treats it as
// opaque metadata consulted by callers for pre-filtering, never by
// evaluation itself.
type Logsource struct {
	Product    string `yaml:"product" json:"product"`
	Category   string `yaml:"category" json:"category"`
	Service    string `yaml:"service" json:"service"`
	Definition string `yaml:"definition" json:"definition"`
}

// Rule is the root object: selections, a compiled condition tree, and
// metadata, immutable once built. The zero value is not usable; construct
// with RuleFromYAML or RuleFromJSON.
type Rule struct {
	title       string
	id          string
	name        string
	level       string
	status      string
	description string
	author      string
	tags        []string
	references  []string
	date        string
	modified    string
	related     []string
	falsePos    []string
	logsource   Logsource

	selections     map[string]*Selection
	selectionOrder []string
	tree           *condition.Node
}

// Title returns the rule's title field.
func (r *Rule) Title() string { return r.title }

// ID returns the rule's id field.
func (r *Rule) ID() string { return r.id }

// Name returns the rule's optional short name, distinct from its Title
// (some rule packs carry both: Title is human-readable, Name is a
// machine-stable identifier used for cross-referencing).
func (r *Rule) Name() string { return r.name }

// Level returns the rule's level field (informational/low/medium/high/critical).
func (r *Rule) Level() string { return r.level }

// Status returns the rule's maturity status (experimental/test/stable/deprecated).
func (r *Rule) Status() string { return r.status }

// Description returns the rule's free-text description.
func (r *Rule) Description() string { return r.description }

// Author returns the rule's author field.
func (r *Rule) Author() string { return r.author }

// Tags returns the rule's MITRE-style tag list.
func (r *Rule) Tags() []string { return r.tags }

// References returns the rule's external reference links, opaque metadata
// carried through unchanged.
func (r *Rule) References() []string { return r.references }

// Date returns the rule's creation date as written in the source file.
func (r *Rule) Date() string { return r.date }

// Modified returns the rule's last-modified date as written in the source
// file.
func (r *Rule) Modified() string { return r.modified }

// Related returns the IDs of rules this one is declared related to.
func (r *Rule) Related() []string { return r.related }

// FalsePositives returns the rule's documented known false-positive
// scenarios.
func (r *Rule) FalsePositives() []string { return r.falsePos }

// Logsource returns the rule's logsource metadata.
func (r *Rule) Logsource() Logsource { return r.logsource }

// SelectionNames returns the rule's defined selection names. The order
// comes from iterating the decoded detection map, so it is not the order
// in which the selections appear in the detection block.
func (r *Rule) SelectionNames() []string { return r.selectionOrder }

// IsMatch evaluates the rule's condition tree against ev, consulting
// selections lazily and memoizing each one's result for the evaluation
// (§4.4, §5: pure, synchronous, safe for concurrent callers since Rule is
// never mutated after construction).
func (r *Rule) IsMatch(ev types.Event) bool {
	return condition.Eval(r.tree, ruleResolver{rule: r, event: ev})
}

type ruleResolver struct {
	rule  *Rule
	event types.Event
}

func (rr ruleResolver) Eval(name string) bool {
	sel, ok := rr.rule.selections[name]
	if !ok {
		return false
	}
	return sel.Test(rr.event)
}

// RuleHandle enriches a parsed Rule with loader provenance: the source
// path it was read from. Multi-document ("---"-delimited) rule files
// never reach a RuleHandle — NewRuleset rejects them as Unsupported
// before parsing, rather than silently evaluating only the first
// document.
type RuleHandle struct {
	*Rule
	Path string
}

// NewRuleFileList walks dirs recursively and collects every path ending
// in ".yml" or ".yaml", matching the layout Sigma rule packs ship in.
func NewRuleFileList(dirs []string) ([]string, error) {
	out := make([]string, 0)
	for _, dir := range dirs {
		if err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && (strings.HasSuffix(path, ".yml") || strings.HasSuffix(path, ".yaml")) {
				out = append(out, path)
			}
			return nil
		}); err != nil {
			return out, err
		}
	}
	return out, nil
}
