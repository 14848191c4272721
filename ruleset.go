package sigma

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"os"
	"sync"

	"github.com/sigmarules/engine/pkg/types"
)

// Config configures a Ruleset load.
type Config struct {
	// Directory holds one or more root paths recursively scanned for
	// ".yml"/".yaml" rule files.
	Directory []string
	// FailFast aborts the load on the first broken rule file instead of
	// counting it and continuing — the default tolerates a partially
	// broken rule pack, matching how a SOC would run a large community
	// ruleset where a handful of rules routinely fail to parse.
	FailFast bool
}

func (c Config) validate() error {
	if len(c.Directory) == 0 {
		return fmt.Errorf("missing root directory for sigma rules")
	}
	for _, dir := range c.Directory {
		info, err := os.Stat(dir)
		if os.IsNotExist(err) {
			return fmt.Errorf("%s does not exist", dir)
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", dir)
		}
	}
	return nil
}

// Ruleset is a loaded collection of rules along with load accounting.
type Ruleset struct {
	Rules []RuleHandle

	Total, OK, Failed int

	// Unsupported counts files that parsed as valid rule YAML but whose
	// condition expression this engine cannot build (unknown selection,
	// empty glob set): the rule pack is fine, this engine's grammar
	// coverage is the limiting factor. Files holding more than one YAML
	// document are also counted as Unsupported. Broken counts everything else
	// (bad YAML, missing fields, bad modifiers) — an actually malformed
	// rule file. Failed is their sum, kept for callers that don't care
	// about the distinction.
	Unsupported, Broken int
}

// Result names one rule that matched an event, carrying enough metadata
// for a caller to report or tag the hit without walking back into the
// Rule itself.
type Result struct {
	ID, Title string
	Tags      []string
}

// Results is a batch of matches from a single EvalAll/EvalAllConcurrent
// call.
type Results []Result

// NewRuleset walks c.Directory, parses every rule file found, and builds
// a Ruleset. Broken files are counted in Failed rather than aborting the
// load unless FailFast is set.
func NewRuleset(c Config) (*Ruleset, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	files, err := NewRuleFileList(c.Directory)
	if err != nil {
		return nil, err
	}

	rs := &Ruleset{Total: len(files)}
	var parseErrs []ErrParseYaml

	for _, path := range files {
		data, err := ioutil.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if isMultipartYaml(data) {
			// A rule pack convention for grouping related rules in one
			// "---"-delimited file; this engine evaluates one rule per
			// file and declines rather than silently picking only the
			// first document.
			rs.Failed++
			rs.Unsupported++
			parseErrs = append(parseErrs, ErrParseYaml{Path: path, Err: ErrMultipartYaml{}})
			if c.FailFast {
				return nil, ErrParseYaml{Path: path, Err: ErrMultipartYaml{}}
			}
			continue
		}

		rule, err := RuleFromYAML(data)
		if err != nil {
			if c.FailFast {
				return nil, ErrParseYaml{Path: path, Err: err}
			}
			rs.Failed++
			switch err.(type) {
			case ErrConditionParse, ErrUnknownSelection, ErrEmptyGlobSet, ErrBareGlobIdentifier:
				rs.Unsupported++
			default:
				rs.Broken++
			}
			parseErrs = append(parseErrs, ErrParseYaml{Path: path, Err: err})
			continue
		}
		rs.Rules = append(rs.Rules, RuleHandle{Rule: rule, Path: path})
		rs.OK++
	}

	if len(parseErrs) > 0 && c.FailFast {
		return nil, ErrBulkParseYaml{Errs: parseErrs}
	}
	return rs, nil
}

// isMultipartYaml reports whether data holds more than one "---"-delimited
// YAML document with content (blank and comment-only lines do not count);
// NewRuleset declines such files.
func isMultipartYaml(data []byte) bool {
	docs, content := 0, false
	for _, line := range bytes.Split(data, []byte("\n")) {
		if string(bytes.TrimRight(line, " \t\r")) == "---" {
			if content {
				docs++
			}
			content = false
		} else if t := bytes.TrimSpace(line); len(t) > 0 && t[0] != '#' {
			content = true
		}
	}
	if content {
		docs++
	}
	return docs > 1
}

// EvalAll evaluates every loaded rule against ev, returning the rules
// that matched.
func (rs *Ruleset) EvalAll(ev types.Event) (Results, bool) {
	var out Results
	for _, handle := range rs.Rules {
		if handle.Rule.IsMatch(ev) {
			out = append(out, Result{ID: handle.Rule.ID(), Title: handle.Rule.Title(), Tags: handle.Rule.Tags()})
		}
	}
	return out, len(out) > 0
}

// EvalAllConcurrent evaluates every event in events against the ruleset
// using a fixed pool of workers, returning one Results slot per input
// event, in the same order as events. Grounded in the teacher's
// threaded-streamer example: a channel of work items feeds a
// WaitGroup-tracked worker pool, except each worker writes its result
// into a pre-sized slot instead of writing straight to stdout, since
// this is a library call rather than a CLI pipeline stage.
func (rs *Ruleset) EvalAllConcurrent(events []types.Event, workers int) []Results {
	if workers <= 0 {
		workers = 1
	}
	results := make([]Results, len(events))

	type job struct {
		idx int
		ev  types.Event
	}
	jobs := make(chan job, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				matched, _ := rs.EvalAll(j.ev)
				results[j.idx] = matched
			}
		}()
	}

	for i, ev := range events {
		jobs <- job{idx: i, ev: ev}
	}
	close(jobs)
	wg.Wait()

	return results
}
