// Package sigma parses Sigma detection rules and evaluates them against
// structured events. Build a Rule once with RuleFromYAML or RuleFromJSON,
// then call Rule.IsMatch against any number of events; a Rule is
// immutable after construction and safe for concurrent use.
package sigma
