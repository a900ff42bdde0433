// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package rules loads, validates, and indexes the rule/ruleset model: the
// patterns a scan matches blobs against.
package rules

import "fmt"

// Rule is a single secret-detection pattern.
type Rule struct {
	// ID is a short, stable, globally-unique string identity, e.g.
	// "np.github.1".
	ID string `yaml:"id"`

	// Name is a human-readable name shown in reports.
	Name string `yaml:"name"`

	// Pattern is the bytestring regex matched against blob content.
	Pattern string `yaml:"pattern"`

	// Categories classifies the rule for filtering (e.g. "api-key", "cloud").
	Categories []string `yaml:"categories,omitempty"`

	// References are URLs documenting the credential format this rule
	// targets.
	References []string `yaml:"references,omitempty"`

	// Examples are (content, expect-match) pairs used by Check to validate
	// the rule against real-world samples.
	Examples []Example `yaml:"examples,omitempty"`

	// MinLength, MaxOffset, and Extended are post-match filters applied by
	// the matcher (pkg/matcher), not by compilation. MinLength rejects
	// matches whose full span is shorter than the given byte count (cuts
	// down on short, high-noise matches for loose patterns). MaxOffset
	// rejects matches whose start offset exceeds the given byte count
	// (useful for rules that should only fire near the top of a file, e.g.
	// shebang-adjacent patterns). Extended marks a rule whose matches
	// should be reported even when they overlap another rule's match at
	// the same span, instead of being subsumed by it.
	MinLength int  `yaml:"min_length,omitempty"`
	MaxOffset int  `yaml:"max_offset,omitempty"`
	Extended  bool `yaml:"extended,omitempty"`

	// Index is the stable integer assigned for the current process by
	// Ruleset.Validate, used by the automaton and matcher to refer to
	// rules without string comparisons. It is not stable across processes
	// or loads of a different rule set.
	Index int `yaml:"-"`
}

// Example is a positive or negative test case embedded in a rule.
type Example struct {
	// Content is the sample text to match the rule's pattern against.
	Content string `yaml:"content"`

	// Positive is true if Content is expected to match; false if Content
	// is expected NOT to match (a negative example).
	Positive bool `yaml:"positive"`
}

// Ruleset is an ordered collection of rule ids plus a ruleset id.
type Ruleset struct {
	ID      string   `yaml:"id"`
	RuleIDs []string `yaml:"rule_ids"`
}

// AllRulesetID is the special ruleset designating every loaded rule.
const AllRulesetID = "all"

// validateGroupCount reports whether pattern has at least one capture
// group. The automaton package performs the actual compile-time check (it needs
// a real regex engine to count groups); this package only enforces the
// byte-level contract that rejects backreferences up front, since neither
// compatible engine supports them and a clear RuleLoad error beats an
// opaque Compile error down the line.
func validateNoBackreferences(pattern string) error {
	for i := 0; i < len(pattern)-1; i++ {
		if pattern[i] == '\\' && pattern[i+1] >= '1' && pattern[i+1] <= '9' {
			return fmt.Errorf("pattern contains a backreference (\\%c), which is not supported", pattern[i+1])
		}
	}
	return nil
}
