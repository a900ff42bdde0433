// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package rules

import "fmt"

// ErrKind classifies why a rule or ruleset failed to load or validate.
type ErrKind string

const (
	// ErrParseError means the YAML itself failed to parse.
	ErrParseError ErrKind = "ParseError"

	// ErrDuplicateID means two rules (or two rulesets) share an id.
	ErrDuplicateID ErrKind = "DuplicateID"

	// ErrInvalidPattern means a rule's pattern failed schema validation
	// (no capture groups, contains a backreference) before the automaton
	// even attempts to compile it.
	ErrInvalidPattern ErrKind = "InvalidPattern"

	// ErrExampleFailure means a positive example did not match the rule's
	// compiled pattern.
	ErrExampleFailure ErrKind = "ExampleFailure"

	// ErrNegativeExampleMatched means a negative example unexpectedly
	// matched the rule's compiled pattern.
	ErrNegativeExampleMatched ErrKind = "NegativeExampleMatched"
)

// LoadError reports a single rule or ruleset validation failure, identified
// by which rule/file it came from and classified by Kind.
type LoadError struct {
	Kind   ErrKind
	RuleID string
	File   string
	Detail string
}

func (e *LoadError) Error() string {
	if e.RuleID != "" {
		return fmt.Sprintf("%s: rule %q: %s", e.Kind, e.RuleID, e.Detail)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.File, e.Detail)
}
