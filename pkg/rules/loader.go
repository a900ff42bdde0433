// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package rules

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"gopkg.in/yaml.v3"
)

//go:embed defaults/*.yaml
var defaultsFS embed.FS

// matchTimeout bounds catastrophic backtracking during rule validation,
// the same value the capture extractor uses at scan time.
const matchTimeout = 5 * time.Second

// ruleFile is the on-disk shape of one rule YAML file: either a single
// rule or a list of rules under a "rules" key.
type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// Load parses every *.yaml file in the bundled defaults directory plus
// every *.yaml file (recursively) in each of extraDirs, validates each
// rule, assigns stable per-process indices, and returns the combined set.
//
// Load does not build the "all" ruleset object itself (callers needing
// that should construct Ruleset{ID: AllRulesetID, RuleIDs: ...} from the
// returned rules), but it does enforce the per-rule invariants: globally
// unique id, pattern compiles, at least one capture group, no
// backreferences, every positive example matches, no negative example
// matches.
func Load(extraDirs []string) ([]Rule, error) {
	var all []Rule

	entries, err := fs.ReadDir(defaultsFS, "defaults")
	if err != nil {
		return nil, fmt.Errorf("reading bundled defaults: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		data, err := defaultsFS.ReadFile(filepath.Join("defaults", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading bundled rule file %s: %w", e.Name(), err)
		}
		rs, err := parseRuleFile(e.Name(), data)
		if err != nil {
			return nil, err
		}
		all = append(all, rs...)
	}

	for _, dir := range extraDirs {
		rs, err := loadDir(dir)
		if err != nil {
			return nil, err
		}
		all = append(all, rs...)
	}

	if err := validateSet(all); err != nil {
		return nil, err
	}

	for i := range all {
		all[i].Index = i
	}

	return all, nil
}

// loadDir walks dir recursively, parsing every *.yaml/*.yml file found.
func loadDir(dir string) ([]Rule, error) {
	var rs []Rule
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		parsed, err := parseRuleFile(path, data)
		if err != nil {
			return err
		}
		rs = append(rs, parsed...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rs, nil
}

func parseRuleFile(name string, data []byte) ([]Rule, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &LoadError{Kind: ErrParseError, File: name, Detail: err.Error()}
	}
	return f.Rules, nil
}

// validateSet checks every invariant a loaded rule set must satisfy:
// unique ids, compilable patterns with at least one capture group and no
// backreferences, and example conformance.
func validateSet(all []Rule) error {
	seen := make(map[string]bool, len(all))
	for _, r := range all {
		if seen[r.ID] {
			return &LoadError{Kind: ErrDuplicateID, RuleID: r.ID, Detail: "rule id already loaded"}
		}
		seen[r.ID] = true

		if err := validateRule(r); err != nil {
			return err
		}
	}
	return nil
}

func validateRule(r Rule) error {
	if err := validateNoBackreferences(r.Pattern); err != nil {
		return &LoadError{Kind: ErrInvalidPattern, RuleID: r.ID, Detail: err.Error()}
	}

	re, err := compileForValidation(r.Pattern)
	if err != nil {
		return &LoadError{Kind: ErrInvalidPattern, RuleID: r.ID, Detail: err.Error()}
	}

	if re.GetGroupNumbers() != nil && len(re.GetGroupNumbers()) <= 1 {
		return &LoadError{Kind: ErrInvalidPattern, RuleID: r.ID, Detail: "pattern has no capture groups"}
	}

	for _, ex := range r.Examples {
		m, err := re.FindStringMatch(ex.Content)
		if err != nil {
			return &LoadError{Kind: ErrExampleFailure, RuleID: r.ID, Detail: fmt.Sprintf("matching example: %v", err)}
		}
		matched := m != nil
		switch {
		case ex.Positive && !matched:
			return &LoadError{Kind: ErrExampleFailure, RuleID: r.ID, Detail: fmt.Sprintf("positive example %q did not match", ex.Content)}
		case !ex.Positive && matched:
			return &LoadError{Kind: ErrNegativeExampleMatched, RuleID: r.ID, Detail: fmt.Sprintf("negative example %q matched", ex.Content)}
		}
	}

	return nil
}

// compileForValidation compiles pattern with regexp2, trying RE2 mode
// first (safer, non-backtracking) and falling back to Perl-compatible
// mode for extended syntax RE2 rejects — the same two-step compilation
// the capture extractor performs at scan time.
func compileForValidation(pattern string) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(pattern, regexp2.RE2|regexp2.Multiline)
	if err != nil {
		re, err = regexp2.Compile(pattern, regexp2.None)
		if err != nil {
			return nil, err
		}
	}
	re.MatchTimeout = matchTimeout
	return re, nil
}

// SortByID returns a copy of rs sorted by rule id, used for deterministic
// CLI listing output.
func SortByID(rs []Rule) []Rule {
	out := make([]Rule, len(rs))
	copy(out, rs)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
