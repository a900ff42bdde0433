// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package rules

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_BundledDefaults(t *testing.T) {
	rs, err := Load(nil)
	if err != nil {
		t.Fatalf("Load(nil) error = %v", err)
	}
	if len(rs) == 0 {
		t.Fatal("expected at least one bundled default rule")
	}

	seenIDs := make(map[string]bool)
	for i, r := range rs {
		if r.Index != i {
			t.Errorf("rule %s: Index = %d, want %d", r.ID, r.Index, i)
		}
		if seenIDs[r.ID] {
			t.Errorf("duplicate rule id in bundled defaults: %s", r.ID)
		}
		seenIDs[r.ID] = true
	}
}

func TestLoad_ExtraDirMergesWithDefaults(t *testing.T) {
	dir := t.TempDir()
	custom := `
rules:
  - id: custom.token.1
    name: Custom Token
    pattern: 'custom-(tok_[0-9a-f]{16})'
    examples:
      - content: "custom-tok_0123456789abcdef"
        positive: true
      - content: "not-a-token-at-all"
        positive: false
`
	if err := os.WriteFile(filepath.Join(dir, "custom.yaml"), []byte(custom), 0o644); err != nil {
		t.Fatal(err)
	}

	rs, err := Load([]string{dir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	found := false
	for _, r := range rs {
		if r.ID == "custom.token.1" {
			found = true
		}
	}
	if !found {
		t.Error("expected custom rule to be loaded alongside bundled defaults")
	}
}

func TestLoad_DuplicateIDRejected(t *testing.T) {
	dir := t.TempDir()
	dup := `
rules:
  - id: np.aws.1
    name: Duplicate of bundled rule
    pattern: '(dup-[0-9]{4})'
    examples:
      - content: "dup-1234"
        positive: true
`
	if err := os.WriteFile(filepath.Join(dir, "dup.yaml"), []byte(dup), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load([]string{dir})
	if err == nil {
		t.Fatal("expected duplicate id error, got nil")
	}
	le, ok := err.(*LoadError)
	if !ok {
		t.Fatalf("expected *LoadError, got %T", err)
	}
	if le.Kind != ErrDuplicateID {
		t.Errorf("Kind = %v, want %v", le.Kind, ErrDuplicateID)
	}
}

func TestLoad_InvalidPatternNoCaptureGroup(t *testing.T) {
	dir := t.TempDir()
	bad := `
rules:
  - id: bad.no_group
    name: No Capture Group
    pattern: 'plain-text-no-groups'
    examples:
      - content: "plain-text-no-groups"
        positive: true
`
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load([]string{dir})
	if err == nil {
		t.Fatal("expected invalid-pattern error, got nil")
	}
	le, ok := err.(*LoadError)
	if !ok {
		t.Fatalf("expected *LoadError, got %T", err)
	}
	if le.Kind != ErrInvalidPattern {
		t.Errorf("Kind = %v, want %v", le.Kind, ErrInvalidPattern)
	}
}

func TestLoad_PositiveExampleMustMatch(t *testing.T) {
	dir := t.TempDir()
	bad := `
rules:
  - id: bad.example_fails
    name: Failing Positive Example
    pattern: '(token-[0-9]{4})'
    examples:
      - content: "this does not contain the pattern"
        positive: true
`
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load([]string{dir})
	if err == nil {
		t.Fatal("expected example-failure error, got nil")
	}
	le, ok := err.(*LoadError)
	if !ok {
		t.Fatalf("expected *LoadError, got %T", err)
	}
	if le.Kind != ErrExampleFailure {
		t.Errorf("Kind = %v, want %v", le.Kind, ErrExampleFailure)
	}
}

func TestLoad_NegativeExampleMustNotMatch(t *testing.T) {
	dir := t.TempDir()
	bad := `
rules:
  - id: bad.negative_matches
    name: Matching Negative Example
    pattern: '(token-[0-9]{4})'
    examples:
      - content: "token-1234"
        positive: false
`
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load([]string{dir})
	if err == nil {
		t.Fatal("expected negative-example-matched error, got nil")
	}
	le, ok := err.(*LoadError)
	if !ok {
		t.Fatalf("expected *LoadError, got %T", err)
	}
	if le.Kind != ErrNegativeExampleMatched {
		t.Errorf("Kind = %v, want %v", le.Kind, ErrNegativeExampleMatched)
	}
}

func TestLoad_BackreferenceRejected(t *testing.T) {
	dir := t.TempDir()
	bad := `
rules:
  - id: bad.backref
    name: Backreference Pattern
    pattern: '(foo)\1'
`
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load([]string{dir})
	if err == nil {
		t.Fatal("expected invalid-pattern error for backreference, got nil")
	}
	le, ok := err.(*LoadError)
	if !ok {
		t.Fatalf("expected *LoadError, got %T", err)
	}
	if le.Kind != ErrInvalidPattern {
		t.Errorf("Kind = %v, want %v", le.Kind, ErrInvalidPattern)
	}
}

func TestSortByID(t *testing.T) {
	rs := []Rule{{ID: "z"}, {ID: "a"}, {ID: "m"}}
	sorted := SortByID(rs)
	if sorted[0].ID != "a" || sorted[1].ID != "m" || sorted[2].ID != "z" {
		t.Errorf("SortByID did not sort correctly: %+v", sorted)
	}
	// Original slice must be untouched.
	if rs[0].ID != "z" {
		t.Error("SortByID should not mutate its input")
	}
}
