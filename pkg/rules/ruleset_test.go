// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package rules

import "testing"

func TestSelect_AllRuleset(t *testing.T) {
	all := []Rule{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	selected, err := Select(all, nil, []string{AllRulesetID})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(selected) != 3 {
		t.Errorf("expected all 3 rules, got %d", len(selected))
	}
}

func TestSelect_NamedRuleset(t *testing.T) {
	all := []Rule{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	sets := []Ruleset{{ID: "subset", RuleIDs: []string{"a", "c"}}}

	selected, err := Select(all, sets, []string{"subset"})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(selected) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(selected))
	}
	ids := map[string]bool{selected[0].ID: true, selected[1].ID: true}
	if !ids["a"] || !ids["c"] {
		t.Errorf("expected rules a and c, got %+v", selected)
	}
}

func TestSelect_UnionDeduplicatesAcrossRulesets(t *testing.T) {
	all := []Rule{{ID: "a"}, {ID: "b"}}
	sets := []Ruleset{
		{ID: "one", RuleIDs: []string{"a", "b"}},
		{ID: "two", RuleIDs: []string{"b"}},
	}

	selected, err := Select(all, sets, []string{"one", "two"})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(selected) != 2 {
		t.Errorf("expected union to dedupe to 2 rules, got %d", len(selected))
	}
}

func TestSelect_UnknownRulesetErrors(t *testing.T) {
	_, err := Select(nil, nil, []string{"does-not-exist"})
	if err == nil {
		t.Fatal("expected error for unknown ruleset")
	}
}

func TestSelect_RulesetReferencingUnknownRuleErrors(t *testing.T) {
	all := []Rule{{ID: "a"}}
	sets := []Ruleset{{ID: "broken", RuleIDs: []string{"does-not-exist"}}}

	_, err := Select(all, sets, []string{"broken"})
	if err == nil {
		t.Fatal("expected error for ruleset referencing unknown rule")
	}
}
