// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package rules

import "fmt"

// Select returns the union of rules named by the given ruleset ids.
// The special id AllRulesetID selects every rule in all regardless of
// whether it appears in rulesets.
func Select(all []Rule, rulesets []Ruleset, ids []string) ([]Rule, error) {
	byID := make(map[string]Rule, len(all))
	for _, r := range all {
		byID[r.ID] = r
	}

	rulesetByID := make(map[string]Ruleset, len(rulesets))
	for _, rs := range rulesets {
		rulesetByID[rs.ID] = rs
	}

	var selected []Rule
	seen := make(map[string]bool)

	for _, id := range ids {
		if id == AllRulesetID {
			for _, r := range all {
				if !seen[r.ID] {
					seen[r.ID] = true
					selected = append(selected, r)
				}
			}
			continue
		}

		rs, ok := rulesetByID[id]
		if !ok {
			return nil, fmt.Errorf("unknown ruleset %q", id)
		}
		for _, ruleID := range rs.RuleIDs {
			r, ok := byID[ruleID]
			if !ok {
				return nil, fmt.Errorf("ruleset %q references unknown rule %q", id, ruleID)
			}
			if !seen[r.ID] {
				seen[r.ID] = true
				selected = append(selected, r)
			}
		}
	}

	return selected, nil
}
