// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package datastore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kraklabs/noseyparker/pkg/rules"
)

// PersistRules upserts every rule and ruleset a scan selected, so a later
// report/summarize over this datastore can resolve rule_id -> name without
// needing the original rule files on disk.
func (d *Datastore) PersistRules(ctx context.Context, rs []rules.Rule, rulesets []rules.Ruleset) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("datastore: begin persist rules: %w", err)
	}
	defer tx.Rollback()

	for _, r := range rs {
		categories, err := json.Marshal(r.Categories)
		if err != nil {
			return fmt.Errorf("datastore: marshal categories for rule %s: %w", r.ID, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO rule (id, name, pattern, categories, min_length, max_offset)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				name = excluded.name, pattern = excluded.pattern,
				categories = excluded.categories,
				min_length = excluded.min_length, max_offset = excluded.max_offset`,
			r.ID, r.Name, r.Pattern, string(categories), r.MinLength, r.MaxOffset,
		)
		if err != nil {
			return fmt.Errorf("datastore: persisting rule %s: %w", r.ID, err)
		}
	}

	for _, rset := range rulesets {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO ruleset (id, name) VALUES (?, ?)
			 ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
			rset.ID, rset.ID,
		)
		if err != nil {
			return fmt.Errorf("datastore: persisting ruleset %s: %w", rset.ID, err)
		}
		for _, ruleID := range rset.RuleIDs {
			_, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO ruleset_rule (ruleset_id, rule_id) VALUES (?, ?)`,
				rset.ID, ruleID,
			)
			if err != nil {
				return fmt.Errorf("datastore: linking ruleset %s to rule %s: %w", rset.ID, ruleID, err)
			}
		}
	}

	return tx.Commit()
}
