// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"testing"

	"github.com/kraklabs/noseyparker/pkg/datastore"
)

func TestSummarizeFindings_RollsUpPerRule(t *testing.T) {
	summaries := []datastore.FindingSummary{
		{RuleID: "np.github.1", RuleName: "GitHub Token", NumMatches: 2, Status: "unlabeled"},
		{RuleID: "np.github.1", RuleName: "GitHub Token", NumMatches: 1, Status: "accepted"},
		{RuleID: "np.aws.1", RuleName: "AWS Key", NumMatches: 5, Status: "rejected"},
	}

	rows := summarizeFindings(summaries)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rule rows, got %d", len(rows))
	}

	// sorted by rule id: np.aws.1 before np.github.1
	if rows[0].RuleID != "np.aws.1" || rows[0].NumFindings != 1 || rows[0].NumMatches != 5 || rows[0].NumRejected != 1 {
		t.Errorf("unexpected aws row: %+v", rows[0])
	}
	if rows[1].RuleID != "np.github.1" || rows[1].NumFindings != 2 || rows[1].NumMatches != 3 || rows[1].NumAccepted != 1 {
		t.Errorf("unexpected github row: %+v", rows[1])
	}
}

func TestSummarizeFindings_Empty(t *testing.T) {
	rows := summarizeFindings(nil)
	if len(rows) != 0 {
		t.Errorf("expected no rows for empty input, got %d", len(rows))
	}
}
