// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/noseyparker/internal/nperrors"
	"github.com/kraklabs/noseyparker/internal/output"
	"github.com/kraklabs/noseyparker/internal/ui"
	"github.com/kraklabs/noseyparker/pkg/datastore"
)

// ruleSummary is one row of `noseyparker summarize`'s per-rule rollup.
type ruleSummary struct {
	RuleID      string `json:"rule_id"`
	RuleName    string `json:"rule_name"`
	NumFindings int    `json:"num_findings"`
	NumMatches  int    `json:"num_matches"`
	NumAccepted int    `json:"num_accepted"`
	NumRejected int    `json:"num_rejected"`
}

// runSummarize executes `noseyparker summarize`: it rolls every finding
// up to a per-rule count of findings, matches, and status breakdown.
func runSummarize(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("summarize", flag.ExitOnError)

	datastorePathFlag := fs.String("datastore", "", "path to the datastore directory (env NP_DATASTORE)")
	jsonOut := fs.Bool("json", false, "emit a JSON array instead of a table")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: noseyparker summarize --datastore PATH [options]

Print per-rule finding and match counts.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(nperrors.ExitConfig)
	}

	globals.JSON = *jsonOut

	dsDir := datastorePath(*datastorePathFlag)
	if dsDir == "" {
		fatal(nperrors.NewConfigError("no datastore specified", "--datastore was empty and NP_DATASTORE is unset",
			"pass --datastore PATH", nil), globals)
	}

	ds, err := datastore.Open(dsDir, nil)
	if err != nil {
		fatal(nperrors.NewDatastoreError("failed to open datastore", err.Error(),
			"run `noseyparker scan` first, or check --datastore", err), globals)
	}
	defer ds.Close()

	summaries, err := ds.ListFindings(context.Background(), datastore.FindingFilter{})
	if err != nil {
		fatal(nperrors.NewDatastoreError("failed to list findings", err.Error(), "", err), globals)
	}

	rows := summarizeFindings(summaries)

	if *jsonOut {
		if err := output.JSON(rows); err != nil {
			fatal(nperrors.NewIoError("failed to write summary", err.Error(), "", err), globals)
		}
		return
	}

	printSummaryTable(rows)
}

// summarizeFindings rolls a flat finding listing up into one row per
// rule, sorted by rule id for stable output.
func summarizeFindings(summaries []datastore.FindingSummary) []ruleSummary {
	byRule := make(map[string]*ruleSummary)
	var order []string
	for _, s := range summaries {
		rs, ok := byRule[s.RuleID]
		if !ok {
			rs = &ruleSummary{RuleID: s.RuleID, RuleName: s.RuleName}
			byRule[s.RuleID] = rs
			order = append(order, s.RuleID)
		}
		rs.NumFindings++
		rs.NumMatches += s.NumMatches
		switch s.Status {
		case "accepted":
			rs.NumAccepted++
		case "rejected":
			rs.NumRejected++
		}
	}
	sort.Strings(order)

	rows := make([]ruleSummary, 0, len(order))
	for _, id := range order {
		rows = append(rows, *byRule[id])
	}
	return rows
}

func printSummaryTable(rows []ruleSummary) {
	if len(rows) == 0 {
		fmt.Println("no findings")
		return
	}

	fmt.Printf("%-30s %10s %10s %10s %10s\n", "RULE", "FINDINGS", "MATCHES", "ACCEPTED", "REJECTED")
	for _, r := range rows {
		fmt.Printf("%-30s %10d %10d %10d %10d\n",
			ui.Label(r.RuleName), r.NumFindings, r.NumMatches, r.NumAccepted, r.NumRejected)
	}
}
