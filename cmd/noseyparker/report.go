// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/noseyparker/internal/nperrors"
	"github.com/kraklabs/noseyparker/pkg/datastore"
	"github.com/kraklabs/noseyparker/pkg/report"
)

// runReport executes `noseyparker report`: it renders every finding in
// the datastore matching the requested filter in one of the four output
// shapes pkg/report knows how to produce.
func runReport(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)

	datastorePathFlag := fs.String("datastore", "", "path to the datastore directory (env NP_DATASTORE)")
	format := fs.String("format", "human", "output format: human, json, jsonl, sarif")
	output := fs.String("output", "", "write output to this path instead of stdout")
	ruleID := fs.String("rule", "", "only include findings for this rule id")
	status := fs.String("status", "", "only include findings with this status (accepted, rejected, unlabeled)")
	maxMatches := fs.Int("max-matches", 3, "maximum matches rendered per finding")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: noseyparker report --datastore PATH [options]

Render every finding in the datastore, grouped from its matches, in one
of four shapes.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(nperrors.ExitConfig)
	}

	globals.JSON = *format == "json" || *format == "jsonl"

	rf := report.Format(*format)
	switch rf {
	case report.FormatHuman, report.FormatJSON, report.FormatJSONL, report.FormatSARIF:
	default:
		fatal(nperrors.NewConfigError(fmt.Sprintf("unknown --format %q", *format), "",
			"use one of: human, json, jsonl, sarif", nil), globals)
	}

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

	w := os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			fatal(nperrors.NewIoError("failed to create output file", err.Error(), "", err), globals)
		}
		defer f.Close()
		w = f
	}

	if err := report.Write(context.Background(), ds, w, rf, report.Options{
		Filter:     datastore.FindingFilter{RuleID: *ruleID, Status: *status},
		MaxMatches: *maxMatches,
	}); err != nil {
		fatal(nperrors.NewIoError("failed to write report", err.Error(), "", err), globals)
	}
}
