// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/noseyparker/internal/nperrors"
	"github.com/kraklabs/noseyparker/internal/output"
	"github.com/kraklabs/noseyparker/internal/ui"
	"github.com/kraklabs/noseyparker/pkg/datastore"
)

// annotationRecord is one newline-delimited JSON line in the annotations
// export/import stream: a finding's status and comment, keyed by its hex
// finding id, the same convention `report --format jsonl` uses for a
// finding's id field.
type annotationRecord struct {
	FindingID string `json:"finding_id"`
	Status    string `json:"status"`
	Comment   string `json:"comment,omitempty"`
}

// runAnnotations dispatches the `noseyparker annotations` subcommands:
// export and import.
func runAnnotations(args []string, globals GlobalFlags) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: noseyparker annotations {export,import} [options]")
		os.Exit(nperrors.ExitConfig)
	}

	sub, rest := args[0], args[1:]
	switch sub {
	case "export":
		runAnnotationsExport(rest, globals)
	case "import":
		runAnnotationsImport(rest, globals)
	default:
		fmt.Fprintf(os.Stderr, "noseyparker annotations: unknown subcommand %q\n", sub)
		os.Exit(nperrors.ExitConfig)
	}
}

func runAnnotationsExport(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("annotations export", flag.ExitOnError)
	datastorePathFlag := fs.String("datastore", "", "path to the datastore directory (env NP_DATASTORE)")
	outputPath := fs.String("output", "", "write the annotation stream to this path instead of stdout")
	if err := fs.Parse(args); err != nil {
		os.Exit(nperrors.ExitConfig)
	}

	dsDir := datastorePath(*datastorePathFlag)
	if dsDir == "" {
		fatal(nperrors.NewConfigError("no datastore specified", "--datastore was empty and NP_DATASTORE is unset",
			"pass --datastore PATH", nil), globals)
	}

	ds, err := datastore.Open(dsDir, nil)
	if err != nil {
		fatal(nperrors.NewDatastoreError("failed to open datastore", err.Error(), "", err), globals)
	}
	defer ds.Close()

	summaries, err := ds.ListFindings(context.Background(), datastore.FindingFilter{})
	if err != nil {
		fatal(nperrors.NewDatastoreError("failed to list findings", err.Error(), "", err), globals)
	}

	w := os.Stdout
	if *outputPath != "" {
		f, err := os.Create(*outputPath)
		if err != nil {
			fatal(nperrors.NewIoError("failed to create output file", err.Error(), "", err), globals)
		}
		defer f.Close()
		w = f
	}

	for _, s := range summaries {
		if s.Status == "unlabeled" && s.Comment == "" {
			continue
		}
		rec := annotationRecord{FindingID: hex.EncodeToString(s.ID[:]), Status: s.Status, Comment: s.Comment}
		if err := output.JSONCompactTo(w, rec); err != nil {
			fatal(nperrors.NewIoError("failed to write annotation record", err.Error(), "", err), globals)
		}
	}
}

func runAnnotationsImport(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("annotations import", flag.ExitOnError)
	datastorePathFlag := fs.String("datastore", "", "path to the datastore directory (env NP_DATASTORE)")
	inputPath := fs.String("input", "", "read the annotation stream from this path instead of stdin")
	if err := fs.Parse(args); err != nil {
		os.Exit(nperrors.ExitConfig)
	}

	dsDir := datastorePath(*datastorePathFlag)
	if dsDir == "" {
		fatal(nperrors.NewConfigError("no datastore specified", "--datastore was empty and NP_DATASTORE is unset",
			"pass --datastore PATH", nil), globals)
	}

	ds, err := datastore.Open(dsDir, nil)
	if err != nil {
		fatal(nperrors.NewDatastoreError("failed to open datastore", err.Error(), "", err), globals)
	}
	defer ds.Close()

	r := os.Stdin
	if *inputPath != "" {
		f, err := os.Open(*inputPath)
		if err != nil {
			fatal(nperrors.NewIoError("failed to open input file", err.Error(), "", err), globals)
		}
		defer f.Close()
		r = f
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	applied := 0
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec annotationRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			fatal(nperrors.NewConfigError(fmt.Sprintf("malformed annotation record on line %d", lineNo),
				err.Error(), "each line must be a JSON object with finding_id, status, and optionally comment", err), globals)
		}

		raw, err := hex.DecodeString(rec.FindingID)
		if err != nil || len(raw) != 16 {
			fatal(nperrors.NewConfigError(fmt.Sprintf("invalid finding_id on line %d", lineNo),
				rec.FindingID, "finding_id must be a 32-character hex string", err), globals)
		}
		var id [16]byte
		copy(id[:], raw)

		if err := ds.SetFindingStatus(context.Background(), id, rec.Status, rec.Comment); err != nil {
			fatal(nperrors.NewDatastoreError(fmt.Sprintf("failed to apply annotation on line %d", lineNo),
				err.Error(), "", err), globals)
		}
		applied++
	}
	if err := scanner.Err(); err != nil {
		fatal(nperrors.NewIoError("failed to read annotation stream", err.Error(), "", err), globals)
	}

	ui.Success(fmt.Sprintf("applied %d annotation(s)", applied))
}
