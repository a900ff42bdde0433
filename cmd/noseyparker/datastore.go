// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/noseyparker/internal/config"
	"github.com/kraklabs/noseyparker/internal/nperrors"
	"github.com/kraklabs/noseyparker/internal/ui"
	"github.com/kraklabs/noseyparker/pkg/datastore"
)

// runDatastore dispatches the `noseyparker datastore` subcommands:
// init, export, and import.
func runDatastore(args []string, globals GlobalFlags) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: noseyparker datastore {init,export,import} [options]")
		os.Exit(nperrors.ExitConfig)
	}

	sub, rest := args[0], args[1:]
	switch sub {
	case "init":
		runDatastoreInit(rest, globals)
	case "export":
		runDatastoreExport(rest, globals)
	case "import":
		runDatastoreImport(rest, globals)
	default:
		fmt.Fprintf(os.Stderr, "noseyparker datastore: unknown subcommand %q\n", sub)
		os.Exit(nperrors.ExitConfig)
	}
}

func runDatastoreInit(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("datastore init", flag.ExitOnError)
	datastorePathFlag := fs.String("datastore", "", "path to the datastore directory to create (env NP_DATASTORE)")
	if err := fs.Parse(args); err != nil {
		os.Exit(nperrors.ExitConfig)
	}

	dsDir := datastorePath(*datastorePathFlag)
	if dsDir == "" {
		fatal(nperrors.NewConfigError("no datastore specified", "--datastore was empty and NP_DATASTORE is unset",
			"pass --datastore PATH", nil), globals)
	}

	ds, err := datastore.Init(dsDir, nil)
	if err != nil {
		fatal(nperrors.NewDatastoreError("failed to initialize datastore", err.Error(), "", err), globals)
	}
	defer ds.Close()

	if err := config.Save(dsDir, config.Default()); err != nil {
		fatal(nperrors.NewConfigError("failed to write default configuration", err.Error(), "", err), globals)
	}

	ui.Success(fmt.Sprintf("initialized datastore at %s", dsDir))
}

func runDatastoreExport(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("datastore export", flag.ExitOnError)
	datastorePathFlag := fs.String("datastore", "", "path to the datastore directory (env NP_DATASTORE)")
	output := fs.String("output", "", "write the export stream to this path instead of stdout")
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

	w := os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			fatal(nperrors.NewIoError("failed to create export file", err.Error(), "", err), globals)
		}
		defer f.Close()
		w = f
	}

	if err := ds.Export(context.Background(), w); err != nil {
		fatal(nperrors.NewDatastoreError("export failed", err.Error(), "", err), globals)
	}
}

func runDatastoreImport(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("datastore import", flag.ExitOnError)
	datastorePathFlag := fs.String("datastore", "", "path to the empty datastore directory to import into (env NP_DATASTORE)")
	input := fs.String("input", "", "read the export stream from this path instead of stdin")
	if err := fs.Parse(args); err != nil {
		os.Exit(nperrors.ExitConfig)
	}

	dsDir := datastorePath(*datastorePathFlag)
	if dsDir == "" {
		fatal(nperrors.NewConfigError("no datastore specified", "--datastore was empty and NP_DATASTORE is unset",
			"pass --datastore PATH", nil), globals)
	}

	ds, err := datastore.Init(dsDir, nil)
	if err != nil {
		fatal(nperrors.NewDatastoreError("failed to initialize destination datastore", err.Error(), "", err), globals)
	}
	defer ds.Close()

	r := os.Stdin
	if *input != "" {
		f, err := os.Open(*input)
		if err != nil {
			fatal(nperrors.NewIoError("failed to open import file", err.Error(), "", err), globals)
		}
		defer f.Close()
		r = f
	}

	if err := ds.Import(context.Background(), r); err != nil {
		fatal(nperrors.NewDatastoreError("import failed", err.Error(),
			"the destination datastore must be empty before importing", err), globals)
	}

	ui.Success(fmt.Sprintf("imported into datastore at %s", dsDir))
}
