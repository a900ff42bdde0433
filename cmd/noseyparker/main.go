// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Command noseyparker scans filesystem trees, Git history, and GitHub
// accounts for hardcoded secrets, persists what it finds into an
// embedded datastore, and reports on it.
//
// Usage:
//
//	noseyparker scan --datastore PATH [paths...]
//	noseyparker report --datastore PATH --format {human,json,jsonl,sarif}
//	noseyparker summarize --datastore PATH
//	noseyparker datastore {init,export,import} --datastore PATH
//	noseyparker rules {list,check}
//	noseyparker annotations {export,import} --datastore PATH
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/noseyparker/internal/nperrors"
)

func main() {
	globals, command, cmdArgs := parseGlobalFlags(os.Args[1:])

	if command == "" {
		usage()
		os.Exit(nperrors.ExitConfig)
	}

	switch command {
	case "scan":
		runScan(cmdArgs, globals)
	case "report":
		runReport(cmdArgs, globals)
	case "summarize":
		runSummarize(cmdArgs, globals)
	case "datastore":
		runDatastore(cmdArgs, globals)
	case "rules":
		runRules(cmdArgs, globals)
	case "annotations":
		runAnnotations(cmdArgs, globals)
	default:
		fmt.Fprintf(os.Stderr, "noseyparker: unknown command %q\n\n", command)
		usage()
		os.Exit(nperrors.ExitConfig)
	}
}

// parseGlobalFlags consumes the global flags from the front of args,
// stopping at the first non-flag token (the subcommand name), and
// returns everything after it unparsed for the subcommand's own FlagSet.
func parseGlobalFlags(args []string) (GlobalFlags, string, []string) {
	fs := flag.NewFlagSet("noseyparker", flag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.Usage = usage

	color := fs.String("color", "auto", "colorize output: auto, never, always")
	progress := fs.String("progress", "auto", "show progress bars: auto, never, always")
	verbose := fs.CountP("verbose", "v", "increase log verbosity (repeatable)")
	quiet := fs.BoolP("quiet", "q", false, "suppress informational output")
	rlimitNofile := fs.Uint64("rlimit-nofile", 16384, "soft RLIMIT_NOFILE to request at startup")
	sqliteCacheSize := fs.Int("sqlite-cache-size", 16<<10, "SQLite PRAGMA cache_size, in KiB")
	enableBacktraces := fs.Bool("enable-backtraces", false, "include stack traces in panic output")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			os.Exit(nperrors.ExitSuccess)
		}
		fmt.Fprintf(os.Stderr, "noseyparker: %v\n", err)
		os.Exit(nperrors.ExitConfig)
	}

	globals := GlobalFlags{
		Color:             *color,
		Progress:          *progress,
		Verbose:           *verbose,
		Quiet:             *quiet,
		RlimitNofile:      *rlimitNofile,
		SQLiteCacheSizeKB: *sqliteCacheSize,
		EnableBacktraces:  *enableBacktraces,
	}
	globals.NoColor = resolveNoColor(globals.Color)

	rest := fs.Args()
	if len(rest) == 0 {
		return globals, "", nil
	}
	return globals, rest[0], rest[1:]
}

func usage() {
	fmt.Fprint(os.Stderr, `noseyparker - find hardcoded secrets in source trees, Git history, and GitHub accounts

Usage:
  noseyparker [global flags] <command> [command flags]

Commands:
  scan                   Enumerate and scan inputs into a datastore
  report                 Emit matches grouped into findings
  summarize              Emit per-rule finding/match counts
  datastore init          Create a new datastore directory
  datastore export        Dump a datastore to a portable stream
  datastore import         Load a datastore from a portable stream
  rules list              List loaded rules
  rules check             Validate rules against their examples
  annotations export       Dump finding status/comment edits
  annotations import       Apply finding status/comment edits

Global flags:
  --color {auto,never,always}      (default "auto", env NO_COLOR)
  --progress {auto,never,always}   (default "auto")
  -v, --verbose                    increase log verbosity (repeatable)
  -q, --quiet                      suppress informational output
  --rlimit-nofile N                 (default 16384)
  --sqlite-cache-size N             KiB (default 16384)
  --enable-backtraces               (default false)

Environment variables:
  NP_DATASTORE       default --datastore path
  NP_GITHUB_TOKEN    bearer token for GitHub enumeration
  NO_COLOR           disables color regardless of --color
`)
}

// datastorePath resolves --datastore against NP_DATASTORE, the env
// override for the same setting, with the flag taking precedence.
func datastorePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("NP_DATASTORE")
}

func fatal(err error, globals GlobalFlags) {
	nperrors.FatalError(err, globals.JSON)
}
