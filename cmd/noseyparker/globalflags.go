// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"os"

	"github.com/mattn/go-isatty"
)

// GlobalFlags carries the flags shared across every subcommand rather
// than parsed per-command. Referenced by progress.go and every
// subcommand's run function.
type GlobalFlags struct {
	// Color is one of "auto", "never", "always" (--color).
	Color string
	// Progress is one of "auto", "never", "always" (--progress).
	Progress string
	// Verbose counts -v/--verbose repetitions.
	Verbose int
	// Quiet is -q/--quiet.
	Quiet bool
	// JSON requests machine-readable stderr error output; no global flag
	// sets this directly, but a subcommand whose --format is json or
	// jsonl turns it on so fatal errors match the chosen output mode.
	JSON bool
	// RlimitNofile is --rlimit-nofile.
	RlimitNofile uint64
	// SQLiteCacheSizeKB is --sqlite-cache-size.
	SQLiteCacheSizeKB int
	// EnableBacktraces is --enable-backtraces.
	EnableBacktraces bool

	// NoColor is resolved once at startup from --color and NO_COLOR, the
	// form progress.go and internal/ui actually consume.
	NoColor bool
}

// resolveNoColor applies --color's three-state contract plus the
// NO_COLOR environment convention, reducing them to the single bool the
// rest of the program needs.
func resolveNoColor(color string) bool {
	switch color {
	case "always":
		return false
	case "never":
		return true
	default: // "auto"
		if os.Getenv("NO_COLOR") != "" {
			return true
		}
		return !isatty.IsTerminal(os.Stdout.Fd())
	}
}

// resolveProgressEnabled applies --progress's three-state contract.
func resolveProgressEnabled(progress string, quiet bool) bool {
	if quiet {
		return false
	}
	switch progress {
	case "always":
		return true
	case "never":
		return false
	default: // "auto"
		return isatty.IsTerminal(os.Stderr.Fd())
	}
}
