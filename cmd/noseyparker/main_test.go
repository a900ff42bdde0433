// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import "testing"

func TestParseGlobalFlags_NoCommand(t *testing.T) {
	_, command, rest := parseGlobalFlags(nil)
	if command != "" {
		t.Errorf("expected empty command, got %q", command)
	}
	if rest != nil {
		t.Errorf("expected nil rest args, got %v", rest)
	}
}

func TestParseGlobalFlags_StopsAtSubcommand(t *testing.T) {
	globals, command, rest := parseGlobalFlags([]string{"-v", "--quiet", "scan", "--datastore", "/tmp/ds", "path1"})
	if command != "scan" {
		t.Errorf("command = %q, want scan", command)
	}
	if len(rest) != 3 || rest[0] != "--datastore" || rest[1] != "/tmp/ds" || rest[2] != "path1" {
		t.Errorf("rest = %v, want [--datastore /tmp/ds path1]", rest)
	}
	if globals.Verbose != 1 {
		t.Errorf("Verbose = %d, want 1", globals.Verbose)
	}
	if !globals.Quiet {
		t.Error("expected Quiet to be true")
	}
}

func TestParseGlobalFlags_RepeatedVerboseCounts(t *testing.T) {
	globals, _, _ := parseGlobalFlags([]string{"-vvv", "report"})
	if globals.Verbose != 3 {
		t.Errorf("Verbose = %d, want 3", globals.Verbose)
	}
}

func TestParseGlobalFlags_Defaults(t *testing.T) {
	globals, _, _ := parseGlobalFlags([]string{"rules"})
	if globals.Color != "auto" {
		t.Errorf("Color = %q, want auto", globals.Color)
	}
	if globals.Progress != "auto" {
		t.Errorf("Progress = %q, want auto", globals.Progress)
	}
	if globals.RlimitNofile != 16384 {
		t.Errorf("RlimitNofile = %d, want 16384", globals.RlimitNofile)
	}
}

func TestDatastorePath(t *testing.T) {
	t.Setenv("NP_DATASTORE", "/from/env")
	if got := datastorePath("/from/flag"); got != "/from/flag" {
		t.Errorf("flag value should win, got %q", got)
	}
	if got := datastorePath(""); got != "/from/env" {
		t.Errorf("expected fallback to NP_DATASTORE, got %q", got)
	}
}
