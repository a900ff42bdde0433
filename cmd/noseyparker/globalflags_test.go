// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import "testing"

func TestResolveNoColor(t *testing.T) {
	tests := []struct {
		name  string
		color string
		want  bool
	}{
		{"always forces color on", "always", false},
		{"never forces color off", "never", true},
		{"auto falls back to TTY detection", "auto", true}, // not a TTY in tests
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", "")
			if got := resolveNoColor(tt.color); got != tt.want {
				t.Errorf("resolveNoColor(%q) = %v, want %v", tt.color, got, tt.want)
			}
		})
	}
}

func TestResolveNoColor_NoColorEnvOverridesAuto(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	if !resolveNoColor("auto") {
		t.Error("expected NO_COLOR env var to force no-color under --color=auto")
	}
}

func TestResolveProgressEnabled(t *testing.T) {
	tests := []struct {
		name     string
		progress string
		quiet    bool
		want     bool
	}{
		{"quiet always disables progress", "always", true, false},
		{"always enables progress", "always", false, true},
		{"never disables progress", "never", false, false},
		{"auto falls back to TTY detection", "auto", false, false}, // not a TTY in tests
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveProgressEnabled(tt.progress, tt.quiet); got != tt.want {
				t.Errorf("resolveProgressEnabled(%q, %v) = %v, want %v", tt.progress, tt.quiet, got, tt.want)
			}
		})
	}
}
