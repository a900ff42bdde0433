// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package resources

import "testing"

func TestRaiseNoFile_ReturnsAtLeastCurrentLimit(t *testing.T) {
	got, err := RaiseNoFile(DefaultRlimitNofile)
	if err != nil {
		t.Logf("RaiseNoFile warning (environment-dependent): %v", err)
	}
	if got == 0 {
		t.Error("expected a non-zero resulting nofile limit")
	}
}

func TestRaiseNoFile_SmallWantNeverLowersLimit(t *testing.T) {
	first, err := RaiseNoFile(DefaultRlimitNofile)
	if err != nil {
		t.Logf("RaiseNoFile warning: %v", err)
	}

	second, err := RaiseNoFile(1)
	if err != nil {
		t.Logf("RaiseNoFile warning: %v", err)
	}
	if second < first {
		t.Errorf("RaiseNoFile(1) lowered the limit: got %d, previously %d", second, first)
	}
}
