// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package resources

import "testing"

func TestBacktraces_DoesNotPanic(t *testing.T) {
	Backtraces(true)
	Backtraces(false)
}
