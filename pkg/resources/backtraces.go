// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package resources

import "runtime/debug"

// Backtraces wires the --enable-backtraces/NP_ENABLE_BACKTRACES knob to the
// runtime: "all" dumps every goroutine's stack on an unrecovered panic
// instead of just the panicking one, which is invaluable when a worker dies
// inside a scratch allocation deep in a regex engine but costly enough
// (noisy output) that it defaults to off.
func Backtraces(enabled bool) {
	if enabled {
		debug.SetTraceback("all")
	} else {
		debug.SetTraceback("single")
	}
}
