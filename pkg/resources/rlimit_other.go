// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

//go:build !unix

package resources

import "fmt"

// DefaultRlimitNofile is unused on platforms without rlimit semantics.
const DefaultRlimitNofile = 16384

// RaiseNoFile is a no-op on non-Unix platforms, which have no
// RLIMIT_NOFILE concept; it reports the requested value back unchanged
// with an informational error so callers can log that the limit was not
// actually raised.
func RaiseNoFile(want uint64) (got uint64, err error) {
	return want, fmt.Errorf("resources: RaiseNoFile is not supported on this platform")
}
