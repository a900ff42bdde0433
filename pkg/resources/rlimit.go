// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

//go:build unix

// Package resources wires up the process-level resource guards a scan
// needs: a raised open-file limit (many enumerators and the datastore writer
// hold file descriptors concurrently), worker scratch ownership, and
// optional goroutine backtraces on panic.
package resources

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// DefaultRlimitNofile is the soft RLIMIT_NOFILE a scan requests by default.
const DefaultRlimitNofile = 16384

// RaiseNoFile attempts to raise the process's soft RLIMIT_NOFILE to want,
// never exceeding the hard limit. It returns the limit actually in effect
// after the attempt; if the hard limit is lower than want, it raises the
// soft limit to the hard limit and returns a non-nil error describing the
// shortfall so callers can warn rather than fail outright.
func RaiseNoFile(want uint64) (got uint64, err error) {
	var rlimit unix.Rlimit
	if getErr := unix.Getrlimit(unix.RLIMIT_NOFILE, &rlimit); getErr != nil {
		return 0, fmt.Errorf("resources: getrlimit RLIMIT_NOFILE: %w", getErr)
	}

	target := want
	var warning error
	if target > rlimit.Max {
		target = rlimit.Max
		warning = fmt.Errorf("resources: requested nofile limit %d exceeds hard limit %d, raised to %d instead", want, rlimit.Max, target)
	}

	if target <= rlimit.Cur {
		return rlimit.Cur, warning
	}

	rlimit.Cur = target
	if setErr := unix.Setrlimit(unix.RLIMIT_NOFILE, &rlimit); setErr != nil {
		return rlimit.Cur, fmt.Errorf("resources: setrlimit RLIMIT_NOFILE to %d: %w", target, setErr)
	}

	return target, warning
}
