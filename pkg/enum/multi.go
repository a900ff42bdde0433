// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package enum

import (
	"context"

	"github.com/kraklabs/noseyparker/pkg/pipeline"
)

// Multi runs a fixed list of sources in sequence, so a single `scan`
// invocation naming several positional paths plus --git-url/--github-user
// flags can drive pipeline.Scheduler.Run with one pipeline.Source. A
// source's error is logged by the caller via its own Logger field (every
// enumerator already does this); Multi itself just stops early on
// cancellation and otherwise runs every source before returning the
// first error encountered, if any.
type Multi struct {
	Sources []pipeline.Source
}

// Enumerate runs each of m.Sources in turn, stopping early if cancel is
// set. It returns the first non-nil, non-cancellation error, after
// having attempted every source (an error in one source should not
// prevent the others from contributing their blobs).
func (m *Multi) Enumerate(ctx context.Context, cancel *pipeline.CancelToken, emit pipeline.EmitFunc) error {
	var firstErr error
	for _, src := range m.Sources {
		if cancel != nil && cancel.Cancelled() {
			return pipeline.ErrCancelled
		}
		if err := src.Enumerate(ctx, cancel, emit); err != nil {
			if err == pipeline.ErrCancelled {
				return err
			}
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
