// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package report

import (
	"context"
	"fmt"
	"io"

	"github.com/kraklabs/noseyparker/internal/output"
	"github.com/kraklabs/noseyparker/pkg/datastore"
)

// Options controls what Run includes and how much of it.
type Options struct {
	Filter     datastore.FindingFilter
	MaxMatches int
}

// collectFindings loads every finding matching opts.Filter, each with up
// to opts.MaxMatches of its matches.
func collectFindings(ctx context.Context, ds *datastore.Datastore, opts Options) ([]FindingJSON, error) {
	summaries, err := ds.ListFindings(ctx, opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("report: listing findings: %w", err)
	}

	out := make([]FindingJSON, 0, len(summaries))
	for _, s := range summaries {
		detail, err := ds.FindingDetailByID(ctx, s.ID, opts.MaxMatches)
		if err != nil {
			return nil, fmt.Errorf("report: loading finding %x: %w", s.ID, err)
		}
		out = append(out, ToFindingJSON(detail))
	}
	return out, nil
}

// WriteJSON renders every matching finding as a single pretty-printed
// JSON array to w, the `report --format json` shape.
func WriteJSON(ctx context.Context, ds *datastore.Datastore, w io.Writer, opts Options) error {
	findings, err := collectFindings(ctx, ds, opts)
	if err != nil {
		return err
	}
	return output.JSONTo(w, findings)
}

// WriteJSONL renders one compact JSON object per finding, one per line,
// the `report --format jsonl` shape.
func WriteJSONL(ctx context.Context, ds *datastore.Datastore, w io.Writer, opts Options) error {
	summaries, err := ds.ListFindings(ctx, opts.Filter)
	if err != nil {
		return fmt.Errorf("report: listing findings: %w", err)
	}

	for _, s := range summaries {
		detail, err := ds.FindingDetailByID(ctx, s.ID, opts.MaxMatches)
		if err != nil {
			return fmt.Errorf("report: loading finding %x: %w", s.ID, err)
		}
		if err := output.JSONCompactTo(w, ToFindingJSON(detail)); err != nil {
			return fmt.Errorf("report: writing finding %x: %w", s.ID, err)
		}
	}
	return nil
}

// Write dispatches to the renderer matching format.
func Write(ctx context.Context, ds *datastore.Datastore, w io.Writer, format Format, opts Options) error {
	switch format {
	case FormatJSON:
		return WriteJSON(ctx, ds, w, opts)
	case FormatJSONL:
		return WriteJSONL(ctx, ds, w, opts)
	case FormatSARIF:
		return WriteSARIF(ctx, ds, w, opts)
	case FormatHuman, "":
		return WriteHuman(ctx, ds, w, opts)
	default:
		return fmt.Errorf("report: unknown format %q", format)
	}
}
