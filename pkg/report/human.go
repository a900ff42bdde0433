// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package report

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kraklabs/noseyparker/internal/ui"
	"github.com/kraklabs/noseyparker/pkg/datastore"
	"github.com/kraklabs/noseyparker/pkg/provenance"
)

// WriteHuman renders findings as a terminal-friendly listing: one block
// per finding, its rule name and status colored, followed by each
// match's provenance and matching text. Color, paging, and layout beyond
// this are deliberately unfancy, unlike the strict shape contracts
// WriteJSON/WriteJSONL/WriteSARIF implement verbatim.
func WriteHuman(ctx context.Context, ds *datastore.Datastore, w io.Writer, opts Options) error {
	summaries, err := ds.ListFindings(ctx, opts.Filter)
	if err != nil {
		return fmt.Errorf("report: listing findings: %w", err)
	}

	if len(summaries) == 0 {
		fmt.Fprintln(w, "no findings")
		return nil
	}

	for i, s := range summaries {
		if i > 0 {
			fmt.Fprintln(w)
		}
		detail, err := ds.FindingDetailByID(ctx, s.ID, opts.MaxMatches)
		if err != nil {
			return fmt.Errorf("report: loading finding %x: %w", s.ID, err)
		}
		writeFindingHuman(w, detail)
	}
	return nil
}

func writeFindingHuman(w io.Writer, fd *datastore.FindingDetail) {
	fmt.Fprintf(w, "%s %s (%s)\n", ui.Bold.Sprint(fd.RuleName), idHex(fd.ID), ui.StatusText(fd.Status))
	fmt.Fprintf(w, "  %s match(es)\n", ui.CountText(fd.NumMatches))

	for _, m := range fd.Matches {
		var where []string
		for _, p := range m.Provenance {
			where = append(where, provenanceSummary(p))
		}
		fmt.Fprintf(w, "  %s\n", ui.DimText(strings.Join(where, ", ")))
		fmt.Fprintf(w, "    %d:%d-%d:%d %s\n",
			m.Location.StartLine, m.Location.StartColumn, m.Location.EndLine, m.Location.EndColumn,
			string(m.Snippet.Matching))
	}
}

func provenanceSummary(p provenance.Provenance) string {
	switch p.Kind {
	case provenance.KindFile:
		return p.Path
	case provenance.KindGitRepo:
		commit := p.FirstSeenCommitID
		if len(commit) > 12 {
			commit = commit[:12]
		}
		return fmt.Sprintf("%s@%s:%s", p.RepoPath, commit, p.PathInTree)
	case provenance.KindGitHubRepo:
		return p.RepoURL
	case provenance.KindExtensible:
		return p.Name
	default:
		return string(p.Kind)
	}
}
