// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package datastore

import (
	"bytes"
	"testing"

	"github.com/kraklabs/noseyparker/pkg/matcher"
	"github.com/kraklabs/noseyparker/pkg/pipeline"
	"github.com/kraklabs/noseyparker/pkg/provenance"
)

func TestExportImport_RoundTripPreservesFindingsAndMatches(t *testing.T) {
	src := newTestDatastore(t)

	w := NewWriter(src, WriterOptions{})
	content := "hello world"
	id := testBlobID(content)
	item := pipeline.ResultItem{
		Kind:       pipeline.KindMatches,
		BlobID:     id,
		BlobSize:   len(content),
		Provenance: []provenance.Provenance{provenance.NewFile("secrets.txt")},
		Matches: []matcher.RawMatch{
			{
				RuleID: "np.test.1",
				Start:  0,
				End:    5,
				Groups: []matcher.GroupSpan{{Name: "1", Start: 0, End: 5, Bytes: []byte("hello")}},
				Snippet: matcher.Snippet{
					Before: nil, Matching: []byte("hello"), After: []byte(" world"),
				},
				Location: matcher.Location{StartLine: 1, StartColumn: 1, EndLine: 1, EndColumn: 6},
			},
		},
	}
	if err := w.Write(item); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	wantFindings, err := src.ListFindings(t.Context(), FindingFilter{})
	if err != nil || len(wantFindings) != 1 {
		t.Fatalf("ListFindings on source: %v, %d results", err, len(wantFindings))
	}
	if err := src.SetFindingStatus(t.Context(), wantFindings[0].ID, "accepted", "looks real"); err != nil {
		t.Fatalf("SetFindingStatus: %v", err)
	}

	var buf bytes.Buffer
	if err := src.Export(t.Context(), &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("Export produced no output")
	}

	dst, err := Init(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Init dst: %v", err)
	}
	defer dst.Close()

	if err := dst.Import(t.Context(), &buf); err != nil {
		t.Fatalf("Import: %v", err)
	}

	gotFindings, err := dst.ListFindings(t.Context(), FindingFilter{})
	if err != nil {
		t.Fatalf("ListFindings on dst: %v", err)
	}
	if len(gotFindings) != 1 {
		t.Fatalf("got %d findings after import, want 1", len(gotFindings))
	}
	if gotFindings[0].ID != wantFindings[0].ID {
		t.Errorf("finding id mismatch after import: got %x, want %x", gotFindings[0].ID, wantFindings[0].ID)
	}
	if gotFindings[0].Status != "accepted" || gotFindings[0].Comment != "looks real" {
		t.Errorf("status/comment not preserved: %+v", gotFindings[0])
	}

	detail, err := dst.FindingDetailByID(t.Context(), gotFindings[0].ID, 0)
	if err != nil {
		t.Fatalf("FindingDetailByID on dst: %v", err)
	}
	if len(detail.Matches) != 1 {
		t.Fatalf("got %d matches after import, want 1", len(detail.Matches))
	}
	m := detail.Matches[0]
	if string(m.Snippet.Matching) != "hello" {
		t.Errorf("snippet not preserved: %q", m.Snippet.Matching)
	}
	if len(m.Provenance) != 1 || m.Provenance[0].Path != "secrets.txt" {
		t.Errorf("provenance not preserved: %+v", m.Provenance)
	}
}

func TestExportImport_EmptyDatastoreRoundTrips(t *testing.T) {
	src := newTestDatastore(t)

	var buf bytes.Buffer
	if err := src.Export(t.Context(), &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}

	dst, err := Init(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Init dst: %v", err)
	}
	defer dst.Close()

	if err := dst.Import(t.Context(), &buf); err != nil {
		t.Fatalf("Import: %v", err)
	}

	findings, err := dst.ListFindings(t.Context(), FindingFilter{})
	if err != nil {
		t.Fatalf("ListFindings: %v", err)
	}
	if len(findings) != 0 {
		t.Errorf("got %d findings, want 0", len(findings))
	}
}
