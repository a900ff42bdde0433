// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package datastore

import (
	"testing"
	"time"

	"github.com/kraklabs/noseyparker/pkg/blob"
	"github.com/kraklabs/noseyparker/pkg/matcher"
	"github.com/kraklabs/noseyparker/pkg/pipeline"
	"github.com/kraklabs/noseyparker/pkg/provenance"
	"github.com/kraklabs/noseyparker/pkg/rules"
)

func newTestDatastore(t *testing.T) *Datastore {
	t.Helper()
	dir := t.TempDir()
	ds, err := Init(dir, nil)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { ds.Close() })

	err = ds.PersistRules(t.Context(), []rules.Rule{
		{ID: "np.test.1", Name: "Test Rule", Pattern: "(foo)"},
	}, nil)
	if err != nil {
		t.Fatalf("PersistRules: %v", err)
	}
	return ds
}

func testBlobID(content string) blob.ID {
	return blob.ComputeID([]byte(content))
}

func TestWriter_Write_MatchesInsertsBlobAndMatch(t *testing.T) {
	ds := newTestDatastore(t)
	w := NewWriter(ds, WriterOptions{})

	id := testBlobID("hello world")
	item := pipeline.ResultItem{
		Kind:       pipeline.KindMatches,
		BlobID:     id,
		BlobSize:   11,
		Provenance: []provenance.Provenance{provenance.NewFile("a.txt")},
		Matches: []matcher.RawMatch{
			{
				RuleID: "np.test.1",
				Start:  0,
				End:    5,
				Groups: []matcher.GroupSpan{{Name: "1", Start: 0, End: 5, Bytes: []byte("hello")}},
				Snippet: matcher.Snippet{
					Before: nil, Matching: []byte("hello"), After: []byte(" world"),
				},
			},
		},
	}

	if err := w.Write(item); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	var blobCount int
	if err := ds.db.QueryRow(`SELECT COUNT(*) FROM blob WHERE blob_id = ?`, id.String()).Scan(&blobCount); err != nil {
		t.Fatalf("querying blob: %v", err)
	}
	if blobCount != 1 {
		t.Errorf("blobCount = %d, want 1", blobCount)
	}

	var matchCount int
	if err := ds.db.QueryRow(`SELECT COUNT(*) FROM match WHERE blob_id = ?`, id.String()).Scan(&matchCount); err != nil {
		t.Fatalf("querying match: %v", err)
	}
	if matchCount != 1 {
		t.Errorf("matchCount = %d, want 1", matchCount)
	}

	var findingCount int
	if err := ds.db.QueryRow(`SELECT COUNT(*) FROM finding`).Scan(&findingCount); err != nil {
		t.Fatalf("querying finding: %v", err)
	}
	if findingCount != 1 {
		t.Errorf("findingCount = %d, want 1", findingCount)
	}
}

func TestWriter_Write_DuplicateMatchIsIgnoredNotDuplicated(t *testing.T) {
	ds := newTestDatastore(t)
	w := NewWriter(ds, WriterOptions{})

	id := testBlobID("hello world")
	match := matcher.RawMatch{
		RuleID: "np.test.1",
		Start:  0,
		End:    5,
		Groups: []matcher.GroupSpan{{Name: "1", Start: 0, End: 5, Bytes: []byte("hello")}},
	}
	item := pipeline.ResultItem{
		Kind:       pipeline.KindMatches,
		BlobID:     id,
		BlobSize:   11,
		Provenance: []provenance.Provenance{provenance.NewFile("a.txt")},
		Matches:    []matcher.RawMatch{match, match},
	}

	if err := w.Write(item); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	var matchCount int
	if err := ds.db.QueryRow(`SELECT COUNT(*) FROM match WHERE blob_id = ?`, id.String()).Scan(&matchCount); err != nil {
		t.Fatalf("querying match: %v", err)
	}
	if matchCount != 1 {
		t.Errorf("matchCount = %d, want 1 (duplicate span should be ignored)", matchCount)
	}
}

func TestWriter_Write_ProvenanceOnlyLinksWithoutNewMatch(t *testing.T) {
	ds := newTestDatastore(t)
	w := NewWriter(ds, WriterOptions{})

	id := testBlobID("hello world")
	first := pipeline.ResultItem{
		Kind:       pipeline.KindMatches,
		BlobID:     id,
		BlobSize:   11,
		Provenance: []provenance.Provenance{provenance.NewFile("a.txt")},
	}
	if err := w.Write(first); err != nil {
		t.Fatalf("Write first: %v", err)
	}

	second := pipeline.ResultItem{
		Kind:       pipeline.KindProvenanceOnly,
		BlobID:     id,
		Provenance: []provenance.Provenance{provenance.NewFile("b.txt")},
	}
	if err := w.Write(second); err != nil {
		t.Fatalf("Write second: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	var linkCount int
	err := ds.db.QueryRow(`SELECT COUNT(*) FROM blob_provenance WHERE blob_id = ?`, id.String()).Scan(&linkCount)
	if err != nil {
		t.Fatalf("querying blob_provenance: %v", err)
	}
	if linkCount != 2 {
		t.Errorf("linkCount = %d, want 2", linkCount)
	}
}

func TestWriter_Write_BlobSeenIsNoOp(t *testing.T) {
	ds := newTestDatastore(t)
	w := NewWriter(ds, WriterOptions{})

	item := pipeline.ResultItem{
		Kind:   pipeline.KindBlobSeen,
		BlobID: testBlobID("hello world"),
	}
	if err := w.Write(item); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	var blobCount int
	if err := ds.db.QueryRow(`SELECT COUNT(*) FROM blob`).Scan(&blobCount); err != nil {
		t.Fatalf("querying blob: %v", err)
	}
	if blobCount != 0 {
		t.Errorf("blobCount = %d, want 0 for a pure telemetry event", blobCount)
	}
}

func TestWriter_Write_CommitsWhenBatchRowThresholdReached(t *testing.T) {
	ds := newTestDatastore(t)
	w := NewWriter(ds, WriterOptions{BatchRows: 2, BatchInterval: time.Hour})

	for i := 0; i < 2; i++ {
		item := pipeline.ResultItem{
			Kind:       pipeline.KindMatches,
			BlobID:     testBlobID(string(rune('a' + i))),
			BlobSize:   1,
			Provenance: []provenance.Provenance{provenance.NewFile("x.txt")},
		}
		if err := w.Write(item); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	if w.tx != nil {
		t.Error("expected transaction to be committed once the row threshold was reached")
	}
}

func TestWriter_Flush_NoOpWithoutOpenTransaction(t *testing.T) {
	ds := newTestDatastore(t)
	w := NewWriter(ds, WriterOptions{})
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush on idle writer: %v", err)
	}
}
