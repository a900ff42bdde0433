// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package datastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/kraklabs/noseyparker/pkg/findings"
	"github.com/kraklabs/noseyparker/pkg/matcher"
	"github.com/kraklabs/noseyparker/pkg/pipeline"
	"github.com/kraklabs/noseyparker/pkg/provenance"
)

// defaultBatchRows and defaultBatchInterval are the count-or-time batching
// thresholds for a transaction: whichever is reached first closes the
// current batch.
const (
	defaultBatchRows     = 500
	defaultBatchInterval = 200 * time.Millisecond
)

// WriterOptions configures a Writer's batching policy.
type WriterOptions struct {
	BatchRows     int
	BatchInterval time.Duration
	Logger        *slog.Logger
}

func (o WriterOptions) batchRows() int {
	if o.BatchRows > 0 {
		return o.BatchRows
	}
	return defaultBatchRows
}

func (o WriterOptions) batchInterval() time.Duration {
	if o.BatchInterval > 0 {
		return o.BatchInterval
	}
	return defaultBatchInterval
}

func (o WriterOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// Writer is the single owner of the datastore's write handle during a
// scan, implementing pipeline.Writer. It batches incoming ResultItems into
// a transaction closed every BatchRows rows or BatchInterval, whichever
// comes first.
type Writer struct {
	db   *sql.DB
	opts WriterOptions

	grouper *findings.Grouper

	tx         *sql.Tx
	rowsInTx   int
	batchStart time.Time
}

// NewWriter returns a Writer over ds's connection.
func NewWriter(ds *Datastore, opts WriterOptions) *Writer {
	return &Writer{
		db:      ds.db,
		opts:    opts,
		grouper: findings.NewGrouper(),
	}
}

var _ pipeline.Writer = (*Writer)(nil)

// Write persists one ResultItem, opening a transaction if none is open,
// and commits (and reopens) when the batch thresholds are reached.
func (w *Writer) Write(item pipeline.ResultItem) error {
	if w.tx == nil {
		if err := w.begin(); err != nil {
			return err
		}
	}

	switch item.Kind {
	case pipeline.KindMatches:
		if err := w.writeMatches(item); err != nil {
			return err
		}
	case pipeline.KindProvenanceOnly:
		if err := w.writeProvenanceOnly(item); err != nil {
			return err
		}
	case pipeline.KindBlobSeen:
		// Pure telemetry; nothing to persist.
	}

	w.rowsInTx++
	if w.rowsInTx >= w.opts.batchRows() || time.Since(w.batchStart) >= w.opts.batchInterval() {
		return w.commitWithRetry()
	}
	return nil
}

// Flush commits any still-open transaction. Called once, after the result
// channel has drained, as the final step of the scan-completion barrier.
func (w *Writer) Flush() error {
	if w.tx == nil {
		return nil
	}
	return w.commitWithRetry()
}

func (w *Writer) begin() error {
	tx, err := w.db.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("datastore: begin batch transaction: %w", err)
	}
	w.tx = tx
	w.rowsInTx = 0
	w.batchStart = time.Now()
	return nil
}

// commitWithRetry commits the current transaction, retrying a bounded
// number of times with exponential backoff on transient failure. A scan
// aborts if the failure persists past the retry budget.
func (w *Writer) commitWithRetry() error {
	const maxAttempts = 5
	backoff := 10 * time.Millisecond

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = w.tx.Commit()
		if err == nil {
			w.tx = nil
			return nil
		}
		w.opts.logger().Warn("datastore.commit.retry", "attempt", attempt, "error", err)
		time.Sleep(backoff)
		backoff *= 2
	}

	w.tx = nil
	return fmt.Errorf("datastore: commit failed after %d attempts: %w", maxAttempts, err)
}

func (w *Writer) writeMatches(item pipeline.ResultItem) error {
	if err := w.insertBlob(item.BlobID.String(), item.BlobSize); err != nil {
		return err
	}
	for _, p := range item.Provenance {
		if err := w.linkProvenance(item.BlobID.String(), p); err != nil {
			return err
		}
	}

	for _, m := range item.Matches {
		matchID, isNew, err := w.insertMatch(item.BlobID.String(), m)
		if err != nil {
			return err
		}
		if !isNew {
			continue
		}
		if err := w.groupAndLinkFinding(matchID, m); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeProvenanceOnly(item pipeline.ResultItem) error {
	for _, p := range item.Provenance {
		if err := w.linkProvenance(item.BlobID.String(), p); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) insertBlob(blobID string, size int) error {
	_, err := w.tx.Exec(
		`INSERT OR IGNORE INTO blob (blob_id, size) VALUES (?, ?)`,
		blobID, size,
	)
	if err != nil {
		return fmt.Errorf("datastore: inserting blob %s: %w", blobID, err)
	}
	return nil
}

func (w *Writer) linkProvenance(blobID string, p provenance.Provenance) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("datastore: marshaling provenance: %w", err)
	}

	_, err = w.tx.Exec(
		`INSERT OR IGNORE INTO provenance (kind, payload) VALUES (?, ?)`,
		string(p.Kind), string(payload),
	)
	if err != nil {
		return fmt.Errorf("datastore: inserting provenance: %w", err)
	}

	var provID int64
	err = w.tx.QueryRow(
		`SELECT id FROM provenance WHERE kind = ? AND payload = ?`,
		string(p.Kind), string(payload),
	).Scan(&provID)
	if err != nil {
		return fmt.Errorf("datastore: resolving provenance id: %w", err)
	}

	_, err = w.tx.Exec(
		`INSERT OR IGNORE INTO blob_provenance (blob_id, provenance_id) VALUES (?, ?)`,
		blobID, provID,
	)
	if err != nil {
		return fmt.Errorf("datastore: linking blob %s to provenance: %w", blobID, err)
	}
	return nil
}

// insertMatch inserts a match row, returning its id and whether it was
// newly inserted (false if an identical (blob_id, rule_id, start, end)
// match already existed).
func (w *Writer) insertMatch(blobID string, m matcher.RawMatch) (int64, bool, error) {
	groupsJSON, err := json.Marshal(m.Groups)
	if err != nil {
		return 0, false, fmt.Errorf("datastore: marshaling match groups: %w", err)
	}

	res, err := w.tx.Exec(
		`INSERT OR IGNORE INTO match
			(blob_id, rule_id, start_byte, end_byte, start_line, start_column, end_line, end_column,
			 groups, snippet_before, snippet_matching, snippet_after)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		blobID, m.RuleID, m.Start, m.End,
		m.Location.StartLine, m.Location.StartColumn, m.Location.EndLine, m.Location.EndColumn,
		string(groupsJSON), m.Snippet.Before, m.Snippet.Matching, m.Snippet.After,
	)
	if err != nil {
		return 0, false, fmt.Errorf("datastore: inserting match: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("datastore: checking match insert: %w", err)
	}
	if affected == 0 {
		var id int64
		err := w.tx.QueryRow(
			`SELECT id FROM match WHERE blob_id = ? AND rule_id = ? AND start_byte = ? AND end_byte = ?`,
			blobID, m.RuleID, m.Start, m.End,
		).Scan(&id)
		return id, false, err
	}

	id, err := res.LastInsertId()
	return id, true, err
}

func (w *Writer) groupAndLinkFinding(matchID int64, m matcher.RawMatch) error {
	fp := findings.FingerprintMatch(m)
	findingID := findings.ID(m.RuleID, fp)

	_, err := w.tx.Exec(
		`INSERT OR IGNORE INTO finding (id, rule_id, group_fingerprint) VALUES (?, ?, ?)`,
		findingID[:], m.RuleID, fp,
	)
	if err != nil {
		return fmt.Errorf("datastore: inserting finding: %w", err)
	}

	_, err = w.tx.Exec(
		`INSERT OR IGNORE INTO match_finding (match_id, finding_id) VALUES (?, ?)`,
		matchID, findingID[:],
	)
	if err != nil {
		return fmt.Errorf("datastore: linking match to finding: %w", err)
	}

	w.grouper.Add(m)
	return nil
}
