// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package datastore

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
)

// exportRecord is the line-delimited unit Export writes: one record per
// row across every table, tagged with the table it came from so Import
// can route it back to the matching INSERT. Tables are written (and must
// be imported) in foreign-key dependency order.
type exportRecord struct {
	Table string          `json:"table"`
	Data  json.RawMessage `json:"data"`
}

type ruleRow struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Pattern    string `json:"pattern"`
	Categories string `json:"categories"`
	MinLength  int    `json:"min_length"`
	MaxOffset  int    `json:"max_offset"`
}

type rulesetRow struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type rulesetRuleRow struct {
	RulesetID string `json:"ruleset_id"`
	RuleID    string `json:"rule_id"`
}

// BlobID is a string, not []byte: the rest of the datastore always binds
// blob_id as a Go string (blob.ID.String()), which SQLite stores with
// storage class TEXT even though the column's declared affinity is BLOB
// (BLOB-affinity columns store values as given, with no conversion).
// Binding []byte here instead would store a BLOB-class value that no
// query joining on blob_id as a string could ever match.
type blobRow struct {
	BlobID string `json:"blob_id"`
	Size   int    `json:"size"`
}

type provenanceRow struct {
	ID      int64  `json:"id"`
	Kind    string `json:"kind"`
	Payload string `json:"payload"`
}

type blobProvenanceRow struct {
	BlobID       string `json:"blob_id"`
	ProvenanceID int64  `json:"provenance_id"`
}

type matchRow struct {
	ID              int64  `json:"id"`
	BlobID          string `json:"blob_id"`
	RuleID          string `json:"rule_id"`
	StartByte       int    `json:"start_byte"`
	EndByte         int    `json:"end_byte"`
	StartLine       int    `json:"start_line"`
	StartColumn     int    `json:"start_column"`
	EndLine         int    `json:"end_line"`
	EndColumn       int    `json:"end_column"`
	Groups          string `json:"groups"`
	SnippetBefore   []byte `json:"snippet_before"`
	SnippetMatching []byte `json:"snippet_matching"`
	SnippetAfter    []byte `json:"snippet_after"`
}

type findingRow struct {
	ID               []byte `json:"id"`
	RuleID           string `json:"rule_id"`
	GroupFingerprint []byte `json:"group_fingerprint"`
	Status           string `json:"status"`
	Comment          string `json:"comment"`
}

type matchFindingRow struct {
	MatchID   int64  `json:"match_id"`
	FindingID []byte `json:"finding_id"`
}

type scanRow struct {
	ID         int64  `json:"id"`
	RunID      string `json:"run_id"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
	Cancelled  int    `json:"cancelled"`
}

// Export writes every row in the datastore to w as newline-delimited
// exportRecord JSON, in dependency order, so Import into a fresh
// datastore reconstructs a database that a `report --format jsonl` run
// over it emits byte-identical output from (modulo ordering).
func (d *Datastore) Export(ctx context.Context, w io.Writer) error {
	enc := json.NewEncoder(w)

	emit := func(table string, v interface{}) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("datastore: marshaling %s row: %w", table, err)
		}
		return enc.Encode(exportRecord{Table: table, Data: data})
	}

	if err := d.exportRules(ctx, emit); err != nil {
		return err
	}
	if err := d.exportRulesets(ctx, emit); err != nil {
		return err
	}
	if err := d.exportBlobs(ctx, emit); err != nil {
		return err
	}
	if err := d.exportProvenance(ctx, emit); err != nil {
		return err
	}
	if err := d.exportMatches(ctx, emit); err != nil {
		return err
	}
	if err := d.exportFindings(ctx, emit); err != nil {
		return err
	}
	if err := d.exportScans(ctx, emit); err != nil {
		return err
	}
	return nil
}

type emitFunc func(table string, v interface{}) error

func (d *Datastore) exportRules(ctx context.Context, emit emitFunc) error {
	rows, err := d.db.QueryContext(ctx, `SELECT id, name, pattern, COALESCE(categories, ''), min_length, max_offset FROM rule ORDER BY id`)
	if err != nil {
		return fmt.Errorf("datastore: exporting rules: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r ruleRow
		if err := rows.Scan(&r.ID, &r.Name, &r.Pattern, &r.Categories, &r.MinLength, &r.MaxOffset); err != nil {
			return err
		}
		if err := emit("rule", r); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (d *Datastore) exportRulesets(ctx context.Context, emit emitFunc) error {
	rows, err := d.db.QueryContext(ctx, `SELECT id, name FROM ruleset ORDER BY id`)
	if err != nil {
		return fmt.Errorf("datastore: exporting rulesets: %w", err)
	}
	var sets []rulesetRow
	for rows.Next() {
		var r rulesetRow
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			rows.Close()
			return err
		}
		sets = append(sets, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for _, r := range sets {
		if err := emit("ruleset", r); err != nil {
			return err
		}
	}

	rrRows, err := d.db.QueryContext(ctx, `SELECT ruleset_id, rule_id FROM ruleset_rule ORDER BY ruleset_id, rule_id`)
	if err != nil {
		return fmt.Errorf("datastore: exporting ruleset_rule: %w", err)
	}
	defer rrRows.Close()
	for rrRows.Next() {
		var r rulesetRuleRow
		if err := rrRows.Scan(&r.RulesetID, &r.RuleID); err != nil {
			return err
		}
		if err := emit("ruleset_rule", r); err != nil {
			return err
		}
	}
	return rrRows.Err()
}

func (d *Datastore) exportBlobs(ctx context.Context, emit emitFunc) error {
	rows, err := d.db.QueryContext(ctx, `SELECT blob_id, size FROM blob ORDER BY blob_id`)
	if err != nil {
		return fmt.Errorf("datastore: exporting blobs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r blobRow
		if err := rows.Scan(&r.BlobID, &r.Size); err != nil {
			return err
		}
		if err := emit("blob", r); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (d *Datastore) exportProvenance(ctx context.Context, emit emitFunc) error {
	rows, err := d.db.QueryContext(ctx, `SELECT id, kind, payload FROM provenance ORDER BY id`)
	if err != nil {
		return fmt.Errorf("datastore: exporting provenance: %w", err)
	}
	var recs []provenanceRow
	for rows.Next() {
		var r provenanceRow
		if err := rows.Scan(&r.ID, &r.Kind, &r.Payload); err != nil {
			rows.Close()
			return err
		}
		recs = append(recs, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for _, r := range recs {
		if err := emit("provenance", r); err != nil {
			return err
		}
	}

	bpRows, err := d.db.QueryContext(ctx, `SELECT blob_id, provenance_id FROM blob_provenance ORDER BY blob_id, provenance_id`)
	if err != nil {
		return fmt.Errorf("datastore: exporting blob_provenance: %w", err)
	}
	defer bpRows.Close()
	for bpRows.Next() {
		var r blobProvenanceRow
		if err := bpRows.Scan(&r.BlobID, &r.ProvenanceID); err != nil {
			return err
		}
		if err := emit("blob_provenance", r); err != nil {
			return err
		}
	}
	return bpRows.Err()
}

func (d *Datastore) exportMatches(ctx context.Context, emit emitFunc) error {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, blob_id, rule_id, start_byte, end_byte, start_line, start_column,
		       end_line, end_column, groups, snippet_before, snippet_matching, snippet_after
		FROM match ORDER BY id`)
	if err != nil {
		return fmt.Errorf("datastore: exporting matches: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r matchRow
		if err := rows.Scan(&r.ID, &r.BlobID, &r.RuleID, &r.StartByte, &r.EndByte,
			&r.StartLine, &r.StartColumn, &r.EndLine, &r.EndColumn,
			&r.Groups, &r.SnippetBefore, &r.SnippetMatching, &r.SnippetAfter); err != nil {
			return err
		}
		if err := emit("match", r); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (d *Datastore) exportFindings(ctx context.Context, emit emitFunc) error {
	rows, err := d.db.QueryContext(ctx, `SELECT id, rule_id, group_fingerprint, status, COALESCE(comment, '') FROM finding ORDER BY id`)
	if err != nil {
		return fmt.Errorf("datastore: exporting findings: %w", err)
	}
	var recs []findingRow
	for rows.Next() {
		var r findingRow
		if err := rows.Scan(&r.ID, &r.RuleID, &r.GroupFingerprint, &r.Status, &r.Comment); err != nil {
			rows.Close()
			return err
		}
		recs = append(recs, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for _, r := range recs {
		if err := emit("finding", r); err != nil {
			return err
		}
	}

	mfRows, err := d.db.QueryContext(ctx, `SELECT match_id, finding_id FROM match_finding ORDER BY match_id, finding_id`)
	if err != nil {
		return fmt.Errorf("datastore: exporting match_finding: %w", err)
	}
	defer mfRows.Close()
	for mfRows.Next() {
		var r matchFindingRow
		if err := mfRows.Scan(&r.MatchID, &r.FindingID); err != nil {
			return err
		}
		if err := emit("match_finding", r); err != nil {
			return err
		}
	}
	return mfRows.Err()
}

func (d *Datastore) exportScans(ctx context.Context, emit emitFunc) error {
	rows, err := d.db.QueryContext(ctx, `SELECT id, run_id, started_at, COALESCE(finished_at, ''), cancelled FROM scan ORDER BY id`)
	if err != nil {
		return fmt.Errorf("datastore: exporting scans: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r scanRow
		if err := rows.Scan(&r.ID, &r.RunID, &r.StartedAt, &r.FinishedAt, &r.Cancelled); err != nil {
			return err
		}
		if err := emit("scan", r); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Import reads newline-delimited exportRecord JSON from r (as produced by
// Export) into d, which must be empty. Rows are inserted inside a single
// transaction so a malformed stream leaves d untouched.
func (d *Datastore) Import(ctx context.Context, r io.Reader) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("datastore: begin import: %w", err)
	}
	defer tx.Rollback()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec exportRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("datastore: import line %d: %w", lineNo, err)
		}
		if err := importRow(ctx, tx, rec); err != nil {
			return fmt.Errorf("datastore: import line %d (%s): %w", lineNo, rec.Table, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("datastore: reading import stream: %w", err)
	}

	return tx.Commit()
}

func importRow(ctx context.Context, tx *sql.Tx, rec exportRecord) error {
	switch rec.Table {
	case "rule":
		var r ruleRow
		if err := json.Unmarshal(rec.Data, &r); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO rule (id, name, pattern, categories, min_length, max_offset) VALUES (?, ?, ?, ?, ?, ?)`,
			r.ID, r.Name, r.Pattern, r.Categories, r.MinLength, r.MaxOffset)
		return err

	case "ruleset":
		var r rulesetRow
		if err := json.Unmarshal(rec.Data, &r); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO ruleset (id, name) VALUES (?, ?)`, r.ID, r.Name)
		return err

	case "ruleset_rule":
		var r rulesetRuleRow
		if err := json.Unmarshal(rec.Data, &r); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO ruleset_rule (ruleset_id, rule_id) VALUES (?, ?)`, r.RulesetID, r.RuleID)
		return err

	case "blob":
		var r blobRow
		if err := json.Unmarshal(rec.Data, &r); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO blob (blob_id, size) VALUES (?, ?)`, r.BlobID, r.Size)
		return err

	case "provenance":
		var r provenanceRow
		if err := json.Unmarshal(rec.Data, &r); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO provenance (id, kind, payload) VALUES (?, ?, ?)`, r.ID, r.Kind, r.Payload)
		return err

	case "blob_provenance":
		var r blobProvenanceRow
		if err := json.Unmarshal(rec.Data, &r); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO blob_provenance (blob_id, provenance_id) VALUES (?, ?)`, r.BlobID, r.ProvenanceID)
		return err

	case "match":
		var r matchRow
		if err := json.Unmarshal(rec.Data, &r); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO match (id, blob_id, rule_id, start_byte, end_byte, start_line, start_column,
			                    end_line, end_column, groups, snippet_before, snippet_matching, snippet_after)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.BlobID, r.RuleID, r.StartByte, r.EndByte, r.StartLine, r.StartColumn,
			r.EndLine, r.EndColumn, r.Groups, r.SnippetBefore, r.SnippetMatching, r.SnippetAfter)
		return err

	case "finding":
		var r findingRow
		if err := json.Unmarshal(rec.Data, &r); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO finding (id, rule_id, group_fingerprint, status, comment) VALUES (?, ?, ?, ?, ?)`,
			r.ID, r.RuleID, r.GroupFingerprint, r.Status, r.Comment)
		return err

	case "match_finding":
		var r matchFindingRow
		if err := json.Unmarshal(rec.Data, &r); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO match_finding (match_id, finding_id) VALUES (?, ?)`, r.MatchID, r.FindingID)
		return err

	case "scan":
		var r scanRow
		if err := json.Unmarshal(rec.Data, &r); err != nil {
			return err
		}
		var finishedAt interface{}
		if r.FinishedAt != "" {
			finishedAt = r.FinishedAt
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO scan (id, run_id, started_at, finished_at, cancelled) VALUES (?, ?, ?, ?, ?)`,
			r.ID, r.RunID, r.StartedAt, finishedAt, r.Cancelled)
		return err

	default:
		return fmt.Errorf("unknown table %q", rec.Table)
	}
}
