// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package datastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kraklabs/noseyparker/pkg/matcher"
	"github.com/kraklabs/noseyparker/pkg/provenance"
)

// FindingFilter narrows ListFindings. A zero-value filter matches every
// finding.
type FindingFilter struct {
	RuleID string
	Status string
}

// FindingSummary is one row of a findings listing: enough to print a
// summary table or a JSON line's envelope fields without pulling every
// match.
type FindingSummary struct {
	ID          [16]byte
	RuleID      string
	RuleName    string
	Fingerprint []byte
	NumMatches  int
	Status      string
	Comment     string
}

// MatchDetail is one match belonging to a finding, joined against its
// blob's provenance rows.
type MatchDetail struct {
	BlobID     string
	Provenance []provenance.Provenance
	StartByte  int
	EndByte    int
	Location   matcher.Location
	Snippet    matcher.Snippet
}

// FindingDetail is a finding plus its capture groups and up to a caller
// chosen number of its matches, the shape pkg/report renders per finding.
type FindingDetail struct {
	FindingSummary
	Groups  []matcher.GroupSpan
	Matches []MatchDetail
}

// ListFindings returns every finding matching filter, ordered by id for a
// stable, reproducible report ordering.
func (d *Datastore) ListFindings(ctx context.Context, filter FindingFilter) ([]FindingSummary, error) {
	query := `
		SELECT f.id, f.rule_id, r.name, f.group_fingerprint, f.status, f.comment,
		       (SELECT COUNT(*) FROM match_finding mf WHERE mf.finding_id = f.id)
		FROM finding f
		JOIN rule r ON r.id = f.rule_id
		WHERE 1 = 1`
	var args []any
	if filter.RuleID != "" {
		query += ` AND f.rule_id = ?`
		args = append(args, filter.RuleID)
	}
	if filter.Status != "" {
		query += ` AND f.status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY f.id`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("datastore: listing findings: %w", err)
	}
	defer rows.Close()

	var out []FindingSummary
	for rows.Next() {
		var s FindingSummary
		var id []byte
		var comment sql.NullString
		if err := rows.Scan(&id, &s.RuleID, &s.RuleName, &s.Fingerprint, &s.Status, &comment, &s.NumMatches); err != nil {
			return nil, fmt.Errorf("datastore: scanning finding row: %w", err)
		}
		copy(s.ID[:], id)
		s.Comment = comment.String
		out = append(out, s)
	}
	return out, rows.Err()
}

// FindingDetailByID loads one finding's full detail, including up to
// maxMatches of its matches (0 means unlimited), ordered by match id for
// a deterministic "first seen" order.
func (d *Datastore) FindingDetailByID(ctx context.Context, id [16]byte, maxMatches int) (*FindingDetail, error) {
	var fd FindingDetail
	var rawID []byte
	var comment sql.NullString
	err := d.db.QueryRowContext(ctx,
		`SELECT f.id, f.rule_id, r.name, f.group_fingerprint, f.status, f.comment
		 FROM finding f JOIN rule r ON r.id = f.rule_id
		 WHERE f.id = ?`,
		id[:],
	).Scan(&rawID, &fd.RuleID, &fd.RuleName, &fd.Fingerprint, &fd.Status, &comment)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("datastore: no finding with id %x", id)
	}
	if err != nil {
		return nil, fmt.Errorf("datastore: loading finding %x: %w", id, err)
	}
	fd.ID = id
	fd.Comment = comment.String

	total, err := d.NumMatchesForFinding(ctx, id)
	if err != nil {
		return nil, err
	}
	fd.NumMatches = total

	matches, err := d.matchesForFinding(ctx, id, maxMatches)
	if err != nil {
		return nil, err
	}
	fd.Matches = matches
	if len(matches) > 0 {
		fd.Groups, err = d.groupsForFirstMatch(ctx, id)
		if err != nil {
			return nil, err
		}
	}
	return &fd, nil
}

func (d *Datastore) matchesForFinding(ctx context.Context, id [16]byte, maxMatches int) ([]MatchDetail, error) {
	query := `
		SELECT m.id, m.blob_id, m.start_byte, m.end_byte,
		       m.start_line, m.start_column, m.end_line, m.end_column,
		       m.snippet_before, m.snippet_matching, m.snippet_after
		FROM match m
		JOIN match_finding mf ON mf.match_id = m.id
		WHERE mf.finding_id = ?
		ORDER BY m.id`
	if maxMatches > 0 {
		query += fmt.Sprintf(` LIMIT %d`, maxMatches)
	}

	rows, err := d.db.QueryContext(ctx, query, id[:])
	if err != nil {
		return nil, fmt.Errorf("datastore: listing matches for finding %x: %w", id, err)
	}
	defer rows.Close()

	var out []MatchDetail
	for rows.Next() {
		var matchID int64
		var md MatchDetail
		if err := rows.Scan(&matchID, &md.BlobID, &md.StartByte, &md.EndByte,
			&md.Location.StartLine, &md.Location.StartColumn, &md.Location.EndLine, &md.Location.EndColumn,
			&md.Snippet.Before, &md.Snippet.Matching, &md.Snippet.After); err != nil {
			return nil, fmt.Errorf("datastore: scanning match row: %w", err)
		}

		prov, err := d.provenanceForBlob(ctx, md.BlobID)
		if err != nil {
			return nil, err
		}
		md.Provenance = prov
		out = append(out, md)
	}
	return out, rows.Err()
}

func (d *Datastore) provenanceForBlob(ctx context.Context, blobID string) ([]provenance.Provenance, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT p.payload FROM provenance p
		 JOIN blob_provenance bp ON bp.provenance_id = p.id
		 WHERE bp.blob_id = ?
		 ORDER BY p.id`,
		blobID,
	)
	if err != nil {
		return nil, fmt.Errorf("datastore: listing provenance for blob %s: %w", blobID, err)
	}
	defer rows.Close()

	var out []provenance.Provenance
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("datastore: scanning provenance row: %w", err)
		}
		var p provenance.Provenance
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, fmt.Errorf("datastore: decoding provenance payload: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (d *Datastore) groupsForFirstMatch(ctx context.Context, id [16]byte) ([]matcher.GroupSpan, error) {
	var groupsJSON string
	err := d.db.QueryRowContext(ctx,
		`SELECT m.groups FROM match m
		 JOIN match_finding mf ON mf.match_id = m.id
		 WHERE mf.finding_id = ?
		 ORDER BY m.id LIMIT 1`,
		id[:],
	).Scan(&groupsJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("datastore: loading groups for finding %x: %w", id, err)
	}

	var groups []matcher.GroupSpan
	if err := json.Unmarshal([]byte(groupsJSON), &groups); err != nil {
		return nil, fmt.Errorf("datastore: decoding groups: %w", err)
	}
	return groups, nil
}

// NumMatchesForFinding counts every match belonging to id, independent of
// any maxMatches truncation applied by FindingDetailByID.
func (d *Datastore) NumMatchesForFinding(ctx context.Context, id [16]byte) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM match_finding WHERE finding_id = ?`, id[:],
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("datastore: counting matches for finding %x: %w", id, err)
	}
	return n, nil
}

// SetFindingStatus updates a finding's status/comment, the annotation
// subsystem's write path. A scan itself never writes status.
func (d *Datastore) SetFindingStatus(ctx context.Context, id [16]byte, status, comment string) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE finding SET status = ?, comment = ? WHERE id = ?`,
		status, comment, id[:],
	)
	if err != nil {
		return fmt.Errorf("datastore: updating finding %x: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("datastore: no finding with id %x", id)
	}
	return nil
}
