// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package findings groups raw matches into deduplicated findings by rule
// and normalized capture-group content.
package findings

import (
	"bytes"
	"crypto/sha1"

	"github.com/kraklabs/noseyparker/pkg/matcher"
)

// fingerprintSeparator joins capture-group bytes; NUL cannot appear in any
// group's matched content since rule patterns operate on text.
const fingerprintSeparator = 0x00

// Fingerprint computes the group fingerprint for a match: the case-preserved
// bytes of each non-ignored capture group, NUL-joined in extraction order.
// Two matches under the same rule with equal fingerprints are the same
// finding.
func Fingerprint(groups [][]byte) []byte {
	var buf bytes.Buffer
	for i, g := range groups {
		if i > 0 {
			buf.WriteByte(fingerprintSeparator)
		}
		buf.Write(g)
	}
	return buf.Bytes()
}

// FingerprintMatch is a convenience wrapper computing Fingerprint directly
// from a matcher.RawMatch's groups.
func FingerprintMatch(m matcher.RawMatch) []byte {
	groups := make([][]byte, len(m.Groups))
	for i, g := range m.Groups {
		groups[i] = g.Bytes
	}
	return Fingerprint(groups)
}

// ID is a finding's stable identity: a fixed 16-byte digest of
// rule_id || NUL || fingerprint. SHA-1, truncated to 16 bytes, stands in
// for a dedicated 128-bit hash (no blake3 dependency is available anywhere
// in the example corpus; see DESIGN.md).
func ID(ruleID string, fingerprint []byte) [16]byte {
	h := sha1.New()
	h.Write([]byte(ruleID))
	h.Write([]byte{fingerprintSeparator})
	h.Write(fingerprint)

	var id [16]byte
	copy(id[:], h.Sum(nil))
	return id
}

// Finding is a group of matches sharing (rule_id, fingerprint).
type Finding struct {
	ID          [16]byte
	RuleID      string
	Fingerprint []byte
	Matches     []matcher.RawMatch
}

// Grouper accumulates matches into findings incrementally, as the writer
// commits them, so a report can be assembled without a second pass over
// every match.
type Grouper struct {
	byID map[[16]byte]*Finding
}

// NewGrouper returns an empty Grouper.
func NewGrouper() *Grouper {
	return &Grouper{byID: make(map[[16]byte]*Finding)}
}

// Add folds m into its finding, creating one if this is the first match
// seen for its (rule_id, fingerprint) pair. Returns the finding's id.
func (g *Grouper) Add(m matcher.RawMatch) [16]byte {
	fp := FingerprintMatch(m)
	id := ID(m.RuleID, fp)

	f, ok := g.byID[id]
	if !ok {
		f = &Finding{ID: id, RuleID: m.RuleID, Fingerprint: fp}
		g.byID[id] = f
	}
	f.Matches = append(f.Matches, m)
	return id
}

// Findings returns every finding accumulated so far. Order is unspecified;
// callers needing a stable order should sort by ID.
func (g *Grouper) Findings() []*Finding {
	out := make([]*Finding, 0, len(g.byID))
	for _, f := range g.byID {
		out = append(out, f)
	}
	return out
}

// Len reports the number of distinct findings accumulated so far.
func (g *Grouper) Len() int {
	return len(g.byID)
}
