// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package report renders the findings accumulated in a pkg/datastore
// datastore into the four output shapes the `report` and `summarize`
// subcommands expose: human, json, jsonl, and sarif. It is the one
// package allowed to depend on both pkg/datastore (for the read path)
// and internal/output/internal/ui (for the encoding and color helpers
// the shapes are built from).
package report

import (
	"encoding/base64"
	"encoding/hex"

	"github.com/kraklabs/noseyparker/pkg/datastore"
	"github.com/kraklabs/noseyparker/pkg/provenance"
)

// Format selects one of the four supported rendering shapes.
type Format string

const (
	FormatHuman Format = "human"
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatSARIF Format = "sarif"
)

// RuleRef names a finding's rule as a `rule: { id, name }` pair.
type RuleRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SnippetJSON is a match's context window, base64-encoded since the
// underlying bytes can span an arbitrary binary blob, not just text.
type SnippetJSON struct {
	Before   string `json:"before"`
	Matching string `json:"matching"`
	After    string `json:"after"`
}

// LocationJSON is a match's span translated into both byte offsets and
// 1-based line/column coordinates.
type LocationJSON struct {
	StartByte   int `json:"start_byte"`
	EndByte     int `json:"end_byte"`
	StartLine   int `json:"start_line"`
	StartColumn int `json:"start_column"`
	EndLine     int `json:"end_line"`
	EndColumn   int `json:"end_column"`
}

// CommitJSON carries a GitRepo provenance row's commit metadata, when
// present.
type CommitJSON struct {
	CommitID           string `json:"commit_id"`
	CommitterName      string `json:"committer_name,omitempty"`
	CommitterEmail     string `json:"committer_email,omitempty"`
	CommitterTimestamp string `json:"committer_timestamp,omitempty"`
	AuthorName         string `json:"author_name,omitempty"`
	AuthorEmail        string `json:"author_email,omitempty"`
	AuthorTimestamp    string `json:"author_timestamp,omitempty"`
	Message            string `json:"message,omitempty"`
}

// ProvenanceJSON is one way a blob was discovered, a tagged-union view of
// provenance.Provenance suited for external JSON rather than Go field
// names.
type ProvenanceJSON struct {
	Kind string `json:"kind"`

	Path string `json:"path,omitempty"`

	RepoPath          string      `json:"repo_path,omitempty"`
	FirstSeenCommitID string      `json:"first_seen_commit_id,omitempty"`
	PathInTree        string      `json:"path_in_tree,omitempty"`
	Commit            *CommitJSON `json:"commit,omitempty"`

	RepoURL string `json:"repo_url,omitempty"`

	Name    string            `json:"name,omitempty"`
	Payload map[string]string `json:"payload,omitempty"`
}

func toProvenanceJSON(p provenance.Provenance) ProvenanceJSON {
	pj := ProvenanceJSON{
		Kind:              string(p.Kind),
		Path:              p.Path,
		RepoPath:          p.RepoPath,
		FirstSeenCommitID: p.FirstSeenCommitID,
		PathInTree:        p.PathInTree,
		RepoURL:           p.RepoURL,
		Name:              p.Name,
		Payload:           p.Payload,
	}
	if p.Commit != nil {
		pj.Commit = &CommitJSON{
			CommitID:           p.Commit.CommitID,
			CommitterName:      p.Commit.CommitterName,
			CommitterEmail:     p.Commit.CommitterEmail,
			CommitterTimestamp: p.Commit.CommitterTimestamp,
			AuthorName:         p.Commit.AuthorName,
			AuthorEmail:        p.Commit.AuthorEmail,
			AuthorTimestamp:    p.Commit.AuthorTimestamp,
			Message:            p.Commit.Message,
		}
	}
	return pj
}

// MatchJSON is one match belonging to a finding.
type MatchJSON struct {
	BlobID     string           `json:"blob_id"`
	Provenance []ProvenanceJSON `json:"provenance"`
	Location   LocationJSON     `json:"location"`
	Snippet    SnippetJSON      `json:"snippet"`
}

func toMatchJSON(m datastore.MatchDetail) MatchJSON {
	provs := make([]ProvenanceJSON, 0, len(m.Provenance))
	for _, p := range m.Provenance {
		provs = append(provs, toProvenanceJSON(p))
	}
	return MatchJSON{
		BlobID:     m.BlobID,
		Provenance: provs,
		Location: LocationJSON{
			StartByte:   m.StartByte,
			EndByte:     m.EndByte,
			StartLine:   m.Location.StartLine,
			StartColumn: m.Location.StartColumn,
			EndLine:     m.Location.EndLine,
			EndColumn:   m.Location.EndColumn,
		},
		Snippet: SnippetJSON{
			Before:   base64.StdEncoding.EncodeToString(m.Snippet.Before),
			Matching: base64.StdEncoding.EncodeToString(m.Snippet.Matching),
			After:    base64.StdEncoding.EncodeToString(m.Snippet.After),
		},
	}
}

// FindingJSON is one finding: one line for jsonl, one array element for
// json.
type FindingJSON struct {
	FindingID  string      `json:"finding_id"`
	Rule       RuleRef     `json:"rule"`
	Groups     []string    `json:"groups"`
	NumMatches int         `json:"num_matches"`
	Matches    []MatchJSON `json:"matches"`
	Status     string      `json:"status,omitempty"`
}

// ToFindingJSON converts a datastore finding detail into the wire shape.
// Status is omitted entirely when it's the default "unlabeled" value, so
// a freshly scanned (never annotated) finding's JSON keeps status optional
// rather than emitting a placeholder value.
func ToFindingJSON(fd *datastore.FindingDetail) FindingJSON {
	groups := make([]string, len(fd.Groups))
	for i, g := range fd.Groups {
		groups[i] = string(g.Bytes)
	}

	matches := make([]MatchJSON, len(fd.Matches))
	for i, m := range fd.Matches {
		matches[i] = toMatchJSON(m)
	}

	fj := FindingJSON{
		FindingID:  idHex(fd.ID),
		Rule:       RuleRef{ID: fd.RuleID, Name: fd.RuleName},
		Groups:     groups,
		NumMatches: fd.NumMatches,
		Matches:    matches,
	}
	if fd.Status != "unlabeled" {
		fj.Status = fd.Status
	}
	return fj
}

func idHex(id [16]byte) string {
	return hex.EncodeToString(id[:])
}
