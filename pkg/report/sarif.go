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

// sarifLog is a minimal SARIF 2.1.0 log: one run, one tool (this
// binary), and a results[] array mapping one entry per match (not per
// finding — SARIF has no native grouped-finding concept, so a finding
// with N matches contributes N results sharing one ruleId).
type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name  string      `json:"name"`
	Rules []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn"`
	EndLine     int `json:"endLine"`
	EndColumn   int `json:"endColumn"`
}

// WriteSARIF renders findings as a SARIF 2.1.0 log, mapping matches to
// results[].
func WriteSARIF(ctx context.Context, ds *datastore.Datastore, w io.Writer, opts Options) error {
	findings, err := collectFindings(ctx, ds, opts)
	if err != nil {
		return err
	}

	rulesSeen := make(map[string]bool)
	log := sarifLog{
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json",
		Version: "2.1.0",
		Runs: []sarifRun{{
			Tool: sarifTool{Driver: sarifDriver{Name: "noseyparker"}},
		}},
	}

	for _, f := range findings {
		if !rulesSeen[f.Rule.ID] {
			rulesSeen[f.Rule.ID] = true
			log.Runs[0].Tool.Driver.Rules = append(log.Runs[0].Tool.Driver.Rules, sarifRule{
				ID: f.Rule.ID, Name: f.Rule.Name,
			})
		}
		for _, m := range f.Matches {
			log.Runs[0].Results = append(log.Runs[0].Results, sarifResult{
				RuleID:  f.Rule.ID,
				Message: sarifMessage{Text: fmt.Sprintf("%s: finding %s", f.Rule.Name, f.FindingID)},
				Locations: []sarifLocation{{
					PhysicalLocation: sarifPhysicalLocation{
						ArtifactLocation: sarifArtifactLocation{URI: artifactURI(m)},
						Region: sarifRegion{
							StartLine:   m.Location.StartLine,
							StartColumn: m.Location.StartColumn,
							EndLine:     m.Location.EndLine,
							EndColumn:   m.Location.EndColumn,
						},
					},
				}},
			})
		}
	}

	return output.JSONTo(w, log)
}

// artifactURI picks the most meaningful path out of a match's
// provenance list for SARIF's artifactLocation.uri: a file path if one
// exists, otherwise the blob id.
func artifactURI(m MatchJSON) string {
	for _, p := range m.Provenance {
		if p.Path != "" {
			return p.Path
		}
		if p.PathInTree != "" {
			return p.PathInTree
		}
	}
	return m.BlobID
}
