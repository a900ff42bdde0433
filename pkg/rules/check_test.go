// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck_BundledDefaultsPass(t *testing.T) {
	rs, err := Load(nil)
	require.NoError(t, err, "Load() should not error")

	report := Check(rs, CheckOptions{})
	assert.True(t, report.OK, "expected bundled defaults to pass Check, got report: %+v", report)
}

func TestCheck_BundledDefaultsIncludeGitHubToken(t *testing.T) {
	rs, err := Load(nil)
	require.NoError(t, err, "Load() should not error")

	var ids []string
	for _, r := range rs {
		ids = append(ids, r.ID)
	}
	assert.Contains(t, ids, "np.github.1", "bundled defaults should include a GitHub personal access token rule")
}

func TestCheck_NoExamplesIsWarningNotError(t *testing.T) {
	rs := []Rule{{ID: "no.examples", Pattern: "(abc)"}}

	report := Check(rs, CheckOptions{})
	if !report.OK {
		t.Error("rule with no examples should only warn, not fail, by default")
	}
	if len(report.Results) != 1 || len(report.Results[0].Warnings) == 0 {
		t.Errorf("expected a warning about missing examples, got %+v", report.Results)
	}
}

func TestCheck_WarningsAsErrorsPromotesFailure(t *testing.T) {
	rs := []Rule{{ID: "no.examples", Pattern: "(abc)"}}

	report := Check(rs, CheckOptions{WarningsAsErrors: true})
	if report.OK {
		t.Error("expected WarningsAsErrors to fail the check for a rule with no examples")
	}
}
