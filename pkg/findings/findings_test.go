// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package findings

import (
	"bytes"
	"testing"

	"github.com/kraklabs/noseyparker/pkg/matcher"
)

func TestFingerprint_JoinsGroupsWithNUL(t *testing.T) {
	fp := Fingerprint([][]byte{[]byte("abc"), []byte("def")})
	want := []byte("abc\x00def")
	if !bytes.Equal(fp, want) {
		t.Errorf("Fingerprint() = %q, want %q", fp, want)
	}
}

func TestFingerprint_SingleGroupNoSeparator(t *testing.T) {
	fp := Fingerprint([][]byte{[]byte("onlyone")})
	if !bytes.Equal(fp, []byte("onlyone")) {
		t.Errorf("Fingerprint() = %q, want %q", fp, "onlyone")
	}
}

func TestFingerprint_CasePreserved(t *testing.T) {
	fp1 := Fingerprint([][]byte{[]byte("AbCdEf")})
	fp2 := Fingerprint([][]byte{[]byte("abcdef")})
	if bytes.Equal(fp1, fp2) {
		t.Error("expected case-sensitive fingerprints to differ")
	}
}

func TestID_DeterministicAndDistinct(t *testing.T) {
	fp := Fingerprint([][]byte{[]byte("secret-value")})

	id1 := ID("rule.a", fp)
	id2 := ID("rule.a", fp)
	if id1 != id2 {
		t.Error("expected ID to be deterministic for the same inputs")
	}

	id3 := ID("rule.b", fp)
	if id1 == id3 {
		t.Error("expected different rule ids to produce different finding ids")
	}
}

func TestID_DifferentFingerprintDifferentID(t *testing.T) {
	fp1 := Fingerprint([][]byte{[]byte("secret-1")})
	fp2 := Fingerprint([][]byte{[]byte("secret-2")})

	if ID("rule.a", fp1) == ID("rule.a", fp2) {
		t.Error("expected different fingerprints to produce different finding ids")
	}
}

func TestGrouper_GroupsMatchesBySameRuleAndFingerprint(t *testing.T) {
	g := NewGrouper()

	m1 := matcher.RawMatch{RuleID: "r.a", Groups: []matcher.GroupSpan{{Bytes: []byte("secret-x")}}}
	m2 := matcher.RawMatch{RuleID: "r.a", Groups: []matcher.GroupSpan{{Bytes: []byte("secret-x")}}}

	id1 := g.Add(m1)
	id2 := g.Add(m2)

	if id1 != id2 {
		t.Fatal("expected matches with identical rule+fingerprint to share a finding id")
	}
	if g.Len() != 1 {
		t.Fatalf("expected 1 finding, got %d", g.Len())
	}

	findings := g.Findings()
	if len(findings[0].Matches) != 2 {
		t.Errorf("expected 2 matches folded into the finding, got %d", len(findings[0].Matches))
	}
}

func TestGrouper_DistinctFingerprintsDistinctFindings(t *testing.T) {
	g := NewGrouper()

	g.Add(matcher.RawMatch{RuleID: "r.a", Groups: []matcher.GroupSpan{{Bytes: []byte("secret-1")}}})
	g.Add(matcher.RawMatch{RuleID: "r.a", Groups: []matcher.GroupSpan{{Bytes: []byte("secret-2")}}})

	if g.Len() != 2 {
		t.Errorf("expected 2 distinct findings, got %d", g.Len())
	}
}

func TestGrouper_OverlappingMatchesSameRuleDistinctCaptures(t *testing.T) {
	// Mirrors the spec's two-adjacent-Bitbucket-App-Passwords scenario:
	// same rule, different capture content -> 2 matches, 2 findings.
	g := NewGrouper()

	g.Add(matcher.RawMatch{
		RuleID: "np.bitbucket.app_password",
		Start:  0, End: 36,
		Groups: []matcher.GroupSpan{{Bytes: []byte("ATBBaaaaaaaaaaaaaaaaaaaaaaaaaaaa")}},
	})
	g.Add(matcher.RawMatch{
		RuleID: "np.bitbucket.app_password",
		Start:  36, End: 72,
		Groups: []matcher.GroupSpan{{Bytes: []byte("ATBBbbbbbbbbbbbbbbbbbbbbbbbbbbbb")}},
	})

	if g.Len() != 2 {
		t.Errorf("expected 2 findings for 2 distinct capture contents, got %d", g.Len())
	}
}
