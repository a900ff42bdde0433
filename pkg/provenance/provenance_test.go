// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package provenance

import "testing"

func TestNewFile(t *testing.T) {
	p := NewFile("src/main.go")
	if p.Kind != KindFile {
		t.Errorf("Kind = %v, want %v", p.Kind, KindFile)
	}
	if p.Path != "src/main.go" {
		t.Errorf("Path = %q, want %q", p.Path, "src/main.go")
	}
}

func TestNewGitRepo(t *testing.T) {
	commit := &CommitMetadata{CommitID: "abc123", AuthorName: "Jane Doe"}
	p := NewGitRepo("/repo", "abc123", "src/main.go", commit)

	if p.Kind != KindGitRepo {
		t.Errorf("Kind = %v, want %v", p.Kind, KindGitRepo)
	}
	if p.FirstSeenCommitID != "abc123" || p.PathInTree != "src/main.go" {
		t.Errorf("unexpected fields: %+v", p)
	}
	if p.Commit == nil || p.Commit.AuthorName != "Jane Doe" {
		t.Errorf("commit metadata not preserved: %+v", p.Commit)
	}
}

func TestKey_UniquePerBlobProvenancePair(t *testing.T) {
	a := NewGitRepo("/repo", "commit1", "a.go", nil)
	b := NewGitRepo("/repo", "commit2", "a.go", nil)
	c := NewGitRepo("/repo", "commit1", "b.go", nil)

	if a.Key() == b.Key() {
		t.Error("different commits should produce different keys")
	}
	if a.Key() == c.Key() {
		t.Error("different paths should produce different keys")
	}
}

func TestKey_SameInputsSameKey(t *testing.T) {
	a := NewFile("x.go")
	b := NewFile("x.go")
	if a.Key() != b.Key() {
		t.Error("identical File provenance should key identically")
	}
}

func TestKey_DistinctKindsNeverCollide(t *testing.T) {
	file := NewFile("shared-name")
	gh := NewGitHubRepo("shared-name")
	if file.Key() == gh.Key() {
		t.Error("distinct Kinds should never produce the same key")
	}
}
