// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package enum

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/kraklabs/noseyparker/pkg/pipeline"
	"github.com/kraklabs/noseyparker/pkg/provenance"
)

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=Test", "GIT_COMMITTER_EMAIL=test@example.com",
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v: %s", args, err, out)
	}
}

// initTestRepo builds a tiny repository where a secret-looking file is
// added in one commit and removed in a later one: scanning the working
// tree alone would miss it, but walking history finds it.
func initTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	runGit(t, dir, "init", "--initial-branch=main", "--quiet")
	writeFile(t, dir, "README.md", "hello\n")
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "--quiet", "-m", "initial")

	writeFile(t, dir, "secret.txt", "api_key_value\n")
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "--quiet", "-m", "add secret")

	if err := os.Remove(filepath.Join(dir, "secret.txt")); err != nil {
		t.Fatalf("remove secret.txt: %v", err)
	}
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "--quiet", "-m", "remove secret")

	return dir
}

func TestGitRepository_Enumerate_EmitsBlobForEveryCommitPathObservation(t *testing.T) {
	dir := initTestRepo(t)
	repo := NewGitRepository(dir, nil)

	var observations []provenance.Provenance
	err := repo.Enumerate(context.Background(), pipeline.NewCancelToken(), func(content []byte, prov provenance.Provenance) error {
		observations = append(observations, prov)
		return nil
	})
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}

	foundSecret := false
	for _, p := range observations {
		if p.PathInTree == "secret.txt" {
			foundSecret = true
		}
		if p.Kind != provenance.KindGitRepo {
			t.Errorf("Kind = %v, want KindGitRepo", p.Kind)
		}
	}
	if !foundSecret {
		t.Error("expected at least one GitRepo provenance row for secret.txt, even though it was later deleted")
	}
}

func TestGitRepository_Enumerate_NoCommitsIsEmpty(t *testing.T) {
	dir := t.TempDir()
	runGit(t, dir, "init", "--initial-branch=main", "--quiet")

	repo := NewGitRepository(dir, nil)
	var count int
	err := repo.Enumerate(context.Background(), pipeline.NewCancelToken(), func(content []byte, prov provenance.Provenance) error {
		count++
		return nil
	})
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0 for a repo with no commits", count)
	}
}
