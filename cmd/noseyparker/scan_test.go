// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kraklabs/noseyparker/pkg/enum"
)

func TestBuildSource_PlainDirectoryUsesFilesystemEnumerator(t *testing.T) {
	dir := t.TempDir()

	src := buildSource([]string{dir}, "", "", "", nil, t.TempDir())
	m, ok := src.(*enum.Multi)
	if !ok {
		t.Fatalf("expected *enum.Multi, got %T", src)
	}
	if len(m.Sources) != 1 {
		t.Fatalf("expected 1 source, got %d", len(m.Sources))
	}
	if _, ok := m.Sources[0].(*enum.Filesystem); !ok {
		t.Errorf("expected *enum.Filesystem for a plain directory, got %T", m.Sources[0])
	}
}

func TestBuildSource_GitDirectoryUsesGitRepositoryEnumerator(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}

	src := buildSource([]string{dir}, "", "", "", nil, t.TempDir())
	m := src.(*enum.Multi)
	if _, ok := m.Sources[0].(*enum.GitRepository); !ok {
		t.Errorf("expected *enum.GitRepository for a directory containing .git, got %T", m.Sources[0])
	}
}

func TestBuildSource_CombinesPositionalPathsAndGitURLAndGitHub(t *testing.T) {
	dsDir := t.TempDir()
	src := buildSource([]string{t.TempDir(), t.TempDir()}, "https://example.com/repo.git", "octocat", "", nil, dsDir)
	m := src.(*enum.Multi)
	if len(m.Sources) != 4 {
		t.Fatalf("expected 2 filesystem sources + 1 git-url source + 1 github source, got %d", len(m.Sources))
	}
	if _, ok := m.Sources[2].(*enum.GitURL); !ok {
		t.Errorf("expected source 2 to be *enum.GitURL, got %T", m.Sources[2])
	}
	if _, ok := m.Sources[3].(*enum.GitHub); !ok {
		t.Errorf("expected source 3 to be *enum.GitHub, got %T", m.Sources[3])
	}
}
