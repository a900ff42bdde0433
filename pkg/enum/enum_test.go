// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package enum

import "testing"

func TestMatchesGlob_StarDotExtension(t *testing.T) {
	if !matchesGlob("src/main.go", "*.go") {
		t.Error("expected *.go to match src/main.go")
	}
	if matchesGlob("src/main.txt", "*.go") {
		t.Error("expected *.go not to match src/main.txt")
	}
}

func TestMatchesGlob_DirectorySlashDoubleStar(t *testing.T) {
	if !matchesGlob("vendor/pkg/file.go", "vendor/**") {
		t.Error("expected vendor/** to match a nested file under vendor/")
	}
	if matchesGlob("other/file.go", "vendor/**") {
		t.Error("expected vendor/** not to match outside vendor/")
	}
}

func TestMatchesGlob_DoubleStarPrefix(t *testing.T) {
	if !matchesGlob("a/b/node_modules/x.js", "**/node_modules") {
		t.Error("expected **/node_modules to match at any depth")
	}
}

func TestMatchesGlob_LiteralPathComponent(t *testing.T) {
	if !matchesGlob("a/.git/config", ".git") {
		t.Error("expected literal .git pattern to match as a path component")
	}
	if matchesGlob("a/gitignore/config", ".git") {
		t.Error("expected literal .git pattern not to match gitignore")
	}
}

func TestShouldExclude_NoPatternsNeverExcludes(t *testing.T) {
	if shouldExclude("any/path.go", nil) {
		t.Error("no patterns should exclude nothing")
	}
}

func TestHashURL_Deterministic(t *testing.T) {
	a := hashURL("https://example.com/repo.git")
	b := hashURL("https://example.com/repo.git")
	if a != b {
		t.Error("hashURL should be deterministic for the same input")
	}
	if a == hashURL("https://example.com/other.git") {
		t.Error("hashURL should differ for different URLs")
	}
}
