// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package provenance describes how a blob was discovered: which file,
// which Git commit and path, which GitHub repository, or which external
// enumerator produced it.
//
// Provenance is a tagged union. Go has no native sum type, so Kind
// discriminates which of the variant-specific fields are populated,
// following the same representation the upstream Nosey Parker JSON schema
// uses for its own "payload vs. embedded fields" provenance shape.
package provenance

import "fmt"

// Kind discriminates the Provenance variant.
type Kind string

const (
	// KindFile is a plain filesystem path.
	KindFile Kind = "file"

	// KindGitRepo is a blob reachable from a local (possibly cloned) Git
	// repository's history.
	KindGitRepo Kind = "git_repo"

	// KindGitHubRepo is a blob whose origin is a GitHub repository,
	// reduced to GitRepo once the repository has been cloned.
	KindGitHubRepo Kind = "github_repo"

	// KindExtensible is a blob reported by an external enumerator, carrying
	// an opaque name/payload pair.
	KindExtensible Kind = "extensible"
)

// CommitMetadata carries the commit fields needed to explain a GitRepo
// provenance row to a human reader.
type CommitMetadata struct {
	CommitID           string
	CommitterName      string
	CommitterEmail     string
	CommitterTimestamp string
	AuthorName         string
	AuthorEmail        string
	AuthorTimestamp    string
	Message            string
}

// Provenance is a tagged record describing how a blob was discovered.
// Exactly one of the variant-specific field groups is meaningful, selected
// by Kind.
type Provenance struct {
	Kind Kind

	// File variant.
	Path string

	// GitRepo variant.
	RepoPath          string
	FirstSeenCommitID string
	PathInTree        string
	Commit            *CommitMetadata

	// GitHubRepo variant.
	RepoURL string

	// Extensible variant.
	Name    string
	Payload map[string]string
}

// NewFile builds a File provenance record.
func NewFile(path string) Provenance {
	return Provenance{Kind: KindFile, Path: path}
}

// NewGitRepo builds a GitRepo provenance record for one (commit, path)
// observation of a blob.
func NewGitRepo(repoPath, commitID, pathInTree string, commit *CommitMetadata) Provenance {
	return Provenance{
		Kind:              KindGitRepo,
		RepoPath:          repoPath,
		FirstSeenCommitID: commitID,
		PathInTree:        pathInTree,
		Commit:            commit,
	}
}

// NewGitHubRepo builds a GitHubRepo provenance record, used only before the
// repository has been cloned; once cloned, enum.GitURL re-emits blobs with
// GitRepo provenance instead.
func NewGitHubRepo(repoURL string) Provenance {
	return Provenance{Kind: KindGitHubRepo, RepoURL: repoURL}
}

// NewExtensible builds an Extensible provenance record for a blob reported
// by an external enumerator.
func NewExtensible(name string, payload map[string]string) Provenance {
	return Provenance{Kind: KindExtensible, Name: name, Payload: payload}
}

// Key returns a value suitable for deduplicating (blob_id, provenance)
// pairs, which must be unique per blob.
func (p Provenance) Key() string {
	switch p.Kind {
	case KindFile:
		return string(KindFile) + "\x00" + p.Path
	case KindGitRepo:
		return string(KindGitRepo) + "\x00" + p.RepoPath + "\x00" + p.FirstSeenCommitID + "\x00" + p.PathInTree
	case KindGitHubRepo:
		return string(KindGitHubRepo) + "\x00" + p.RepoURL
	case KindExtensible:
		return string(KindExtensible) + "\x00" + p.Name + "\x00" + fmt.Sprint(p.Payload)
	default:
		return string(p.Kind)
	}
}
