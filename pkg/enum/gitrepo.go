// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package enum

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"github.com/kraklabs/noseyparker/pkg/blob"
	"github.com/kraklabs/noseyparker/pkg/pipeline"
	"github.com/kraklabs/noseyparker/pkg/provenance"
)

// treeObservation is one (commit, path) sighting of a blob, collected
// during history traversal.
type treeObservation struct {
	oid    string
	commit string
	path   string
}

// GitRepository enumerates every commit reachable from any ref in a local
// Git repository, walking each commit's full tree and emitting one GitRepo
// provenance row per (commit, path) observation of a blob. It uses a
// two-phase collect-then-stream design: a full per-commit tree walk
// records every (commit, path) pair rather than only the first-seen path
// per blob.
type GitRepository struct {
	Root        string
	MaxFileSize int64
	Logger      *slog.Logger
}

// NewGitRepository returns a GitRepository enumerator rooted at a local
// clone/checkout at root.
func NewGitRepository(root string, logger *slog.Logger) *GitRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &GitRepository{Root: root, MaxFileSize: DefaultMaxFileSize, Logger: logger}
}

// Enumerate runs the two phases: collect (commit, oid, path) triples from
// every reachable commit's tree, then stream each unique blob's content
// once via git cat-file --batch, emitting a provenance row for every
// triple observed for that oid.
func (g *GitRepository) Enumerate(ctx context.Context, cancel *pipeline.CancelToken, emit pipeline.EmitFunc) error {
	if !gitBinaryAvailable() {
		return fmt.Errorf("enum: git binary not found on PATH")
	}

	commits, err := g.listCommits(ctx)
	if err != nil {
		return fmt.Errorf("enum: listing commits: %w", err)
	}

	observations := make([]treeObservation, 0, 1024)
	uniqueOIDs := make(map[string]bool)

	for _, commit := range commits {
		if err := checkCancel(ctx, cancel); err != nil {
			return err
		}
		entries, err := g.listTree(ctx, commit)
		if err != nil {
			g.logger().Warn("enum.git.ls_tree.error", "commit", commit, "err", err)
			continue
		}
		for _, e := range entries {
			observations = append(observations, treeObservation{oid: e.oid, commit: commit, path: e.path})
			uniqueOIDs[e.oid] = true
		}
	}

	metaCache := make(map[string]*provenance.CommitMetadata, len(commits))
	for _, commit := range commits {
		meta, err := g.commitMetadata(ctx, commit)
		if err != nil {
			g.logger().Warn("enum.git.commit_metadata.error", "commit", commit, "err", err)
			continue
		}
		metaCache[commit] = meta
	}

	return g.streamAndEmit(ctx, cancel, observations, uniqueOIDs, metaCache, emit)
}

func (g *GitRepository) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}

func gitBinaryAvailable() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// listCommits runs git rev-list --all to enumerate every reachable commit.
func (g *GitRepository) listCommits(ctx context.Context) ([]string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-list", "--all")
	cmd.Dir = g.Root

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git rev-list: %w", err)
	}

	var commits []string
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			commits = append(commits, line)
		}
	}
	return commits, scanner.Err()
}

type treeEntry struct {
	oid  string
	path string
}

// listTree runs git ls-tree -r --full-tree <commit> to list every blob in
// that commit's full tree.
func (g *GitRepository) listTree(ctx context.Context, commit string) ([]treeEntry, error) {
	cmd := exec.CommandContext(ctx, "git", "ls-tree", "-r", "--full-tree", commit)
	cmd.Dir = g.Root

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git ls-tree: %w", err)
	}

	var entries []treeEntry
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		// Format: "<mode> <type> <oid>\t<path>"
		line := scanner.Text()
		tabIdx := strings.IndexByte(line, '\t')
		if tabIdx < 0 {
			continue
		}
		fields := strings.Fields(line[:tabIdx])
		if len(fields) != 3 || fields[1] != "blob" {
			continue
		}
		entries = append(entries, treeEntry{oid: fields[2], path: line[tabIdx+1:]})
	}
	return entries, scanner.Err()
}

// commitMetadata runs git show -s to fetch one commit's metadata.
func (g *GitRepository) commitMetadata(ctx context.Context, commit string) (*provenance.CommitMetadata, error) {
	const sep = "\x1f"
	format := "%H" + sep + "%cn" + sep + "%ce" + sep + "%cI" + sep + "%an" + sep + "%ae" + sep + "%aI" + sep + "%s"
	cmd := exec.CommandContext(ctx, "git", "show", "-s", "--format="+format, commit)
	cmd.Dir = g.Root

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git show: %w", err)
	}

	fields := strings.SplitN(strings.TrimRight(string(out), "\n"), sep, 8)
	if len(fields) != 8 {
		return nil, fmt.Errorf("git show: unexpected output shape for %s", commit)
	}

	return &provenance.CommitMetadata{
		CommitID:           fields[0],
		CommitterName:      fields[1],
		CommitterEmail:     fields[2],
		CommitterTimestamp: fields[3],
		AuthorName:         fields[4],
		AuthorEmail:        fields[5],
		AuthorTimestamp:    fields[6],
		Message:            fields[7],
	}, nil
}

// streamAndEmit runs git cat-file --batch once over every unique oid,
// caching content by oid in memory for the duration of the pass, then
// emits one (content, provenance) pair per recorded observation.
func (g *GitRepository) streamAndEmit(
	ctx context.Context,
	cancel *pipeline.CancelToken,
	observations []treeObservation,
	uniqueOIDs map[string]bool,
	metaCache map[string]*provenance.CommitMetadata,
	emit pipeline.EmitFunc,
) error {
	if len(uniqueOIDs) == 0 {
		return nil
	}

	oids := make([]string, 0, len(uniqueOIDs))
	for oid := range uniqueOIDs {
		oids = append(oids, oid)
	}

	cmd := exec.CommandContext(ctx, "git", "cat-file", "--batch")
	cmd.Dir = g.Root

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("git cat-file: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("git cat-file: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("git cat-file: start: %w", err)
	}

	reader := bufio.NewReaderSize(stdout, 256*1024)
	content := make(map[string][]byte, len(oids))

	writeErrCh := make(chan error, 1)
	go func() {
		defer stdin.Close()
		for _, oid := range oids {
			if _, err := fmt.Fprintf(stdin, "%s\n", oid); err != nil {
				writeErrCh <- err
				return
			}
		}
		writeErrCh <- nil
	}()

	for range oids {
		headerLine, err := reader.ReadString('\n')
		if err != nil {
			_ = cmd.Wait()
			return fmt.Errorf("git cat-file: read header: %w", err)
		}
		headerLine = strings.TrimSuffix(headerLine, "\n")

		parts := strings.SplitN(headerLine, " ", 3)
		oid := parts[0]
		if len(parts) < 3 || parts[1] == "missing" {
			continue
		}

		objType := parts[1]
		size, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			_ = cmd.Wait()
			return fmt.Errorf("git cat-file: parse size %q: %w", parts[2], err)
		}

		if objType != "blob" {
			if _, err := io.CopyN(io.Discard, reader, size+1); err != nil {
				_ = cmd.Wait()
				return fmt.Errorf("git cat-file: discard non-blob: %w", err)
			}
			continue
		}

		maxSize := g.MaxFileSize
		if maxSize <= 0 {
			maxSize = DefaultMaxFileSize
		}
		if size > maxSize {
			if _, err := io.CopyN(io.Discard, reader, size+1); err != nil {
				_ = cmd.Wait()
				return fmt.Errorf("git cat-file: discard oversized: %w", err)
			}
			continue
		}

		buf := make([]byte, size)
		if _, err := io.ReadFull(reader, buf); err != nil {
			_ = cmd.Wait()
			return fmt.Errorf("git cat-file: read content: %w", err)
		}
		if _, err := reader.ReadByte(); err != nil {
			_ = cmd.Wait()
			return fmt.Errorf("git cat-file: read trailing newline: %w", err)
		}

		if blob.IsBinary(buf) {
			continue
		}
		content[oid] = buf
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("git cat-file: %w", err)
	}
	if err := <-writeErrCh; err != nil {
		return fmt.Errorf("git cat-file: write: %w", err)
	}

	for i, obs := range observations {
		if i%1000 == 0 {
			if err := checkCancel(ctx, cancel); err != nil {
				return err
			}
		}
		buf, ok := content[obs.oid]
		if !ok {
			continue // binary, oversized, or missing; already filtered above
		}
		prov := provenance.NewGitRepo(g.Root, obs.commit, obs.path, metaCache[obs.commit])
		if err := emit(buf, prov); err != nil {
			return err
		}
	}

	return nil
}
