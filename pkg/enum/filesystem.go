// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package enum

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kraklabs/noseyparker/pkg/blob"
	"github.com/kraklabs/noseyparker/pkg/pipeline"
	"github.com/kraklabs/noseyparker/pkg/provenance"
)

// Filesystem enumerates regular files under Root, skipping excluded,
// binary-looking, or oversized files.
type Filesystem struct {
	Root         string
	ExcludeGlobs []string
	MaxFileSize  int64
	Logger       *slog.Logger
}

// NewFilesystem returns a Filesystem enumerator rooted at root.
func NewFilesystem(root string, excludeGlobs []string, logger *slog.Logger) *Filesystem {
	if logger == nil {
		logger = slog.Default()
	}
	return &Filesystem{
		Root:         root,
		ExcludeGlobs: excludeGlobs,
		MaxFileSize:  DefaultMaxFileSize,
		Logger:       logger,
	}
}

// Enumerate walks Root and emits one (content, File provenance) pair per
// surviving file.
func (f *Filesystem) Enumerate(ctx context.Context, cancel *pipeline.CancelToken, emit pipeline.EmitFunc) error {
	root, err := filepath.Abs(f.Root)
	if err != nil {
		return err
	}

	maxSize := f.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	skipReasons := make(map[string]int)
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if cancelErr := checkCancel(ctx, cancel); cancelErr != nil {
			return cancelErr
		}
		if err != nil {
			logger.Warn("enum.fs.walk.error", "path", path, "err", err)
			return nil
		}

		relPath, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}

		if d.IsDir() {
			if relPath != "." && shouldExclude(relPath, f.ExcludeGlobs) {
				skipReasons["excluded_dir"]++
				return filepath.SkipDir
			}
			return nil
		}

		if shouldExclude(relPath, f.ExcludeGlobs) {
			skipReasons["excluded"]++
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		if info.Size() > maxSize {
			skipReasons["too_large"]++
			logger.Warn("enum.fs.skip_large_file", "path", relPath, "size", info.Size(), "limit", maxSize)
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("enum.fs.read.error", "path", path, "err", err)
			return nil
		}
		if blob.IsBinary(content) {
			skipReasons["binary"]++
			return nil
		}

		return emit(content, provenance.NewFile(relPath))
	})

	if walkErr != nil {
		return walkErr
	}

	logger.Info("enum.fs.complete", "root", root, "skip_reasons", skipReasons)
	return nil
}
