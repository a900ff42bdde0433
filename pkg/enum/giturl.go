// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package enum

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kraklabs/noseyparker/pkg/pipeline"
)

var (
	validGitURLPattern    = regexp.MustCompile(`^(https?://|git@|ssh://|file://)[\w.\-@:/%]+$`)
	dangerousCharsPattern = regexp.MustCompile(`[;&|$` + "`" + `\n\r\\]`)
)

// GitURL clones (or reuses an existing clone of) a remote Git repository
// into <datastore>/clones/<hash-of-url> and delegates enumeration to
// GitRepository. URL validation guards against command-injection and
// credential-leak, since cloning shells out to the git binary.
type GitURL struct {
	URL         string
	ClonesDir   string
	MaxFileSize int64
	Logger      *slog.Logger
}

// NewGitURL returns a GitURL enumerator that clones url into clonesDir.
func NewGitURL(url, clonesDir string, logger *slog.Logger) *GitURL {
	if logger == nil {
		logger = slog.Default()
	}
	return &GitURL{URL: url, ClonesDir: clonesDir, MaxFileSize: DefaultMaxFileSize, Logger: logger}
}

// Enumerate clones (or fetches an existing clone of) g.URL, then runs a
// GitRepository enumerator over the clone.
func (g *GitURL) Enumerate(ctx context.Context, cancel *pipeline.CancelToken, emit pipeline.EmitFunc) error {
	logger := g.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := validateGitURL(g.URL); err != nil {
		return fmt.Errorf("enum: invalid git URL: %w", err)
	}

	dest := filepath.Join(g.ClonesDir, hashURL(g.URL))

	if _, err := os.Stat(filepath.Join(dest, ".git")); err == nil {
		if err := fetchGitRepo(ctx, dest); err != nil {
			logger.Warn("enum.giturl.fetch.error", "url", redactGitURL(g.URL), "err", err)
		}
	} else {
		if err := cloneGitRepo(ctx, g.URL, dest); err != nil {
			return fmt.Errorf("enum: cloning %s: %w", redactGitURL(g.URL), err)
		}
	}

	repo := &GitRepository{Root: dest, MaxFileSize: g.MaxFileSize, Logger: logger}
	return repo.Enumerate(ctx, cancel, emit)
}

// validateGitURL rejects shell metacharacters and embedded passwords
// before the URL reaches exec.Command.
func validateGitURL(gitURL string) error {
	if gitURL == "" {
		return fmt.Errorf("git URL is empty")
	}
	if dangerousCharsPattern.MatchString(gitURL) {
		return fmt.Errorf("git URL contains dangerous characters")
	}

	if strings.HasPrefix(gitURL, "http://") || strings.HasPrefix(gitURL, "https://") {
		parsed, err := url.Parse(gitURL)
		if err != nil {
			return fmt.Errorf("invalid URL format: %w", err)
		}
		if parsed.Host == "" {
			return fmt.Errorf("git URL missing host")
		}
		if parsed.User != nil {
			if _, hasPassword := parsed.User.Password(); hasPassword {
				return fmt.Errorf("git URL should not contain embedded password")
			}
		}
		return nil
	}

	if strings.HasPrefix(gitURL, "git@") || strings.HasPrefix(gitURL, "ssh://") {
		if !validGitURLPattern.MatchString(gitURL) {
			return fmt.Errorf("invalid SSH git URL format")
		}
		return nil
	}

	if strings.HasPrefix(gitURL, "file://") {
		return nil
	}

	return fmt.Errorf("unsupported git URL protocol: must be https://, git@, ssh://, or file://")
}

// cloneGitRepo shallow-clones gitURL into dest. gitURL is validated by the
// caller before this runs.
func cloneGitRepo(ctx context.Context, gitURL, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create clones dir: %w", err)
	}

	// #nosec G204 - gitURL is validated by validateGitURL before this call
	cmd := exec.CommandContext(ctx, "git", "clone", "--depth", "1", "--quiet", gitURL, dest)
	if out, err := cmd.CombinedOutput(); err != nil {
		_ = os.RemoveAll(dest)
		return fmt.Errorf("git clone: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// fetchGitRepo updates an existing clone at dest with the latest history.
func fetchGitRepo(ctx context.Context, dest string) error {
	cmd := exec.CommandContext(ctx, "git", "fetch", "--depth", "1", "--quiet", "origin")
	cmd.Dir = dest
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git fetch: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// redactGitURL strips embedded credentials and query parameters before a
// URL is logged.
func redactGitURL(gitURL string) string {
	parsed, err := url.Parse(gitURL)
	if err != nil {
		return gitURL
	}
	parsed.RawQuery = ""
	if parsed.User != nil {
		parsed.User = url.User("***")
	}
	return parsed.String()
}
