// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package enum

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/kraklabs/noseyparker/pkg/pipeline"
)

// defaultGitHubAPI is the REST API base URL; overridable for GitHub
// Enterprise or tests.
const defaultGitHubAPI = "https://api.github.com"

// githubRepo is the subset of the GitHub repository API response this
// enumerator needs.
type githubRepo struct {
	CloneURL string `json:"clone_url"`
	FullName string `json:"full_name"`
}

// GitHub lists every repository owned by a user or organization via the
// GitHub REST API, then hands each clone URL to GitURL. Request shape
// (bearer token, JSON decode, status-code error mapping) uses net/http
// directly rather than a GitHub SDK dependency.
type GitHub struct {
	// Owner is the user or organization login to enumerate.
	Owner string
	// Token is the bearer token read from NP_GITHUB_TOKEN; may be empty
	// for public repositories, subject to GitHub's unauthenticated rate
	// limit.
	Token string
	// BaseURL overrides the API root, for GitHub Enterprise or tests.
	BaseURL   string
	ClonesDir string
	Logger    *slog.Logger

	httpClient *http.Client
}

// NewGitHub returns a GitHub enumerator for owner, cloning discovered
// repositories into clonesDir.
func NewGitHub(owner, token, clonesDir string, logger *slog.Logger) *GitHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &GitHub{
		Owner:     owner,
		Token:     token,
		BaseURL:   defaultGitHubAPI,
		ClonesDir: clonesDir,
		Logger:    logger,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Enumerate lists every repository for g.Owner, then clones and scans each
// one via a GitURL enumerator.
func (g *GitHub) Enumerate(ctx context.Context, cancel *pipeline.CancelToken, emit pipeline.EmitFunc) error {
	logger := g.Logger
	if logger == nil {
		logger = slog.Default()
	}

	repos, err := g.listRepos(ctx)
	if err != nil {
		return fmt.Errorf("enum: listing GitHub repos for %s: %w", g.Owner, err)
	}

	for _, repo := range repos {
		if err := checkCancel(ctx, cancel); err != nil {
			return err
		}

		logger.Info("enum.github.repo.start", "repo", repo.FullName)
		giturl := NewGitURL(repo.CloneURL, g.ClonesDir, logger)
		if err := giturl.Enumerate(ctx, cancel, emit); err != nil {
			logger.Warn("enum.github.repo.error", "repo", repo.FullName, "err", err)
			continue
		}
	}

	return nil
}

// listRepos pages through GET /users/{owner}/repos (falling back to
// /orgs/{owner}/repos) until a short page signals the end.
func (g *GitHub) listRepos(ctx context.Context) ([]githubRepo, error) {
	base := g.BaseURL
	if base == "" {
		base = defaultGitHubAPI
	}

	var all []githubRepo
	for page := 1; ; page++ {
		url := fmt.Sprintf("%s/users/%s/repos?per_page=100&page=%d", base, g.Owner, page)
		repos, err := g.fetchPage(ctx, url)
		if err != nil {
			return nil, err
		}
		all = append(all, repos...)
		if len(repos) < 100 {
			break
		}
	}
	return all, nil
}

func (g *GitHub) fetchPage(ctx context.Context, url string) ([]githubRepo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if g.Token != "" {
		req.Header.Set("Authorization", "Bearer "+g.Token)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github API error (status %d): %s", resp.StatusCode, string(body))
	}

	var repos []githubRepo
	if err := json.Unmarshal(body, &repos); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return repos, nil
}
