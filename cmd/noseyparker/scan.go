// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kraklabs/noseyparker/internal/config"
	"github.com/kraklabs/noseyparker/internal/logging"
	"github.com/kraklabs/noseyparker/internal/nperrors"
	"github.com/kraklabs/noseyparker/pkg/automaton"
	"github.com/kraklabs/noseyparker/pkg/datastore"
	"github.com/kraklabs/noseyparker/pkg/enum"
	"github.com/kraklabs/noseyparker/pkg/matcher"
	"github.com/kraklabs/noseyparker/pkg/pipeline"
	"github.com/kraklabs/noseyparker/pkg/resources"
	"github.com/kraklabs/noseyparker/pkg/rules"
)

// runScan executes `noseyparker scan`: it builds a pipeline.Source from
// the requested inputs, compiles the rule set into an automaton, and
// drives a pipeline.Scheduler until every input is exhausted or the
// process is interrupted.
func runScan(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)

	datastorePathFlag := fs.String("datastore", "", "path to the datastore directory (env NP_DATASTORE)")
	jobs := fs.Int("jobs", 0, "number of scanning worker goroutines (default: number of CPUs)")
	rulesDirs := fs.StringSlice("rules", nil, "additional directories of rule YAML files")
	rulesetIDs := fs.StringSlice("ruleset", []string{rules.AllRulesetID}, "rulesets to scan with")
	snippetBefore := fs.Int("snippet-before", 0, "bytes of context captured before a match (0: use datastore default)")
	snippetAfter := fs.Int("snippet-after", 0, "bytes of context captured after a match (0: use datastore default)")
	excludeGlobs := fs.StringSlice("exclude", nil, "glob patterns excluded from filesystem enumeration")
	gitURL := fs.String("git-url", "", "clone and scan the history of this Git repository URL")
	githubUser := fs.String("github-user", "", "enumerate and scan every repository owned by this GitHub user")
	githubOrg := fs.String("github-org", "", "enumerate and scan every repository owned by this GitHub organization")
	metricsAddr := fs.String("metrics-addr", "", "expose Prometheus metrics at this address, e.g. :9090 (disabled if empty)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: noseyparker scan --datastore PATH [options] [paths...]

Enumerate filesystem trees, Git repositories, and/or GitHub accounts,
scan every distinct blob against the loaded rule set, and persist
matches into the datastore.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(nperrors.ExitConfig)
	}

	logger := logging.Init(logging.Options{
		Verbose: globals.Verbose > 0,
		Quiet:   globals.Quiet,
		JSON:    globals.JSON,
	})

	dsDir := datastorePath(*datastorePathFlag)
	if dsDir == "" {
		fatal(nperrors.NewConfigError(
			"no datastore specified",
			"--datastore was empty and NP_DATASTORE is unset",
			"pass --datastore PATH or run `noseyparker datastore init --datastore PATH` first",
			nil,
		), globals)
	}

	paths := fs.Args()
	if len(paths) == 0 && *gitURL == "" && *githubUser == "" && *githubOrg == "" {
		paths = []string{"."}
	}

	cfg, err := config.Load(dsDir)
	if err != nil {
		fatal(nperrors.NewConfigError("failed to load datastore configuration", err.Error(),
			"check that config.yaml under the datastore directory is valid YAML", err), globals)
	}
	if len(*rulesDirs) > 0 {
		cfg.RulesDirs = *rulesDirs
	}
	if *snippetBefore > 0 {
		cfg.SnippetBefore = *snippetBefore
	}
	if *snippetAfter > 0 {
		cfg.SnippetAfter = *snippetAfter
	}
	if globals.RlimitNofile > 0 {
		cfg.RlimitNofile = globals.RlimitNofile
	}
	if globals.SQLiteCacheSizeKB > 0 {
		cfg.SQLiteCacheSizeKB = globals.SQLiteCacheSizeKB
	}
	if err := config.Save(dsDir, cfg); err != nil {
		logger.Warn("scan.config.save.error", "error", err)
	}

	if got, rerr := resources.RaiseNoFile(cfg.RlimitNofile); rerr != nil {
		logger.Warn("scan.rlimit.warn", "requested", cfg.RlimitNofile, "got", got, "error", rerr)
	}
	resources.Backtraces(globals.EnableBacktraces)

	allRules, err := rules.Load(cfg.RulesDirs)
	if err != nil {
		fatal(nperrors.NewRuleLoadError("failed to load rules", err.Error(),
			"check rule YAML files for syntax or validation errors", err), globals)
	}
	selected, err := rules.Select(allRules, nil, *rulesetIDs)
	if err != nil {
		fatal(nperrors.NewRuleLoadError("failed to select ruleset", err.Error(),
			"pass a valid --ruleset id, or omit it to scan with the bundled \"all\" ruleset", err), globals)
	}

	a, err := automaton.Build(selected, automaton.Options{})
	if err != nil {
		fatal(nperrors.NewCompileError("failed to compile rule set", err.Error(),
			"a rule's pattern is rejected by both the block-match and capture-extract engines; fix or remove it", err), globals)
	}

	ds, err := datastore.Open(dsDir, logger)
	if err != nil {
		ds, err = datastore.Init(dsDir, logger)
		if err != nil {
			fatal(nperrors.NewDatastoreError("failed to open or initialize datastore", err.Error(),
				"check that --datastore points at a writable directory", err), globals)
		}
	}
	defer ds.Close()

	if err := ds.SetCacheSizeKB(cfg.SQLiteCacheSizeKB); err != nil {
		logger.Warn("scan.datastore.cache_size.error", "error", err)
	}
	if err := ds.PersistRules(context.Background(), selected, nil); err != nil {
		fatal(nperrors.NewDatastoreError("failed to persist rules", err.Error(),
			"this is usually a datastore corruption or permissions problem", err), globals)
	}

	scanID, runID, err := ds.BeginScan(context.Background())
	if err != nil {
		fatal(nperrors.NewDatastoreError("failed to begin scan record", err.Error(), "", err), globals)
	}
	logger.Info("scan.start", "run_id", runID, "paths", paths)

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{Addr: *metricsAddr, Handler: mux}
			logger.Info("scan.metrics.start", "addr", *metricsAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("scan.metrics.error", "error", err)
			}
		}()
	}

	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()

	cancelToken := pipeline.NewCancelToken()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("scan.signal", "signal", sig.String())
		cancelToken.Cancel()
		cancelCtx()
	}()

	src := buildSource(paths, *gitURL, *githubUser, *githubOrg, *excludeGlobs, dsDir)

	writer := datastore.NewWriter(ds, datastore.WriterOptions{Logger: logger})

	matcherOpts := matcher.Options{SnippetBefore: cfg.SnippetBefore, SnippetAfter: cfg.SnippetAfter}
	workers := *jobs

	scheduler := pipeline.NewScheduler(pipeline.Options{
		Workers: workers,
		Logger:  logger,
	}, cancelToken, func() (*matcher.Worker, error) {
		return matcher.NewWorker(a, selected, matcherOpts)
	}, writer)

	progressCfg := NewProgressConfig(globals)
	spinner := NewSpinner(progressCfg, "scanning")

	runErr := scheduler.Run(ctx, src)

	if spinner != nil {
		_ = spinner.Finish()
	}

	cancelled := runErr == pipeline.ErrCancelled
	if err := ds.FinishScan(context.Background(), scanID, cancelled); err != nil {
		logger.Warn("scan.finish.error", "error", err)
	}

	if cancelled {
		logger.Info("scan.cancelled", "run_id", runID)
		fatal(nperrors.NewCancelledError("scan interrupted"), globals)
	}
	if runErr != nil {
		fatal(nperrors.NewDatastoreError("scan failed", runErr.Error(), "", runErr), globals)
	}

	logger.Info("scan.finish", "run_id", runID)
}

// buildSource assembles a pipeline.Source out of every requested input:
// positional filesystem/Git paths plus --git-url/--github-user/--github-org,
// combined with enum.Multi so they all run within a single scheduler.Run.
func buildSource(paths []string, gitURL, githubUser, githubOrg string, excludeGlobs []string, dsDir string) pipeline.Source {
	var sources []pipeline.Source

	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if _, statErr := os.Stat(filepath.Join(p, ".git")); statErr == nil {
				sources = append(sources, enum.NewGitRepository(p, nil))
				continue
			}
		}
		sources = append(sources, enum.NewFilesystem(p, excludeGlobs, nil))
	}

	if gitURL != "" {
		sources = append(sources, enum.NewGitURL(gitURL, datastore.ClonesDir(dsDir), nil))
	}
	token := os.Getenv("NP_GITHUB_TOKEN")
	if githubUser != "" {
		sources = append(sources, enum.NewGitHub(githubUser, token, datastore.ClonesDir(dsDir), nil))
	}
	if githubOrg != "" {
		sources = append(sources, enum.NewGitHub(githubOrg, token, datastore.ClonesDir(dsDir), nil))
	}

	return &enum.Multi{Sources: sources}
}
