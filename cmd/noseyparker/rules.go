// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/noseyparker/internal/nperrors"
	"github.com/kraklabs/noseyparker/internal/output"
	"github.com/kraklabs/noseyparker/internal/ui"
	"github.com/kraklabs/noseyparker/pkg/rules"
)

// runRules dispatches the `noseyparker rules` subcommands: list and check.
func runRules(args []string, globals GlobalFlags) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: noseyparker rules {list,check} [options]")
		os.Exit(nperrors.ExitConfig)
	}

	sub, rest := args[0], args[1:]
	switch sub {
	case "list":
		runRulesList(rest, globals)
	case "check":
		runRulesCheck(rest, globals)
	default:
		fmt.Fprintf(os.Stderr, "noseyparker rules: unknown subcommand %q\n", sub)
		os.Exit(nperrors.ExitConfig)
	}
}

func loadRulesOrFatal(extraDirs []string, globals GlobalFlags) []rules.Rule {
	rs, err := rules.Load(extraDirs)
	if err != nil {
		fatal(nperrors.NewRuleLoadError("failed to load rules", err.Error(),
			"check rule YAML files for syntax or validation errors", err), globals)
	}
	return rs
}

func runRulesList(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("rules list", flag.ExitOnError)
	rulesDirs := fs.StringSlice("rules", nil, "additional directories of rule YAML files")
	jsonOut := fs.Bool("json", false, "emit a JSON array instead of a table")
	if err := fs.Parse(args); err != nil {
		os.Exit(nperrors.ExitConfig)
	}
	globals.JSON = *jsonOut

	rs := rules.SortByID(loadRulesOrFatal(*rulesDirs, globals))

	if *jsonOut {
		if err := output.JSON(rs); err != nil {
			fatal(nperrors.NewIoError("failed to write rule list", err.Error(), "", err), globals)
		}
		return
	}

	fmt.Printf("%-24s %-40s %s\n", "ID", "NAME", "CATEGORIES")
	for _, r := range rs {
		fmt.Printf("%-24s %-40s %v\n", r.ID, r.Name, r.Categories)
	}
}

func runRulesCheck(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("rules check", flag.ExitOnError)
	rulesDirs := fs.StringSlice("rules", nil, "additional directories of rule YAML files")
	warningsAsErrors := fs.Bool("warnings-as-errors", false, "treat warnings (e.g. a rule with no examples) as failures")
	jsonOut := fs.Bool("json", false, "emit a JSON report instead of text")
	if err := fs.Parse(args); err != nil {
		os.Exit(nperrors.ExitConfig)
	}
	globals.JSON = *jsonOut

	rs := loadRulesOrFatal(*rulesDirs, globals)
	report := rules.Check(rs, rules.CheckOptions{WarningsAsErrors: *warningsAsErrors})

	if *jsonOut {
		if err := output.JSON(report); err != nil {
			fatal(nperrors.NewIoError("failed to write check report", err.Error(), "", err), globals)
		}
	} else {
		for _, res := range report.Results {
			if res.Passed && len(res.Warnings) == 0 {
				continue
			}
			for _, w := range res.Warnings {
				ui.Warning(fmt.Sprintf("%s: %s", res.RuleID, w))
			}
			for _, e := range res.Errors {
				ui.Error(fmt.Sprintf("%s: %s", res.RuleID, e))
			}
		}
		if report.OK {
			ui.Success(fmt.Sprintf("%d rules checked, all passed", len(report.Results)))
		} else {
			ui.Error(fmt.Sprintf("%d rules checked, some failed", len(report.Results)))
		}
	}

	if !report.OK {
		os.Exit(nperrors.ExitRuleLoad)
	}
}
