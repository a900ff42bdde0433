// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package config loads and saves the datastore-relative scan configuration.
//
// A datastore directory created by `noseyparker datastore init` carries a
// config.yaml recording the options that should be reused by later `scan`,
// `report`, and `summarize` invocations against the same datastore (so a
// second `scan` run against an existing datastore does not need to repeat
// every flag). Bad or missing configuration is a `Config`-kind error at the
// CLI boundary (see internal/nperrors).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the name of the config file stored at the root of a datastore
// directory.
const FileName = "config.yaml"

// Config holds the persisted, datastore-relative scan configuration.
type Config struct {
	// RulesDirs lists the rule directories used to build the last scan's
	// automaton, beyond the bundled default ruleset.
	RulesDirs []string `yaml:"rules_dirs,omitempty"`

	// MaxFileSizeBytes is the enumerator's skip threshold for oversized files.
	MaxFileSizeBytes int64 `yaml:"max_file_size_bytes"`

	// SnippetBefore/SnippetAfter are the match context lengths, in bytes.
	SnippetBefore int `yaml:"snippet_before"`
	SnippetAfter  int `yaml:"snippet_after"`

	// RlimitNofile is the soft file-descriptor limit to request at startup.
	RlimitNofile uint64 `yaml:"rlimit_nofile"`

	// SQLiteCacheSizeKB configures the datastore's PRAGMA cache_size, in KiB.
	SQLiteCacheSizeKB int `yaml:"sqlite_cache_size_kb"`
}

// Default returns the configuration applied when a datastore is initialized
// without overriding flags.
func Default() *Config {
	return &Config{
		MaxFileSizeBytes:  100 << 20, // 100 MiB
		SnippetBefore:     128,
		SnippetAfter:      128,
		RlimitNofile:      16384,
		SQLiteCacheSizeKB: 16 << 10, // 16 MiB, negative-form PRAGMA value handled by caller
	}
}

// Path returns the config file path for a given datastore directory.
func Path(datastoreDir string) string {
	return filepath.Join(datastoreDir, FileName)
}

// Load reads and parses the config file at the root of datastoreDir.
//
// A missing file is not an error: it returns Default().
func Load(datastoreDir string) (*Config, error) {
	path := Path(datastoreDir)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to the config file at the root of datastoreDir, creating
// the directory if necessary.
func Save(datastoreDir string, cfg *Config) error {
	if err := os.MkdirAll(datastoreDir, 0o755); err != nil {
		return fmt.Errorf("creating datastore directory %s: %w", datastoreDir, err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	path := Path(datastoreDir)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
