// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package datastore is the embedded relational store for a scan: rules,
// rulesets, blobs, provenance, matches, findings, and scan runs, held in a
// single SQLite file inside the datastore directory.
package datastore

// schemaVersion is bumped whenever the table layout changes in a way old
// binaries can't read. Open refuses to open a datastore with a version
// newer than this.
const schemaVersion = 1

// schemaDDL creates every table the datastore needs, plus the meta table
// that tracks schemaVersion. CREATE TABLE IF NOT EXISTS makes Init
// idempotent: calling it multiple times against the same directory is
// safe.
var schemaDDL = []string{
	`PRAGMA journal_mode=WAL;`,

	`CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`,

	`CREATE TABLE IF NOT EXISTS rule (
		id             TEXT PRIMARY KEY,
		name           TEXT NOT NULL,
		pattern        TEXT NOT NULL,
		syntax_version INTEGER NOT NULL DEFAULT 1,
		categories     TEXT,
		min_length     INTEGER NOT NULL DEFAULT 0,
		max_offset     INTEGER NOT NULL DEFAULT 0
	);`,

	`CREATE TABLE IF NOT EXISTS ruleset (
		id   TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);`,

	`CREATE TABLE IF NOT EXISTS ruleset_rule (
		ruleset_id TEXT NOT NULL REFERENCES ruleset(id),
		rule_id    TEXT NOT NULL REFERENCES rule(id),
		PRIMARY KEY (ruleset_id, rule_id)
	);`,

	`CREATE TABLE IF NOT EXISTS blob (
		blob_id BLOB PRIMARY KEY,
		size    INTEGER NOT NULL
	);`,

	`CREATE TABLE IF NOT EXISTS provenance (
		id      INTEGER PRIMARY KEY AUTOINCREMENT,
		kind    TEXT NOT NULL,
		payload TEXT NOT NULL,
		UNIQUE (kind, payload)
	);`,

	`CREATE TABLE IF NOT EXISTS blob_provenance (
		blob_id       BLOB NOT NULL REFERENCES blob(blob_id),
		provenance_id INTEGER NOT NULL REFERENCES provenance(id),
		UNIQUE (blob_id, provenance_id)
	);`,

	`CREATE TABLE IF NOT EXISTS match (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		blob_id          BLOB NOT NULL REFERENCES blob(blob_id),
		rule_id          TEXT NOT NULL REFERENCES rule(id),
		start_byte       INTEGER NOT NULL,
		end_byte         INTEGER NOT NULL,
		start_line       INTEGER NOT NULL,
		start_column     INTEGER NOT NULL,
		end_line         INTEGER NOT NULL,
		end_column       INTEGER NOT NULL,
		groups           TEXT NOT NULL,
		snippet_before   BLOB NOT NULL,
		snippet_matching BLOB NOT NULL,
		snippet_after    BLOB NOT NULL,
		UNIQUE (blob_id, rule_id, start_byte, end_byte)
	);`,

	`CREATE TABLE IF NOT EXISTS finding (
		id                BLOB PRIMARY KEY,
		rule_id           TEXT NOT NULL REFERENCES rule(id),
		group_fingerprint BLOB NOT NULL,
		status            TEXT NOT NULL DEFAULT 'unlabeled',
		comment           TEXT
	);`,

	`CREATE TABLE IF NOT EXISTS match_finding (
		match_id   INTEGER NOT NULL REFERENCES match(id),
		finding_id BLOB NOT NULL REFERENCES finding(id),
		PRIMARY KEY (match_id, finding_id)
	);`,

	`CREATE TABLE IF NOT EXISTS scan (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id      TEXT NOT NULL,
		started_at  TEXT NOT NULL,
		finished_at TEXT,
		cancelled   INTEGER NOT NULL DEFAULT 0
	);`,
}
