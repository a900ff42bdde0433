// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// FileName is the SQLite database file's name inside a datastore
// directory.
const FileName = "datastore.db"

// Datastore owns the on-disk directory layout:
// <datastore>/{datastore.db, clones/, scratch/}.
type Datastore struct {
	Dir string
	db  *sql.DB
}

// Path returns the SQLite file path for a datastore rooted at dir.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// ClonesDir returns the directory enum.GitURL clones into for dir.
func ClonesDir(dir string) string {
	return filepath.Join(dir, "clones")
}

// ScratchDir returns the directory transient scan state is written under
// for dir.
func ScratchDir(dir string) string {
	return filepath.Join(dir, "scratch")
}

// Init creates dir (and its clones/scratch subdirectories) if needed,
// opens the SQLite file, and ensures the schema exists. Idempotent:
// calling it multiple times against the same directory is safe.
func Init(dir string, logger *slog.Logger) (*Datastore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir == "" {
		return nil, fmt.Errorf("datastore: directory is required")
	}

	for _, sub := range []string{dir, ClonesDir(dir), ScratchDir(dir)} {
		if err := os.MkdirAll(sub, 0o755); err != nil {
			return nil, fmt.Errorf("datastore: creating %s: %w", sub, err)
		}
	}

	logger.Info("datastore.init.start", "dir", dir)

	ds, err := open(dir)
	if err != nil {
		return nil, err
	}

	if err := ds.ensureSchema(); err != nil {
		ds.db.Close()
		return nil, fmt.Errorf("datastore: ensure schema: %w", err)
	}

	logger.Info("datastore.init.success", "dir", dir)
	return ds, nil
}

// Open opens an existing datastore at dir. It fails if dir does not
// already contain a datastore file, or if the on-disk schema version is
// newer than this binary supports.
func Open(dir string, logger *slog.Logger) (*Datastore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := os.Stat(Path(dir)); os.IsNotExist(err) {
		return nil, fmt.Errorf("datastore: not found at %s (run 'noseyparker datastore init' first)", dir)
	}

	ds, err := open(dir)
	if err != nil {
		return nil, err
	}

	onDisk, err := ds.schemaVersion()
	if err != nil {
		ds.db.Close()
		return nil, fmt.Errorf("datastore: reading schema version: %w", err)
	}
	if onDisk > schemaVersion {
		ds.db.Close()
		return nil, &ErrSchemaTooNew{OnDisk: onDisk, Known: schemaVersion}
	}

	logger.Debug("datastore.open", "dir", dir)
	return ds, nil
}

func open(dir string) (*Datastore, error) {
	db, err := sql.Open("sqlite", Path(dir))
	if err != nil {
		return nil, fmt.Errorf("datastore: open %s: %w", Path(dir), err)
	}
	// The writer is the sole holder of the write connection for a scan's
	// duration; one connection avoids SQLITE_BUSY storms between a
	// concurrent reader (report/summarize) and the writer.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Datastore{Dir: dir, db: db}, nil
}

// SetCacheSizeKB sets PRAGMA cache_size, in kibibytes, for the underlying
// connection.
func (d *Datastore) SetCacheSizeKB(kb int) error {
	_, err := d.db.Exec(fmt.Sprintf("PRAGMA cache_size=-%d;", kb))
	return err
}

// SetBusyTimeout sets PRAGMA busy_timeout so read-only connections never
// block the writer mid-scan.
func (d *Datastore) SetBusyTimeout(d2 time.Duration) error {
	_, err := d.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", d2.Milliseconds()))
	return err
}

// DB returns the underlying *sql.DB, for callers (pkg/report) that need a
// read-only query path.
func (d *Datastore) DB() *sql.DB {
	return d.db
}

// Close releases the datastore's connection.
func (d *Datastore) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (d *Datastore) ensureSchema() error {
	for _, stmt := range schemaDDL {
		if _, err := d.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing %q: %w", stmt, err)
		}
	}
	return d.setSchemaVersionIfUnset()
}

func (d *Datastore) setSchemaVersionIfUnset() error {
	existing, err := d.schemaVersion()
	if err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}
	_, err = d.db.Exec(
		`INSERT INTO meta (key, value) VALUES ('schema_version', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		strconv.Itoa(schemaVersion),
	)
	return err
}

func (d *Datastore) schemaVersion() (int, error) {
	var value string
	err := d.db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(value)
}

// BeginScan records a new scan row and returns its id plus a freshly
// generated run id, a UUID suitable for correlating this run's log lines
// and scratch-directory contents across process restarts. Pass the
// returned scan id to FinishScan at the end of the run.
func (d *Datastore) BeginScan(ctx context.Context) (int64, string, error) {
	runID := uuid.NewString()
	res, err := d.db.ExecContext(ctx,
		`INSERT INTO scan (run_id, started_at) VALUES (?, ?)`,
		runID, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, "", fmt.Errorf("datastore: recording scan start: %w", err)
	}
	scanID, err := res.LastInsertId()
	if err != nil {
		return 0, "", err
	}
	return scanID, runID, nil
}

// FinishScan marks a scan row complete.
func (d *Datastore) FinishScan(ctx context.Context, scanID int64, cancelled bool) error {
	cancelledInt := 0
	if cancelled {
		cancelledInt = 1
	}
	_, err := d.db.ExecContext(ctx,
		`UPDATE scan SET finished_at = ?, cancelled = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), cancelledInt, scanID,
	)
	return err
}
