// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package logging configures the process-wide structured logger.
//
// Nosey Parker logs with dotted event names ("scan.start", "blob.skip",
// "datastore.commit") rather than free-form sentences. Init should be
// called once, early in main(), after flags are parsed.
package logging

import (
	"log/slog"
	"os"
)

// Options controls logger construction.
type Options struct {
	// Verbose enables debug-level logging (-v/--verbose).
	Verbose bool

	// Quiet suppresses everything below warn level (-q/--quiet).
	Quiet bool

	// JSON switches the handler to slog.NewJSONHandler, for machine
	// consumption alongside --json CLI output.
	JSON bool

	// Writer is where log records are written. Defaults to os.Stderr so
	// that --json/plain stdout output from report/summarize is never
	// interleaved with log lines.
	Writer *os.File
}

// Init builds a *slog.Logger from opts, installs it as the process
// default via slog.SetDefault, and returns it.
func Init(opts Options) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case opts.Quiet:
		level = slog.LevelWarn
	case opts.Verbose:
		level = slog.LevelDebug
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
