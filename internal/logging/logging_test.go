// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package logging

import (
	"bytes"
	"log/slog"
	"os"
	"strings"
	"testing"
)

func TestInit_LevelSelection(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		enabled []slog.Level
		off     []slog.Level
	}{
		{
			name:    "default is info",
			opts:    Options{},
			enabled: []slog.Level{slog.LevelInfo, slog.LevelWarn, slog.LevelError},
			off:     []slog.Level{slog.LevelDebug},
		},
		{
			name:    "verbose enables debug",
			opts:    Options{Verbose: true},
			enabled: []slog.Level{slog.LevelDebug, slog.LevelInfo},
		},
		{
			name:    "quiet suppresses info",
			opts:    Options{Quiet: true},
			enabled: []slog.Level{slog.LevelWarn, slog.LevelError},
			off:     []slog.Level{slog.LevelInfo, slog.LevelDebug},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			r, w, _ := os.Pipe()
			defer r.Close()
			tt.opts.Writer = w
			logger := Init(tt.opts)
			w.Close()
			buf.ReadFrom(r)

			for _, lvl := range tt.enabled {
				if !logger.Enabled(nil, lvl) {
					t.Errorf("expected level %v enabled", lvl)
				}
			}
			for _, lvl := range tt.off {
				if logger.Enabled(nil, lvl) {
					t.Errorf("expected level %v disabled", lvl)
				}
			}
		})
	}
}

func TestInit_JSONHandler(t *testing.T) {
	r, w, _ := os.Pipe()
	defer r.Close()
	logger := Init(Options{JSON: true, Writer: w})
	logger.Info("scan.start", "rules", 42)
	w.Close()

	var buf bytes.Buffer
	buf.ReadFrom(r)
	if !strings.Contains(buf.String(), `"msg":"scan.start"`) {
		t.Errorf("expected JSON log output, got: %s", buf.String())
	}
}

func TestInit_SetsDefault(t *testing.T) {
	r, w, _ := os.Pipe()
	defer func() { r.Close(); w.Close() }()
	logger := Init(Options{Writer: w})
	if slog.Default() != logger {
		t.Error("Init should install the logger as slog.Default()")
	}
}
