// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package enum

import (
	"context"
	"errors"
	"testing"

	"github.com/kraklabs/noseyparker/pkg/pipeline"
	"github.com/kraklabs/noseyparker/pkg/provenance"
)

type fakeSource struct {
	emitContent string
	err         error
}

func (f *fakeSource) Enumerate(ctx context.Context, cancel *pipeline.CancelToken, emit pipeline.EmitFunc) error {
	if f.emitContent != "" {
		if err := emit([]byte(f.emitContent), provenance.NewFile("fake")); err != nil {
			return err
		}
	}
	return f.err
}

func TestMulti_RunsEverySource(t *testing.T) {
	var seen []string
	emit := func(content []byte, prov provenance.Provenance) error {
		seen = append(seen, string(content))
		return nil
	}

	m := &Multi{Sources: []pipeline.Source{
		&fakeSource{emitContent: "a"},
		&fakeSource{emitContent: "b"},
	}}
	if err := m.Enumerate(context.Background(), pipeline.NewCancelToken(), emit); err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if len(seen) != 2 || seen[0] != "a" || seen[1] != "b" {
		t.Errorf("expected both sources to emit, got %v", seen)
	}
}

func TestMulti_ContinuesAfterOneSourceErrorsAndReturnsIt(t *testing.T) {
	boom := errors.New("boom")
	m := &Multi{Sources: []pipeline.Source{
		&fakeSource{emitContent: "a", err: boom},
		&fakeSource{emitContent: "b"},
	}}

	var seen []string
	emit := func(content []byte, prov provenance.Provenance) error {
		seen = append(seen, string(content))
		return nil
	}

	err := m.Enumerate(context.Background(), pipeline.NewCancelToken(), emit)
	if err != boom {
		t.Errorf("expected the first source's error to surface, got %v", err)
	}
	if len(seen) != 2 {
		t.Errorf("expected the second source to still run, got %v", seen)
	}
}

func TestMulti_StopsOnCancellation(t *testing.T) {
	cancel := pipeline.NewCancelToken()
	cancel.Cancel()

	m := &Multi{Sources: []pipeline.Source{&fakeSource{emitContent: "a"}}}
	err := m.Enumerate(context.Background(), cancel, func([]byte, provenance.Provenance) error { return nil })
	if err != pipeline.ErrCancelled {
		t.Errorf("expected ErrCancelled, got %v", err)
	}
}
