// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package resources

import (
	"testing"

	"github.com/kraklabs/noseyparker/pkg/automaton"
	"github.com/kraklabs/noseyparker/pkg/rules"
)

func testAutomaton(t *testing.T) *automaton.Automaton {
	t.Helper()
	a, err := automaton.Build([]rules.Rule{{ID: "r.a", Index: 0, Pattern: "(abc)"}}, automaton.Options{})
	if err != nil {
		t.Fatalf("automaton.Build() error = %v", err)
	}
	return a
}

func TestScratchPool_AcquireReleaseTracksOutstanding(t *testing.T) {
	p := NewScratchPool(testAutomaton(t))

	s1, err := p.Acquire()
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	s2, err := p.Acquire()
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if got := p.Outstanding(); got != 2 {
		t.Errorf("Outstanding() = %d, want 2", got)
	}

	if err := p.Release(s1); err != nil {
		t.Errorf("Release() error = %v", err)
	}
	if got := p.Outstanding(); got != 1 {
		t.Errorf("Outstanding() = %d, want 1", got)
	}

	if err := p.Release(s2); err != nil {
		t.Errorf("Release() error = %v", err)
	}
	if got := p.Outstanding(); got != 0 {
		t.Errorf("Outstanding() = %d, want 0", got)
	}
}

func TestScratchPool_DistinctWorkersGetDistinctScratch(t *testing.T) {
	p := NewScratchPool(testAutomaton(t))

	s1, err := p.Acquire()
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	s2, err := p.Acquire()
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if s1 == s2 {
		t.Error("expected distinct Scratch instances per worker")
	}
	p.Release(s1)
	p.Release(s2)
}
