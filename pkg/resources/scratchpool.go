// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package resources

import (
	"fmt"
	"sync"

	"github.com/kraklabs/noseyparker/pkg/automaton"
)

// ScratchPool hands out exactly one automaton.Scratch per worker for the
// worker's entire lifetime. It is deliberately not a sync.Pool: a sync.Pool
// may hand the same item to different goroutines over time, which is wrong
// for the Hyperscan build's scratch clones (not safe to migrate between
// goroutines mid-scan) and adds nothing for the portable build, where
// scratch is stateless. Workers acquire once at startup and release once at
// shutdown.
type ScratchPool struct {
	automaton *automaton.Automaton

	mu        sync.Mutex
	allocated int
}

// NewScratchPool returns a ScratchPool that mints scratch bound to a.
func NewScratchPool(a *automaton.Automaton) *ScratchPool {
	return &ScratchPool{automaton: a}
}

// Acquire allocates a fresh, exclusively-owned Scratch for the calling
// worker. Call Release when the worker exits.
func (p *ScratchPool) Acquire() (*automaton.Scratch, error) {
	s, err := automaton.NewScratch(p.automaton)
	if err != nil {
		return nil, fmt.Errorf("resources: allocating worker scratch: %w", err)
	}
	p.mu.Lock()
	p.allocated++
	p.mu.Unlock()
	return s, nil
}

// Release closes s and accounts for it. It must be called exactly once per
// successful Acquire.
func (p *ScratchPool) Release(s *automaton.Scratch) error {
	p.mu.Lock()
	p.allocated--
	p.mu.Unlock()
	return s.Close()
}

// Outstanding reports how many scratch instances are currently acquired
// and not yet released, for diagnostics and tests.
func (p *ScratchPool) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allocated
}
