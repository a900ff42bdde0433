// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

//go:build cgo && vectorscan

package automaton

import "github.com/flier/gohs/hyperscan"

// Scratch holds per-worker reusable state. On the hyperscan build this
// wraps a cloned hyperscan.Scratch, since Hyperscan scratch space is not
// safe for concurrent use across goroutines.
type Scratch struct {
	hs *hyperscanScratch
}

type hyperscanScratch struct {
	scratch *hyperscan.Scratch
}

func (s *hyperscanScratch) Close() error {
	return s.scratch.Free()
}

// NewScratch allocates a Scratch for a. Workers must not share a Scratch.
func NewScratch(a *Automaton) (*Scratch, error) {
	scratch, err := hyperscan.NewScratch(a.Blocks.hsDB)
	if err != nil {
		return nil, err
	}
	return &Scratch{hs: &hyperscanScratch{scratch: scratch}}, nil
}

// Close releases the cgo-owned Hyperscan scratch space.
func (s *Scratch) Close() error {
	if s.hs != nil {
		return s.hs.Close()
	}
	return nil
}
