// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

//go:build cgo && vectorscan

// This file builds the Hyperscan block matcher when compiled with
// `-tags vectorscan` on a platform with the Hyperscan C library and headers
// available: a single block-mode database compiled from every rule's
// pattern, scanned without HS_FLAG_SOM_LEFTMOST, so Hyperscan is used
// strictly as a same-semantics prefilter. Offsets and capture groups
// always come from the regexp2 capture extractor, never from Hyperscan's
// callback.
package automaton

import (
	"fmt"

	"github.com/flier/gohs/hyperscan"

	"github.com/kraklabs/noseyparker/pkg/rules"
)

// Blocks is the Hyperscan-backed block matcher.
type Blocks struct {
	hsDB     hyperscan.BlockDatabase
	indices  []int
	patterns int
}

func buildBlocks(rs []rules.Rule, opts Options) (*Blocks, error) {
	patterns := make([]*hyperscan.Pattern, 0, len(rs))
	indices := make([]int, len(rs))

	for i, r := range rs {
		p := hyperscan.NewPattern(r.Pattern, hyperscan.DotAll|hyperscan.MultiLine)
		p.Id = i
		patterns = append(patterns, p)
		indices[i] = r.Index
	}

	db, err := hyperscan.NewBlockDatabase(patterns...)
	if err != nil {
		return nil, fmt.Errorf("automaton: hyperscan compile: %w", err)
	}

	return &Blocks{hsDB: db, indices: indices, patterns: len(rs)}, nil
}

type hyperscanMatchHandler struct {
	hits []int
}

func (h *hyperscanMatchHandler) handle(id uint, from, to uint64, flags uint, context interface{}) error {
	h.hits = append(h.hits, int(id))
	return nil
}

// Match runs the block matcher using s's cloned Hyperscan scratch space,
// falling back to an allocated scratch if s carries none.
func (a *Automaton) Match(blob []byte, s *Scratch) ([]int, error) {
	return a.Blocks.MatchWithScratch(blob, s)
}

// Match returns the rule indices whose pattern fired somewhere in blob,
// using a fresh scratch space. Callers scanning many blobs should use
// MatchWithScratch instead to avoid reallocating Hyperscan scratch per call.
func (b *Blocks) Match(blob []byte) ([]int, error) {
	scratch, err := hyperscan.NewScratch(b.hsDB)
	if err != nil {
		return nil, fmt.Errorf("automaton: hyperscan scratch: %w", err)
	}
	defer scratch.Free()
	return b.scan(blob, scratch)
}

// MatchWithScratch is like Match but reuses a *Scratch's Hyperscan scratch
// space, avoiding per-blob allocation in the hot path.
func (b *Blocks) MatchWithScratch(blob []byte, s *Scratch) ([]int, error) {
	if s == nil || s.hs == nil {
		return b.Match(blob)
	}
	return b.scan(blob, s.hs.scratch)
}

func (b *Blocks) scan(blob []byte, scratch *hyperscan.Scratch) ([]int, error) {
	h := &hyperscanMatchHandler{}
	if err := b.hsDB.Scan(blob, scratch, h.handle, nil); err != nil {
		return nil, fmt.Errorf("automaton: hyperscan scan: %w", err)
	}

	seen := make(map[int]bool, len(h.hits))
	out := make([]int, 0, len(h.hits))
	for _, patIdx := range h.hits {
		ruleIdx := b.indices[patIdx]
		if !seen[ruleIdx] {
			seen[ruleIdx] = true
			out = append(out, ruleIdx)
		}
	}
	return sortInts(out), nil
}

func sortInts(xs []int) []int {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
	return xs
}
