// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

//go:build !vectorscan

package automaton

import (
	"runtime"
	"sync"

	"github.com/dlclark/regexp2"

	"github.com/kraklabs/noseyparker/pkg/rules"
)

// parallelThreshold is the blob size, in bytes, above which Blocks.Match
// splits rule evaluation across a worker pool instead of running it on the
// calling goroutine. Below it the dispatch overhead outweighs the win.
const parallelThreshold = 10_000

// Blocks is the portable (non-cgo) block matcher: it runs every rule's
// pattern as a plain existence check over the whole blob and reports the
// set of rule indices that matched somewhere. It never reports offsets or
// capture groups — that is the capture extractor's job.
type Blocks struct {
	patterns []*regexp2.Regexp
	indices  []int
}

// buildBlocks compiles one existence-check regex per rule for the portable
// block matcher.
func buildBlocks(rs []rules.Rule, opts Options) (*Blocks, error) {
	timeout := matchTimeout
	if opts.MatchTimeout > 0 {
		timeout = opts.MatchTimeout
	}

	b := &Blocks{
		patterns: make([]*regexp2.Regexp, len(rs)),
		indices:  make([]int, len(rs)),
	}
	for i, r := range rs {
		re, err := regexp2.Compile(r.Pattern, regexp2.RE2|regexp2.Multiline)
		if err != nil {
			re, err = regexp2.Compile(r.Pattern, regexp2.None)
			if err != nil {
				return nil, &ErrUnsupportedPattern{RuleID: r.ID, Err: err}
			}
		}
		re.MatchTimeout = timeout
		b.patterns[i] = re
		b.indices[i] = r.Index
	}
	return b, nil
}

type blockJob struct {
	idx int
	re  *regexp2.Regexp
}

// Match runs the block matcher using s, ignored on the portable build since
// regexp2 matchers carry no per-worker scratch state of their own.
func (a *Automaton) Match(blob []byte, s *Scratch) ([]int, error) {
	return a.Blocks.Match(blob)
}

// Match returns the rule indices whose pattern matches somewhere in blob.
// The returned slice is sorted ascending.
func (b *Blocks) Match(blob []byte) ([]int, error) {
	if len(blob) >= parallelThreshold && len(b.patterns) > 1 {
		return b.matchParallel(blob)
	}
	return b.matchSequential(blob)
}

func (b *Blocks) matchSequential(blob []byte) ([]int, error) {
	s := string(blob)
	var hits []int
	for i, re := range b.patterns {
		ok, err := re.MatchString(s)
		if err != nil {
			continue // treat a timed-out rule as a non-match for this blob, not a scan failure
		}
		if ok {
			hits = append(hits, b.indices[i])
		}
	}
	return hits, nil
}

func (b *Blocks) matchParallel(blob []byte) ([]int, error) {
	s := string(blob)
	workers := runtime.GOMAXPROCS(0)
	if workers > len(b.patterns) {
		workers = len(b.patterns)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan blockJob, len(b.patterns))
	results := make(chan int, len(b.patterns))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				ok, err := job.re.MatchString(s)
				if err != nil {
					continue
				}
				if ok {
					results <- b.indices[job.idx]
				}
			}
		}()
	}

	for i, re := range b.patterns {
		jobs <- blockJob{idx: i, re: re}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	var hits []int
	for idx := range results {
		hits = append(hits, idx)
	}
	return sortInts(hits), nil
}

func sortInts(xs []int) []int {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
	return xs
}
