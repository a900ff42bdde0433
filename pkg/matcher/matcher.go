// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package matcher turns a blob's bytes into the raw matches a rule set
// finds in it, using a compiled automaton's two-stage block-match then
// capture-extract algorithm.
package matcher

import (
	"github.com/kraklabs/noseyparker/pkg/automaton"
	"github.com/kraklabs/noseyparker/pkg/blob"
	"github.com/kraklabs/noseyparker/pkg/rules"
)

// defaultSnippetBytes is the default width of context captured before and
// after a match when no explicit snippet length is configured.
const defaultSnippetBytes = 128

// Options controls Worker.Scan.
type Options struct {
	// SnippetBefore and SnippetAfter are the number of bytes of context to
	// capture before/after each match, clamped to blob bounds. Zero means
	// use defaultSnippetBytes.
	SnippetBefore int
	SnippetAfter  int
}

func (o Options) snippetBefore() int {
	if o.SnippetBefore > 0 {
		return o.SnippetBefore
	}
	return defaultSnippetBytes
}

func (o Options) snippetAfter() int {
	if o.SnippetAfter > 0 {
		return o.SnippetAfter
	}
	return defaultSnippetBytes
}

// GroupSpan is one named/numbered capture group's span and literal bytes
// within a RawMatch.
type GroupSpan struct {
	Name  string
	Start int
	End   int
	Bytes []byte
}

// Snippet is the bounded context window captured around a match.
type Snippet struct {
	Before   []byte
	Matching []byte
	After    []byte
}

// Location is a match's span translated into 1-based line/column
// coordinates against the blob's full content. It must be computed while
// the blob's bytes are still in memory; the datastore never retains full
// blob content, only the bounded Snippet, so this cannot be recovered
// later at report time.
type Location struct {
	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int
}

// RawMatch is one surviving match emitted by a Worker, ready for the
// pipeline's writer to persist.
type RawMatch struct {
	BlobID   blob.ID
	RuleID   string
	RuleIdx  int
	Start    int
	End      int
	Groups   []GroupSpan
	Snippet  Snippet
	Location Location
}

// Worker holds the per-goroutine state needed to scan blobs: the
// automaton's scratch space, plus the rule table needed to apply
// min_length/max_offset/extended filters after capture extraction. A
// Worker must not be shared between goroutines.
type Worker struct {
	automaton *automaton.Automaton
	scratch   *automaton.Scratch
	byIndex   map[int]rules.Rule
	opts      Options
}

// NewWorker allocates a Worker bound to a. Callers must Close the worker
// when done to release any cgo-owned scratch space.
func NewWorker(a *automaton.Automaton, rs []rules.Rule, opts Options) (*Worker, error) {
	scratch, err := automaton.NewScratch(a)
	if err != nil {
		return nil, err
	}
	byIndex := make(map[int]rules.Rule, len(rs))
	for _, r := range rs {
		byIndex[r.Index] = r
	}
	return &Worker{automaton: a, scratch: scratch, byIndex: byIndex, opts: opts}, nil
}

// Close releases the worker's scratch space.
func (w *Worker) Close() error {
	return w.scratch.Close()
}

// Scan runs the five-step matching algorithm over content and returns the
// surviving, deduplicated matches.
func (w *Worker) Scan(id blob.ID, content []byte) ([]RawMatch, error) {
	hitIndices, err := w.automaton.Match(content, w.scratch)
	if err != nil {
		return nil, err
	}
	if len(hitIndices) == 0 {
		return nil, nil
	}

	type key struct {
		ruleIdx    int
		start, end int
	}
	seen := make(map[key]bool)
	var out []RawMatch

	for _, ruleIdx := range hitIndices {
		ext := w.automaton.ExtractorFor(ruleIdx)
		if ext == nil {
			continue
		}
		r := w.ruleByIndex(ruleIdx)

		matches, err := ext.Extract(content)
		if err != nil && len(matches) == 0 {
			continue // a timed-out rule degrades to "no matches for this blob", not a scan failure
		}

		for _, m := range matches {
			if !passesFilters(r, m.Span.Start, m.Span.End) {
				continue
			}

			k := key{ruleIdx: ruleIdx, start: m.Span.Start, end: m.Span.End}
			if seen[k] {
				continue
			}
			seen[k] = true

			out = append(out, RawMatch{
				BlobID:   id,
				RuleID:   ext.RuleID,
				RuleIdx:  ruleIdx,
				Start:    m.Span.Start,
				End:      m.Span.End,
				Groups:   toGroupSpans(m.Groups),
				Snippet:  buildSnippet(content, m.Span.Start, m.Span.End, w.opts),
				Location: computeLocation(content, m.Span.Start, m.Span.End),
			})
		}
	}

	return out, nil
}

func (w *Worker) ruleByIndex(idx int) rules.Rule {
	return w.byIndex[idx]
}

// passesFilters applies a rule's optional min_length and max_offset
// post-match filters.
func passesFilters(r rules.Rule, start, end int) bool {
	if r.MinLength > 0 && end-start < r.MinLength {
		return false
	}
	if r.MaxOffset > 0 && start > r.MaxOffset {
		return false
	}
	return true
}

func toGroupSpans(groups []automaton.GroupMatch) []GroupSpan {
	out := make([]GroupSpan, 0, len(groups))
	for _, g := range groups {
		out = append(out, GroupSpan{
			Name:  g.Name,
			Start: g.Span.Start,
			End:   g.Span.End,
			Bytes: g.Bytes,
		})
	}
	return out
}

// buildSnippet clamp-copies context bytes before/after [start, end) in
// content, per opts' configured snippet widths.
func buildSnippet(content []byte, start, end int, opts Options) Snippet {
	before := start - opts.snippetBefore()
	if before < 0 {
		before = 0
	}
	after := end + opts.snippetAfter()
	if after > len(content) {
		after = len(content)
	}

	s := Snippet{
		Before:   append([]byte(nil), content[before:start]...),
		Matching: append([]byte(nil), content[start:end]...),
		After:    append([]byte(nil), content[end:after]...),
	}
	return s
}

// computeLocation translates a byte span into 1-based line/column
// coordinates by counting newlines in content up to each offset. Columns
// count bytes since the preceding newline (or start of content), not
// runes, matching how the byte offsets themselves are measured.
func computeLocation(content []byte, start, end int) Location {
	line, col := 1, 1
	pos := 0
	var startLine, startCol int

	for pos < len(content) && pos < end {
		if pos == start {
			startLine, startCol = line, col
		}
		if content[pos] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
		pos++
	}
	if start == end && pos == start {
		startLine, startCol = line, col
	}

	return Location{
		StartLine:   startLine,
		StartColumn: startCol,
		EndLine:     line,
		EndColumn:   col,
	}
}
