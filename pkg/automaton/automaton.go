// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package automaton compiles a rule set into the two artifacts the matcher
// needs: a block matcher that reports which rule indices fired somewhere in
// a blob, and one capture extractor per rule that, given a window around a
// hit, produces precise start/end and per-group spans.
//
// Two builds exist, selected by build tag: the portable build
// (automaton_portable.go, the default, no cgo) runs each rule's regexp2
// pattern directly for both stages; the Hyperscan build
// (automaton_hyperscan.go, tags cgo,vectorscan) compiles the ruleset into
// one Hyperscan block-mode database and uses it purely as a same-semantics
// prefilter: Hyperscan runs without SOM_LEFTMOST, so only its end-offsets and rule ids
// are trustworthy — start offsets and capture groups always come from the
// capture extractor, never from Hyperscan.
package automaton

import (
	"fmt"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/kraklabs/noseyparker/pkg/rules"
)

// matchTimeout bounds catastrophic backtracking in both the block matcher
// and the capture extractor.
const matchTimeout = 5 * time.Second

// ErrUnsupportedPattern is returned by Build when a rule's pattern compiles
// under the capture extractor but is rejected by the block engine.
type ErrUnsupportedPattern struct {
	RuleID string
	Err    error
}

func (e *ErrUnsupportedPattern) Error() string {
	return fmt.Sprintf("automaton: rule %s rejected by block engine: %v", e.RuleID, e.Err)
}

func (e *ErrUnsupportedPattern) Unwrap() error { return e.Err }

// CaptureExtractor is one compiled regex per rule, used to extract precise
// start/end and capture-group spans from a byte window the block matcher
// flagged.
type CaptureExtractor struct {
	RuleID  string
	RuleIdx int
	re      *regexp2.Regexp
	groups  []string
}

// compileCapture compiles pattern the same way pkg/rules validated it:
// RE2 mode first, falling back to Perl-compatible mode for extended syntax.
func compileCapture(pattern string) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(pattern, regexp2.RE2|regexp2.Multiline)
	if err != nil {
		re, err = regexp2.Compile(pattern, regexp2.None)
		if err != nil {
			return nil, err
		}
	}
	re.MatchTimeout = matchTimeout
	return re, nil
}

// buildCaptureExtractors compiles one CaptureExtractor per rule.
func buildCaptureExtractors(rs []rules.Rule) ([]CaptureExtractor, error) {
	extractors := make([]CaptureExtractor, 0, len(rs))
	for _, r := range rs {
		re, err := compileCapture(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("automaton: rule %s: %w", r.ID, err)
		}
		extractors = append(extractors, CaptureExtractor{
			RuleID:  r.ID,
			RuleIdx: r.Index,
			re:      re,
			groups:  re.GetGroupNames(),
		})
	}
	return extractors, nil
}

// Span is a half-open byte range [Start, End).
type Span struct {
	Start int
	End   int
}

// CaptureMatch is one match produced by a CaptureExtractor: the full match
// span plus each non-empty named/numbered group's span and literal bytes.
type CaptureMatch struct {
	Span   Span
	Groups []GroupMatch
}

// GroupMatch is one capture group's span and literal bytes within a match.
type GroupMatch struct {
	Name  string
	Span  Span
	Bytes []byte
}

// Extract runs the capture extractor over window, returning every match it
// finds (start/end measured relative to the start of window).
func (c *CaptureExtractor) Extract(window []byte) ([]CaptureMatch, error) {
	var out []CaptureMatch
	s := string(window)

	m, err := c.re.FindStringMatch(s)
	for m != nil {
		if err != nil {
			return out, err
		}
		cm := CaptureMatch{Span: Span{Start: m.Index, End: m.Index + m.Length}}

		for _, g := range m.Groups() {
			if g.Name == "0" || len(g.Captures) == 0 {
				continue
			}
			cap := g.Captures[0]
			cm.Groups = append(cm.Groups, GroupMatch{
				Name:  g.Name,
				Span:  Span{Start: cap.Index, End: cap.Index + cap.Length},
				Bytes: []byte(cap.String()),
			})
		}

		out = append(out, cm)
		m, err = c.re.FindNextMatch(m)
	}
	if err != nil {
		return out, err
	}
	return out, nil
}

// Automaton is the compiled artifact pair the matcher scans blobs with.
type Automaton struct {
	Blocks     *Blocks
	Extractors []CaptureExtractor
}

// ExtractorFor returns the capture extractor for the given rule index, or
// nil if ruleIdx is out of range.
func (a *Automaton) ExtractorFor(ruleIdx int) *CaptureExtractor {
	if ruleIdx < 0 || ruleIdx >= len(a.Extractors) {
		return nil
	}
	return &a.Extractors[ruleIdx]
}

// Options controls Build.
type Options struct {
	// MatchTimeout overrides the default 5s regex match timeout, mostly
	// for tests that want to exercise timeout handling quickly.
	MatchTimeout time.Duration
}

// Build compiles rs into both the block matcher and the per-rule capture
// extractors. It fails with *ErrUnsupportedPattern if a rule's pattern is
// accepted by the capture extractor (it must be, since pkg/rules already
// validated it) but rejected by the block engine.
func Build(rs []rules.Rule, opts Options) (*Automaton, error) {
	extractors, err := buildCaptureExtractors(rs)
	if err != nil {
		return nil, err
	}

	blocks, err := buildBlocks(rs, opts)
	if err != nil {
		return nil, err
	}

	return &Automaton{Blocks: blocks, Extractors: extractors}, nil
}
