// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package patch

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/patchrc/pkg/diff"
	"github.com/walteh/patchrc/pkg/pattern"
	"gitlab.com/tozd/go/errors"
)

// 🚀 Apply runs every patch of set against buf in order, each one seeing
// the result of the ones before it. It returns the final text and exactly
// one outcome per patch. Patch-level problems end up in the outcomes;
// Apply itself never fails.
func Apply(ctx context.Context, buf string, set *Set) (string, []Outcome) {
	logger := zerolog.Ctx(ctx).With().Str("target", set.target).Logger()

	outcomes := make([]Outcome, 0, len(set.patches))
	for _, p := range set.patches {
		var out Outcome
		buf, out = p.apply(buf)
		logOutcome(&logger, out)
		outcomes = append(outcomes, out)
	}

	return buf, outcomes
}

func logOutcome(logger *zerolog.Logger, out Outcome) {
	var ev *zerolog.Event
	switch {
	case out.Failed():
		ev = logger.Warn().Err(out.Err)
	case out.Status == StatusApplied:
		ev = logger.Info()
	default:
		ev = logger.Debug()
	}
	ev.Str("patch", out.Patch).
		Str("status", string(out.Status)).
		Int("spans", out.Spans).
		Str("detail", out.Detail).
		Msg("patch processed")
}

type edit struct {
	span pattern.Span
	text string
}

func (p *compiled) apply(buf string) (string, Outcome) {
	out := Outcome{Patch: p.Name, Required: p.Required}

	all := p.match.Find(buf)
	if len(all) == 0 {
		return buf, p.absent(buf, out)
	}

	if !p.Mode.replaces() {
		if all = p.insertedCopies(buf, all); len(all) == 0 {
			out.Status = StatusSkipped
			out.Detail = "already applied: every anchor is part of an earlier insertion"
			return buf, out
		}
	}

	spans := all
	if p.Occurrence > 0 {
		span, patched, count := p.nth(buf, all, p.Occurrence)
		if count < p.Occurrence {
			err := errors.Errorf("%w: occurrence %d requested but only %d found", ErrNotFound, p.Occurrence, count)
			return buf, p.missing(out, err, err.Error())
		}
		if patched {
			out.Status = StatusSkipped
			out.Detail = fmt.Sprintf("occurrence %d already applied at line %d", p.Occurrence, lineOf(buf, span.Start))
			return buf, out
		}
		spans = []pattern.Span{span}
	}

	edits := make([]edit, 0, len(spans))
	for _, s := range spans {
		text, err := p.tmpl.Render(s.Captures)
		if err != nil {
			return buf, p.failed(out, err)
		}
		lo, hi := neighbours(buf, all, s)
		if p.present(buf, s, text, lo, hi) {
			continue
		}
		edits = append(edits, edit{span: s, text: text})
	}

	if len(edits) == 0 {
		out.Status = StatusSkipped
		out.Detail = fmt.Sprintf("already applied at %d location(s)", len(spans))
		return buf, out
	}

	if p.Mode.single() && len(edits) > 1 {
		lines := make([]string, len(edits))
		for i, e := range edits {
			lines[i] = fmt.Sprint(lineOf(buf, e.span.Start))
		}
		return buf, p.failed(out, errors.Errorf("%w: %s found %d matches at lines %s; set occurrence or extend the pattern",
			ErrAmbiguousMatch, p.Mode, len(edits), strings.Join(lines, ", ")))
	}

	out.Status = StatusApplied
	out.Spans = len(edits)
	out.Detail = fmt.Sprintf("%s at line %d", p.Mode, lineOf(buf, edits[0].span.Start))
	return p.splice(buf, edits), out
}

// absent decides the outcome when the match pattern does not occur at all
func (p *compiled) absent(buf string, out Outcome) Outcome {
	if p.effect == nil {
		out.Status = StatusSkipped
		out.Detail = "pattern not found; replacement has no literal text to verify"
		return out
	}

	if e, ok := p.effect.Search(buf, 0, nil); ok {
		out.Status = StatusSkipped
		out.Detail = fmt.Sprintf("already applied at line %d", lineOf(buf, e.Start))
		return out
	}

	detail := "pattern not found"
	if hint, ok := diff.Closest(buf, p.match.LongestLiteral()); ok {
		detail += "; " + hint.String()
	}
	return p.missing(out, errors.Errorf("%w: %s", ErrNotFound, detail), detail)
}

func (p *compiled) missing(out Outcome, err error, detail string) Outcome {
	if !p.Required {
		out.Status = StatusSkipped
		out.Detail = "not applicable: " + detail
		return out
	}
	out.Status = StatusNotFound
	out.Detail = detail
	out.Err = err
	return out
}

func (p *compiled) failed(out Outcome, err error) Outcome {
	out.Status = StatusError
	out.Detail = err.Error()
	out.Err = err
	return out
}

// present reports whether the rendered text is already in place for span s.
// lo and hi bound the region between s and its neighbouring matches.
func (p *compiled) present(buf string, s pattern.Span, text string, lo, hi int) bool {
	switch p.Mode {
	case ModeInsertAfter:
		return strings.Contains(buf[s.End:hi], text)
	case ModeInsertBefore:
		return strings.Contains(buf[lo:s.Start], text)
	}

	// replace modes: the span itself is shaped like the template output,
	// or the output with these captures starts at the span
	if p.effect != nil {
		if _, ok := p.effect.MatchWhole(buf, s.Start, s.End); ok {
			return true
		}
		if _, ok := p.effect.MatchAt(buf, s.Start, s.Captures); ok {
			return true
		}
	}

	return covered(buf, s, text)
}

// covered reports whether span s lies inside a copy of text in buf
func covered(buf string, s pattern.Span, text string) bool {
	matched := buf[s.Start:s.End]
	if matched == "" {
		return false
	}
	for k := strings.Index(text, matched); k >= 0; {
		if start := s.Start - k; start >= 0 && strings.HasPrefix(buf[start:], text) {
			return true
		}
		next := strings.Index(text[k+1:], matched)
		if next < 0 {
			break
		}
		k += next + 1
	}
	return false
}

// insertedCopies drops anchors that belong to an earlier insertion, which
// happens when the inserted text contains the anchor itself
func (p *compiled) insertedCopies(buf string, spans []pattern.Span) []pattern.Span {
	kept := spans[:0:0]
	for _, s := range spans {
		text, err := p.tmpl.Render(s.Captures)
		if err == nil && covered(buf, s, text) {
			continue
		}
		kept = append(kept, s)
	}
	return kept
}

// nth returns the n-th site of the patch in buf. For replace modes a site
// is either a pending match or an earlier application of the replacement,
// so occurrence numbers stay stable across runs.
func (p *compiled) nth(buf string, spans []pattern.Span, n int) (pattern.Span, bool, int) {
	type site struct {
		span    pattern.Span
		patched bool
	}

	sites := make([]site, 0, len(spans))
	for _, s := range spans {
		sites = append(sites, site{span: s})
	}

	if p.Mode.replaces() && p.effect != nil {
		for _, e := range p.effect.Find(buf) {
			if !overlapsAny(e, spans) {
				sites = append(sites, site{span: e, patched: true})
			}
		}
		sort.SliceStable(sites, func(i, j int) bool {
			return sites[i].span.Start < sites[j].span.Start
		})
	}

	if n > len(sites) {
		return pattern.Span{}, false, len(sites)
	}
	return sites[n-1].span, sites[n-1].patched, len(sites)
}

func (p *compiled) splice(buf string, edits []edit) string {
	var b strings.Builder
	b.Grow(len(buf) + len(edits)*len(edits[0].text))

	last := 0
	for _, e := range edits {
		at, resume := e.span.Start, e.span.End
		switch p.Mode {
		case ModeInsertAfter:
			at, resume = e.span.End, e.span.End
		case ModeInsertBefore:
			at, resume = e.span.Start, e.span.Start
		}
		b.WriteString(buf[last:at])
		b.WriteString(e.text)
		last = resume
	}
	b.WriteString(buf[last:])

	return b.String()
}

func neighbours(buf string, all []pattern.Span, s pattern.Span) (lo, hi int) {
	lo, hi = 0, len(buf)
	for _, o := range all {
		if o.End <= s.Start && o.End > lo {
			lo = o.End
		}
		if o.Start >= s.End && o.Start < hi {
			hi = o.Start
		}
	}
	return lo, hi
}

func overlapsAny(s pattern.Span, spans []pattern.Span) bool {
	for _, o := range spans {
		if s.Start < o.End && o.Start < s.End {
			return true
		}
	}
	return false
}

func lineOf(buf string, offset int) int {
	return strings.Count(buf[:offset], "\n") + 1
}
