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

package pattern

import (
	"strings"
	"unicode/utf8"

	"gitlab.com/tozd/go/errors"
)

// 🔍 Spec describes where a patch applies
type Spec struct {
	// Text is the pattern source, or the exact anchor when Literal is set
	Text string `json:"text" yaml:"text"`

	// Literal disables gap parsing: the whole text is matched byte for byte
	Literal bool `json:"literal,omitempty" yaml:"literal,omitempty"`
}

// 🎯 Span is one match of a pattern inside a buffer
type Span struct {
	Start    int               // byte offset of the first matched byte
	End      int               // byte offset one past the last matched byte
	Captures map[string]string // gap name -> captured text
}

// Len returns the number of matched bytes
func (s Span) Len() int {
	return s.End - s.Start
}

// 🧩 Pattern is a compiled Spec
type Pattern struct {
	source string
	segs   []segment
}

// 🏭 Compile parses and validates a Spec
func Compile(spec Spec) (*Pattern, error) {
	if spec.Text == "" {
		return nil, errors.Errorf("%w: empty pattern", ErrInvalidPattern)
	}

	if spec.Literal {
		return &Pattern{
			source: spec.Text,
			segs:   []segment{{kind: segLiteral, text: spec.Text}},
		}, nil
	}

	segs, err := parse(spec.Text)
	if err != nil {
		return nil, err
	}
	if err := validate(segs); err != nil {
		return nil, err
	}

	return &Pattern{source: spec.Text, segs: segs}, nil
}

// MustCompile is like Compile but panics on error
func MustCompile(spec Spec) *Pattern {
	p, err := Compile(spec)
	if err != nil {
		panic(err)
	}
	return p
}

func validate(segs []segment) error {
	if len(segs) == 0 {
		return errors.Errorf("%w: empty pattern", ErrInvalidPattern)
	}
	if segs[0].kind == segGap {
		return errors.Errorf("%w: pattern must start with literal text, found gap %q", ErrInvalidPattern, segs[0].name)
	}
	if last := segs[len(segs)-1]; last.kind == segGap {
		return errors.Errorf("%w: pattern must end with literal text, found gap %q", ErrInvalidPattern, last.name)
	}

	multiline := map[string]bool{}
	for i, s := range segs {
		if s.kind != segGap {
			continue
		}
		if segs[i-1].kind == segGap {
			return errors.Errorf("%w: gaps %q and %q are adjacent", ErrInvalidPattern, segs[i-1].name, s.name)
		}
		if s.anonymous() {
			continue
		}
		if prev, ok := multiline[s.name]; ok && prev != s.multiline {
			return errors.Errorf("%w: gap %q is used as both single-line and multi-line", ErrInvalidPattern, s.name)
		}
		multiline[s.name] = s.multiline
	}

	return nil
}

// String returns the pattern source
func (p *Pattern) String() string {
	return p.source
}

// Gaps returns the named gaps in order of first appearance
func (p *Pattern) Gaps() []string {
	var names []string
	seen := map[string]bool{}
	for _, s := range p.segs {
		if s.kind != segGap || s.anonymous() || seen[s.name] {
			continue
		}
		seen[s.name] = true
		names = append(names, s.name)
	}
	return names
}

// HasLiteral reports whether the pattern contains any non-whitespace literal text
func (p *Pattern) HasLiteral() bool {
	for _, s := range p.segs {
		if s.kind == segLiteral && strings.TrimSpace(s.text) != "" {
			return true
		}
	}
	return false
}

// LongestLiteral returns the longest literal segment
func (p *Pattern) LongestLiteral() string {
	var longest string
	for _, s := range p.segs {
		if s.kind == segLiteral && len(s.text) > len(longest) {
			longest = s.text
		}
	}
	return longest
}

// 🔎 Find returns every non-overlapping match in buf, left to right.
// Each match starts as far left as possible and uses the shortest gaps.
func (p *Pattern) Find(buf string) []Span {
	var spans []Span
	for pos := 0; pos <= len(buf); {
		span, ok := p.Search(buf, pos, nil)
		if !ok {
			break
		}
		spans = append(spans, span)
		if span.End > span.Start {
			pos = span.End
		} else {
			pos = span.Start + 1
		}
	}
	return spans
}

// Search returns the leftmost match starting at or after from
func (p *Pattern) Search(buf string, from int, bound map[string]string) (Span, bool) {
	if from < 0 || from > len(buf) {
		return Span{}, false
	}

	if first := p.segs[0]; first.kind == segLiteral {
		for pos := from; pos <= len(buf); {
			idx := strings.Index(buf[pos:], first.text)
			if idx < 0 {
				return Span{}, false
			}
			start := pos + idx
			if span, ok := p.MatchAt(buf, start, bound); ok {
				return span, true
			}
			pos = start + 1
		}
		return Span{}, false
	}

	// leading gap: only derived patterns get here
	for start := from; start < len(buf); {
		if span, ok := p.MatchAt(buf, start, bound); ok {
			return span, true
		}
		_, size := utf8.DecodeRuneInString(buf[start:])
		start += size
	}
	return Span{}, false
}

// MatchAt matches the pattern anchored at pos. Gaps named in bound must
// match the bound text exactly.
func (p *Pattern) MatchAt(buf string, pos int, bound map[string]string) (Span, bool) {
	if pos < 0 || pos > len(buf) {
		return Span{}, false
	}

	caps := make(map[string]string, len(bound))
	for k, v := range bound {
		caps[k] = v
	}

	end, ok := p.match(buf, 0, pos, caps, false)
	if !ok {
		return Span{}, false
	}
	return Span{Start: pos, End: end, Captures: caps}, true
}

// MatchWhole matches the pattern against exactly buf[start:end]. Gaps never
// reach outside that range.
func (p *Pattern) MatchWhole(buf string, start, end int) (Span, bool) {
	if start < 0 || start > end || end > len(buf) {
		return Span{}, false
	}

	caps := map[string]string{}
	if _, ok := p.match(buf[:end], 0, start, caps, true); !ok {
		return Span{}, false
	}
	return Span{Start: start, End: end, Captures: caps}, true
}

func (p *Pattern) match(buf string, i, pos int, caps map[string]string, whole bool) (int, bool) {
	if i == len(p.segs) {
		if whole && pos != len(buf) {
			return 0, false
		}
		return pos, true
	}

	seg := p.segs[i]
	if seg.kind == segLiteral {
		if !strings.HasPrefix(buf[pos:], seg.text) {
			return 0, false
		}
		return p.match(buf, i+1, pos+len(seg.text), caps, whole)
	}

	if !seg.anonymous() {
		if v, ok := caps[seg.name]; ok {
			if !strings.HasPrefix(buf[pos:], v) {
				return 0, false
			}
			return p.match(buf, i+1, pos+len(v), caps, whole)
		}
	}

	limit := len(buf)
	if !seg.multiline {
		if nl := strings.IndexByte(buf[pos:], '\n'); nl >= 0 {
			limit = pos + nl
		}
	}
	if limit <= pos {
		return 0, false
	}

	try := func(e int) (int, bool) {
		if !seg.anonymous() {
			caps[seg.name] = buf[pos:e]
		}
		if end, ok := p.match(buf, i+1, e, caps, whole); ok {
			return end, true
		}
		if !seg.anonymous() {
			delete(caps, seg.name)
		}
		return 0, false
	}

	// gap followed by a literal: candidate ends are the literal's occurrences
	if i+1 < len(p.segs) && p.segs[i+1].kind == segLiteral {
		next := p.segs[i+1].text
		_, first := utf8.DecodeRuneInString(buf[pos:])
		for from := pos + first; from <= limit; {
			idx := strings.Index(buf[from:], next)
			if idx < 0 || from+idx > limit {
				return 0, false
			}
			e := from + idx
			if end, ok := try(e); ok {
				return end, true
			}
			from = e + 1
		}
		return 0, false
	}

	// trailing or adjacent gap: grow one rune at a time
	for e := pos; e < limit; {
		_, size := utf8.DecodeRuneInString(buf[e:])
		e += size
		if e > limit {
			break
		}
		if end, ok := try(e); ok {
			return end, true
		}
	}
	return 0, false
}
