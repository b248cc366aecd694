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

	"gitlab.com/tozd/go/errors"
)

const (
	sigil       = '@'
	openGap     = '{'
	closeGap    = '}'
	multiSuffix = "..."
	anonymous   = "_"
)

var (
	// ErrInvalidPattern is returned when a match pattern or template cannot be parsed
	ErrInvalidPattern = errors.New("invalid pattern")

	// ErrTemplateInterpolation is returned when a template references a gap the match did not capture
	ErrTemplateInterpolation = errors.New("template interpolation failed")
)

type segmentKind int

const (
	segLiteral segmentKind = iota
	segGap
)

// segment is one piece of a parsed pattern or template
type segment struct {
	kind      segmentKind
	text      string // literal text
	name      string // gap name
	multiline bool   // gap may span newlines
}

func (s segment) anonymous() bool {
	return s.kind == segGap && s.name == anonymous
}

// parse splits text into literal and gap segments.
//
//	@{name}     single-line gap
//	@{name...}  multi-line gap
//	@{_}        anonymous gap
//	@@          literal '@'
func parse(text string) ([]segment, error) {
	var segs []segment
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			segs = append(segs, segment{kind: segLiteral, text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(text); {
		c := text[i]
		if c != sigil || i+1 >= len(text) {
			lit.WriteByte(c)
			i++
			continue
		}

		switch text[i+1] {
		case sigil:
			lit.WriteByte(sigil)
			i += 2
		case openGap:
			end := strings.IndexByte(text[i+2:], closeGap)
			if end < 0 {
				return nil, errors.Errorf("%w: unterminated gap at offset %d", ErrInvalidPattern, i)
			}
			inner := text[i+2 : i+2+end]
			multiline := strings.HasSuffix(inner, multiSuffix)
			name := strings.TrimSuffix(inner, multiSuffix)
			if !validName(name) {
				return nil, errors.Errorf("%w: invalid gap name %q at offset %d", ErrInvalidPattern, inner, i)
			}
			flush()
			segs = append(segs, segment{kind: segGap, name: name, multiline: multiline})
			i += 2 + end + 1
		default:
			lit.WriteByte(c)
			i++
		}
	}
	flush()

	return segs, nil
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// escape renders segments back into pattern syntax
func escape(segs []segment) string {
	var b strings.Builder
	for _, s := range segs {
		switch s.kind {
		case segLiteral:
			b.WriteString(strings.ReplaceAll(s.text, string(sigil), string([]byte{sigil, sigil})))
		case segGap:
			b.WriteByte(sigil)
			b.WriteByte(openGap)
			b.WriteString(s.name)
			if s.multiline {
				b.WriteString(multiSuffix)
			}
			b.WriteByte(closeGap)
		}
	}
	return b.String()
}

// Escape returns text with every '@' doubled so it parses back as pure literal text
func Escape(text string) string {
	return strings.ReplaceAll(text, string(sigil), string([]byte{sigil, sigil}))
}
