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

// 📝 Template is a parsed replacement template. References use the same
// @{name} syntax as patterns.
type Template struct {
	source string
	segs   []segment
}

// ParseTemplate parses replacement text. An empty template is valid and
// renders to the empty string.
func ParseTemplate(text string) (*Template, error) {
	segs, err := parse(text)
	if err != nil {
		return nil, err
	}
	for _, s := range segs {
		if s.anonymous() {
			return nil, errors.Errorf("%w: anonymous gap cannot be referenced in a template", ErrInvalidPattern)
		}
	}
	return &Template{source: text, segs: segs}, nil
}

// LiteralTemplate returns a template that renders text unchanged
func LiteralTemplate(text string) *Template {
	if text == "" {
		return &Template{}
	}
	return &Template{source: Escape(text), segs: []segment{{kind: segLiteral, text: text}}}
}

// String returns the template source
func (t *Template) String() string {
	return t.source
}

// References returns the gap names the template interpolates, in order of first use
func (t *Template) References() []string {
	var names []string
	seen := map[string]bool{}
	for _, s := range t.segs {
		if s.kind == segGap && !seen[s.name] {
			seen[s.name] = true
			names = append(names, s.name)
		}
	}
	return names
}

// ✍️ Render interpolates captures into the template
func (t *Template) Render(captures map[string]string) (string, error) {
	var b strings.Builder
	for _, s := range t.segs {
		switch s.kind {
		case segLiteral:
			b.WriteString(s.text)
		case segGap:
			v, ok := captures[s.name]
			if !ok {
				return "", errors.Errorf("%w: gap %q was not captured by the match", ErrTemplateInterpolation, s.name)
			}
			b.WriteString(v)
		}
	}
	return b.String(), nil
}

// 🪞 Effect derives the pattern that recognizes this template's output
// in a buffer: literal text stays literal and every reference becomes a
// wildcard gap. Gap kinds (single or multi-line) follow the match pattern
// the references came from. Returns nil for an empty template.
func (t *Template) Effect(match *Pattern) *Pattern {
	if len(t.segs) == 0 {
		return nil
	}

	multiline := map[string]bool{}
	if match != nil {
		for _, s := range match.segs {
			if s.kind == segGap && s.multiline {
				multiline[s.name] = true
			}
		}
	}

	segs := make([]segment, len(t.segs))
	for i, s := range t.segs {
		if s.kind == segGap {
			s.multiline = multiline[s.name]
		}
		segs[i] = s
	}

	return &Pattern{source: escape(segs), segs: segs}
}
