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
	"github.com/walteh/patchrc/pkg/pattern"
	"gitlab.com/tozd/go/errors"
)

var (
	// ErrNotFound is returned when a required pattern is absent from the buffer
	ErrNotFound = errors.New("pattern not found")

	// ErrAmbiguousMatch is returned when a pattern matches more often than the mode allows
	ErrAmbiguousMatch = errors.New("ambiguous match")

	// ErrDuplicatePatch is returned by NewSet when two patches share a name
	ErrDuplicatePatch = errors.New("duplicate patch name")

	// ErrInvalidMode is returned for an unknown mode name
	ErrInvalidMode = errors.New("invalid mode")
)

// 📦 Patch describes one named edit
type Patch struct {
	Name        string       `json:"name" yaml:"name"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Match       pattern.Spec `json:"match" yaml:"match"`
	Replace     string       `json:"replace" yaml:"replace"`
	Mode        Mode         `json:"mode,omitempty" yaml:"mode,omitempty"`

	// Required patches fail the run when they cannot be applied
	Required bool `json:"required" yaml:"required"`

	// Occurrence selects the n-th match (1-based) for single-match modes
	Occurrence int `json:"occurrence,omitempty" yaml:"occurrence,omitempty"`
}

type compiled struct {
	Patch
	match  *pattern.Pattern
	tmpl   *pattern.Template
	effect *pattern.Pattern
}

func compile(p Patch) (*compiled, error) {
	if p.Name == "" {
		return nil, errors.New("patch name is required")
	}

	mode, err := ParseMode(string(p.Mode))
	if err != nil {
		return nil, errors.Errorf("patch %q: %w", p.Name, err)
	}
	p.Mode = mode

	if p.Occurrence < 0 {
		return nil, errors.Errorf("patch %q: occurrence must be positive, got %d", p.Name, p.Occurrence)
	}
	if p.Occurrence > 0 && !mode.single() {
		return nil, errors.Errorf("patch %q: occurrence cannot be used with %s", p.Name, mode)
	}

	match, err := pattern.Compile(p.Match)
	if err != nil {
		return nil, errors.Errorf("patch %q: compiling match: %w", p.Name, err)
	}

	var tmpl *pattern.Template
	if p.Match.Literal {
		tmpl = pattern.LiteralTemplate(p.Replace)
	} else {
		tmpl, err = pattern.ParseTemplate(p.Replace)
		if err != nil {
			return nil, errors.Errorf("patch %q: parsing replacement: %w", p.Name, err)
		}
	}

	c := &compiled{Patch: p, match: match, tmpl: tmpl}
	if effect := tmpl.Effect(match); effect != nil && effect.HasLiteral() {
		c.effect = effect
	}
	return c, nil
}

// 📚 Set is an ordered list of patches bound to one target. A Set is
// immutable once built and may be shared across goroutines.
type Set struct {
	target  string
	patches []*compiled
}

// 🏭 NewSet compiles patches in order. Names must be unique.
func NewSet(target string, patches ...Patch) (*Set, error) {
	s := &Set{target: target, patches: make([]*compiled, 0, len(patches))}
	seen := make(map[string]bool, len(patches))

	for i, p := range patches {
		if seen[p.Name] {
			return nil, errors.Errorf("%w: %q", ErrDuplicatePatch, p.Name)
		}
		seen[p.Name] = true

		c, err := compile(p)
		if err != nil {
			return nil, errors.Errorf("patch %d: %w", i+1, err)
		}
		s.patches = append(s.patches, c)
	}

	return s, nil
}

// MustNewSet is like NewSet but panics on error
func MustNewSet(target string, patches ...Patch) *Set {
	s, err := NewSet(target, patches...)
	if err != nil {
		panic(err)
	}
	return s
}

// Target returns the target identifier the set is bound to
func (s *Set) Target() string {
	return s.target
}

// WithTarget returns a copy of the set bound to another target. The compiled
// patches are shared.
func (s *Set) WithTarget(target string) *Set {
	return &Set{target: target, patches: s.patches}
}

// Len returns the number of patches
func (s *Set) Len() int {
	return len(s.patches)
}

// Patches returns the descriptors in order, with modes normalized
func (s *Set) Patches() []Patch {
	out := make([]Patch, len(s.patches))
	for i, c := range s.patches {
		out[i] = c.Patch
	}
	return out
}
