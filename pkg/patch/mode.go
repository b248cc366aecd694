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
	"strings"

	"gitlab.com/tozd/go/errors"
)

// 🔧 Mode controls how the replacement is placed relative to a match
type Mode string

const (
	ModeReplaceFirst Mode = "replace-first"
	ModeReplaceAll   Mode = "replace-all"
	ModeInsertAfter  Mode = "insert-after"
	ModeInsertBefore Mode = "insert-before"
)

// Modes lists every supported mode
var Modes = []Mode{ModeReplaceFirst, ModeReplaceAll, ModeInsertAfter, ModeInsertBefore}

// ParseMode parses a mode name. The empty string is replace-first.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return ModeReplaceFirst, nil
	}
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Modes {
		if m == known {
			return m, nil
		}
	}
	return "", errors.Errorf("%w: %q", ErrInvalidMode, s)
}

// replaces reports whether the match itself is substituted
func (m Mode) replaces() bool {
	return m == ModeReplaceFirst || m == ModeReplaceAll
}

// single reports whether the mode acts on exactly one match
func (m Mode) single() bool {
	return m != ModeReplaceAll
}
