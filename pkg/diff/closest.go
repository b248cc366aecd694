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

package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// MinSimilarity is the lowest score reported as a near miss
const MinSimilarity = 0.6

// 🎯 Hint points at the region of a buffer that most resembles a needle
type Hint struct {
	Line       int     // 1-based first line of the region
	Text       string  // region text
	Similarity float64 // 0..1
}

// String formats the hint for outcome details
func (h Hint) String() string {
	return fmt.Sprintf("closest region at line %d (%.0f%% similar)", h.Line, h.Similarity*100)
}

// 🔍 Closest slides a window the height of needle over buf and returns the
// most similar region, if it scores at least MinSimilarity.
func Closest(buf, needle string) (Hint, bool) {
	needle = strings.Trim(needle, "\n")
	if strings.TrimSpace(needle) == "" || buf == "" {
		return Hint{}, false
	}

	bufLines := strings.Split(buf, "\n")
	height := strings.Count(needle, "\n") + 1
	if height > len(bufLines) {
		height = len(bufLines)
	}

	dmp := diffmatchpatch.New()
	var best Hint
	for i := 0; i+height <= len(bufLines); i++ {
		candidate := strings.Join(bufLines[i:i+height], "\n")
		if strings.TrimSpace(candidate) == "" {
			continue
		}
		sim := similarity(dmp, candidate, needle)
		if sim > best.Similarity {
			best = Hint{Line: i + 1, Text: candidate, Similarity: sim}
		}
	}

	if best.Similarity < MinSimilarity {
		return Hint{}, false
	}
	return best, true
}

func similarity(dmp *diffmatchpatch.DiffMatchPatch, a, b string) float64 {
	if a == b {
		return 1
	}
	distance := dmp.DiffLevenshtein(dmp.DiffMain(a, b, false))
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	return 1 - float64(distance)/float64(longest)
}
