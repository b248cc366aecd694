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

// Package diff renders line diffs for dry runs and finds near misses for
// patterns that did not match. Nothing here decides where a patch applies.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// context lines printed around each change
const contextLines = 2

type lineOp struct {
	op   diffmatchpatch.Operation
	text string
}

// lineDiff diffs two texts line by line. Every distinct line is encoded as
// one rune so the library diffs whole lines.
func lineDiff(before, after string) []lineOp {
	index := map[string]rune{}
	encode := func(text string) []rune {
		split := splitLines(text)
		runes := make([]rune, len(split))
		for i, line := range split {
			r, ok := index[line]
			if !ok {
				r = lineRune(len(index))
				index[line] = r
			}
			runes[i] = r
		}
		return runes
	}

	a, b := encode(before), encode(after)
	decode := make(map[rune]string, len(index))
	for line, r := range index {
		decode[r] = line
	}

	dmp := diffmatchpatch.New()
	var ops []lineOp
	for _, d := range dmp.DiffMainRunes(a, b, false) {
		for _, r := range d.Text {
			ops = append(ops, lineOp{op: d.Type, text: decode[r]})
		}
	}
	return ops
}

// lineRune maps a line index to a rune, skipping the surrogate range which
// does not survive the library's string conversions
func lineRune(i int) rune {
	r := rune(i + 1)
	if r >= 0xD800 {
		r += 0x800
	}
	return r
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// 📊 Stats returns the number of added and removed lines between two texts
func Stats(before, after string) (added, removed int) {
	if before == after {
		return 0, 0
	}
	for _, op := range lineDiff(before, after) {
		switch op.op {
		case diffmatchpatch.DiffInsert:
			added++
		case diffmatchpatch.DiffDelete:
			removed++
		}
	}
	return added, removed
}

// 📝 Unified renders a unified-style diff of before and after. An empty
// string means the texts are equal.
func Unified(path, before, after string) string {
	if before == after {
		return ""
	}

	ops := lineDiff(before, after)

	// mark the equal lines that are close enough to a change to be printed
	keep := make([]bool, len(ops))
	for i, op := range ops {
		if op.op == diffmatchpatch.DiffEqual {
			continue
		}
		for j := i - contextLines; j <= i+contextLines; j++ {
			if j >= 0 && j < len(ops) {
				keep[j] = true
			}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "--- a/%s\n+++ b/%s\n", path, path)

	oldLine, newLine := 1, 1
	inHunk := false
	for i, op := range ops {
		if !keep[i] {
			inHunk = false
			oldLine++
			newLine++
			continue
		}
		if !inHunk {
			fmt.Fprintf(&b, "@@ -%d +%d @@\n", oldLine, newLine)
			inHunk = true
		}

		text := op.text
		if !strings.HasSuffix(text, "\n") {
			text += "\n\\ No newline at end of file\n"
		}

		switch op.op {
		case diffmatchpatch.DiffEqual:
			b.WriteString(" " + text)
			oldLine++
			newLine++
		case diffmatchpatch.DiffDelete:
			b.WriteString("-" + text)
			oldLine++
		case diffmatchpatch.DiffInsert:
			b.WriteString("+" + text)
			newLine++
		}
	}

	return b.String()
}
