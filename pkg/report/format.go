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

package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/walteh/patchrc/pkg/patch"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// Format selects how a report is written
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat parses a format name. The empty string is text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", errors.Errorf("unknown report format %q (want text, json or yaml)", s)
	}
}

// 🎨 Display configuration
const (
	outcomeIndent = 4  // spaces to indent patch entries
	patchWidth    = 35 // width for the patch name
	statusWidth   = 20 // width for the status text
)

// 📝 Write renders the report to w
func (r *Report) Write(w io.Writer, format Format) error {
	switch format {
	case FormatText, "":
		return r.WriteText(w)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r.view()); err != nil {
			return errors.Errorf("encoding report as json: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r.view()); err != nil {
			return errors.Errorf("encoding report as yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return errors.Errorf("closing yaml encoder: %w", err)
		}
		return nil
	default:
		return errors.Errorf("unknown report format %q", format)
	}
}

// WriteText renders one block per target followed by a summary line
func (r *Report) WriteText(w io.Writer) error {
	var b strings.Builder

	for _, t := range r.Targets() {
		b.WriteString(FormatTarget(t))
		b.WriteString("\n")
		for _, o := range t.Outcomes {
			b.WriteString(FormatOutcome(o))
			b.WriteString("\n")
		}
		if t.Preview != "" {
			for _, line := range strings.Split(strings.TrimRight(t.Preview, "\n"), "\n") {
				b.WriteString(strings.Repeat(" ", outcomeIndent))
				b.WriteString(colorDiffLine(line))
				b.WriteString("\n")
			}
		}
	}

	b.WriteString(r.Summary())
	b.WriteString("\n")

	if _, err := io.WriteString(w, b.String()); err != nil {
		return errors.Errorf("writing report: %w", err)
	}
	return nil
}

// 🎯 FormatTarget formats the header line of a target
func FormatTarget(t TargetResult) string {
	var prefix, state string
	switch {
	case t.Err != nil:
		prefix, state = color.RedString("✗"), color.RedString("failed: %v", t.Err)
	case t.Failed():
		prefix, state = color.RedString("✗"), color.RedString("required patches failed")
	case t.Persisted:
		prefix, state = color.GreenString("✓"), fmt.Sprintf("written (+%d -%d)", t.Added, t.Removed)
	case t.Changed:
		prefix, state = color.YellowString("⟳"), fmt.Sprintf("not written (+%d -%d)", t.Added, t.Removed)
	default:
		prefix, state = color.HiBlackString("-"), "unchanged"
	}
	return fmt.Sprintf("%s %s %s", prefix, color.New(color.Bold).Sprint(t.Target), state)
}

// FormatOutcome formats one patch outcome
func FormatOutcome(o patch.Outcome) string {
	var prefix string
	switch o.Status {
	case patch.StatusApplied:
		prefix = color.GreenString("✓")
	case patch.StatusSkipped:
		prefix = color.HiBlackString("-")
	default:
		if o.Required {
			prefix = color.RedString("✗")
		} else {
			prefix = color.YellowString("!")
		}
	}

	return strings.TrimRight(fmt.Sprintf("%s%s %-*s %-*s %s",
		strings.Repeat(" ", outcomeIndent),
		prefix,
		patchWidth, o.Patch,
		statusWidth, o.Status,
		o.Detail,
	), " ")
}

// Summary returns a one-line tally of the run
func (r *Report) Summary() string {
	c := r.Counts()
	line := fmt.Sprintf("%d target(s): %d applied, %d skipped, %d not found, %d error(s), %d written",
		c.Targets, c.Applied, c.Skipped, c.NotFound, c.Errors+c.TargetErrors, c.Persisted)
	if r.OverallSuccess() {
		return color.GreenString("✅ ") + line
	}
	return color.RedString("❌ ") + line
}

func colorDiffLine(line string) string {
	switch {
	case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		return color.New(color.Bold).Sprint(line)
	case strings.HasPrefix(line, "+"):
		return color.GreenString("%s", line)
	case strings.HasPrefix(line, "-"):
		return color.RedString("%s", line)
	case strings.HasPrefix(line, "@@"):
		return color.CyanString("%s", line)
	default:
		return line
	}
}

type targetView struct {
	Target    string          `json:"target" yaml:"target"`
	Error     string          `json:"error,omitempty" yaml:"error,omitempty"`
	Changed   bool            `json:"changed" yaml:"changed"`
	Persisted bool            `json:"persisted" yaml:"persisted"`
	Added     int             `json:"added" yaml:"added"`
	Removed   int             `json:"removed" yaml:"removed"`
	Preview   string          `json:"preview,omitempty" yaml:"preview,omitempty"`
	Outcomes  []patch.Outcome `json:"outcomes" yaml:"outcomes"`
}

type reportView struct {
	ID       string       `json:"id" yaml:"id"`
	Started  string       `json:"started" yaml:"started"`
	Success  bool         `json:"success" yaml:"success"`
	Counts   Counts       `json:"counts" yaml:"counts"`
	Targets  []targetView `json:"targets" yaml:"targets"`
	Failures []Failure    `json:"failures,omitempty" yaml:"failures,omitempty"`
}

func (r *Report) view() reportView {
	v := reportView{
		ID:       r.ID,
		Started:  r.Started.UTC().Format("2006-01-02T15:04:05Z"),
		Success:  r.OverallSuccess(),
		Counts:   r.Counts(),
		Failures: r.FailedPatches(),
	}
	for _, t := range r.Targets() {
		tv := targetView{
			Target:    t.Target,
			Changed:   t.Changed,
			Persisted: t.Persisted,
			Added:     t.Added,
			Removed:   t.Removed,
			Preview:   t.Preview,
			Outcomes:  t.Outcomes,
		}
		if t.Err != nil {
			tv.Error = t.Err.Error()
		}
		if tv.Outcomes == nil {
			tv.Outcomes = []patch.Outcome{}
		}
		v.Targets = append(v.Targets, tv)
	}
	return v
}
