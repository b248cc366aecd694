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

// Package report aggregates patch outcomes across the targets of one run.
package report

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/walteh/patchrc/pkg/patch"
)

// 📄 TargetResult is everything that happened to one target
type TargetResult struct {
	Target    string
	Outcomes  []patch.Outcome
	Err       error  // target-level failure, such as an unreadable file
	Changed   bool   // the patched text differs from what was read
	Persisted bool   // the patched text was written back
	Added     int    // lines added
	Removed   int    // lines removed
	Preview   string // unified diff, dry runs only
}

// Failed reports whether the target failed: an I/O error or a failed
// required patch.
func (t TargetResult) Failed() bool {
	if t.Err != nil {
		return true
	}
	for _, o := range t.Outcomes {
		if o.Failed() {
			return true
		}
	}
	return false
}

// 🚨 Failure is one entry of FailedPatches. Patch is empty for target-level
// failures.
type Failure struct {
	Target string       `json:"target" yaml:"target"`
	Patch  string       `json:"patch,omitempty" yaml:"patch,omitempty"`
	Status patch.Status `json:"status" yaml:"status"`
	Detail string       `json:"detail" yaml:"detail"`
}

// Counts tallies outcomes by status
type Counts struct {
	Targets      int `json:"targets" yaml:"targets"`
	Applied      int `json:"applied" yaml:"applied"`
	Skipped      int `json:"skipped" yaml:"skipped"`
	NotFound     int `json:"not_found" yaml:"not_found"`
	Errors       int `json:"errors" yaml:"errors"`
	TargetErrors int `json:"target_errors" yaml:"target_errors"`
	Persisted    int `json:"persisted" yaml:"persisted"`
}

// 📊 Report is the result of one run. It is safe for concurrent use.
type Report struct {
	ID      string
	Started time.Time

	mu      sync.RWMutex
	targets []TargetResult
}

// New creates an empty report with a fresh run ID
func New() *Report {
	return &Report{
		ID:      uuid.NewString(),
		Started: time.Now(),
	}
}

// Add appends a target result. Targets keep the order they were added in.
func (r *Report) Add(result TargetResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets = append(r.targets, result)
}

// Targets returns a copy of every target result
func (r *Report) Targets() []TargetResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]TargetResult, len(r.targets))
	copy(out, r.targets)
	return out
}

// ForTarget returns the outcomes recorded for target, in patch order. If a
// target was run more than once the outcomes are concatenated.
func (r *Report) ForTarget(target string) []patch.Outcome {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []patch.Outcome
	for _, t := range r.targets {
		if t.Target == target {
			out = append(out, t.Outcomes...)
		}
	}
	return out
}

// FailedPatches lists every required patch that failed, plus targets that
// could not be processed at all.
func (r *Report) FailedPatches() []Failure {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Failure
	for _, t := range r.targets {
		if t.Err != nil {
			out = append(out, Failure{Target: t.Target, Status: patch.StatusError, Detail: t.Err.Error()})
		}
		for _, o := range t.Outcomes {
			if o.Failed() {
				out = append(out, Failure{Target: t.Target, Patch: o.Patch, Status: o.Status, Detail: o.Detail})
			}
		}
	}
	return out
}

// ✅ OverallSuccess is true when no required patch was missing or errored
// and every target could be processed.
func (r *Report) OverallSuccess() bool {
	return len(r.FailedPatches()) == 0
}

// Counts tallies the report
func (r *Report) Counts() Counts {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c := Counts{Targets: len(r.targets)}
	for _, t := range r.targets {
		if t.Err != nil {
			c.TargetErrors++
		}
		if t.Persisted {
			c.Persisted++
		}
		for _, o := range t.Outcomes {
			switch o.Status {
			case patch.StatusApplied:
				c.Applied++
			case patch.StatusSkipped:
				c.Skipped++
			case patch.StatusNotFound:
				c.NotFound++
			case patch.StatusError:
				c.Errors++
			}
		}
	}
	return c
}
