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

// Status is the result of one patch in one run
type Status string

const (
	StatusApplied  Status = "applied"
	StatusSkipped  Status = "skipped_idempotent"
	StatusNotFound Status = "not_found"
	StatusError    Status = "error"
)

// 📋 Outcome records what happened to one patch. Outcomes are values and
// are never changed after Apply returns them.
type Outcome struct {
	Patch    string `json:"patch" yaml:"patch"`
	Status   Status `json:"status" yaml:"status"`
	Detail   string `json:"detail,omitempty" yaml:"detail,omitempty"`
	Spans    int    `json:"spans" yaml:"spans"`
	Required bool   `json:"required" yaml:"required"`
	Err      error  `json:"-" yaml:"-"`
}

// Failed reports whether the outcome fails the run: a required patch that
// was not found or errored.
func (o Outcome) Failed() bool {
	return o.Required && (o.Status == StatusNotFound || o.Status == StatusError)
}
