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

package status

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// 📈 Tracker counts processed targets and logs progress. It is safe for
// concurrent use by the runner's workers.
type Tracker struct {
	formatter ProgressFormatter

	mu        sync.Mutex
	total     int
	processed int
	failed    int
}

// NewTracker creates a tracker with the default formatter
func NewTracker() *Tracker {
	return &Tracker{formatter: NewDefaultProgressFormatter()}
}

// StartOperation resets the counters for a run of total targets
func (t *Tracker) StartOperation(ctx context.Context, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total = total
	t.processed = 0
	t.failed = 0
	zerolog.Ctx(ctx).Debug().Int("total", total).Msg(t.formatter.FormatProgress(0, total))
}

// TargetDone records one finished target
func (t *Tracker) TargetDone(ctx context.Context, target string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.processed++
	logger := zerolog.Ctx(ctx)
	if err != nil {
		t.failed++
		logger.Warn().Str("target", target).Msg(t.formatter.FormatError(err))
	}
	logger.Debug().
		Str("target", target).
		Int("processed", t.processed).
		Int("total", t.total).
		Msg(t.formatter.FormatProgress(t.processed, t.total))
}

// FinishOperation logs the final tally
func (t *Tracker) FinishOperation(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	zerolog.Ctx(ctx).Debug().
		Int("processed", t.processed).
		Int("failed", t.failed).
		Int("total", t.total).
		Msg(t.formatter.FormatProgress(t.processed, t.total))
}

// Counts returns the processed and failed target counts
func (t *Tracker) Counts() (processed, failed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.processed, t.failed
}
