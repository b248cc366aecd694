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

package log

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/patchrc/pkg/patch"
	"github.com/walteh/patchrc/pkg/report"
	"gitlab.com/tozd/go/errors"
)

func TestLogger(t *testing.T) {
	// Disable color for testing
	color.NoColor = true
	defer func() { color.NoColor = false }()

	tests := []struct {
		name     string
		op       func(t *testing.T, logger *Logger)
		wantLogs []string
	}{
		{
			name: "log_messages",
			op: func(t *testing.T, logger *Logger) {
				logger.Info("info message")
				logger.Warning("warning message")
				logger.Error("error message")
				logger.Success("success message")
			},
			wantLogs: []string{
				"ℹ️  info message",
				"⚠️  warning message",
				"❌ error message",
				"✅ success message",
			},
		},
		{
			name: "log_formatted_messages",
			op: func(t *testing.T, logger *Logger) {
				logger.Infof("info %s", "test")
				logger.Warningf("warning %s", "test")
				logger.Errorf("error %s", "test")
				logger.Successf("success %s", "test")
			},
			wantLogs: []string{
				"ℹ️  info test",
				"⚠️  warning test",
				"❌ error test",
				"✅ success test",
			},
		},
		{
			name: "log_header",
			op: func(t *testing.T, logger *Logger) {
				logger.Header("patching 3 target(s)")
			},
			wantLogs: []string{
				"patchrc • patching 3 target(s)",
			},
		},
		{
			name: "log_newline",
			op: func(t *testing.T, logger *Logger) {
				logger.Info("first")
				logger.LogNewline()
				logger.Info("second")
			},
			wantLogs: []string{
				"ℹ️  first",
				"",
				"ℹ️  second",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Create buffer for console output
			buf := &bytes.Buffer{}
			logger := New(buf, io.Discard, zerolog.InfoLevel)

			// Perform operation
			tt.op(t, logger)

			// Check output
			output := strings.TrimSpace(buf.String())
			lines := strings.Split(output, "\n")

			require.Equal(t, len(tt.wantLogs), len(lines), "number of log lines should match")
			for i, want := range tt.wantLogs {
				assert.Equal(t, want, strings.TrimSpace(lines[i]), "log line %d should match", i)
			}
		})
	}
}

func TestLoggerContext(t *testing.T) {
	logger := New(io.Discard, io.Discard, zerolog.InfoLevel)

	ctx := NewContext(context.Background(), logger)

	got := FromContext(ctx)
	assert.Same(t, logger, got, "logger from context should be the same instance")
	assert.NotEqual(t, zerolog.Disabled, zerolog.Ctx(ctx).GetLevel(), "zerolog logger should be attached too")

	assert.Panics(t, func() {
		FromContext(context.Background())
	}, "FromContext should panic when logger is missing")
}

func TestStructuredOutput(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	diag := &bytes.Buffer{}
	logger := New(io.Discard, diag, zerolog.DebugLevel)

	ctx := NewContext(context.Background(), logger)
	zerolog.Ctx(ctx).Debug().Str("target", "a.js").Msg("loaded")

	assert.Contains(t, diag.String(), "loaded", "message should be written")
	assert.Contains(t, diag.String(), "target=a.js", "fields should be written")
}

func TestFailures(t *testing.T) {
	color.NoColor = true
	pterm.DisableStyling()
	defer func() {
		color.NoColor = false
		pterm.EnableStyling()
	}()

	t.Run("prints_nothing_on_success", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := New(buf, io.Discard, zerolog.InfoLevel)

		rep := report.New()
		rep.Add(report.TargetResult{Target: "a.js", Outcomes: []patch.Outcome{
			{Patch: "p", Status: patch.StatusApplied, Required: true},
		}})

		require.NoError(t, logger.Failures(rep), "rendering should succeed")
		assert.Empty(t, buf.String(), "nothing should be printed")
	})

	t.Run("lists_failed_patches", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := New(buf, io.Discard, zerolog.InfoLevel)

		rep := report.New()
		rep.Add(report.TargetResult{Target: "a.js", Outcomes: []patch.Outcome{
			{Patch: "scope-find", Status: patch.StatusNotFound, Detail: "pattern not found", Required: true},
			{Patch: "optional", Status: patch.StatusNotFound, Detail: "ignored"},
		}})
		rep.Add(report.TargetResult{Target: "b.js", Err: errors.New("permission denied")})

		require.NoError(t, logger.Failures(rep), "rendering should succeed")

		out := buf.String()
		assert.Contains(t, out, "scope-find", "failed patch should be listed")
		assert.Contains(t, out, "pattern not found", "detail should be listed")
		assert.Contains(t, out, "permission denied", "target error should be listed")
		assert.NotContains(t, out, "ignored", "optional misses are not failures")
	})
}
