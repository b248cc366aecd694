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

package operation

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/walteh/patchrc/pkg/patch"
	"github.com/walteh/patchrc/pkg/pattern"
	"github.com/walteh/patchrc/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// 🔧 MockFileManager is a mock implementation of the status.FileManager interface
type MockFileManager struct {
	mock.Mock
}

var _ status.FileManager = (*MockFileManager)(nil)

func (m *MockFileManager) ReadFile(ctx context.Context, path string) ([]byte, error) {
	result := m.Called(ctx, path)
	content, _ := result.Get(0).([]byte)
	return content, result.Error(1)
}

func (m *MockFileManager) WriteFileAtomic(ctx context.Context, path string, content []byte) error {
	result := m.Called(ctx, path, content)
	return result.Error(0)
}

func (m *MockFileManager) BackupFile(ctx context.Context, path string) error {
	result := m.Called(ctx, path)
	return result.Error(0)
}

func (m *MockFileManager) RestoreFile(ctx context.Context, path string) error {
	result := m.Called(ctx, path)
	return result.Error(0)
}

const (
	goodBefore = "// MARKER\nvar x = 1;\n"
	goodAfter  = "// MARKER\naudit();\nlet x = 1;\n"
	badBefore  = "var x = 2;\n"
	badAfter   = "let x = 2;\n"
)

func testSet(t *testing.T) *patch.Set {
	t.Helper()
	set, err := patch.NewSet("js",
		patch.Patch{
			Name:     "use-let",
			Match:    pattern.Spec{Text: "var x", Literal: true},
			Replace:  "let x",
			Required: true,
		},
		patch.Patch{
			Name:     "audit-after-marker",
			Match:    pattern.Spec{Text: "// MARKER\n", Literal: true},
			Replace:  "audit();\n",
			Mode:     patch.ModeInsertAfter,
			Required: true,
		},
	)
	require.NoError(t, err)
	return set
}

func testTargets(t *testing.T) []Target {
	set := testSet(t)
	return []Target{
		{Path: "good.js", Set: set.WithTarget("good.js")},
		{Path: "bad.js", Set: set.WithTarget("bad.js")},
	}
}

func mustRunner(t *testing.T, opts Options) *Runner {
	t.Helper()
	r, err := New(opts)
	require.NoError(t, err)
	return r
}

func TestRunMultiTargetIsolation(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.js"), []byte(goodBefore), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.js"), []byte(badBefore), 0o644))

	r := mustRunner(t, Options{Files: status.New(dir), Workers: 2})
	rep := r.Run(context.Background(), testTargets(t))

	assert.False(t, rep.OverallSuccess())

	good, err := os.ReadFile(filepath.Join(dir, "good.js"))
	require.NoError(t, err)
	assert.Equal(t, goodAfter, string(good), "successful target is fully patched")

	bad, err := os.ReadFile(filepath.Join(dir, "bad.js"))
	require.NoError(t, err)
	assert.Equal(t, badBefore, string(bad), "failed target is left alone")

	results := rep.Targets()
	require.Len(t, results, 2)
	assert.Equal(t, "good.js", results[0].Target)
	assert.True(t, results[0].Persisted)
	assert.Equal(t, 2, results[0].Added)
	assert.Equal(t, 1, results[0].Removed)
	assert.Equal(t, "bad.js", results[1].Target)
	assert.True(t, results[1].Changed)
	assert.False(t, results[1].Persisted)

	failures := rep.FailedPatches()
	require.Len(t, failures, 1)
	assert.Equal(t, "bad.js", failures[0].Target)
	assert.Equal(t, "audit-after-marker", failures[0].Patch)
	assert.Equal(t, patch.StatusNotFound, failures[0].Status)
}

func TestRunPersistPolicies(t *testing.T) {
	tests := []struct {
		name        string
		policy      PersistPolicy
		wantWritten map[string]string
	}{
		{
			name:        "per_target",
			policy:      PersistPerTarget,
			wantWritten: map[string]string{"good.js": goodAfter},
		},
		{
			name:        "all_or_nothing",
			policy:      PersistAllOrNothing,
			wantWritten: map[string]string{},
		},
		{
			name:        "always",
			policy:      PersistAlways,
			wantWritten: map[string]string{"good.js": goodAfter, "bad.js": badAfter},
		},
		{
			name:        "never",
			policy:      PersistNever,
			wantWritten: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := &MockFileManager{}
			files.On("ReadFile", mock.Anything, "good.js").Return([]byte(goodBefore), nil)
			files.On("ReadFile", mock.Anything, "bad.js").Return([]byte(badBefore), nil)
			for path, content := range tt.wantWritten {
				files.On("WriteFileAtomic", mock.Anything, path, []byte(content)).Return(nil).Once()
			}

			r := mustRunner(t, Options{Files: files, Persist: tt.policy})
			rep := r.Run(context.Background(), testTargets(t))

			files.AssertExpectations(t)
			if len(tt.wantWritten) == 0 {
				files.AssertNotCalled(t, "WriteFileAtomic", mock.Anything, mock.Anything, mock.Anything)
			}
			for _, res := range rep.Targets() {
				_, written := tt.wantWritten[res.Target]
				assert.Equal(t, written, res.Persisted, res.Target)
			}
			assert.False(t, rep.OverallSuccess(), "persisting does not change the verdict")
		})
	}
}

func TestRunReadError(t *testing.T) {
	files := &MockFileManager{}
	files.On("ReadFile", mock.Anything, "good.js").Return([]byte(goodBefore), nil)
	files.On("ReadFile", mock.Anything, "bad.js").Return(nil, os.ErrPermission)
	files.On("WriteFileAtomic", mock.Anything, "good.js", []byte(goodAfter)).Return(nil)

	rep := mustRunner(t, Options{Files: files}).Run(context.Background(), testTargets(t))
	files.AssertExpectations(t)

	results := rep.Targets()
	require.Len(t, results, 2)
	assert.True(t, results[0].Persisted, "sibling target still processed")
	require.Error(t, results[1].Err)
	assert.True(t, errors.Is(results[1].Err, ErrIO))
	assert.True(t, errors.Is(results[1].Err, fs.ErrPermission), "cause should stay in the chain")
	assert.Contains(t, results[1].Err.Error(), "permission denied")
	assert.Empty(t, results[1].Outcomes)
	assert.False(t, rep.OverallSuccess())
}

func TestRunWriteError(t *testing.T) {
	files := &MockFileManager{}
	files.On("ReadFile", mock.Anything, "good.js").Return([]byte(goodBefore), nil)
	files.On("WriteFileAtomic", mock.Anything, "good.js", mock.Anything).Return(assert.AnError)

	set := testSet(t)
	rep := mustRunner(t, Options{Files: files}).Run(context.Background(), []Target{{Path: "good.js", Set: set}})

	files.AssertNotCalled(t, "RestoreFile", mock.Anything, mock.Anything)
	results := rep.Targets()
	require.Len(t, results, 1)
	assert.True(t, errors.Is(results[0].Err, ErrIO))
	assert.True(t, errors.Is(results[0].Err, assert.AnError), "cause should stay in the chain")
	assert.False(t, results[0].Persisted)
	assert.False(t, rep.OverallSuccess())
}

func TestRunWriteErrorRestoresBackup(t *testing.T) {
	files := &MockFileManager{}
	files.On("ReadFile", mock.Anything, "good.js").Return([]byte(goodBefore), nil)
	files.On("BackupFile", mock.Anything, "good.js").Return(nil).Once()
	write := files.On("WriteFileAtomic", mock.Anything, "good.js", mock.Anything).Return(assert.AnError).Once()
	files.On("RestoreFile", mock.Anything, "good.js").Return(nil).Once().NotBefore(write)

	rep := mustRunner(t, Options{Files: files, Backup: true}).Run(context.Background(), []Target{{Path: "good.js", Set: testSet(t)}})
	files.AssertExpectations(t)

	results := rep.Targets()
	require.Len(t, results, 1)
	assert.True(t, errors.Is(results[0].Err, ErrIO))
	assert.False(t, results[0].Persisted)
}

func TestRunMissingTargetKeepsCause(t *testing.T) {
	dir := t.TempDir()

	rep := mustRunner(t, Options{Files: status.New(dir)}).Run(context.Background(), []Target{{Path: "gone.js", Set: testSet(t)}})

	results := rep.Targets()
	require.Len(t, results, 1)
	assert.True(t, errors.Is(results[0].Err, ErrIO))
	assert.True(t, errors.Is(results[0].Err, fs.ErrNotExist), "missing file should be recognizable")
}

func TestRunLineStats(t *testing.T) {
	var lines []string
	for i := 1; i <= 20; i++ {
		lines = append(lines, fmt.Sprintf("step%d();\n", i))
	}
	before := strings.Join(lines, "")

	set, err := patch.NewSet("steps.js",
		patch.Patch{
			Name:     "trace-step-11",
			Match:    pattern.Spec{Text: "step11();\n", Literal: true},
			Replace:  "trace(11);\n",
			Mode:     patch.ModeInsertAfter,
			Required: true,
		},
		patch.Patch{
			Name:     "rename-step-15",
			Match:    pattern.Spec{Text: "step15();", Literal: true},
			Replace:  "stepFifteen();",
			Required: true,
		},
	)
	require.NoError(t, err)

	files := &MockFileManager{}
	files.On("ReadFile", mock.Anything, "steps.js").Return([]byte(before), nil)
	files.On("WriteFileAtomic", mock.Anything, "steps.js", mock.Anything).Return(nil)

	rep := mustRunner(t, Options{Files: files}).Run(context.Background(), []Target{{Path: "steps.js", Set: set}})
	require.True(t, rep.OverallSuccess())

	results := rep.Targets()
	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].Added, "one inserted line and one rewritten line")
	assert.Equal(t, 1, results[0].Removed, "only the renamed line is removed")
}

func TestRunBackup(t *testing.T) {
	files := &MockFileManager{}
	files.On("ReadFile", mock.Anything, "good.js").Return([]byte(goodBefore), nil)
	backup := files.On("BackupFile", mock.Anything, "good.js").Return(nil).Once()
	files.On("WriteFileAtomic", mock.Anything, "good.js", []byte(goodAfter)).Return(nil).Once().NotBefore(backup)

	rep := mustRunner(t, Options{Files: files, Backup: true}).Run(context.Background(), []Target{{Path: "good.js", Set: testSet(t)}})
	files.AssertExpectations(t)
	assert.True(t, rep.OverallSuccess())
}

func TestRunDryRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "good.js")
	require.NoError(t, os.WriteFile(path, []byte(goodBefore), 0o644))

	r := mustRunner(t, Options{Files: status.New(dir), DryRun: true, Persist: PersistAlways})
	rep := r.Run(context.Background(), []Target{{Path: "good.js", Set: testSet(t)}})

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, goodBefore, string(content), "dry run writes nothing")

	results := rep.Targets()
	require.Len(t, results, 1)
	assert.False(t, results[0].Persisted)
	assert.True(t, results[0].Changed)
	assert.Contains(t, results[0].Preview, "--- a/good.js")
	assert.Contains(t, results[0].Preview, "+audit();")
	assert.Contains(t, results[0].Preview, "-var x = 1;")
	assert.True(t, rep.OverallSuccess())
}

func TestRunSharedPath(t *testing.T) {
	first, err := patch.NewSet("shared.js", patch.Patch{
		Name:     "declare",
		Match:    pattern.Spec{Text: "start();\n", Literal: true},
		Replace:  "let total = 0;\n",
		Mode:     patch.ModeInsertAfter,
		Required: true,
	})
	require.NoError(t, err)

	second, err := patch.NewSet("shared.js", patch.Patch{
		Name:     "increment",
		Match:    pattern.Spec{Text: "let total = 0;\n", Literal: true},
		Replace:  "total++;\n",
		Mode:     patch.ModeInsertAfter,
		Required: true,
	})
	require.NoError(t, err)

	files := &MockFileManager{}
	files.On("ReadFile", mock.Anything, "shared.js").Return([]byte("start();\n"), nil).Once()
	files.On("WriteFileAtomic", mock.Anything, "shared.js", []byte("start();\nlet total = 0;\ntotal++;\n")).Return(nil).Once()

	rep := mustRunner(t, Options{Files: files, Workers: 8}).Run(context.Background(), []Target{
		{Path: "shared.js", Set: first},
		{Path: "shared.js", Set: second},
	})
	files.AssertExpectations(t)

	assert.True(t, rep.OverallSuccess())
	outcomes := rep.ForTarget("shared.js")
	require.Len(t, outcomes, 2)
	assert.Equal(t, patch.StatusApplied, outcomes[0].Status)
	assert.Equal(t, patch.StatusApplied, outcomes[1].Status)
}

func TestRunIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.js"), []byte(goodBefore), 0o644))

	r := mustRunner(t, Options{Files: status.New(dir)})
	targets := []Target{{Path: "good.js", Set: testSet(t)}}

	first := r.Run(context.Background(), targets)
	require.True(t, first.OverallSuccess())

	second := r.Run(context.Background(), targets)
	assert.True(t, second.OverallSuccess())
	results := second.Targets()
	require.Len(t, results, 1)
	assert.False(t, results[0].Changed)
	assert.False(t, results[0].Persisted, "unchanged files are not rewritten")
	for _, o := range results[0].Outcomes {
		assert.Equal(t, patch.StatusSkipped, o.Status, o.Patch)
	}

	content, err := os.ReadFile(filepath.Join(dir, "good.js"))
	require.NoError(t, err)
	assert.Equal(t, goodAfter, string(content))
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	files := &MockFileManager{}
	rep := mustRunner(t, Options{Files: files}).Run(ctx, testTargets(t))

	files.AssertNotCalled(t, "ReadFile", mock.Anything, mock.Anything)
	for _, res := range rep.Targets() {
		require.Error(t, res.Err)
		assert.True(t, errors.Is(res.Err, context.Canceled))
	}
	assert.False(t, rep.OverallSuccess())
}

func TestNew(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file manager is required")

	_, err = New(Options{Files: &MockFileManager{}, Persist: "sometimes"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown persist policy")

	r, err := New(Options{Files: &MockFileManager{}, DryRun: true, Persist: PersistAlways})
	require.NoError(t, err)
	assert.Equal(t, PersistNever, r.persist)
	assert.Equal(t, DefaultWorkers, r.workers)
}
