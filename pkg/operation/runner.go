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

	"github.com/rs/zerolog"
	"github.com/walteh/patchrc/pkg/diff"
	"github.com/walteh/patchrc/pkg/patch"
	"github.com/walteh/patchrc/pkg/report"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// file is every target that shares one path, in submission order
type file struct {
	path    string
	targets []int

	read   bool
	before string
	after  string
}

func groupByPath(targets []Target) []*file {
	var files []*file
	byPath := map[string]*file{}
	for i, t := range targets {
		f, ok := byPath[t.Path]
		if !ok {
			f = &file{path: t.Path}
			byPath[t.Path] = f
			files = append(files, f)
		}
		f.targets = append(f.targets, i)
	}
	return files
}

// 🚀 Run applies every target and persists the results according to the
// persist policy. Targets that share a path are applied one after the
// other to a single buffer and written once. Problems are recorded in the
// report; Run itself never fails.
func (r *Runner) Run(ctx context.Context, targets []Target) *report.Report {
	logger := zerolog.Ctx(ctx)
	results := make([]report.TargetResult, len(targets))
	files := groupByPath(targets)

	r.progress.StartOperation(ctx, len(files))

	// phase 1: load and patch, in parallel across files
	var g errgroup.Group
	g.SetLimit(r.workers)
	for _, f := range files {
		f := f
		if ctx.Err() != nil {
			r.cancel(f, targets, results, ctx.Err())
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				r.cancel(f, targets, results, err)
				return nil
			}
			err := r.apply(ctx, f, targets, results)
			r.progress.TargetDone(ctx, f.path, err)
			return nil
		})
	}
	_ = g.Wait()

	runOK := true
	for _, res := range results {
		if res.Failed() {
			runOK = false
			break
		}
	}

	// phase 2: persist what the policy allows
	var w errgroup.Group
	w.SetLimit(r.workers)
	for _, f := range files {
		f := f
		if !f.read {
			continue
		}

		if r.dryRun && f.after != f.before {
			last := f.targets[len(f.targets)-1]
			results[last].Preview = diff.Unified(f.path, f.before, f.after)
		}

		fileOK := true
		for _, i := range f.targets {
			if results[i].Failed() {
				fileOK = false
			}
		}

		if f.after == f.before || !r.persist.allows(fileOK, runOK) {
			logger.Debug().Str("target", f.path).Bool("changed", f.after != f.before).Msg("not persisting")
			continue
		}

		w.Go(func() error {
			err := r.write(ctx, f)
			for _, i := range f.targets {
				if err != nil {
					results[i].Err = err
				} else {
					results[i].Persisted = true
				}
			}
			return nil
		})
	}
	_ = w.Wait()

	r.progress.FinishOperation(ctx)

	rep := report.New()
	for _, res := range results {
		rep.Add(res)
	}
	return rep
}

func (r *Runner) apply(ctx context.Context, f *file, targets []Target, results []report.TargetResult) error {
	logger := zerolog.Ctx(ctx).With().Str("target", f.path).Logger()

	content, err := r.files.ReadFile(ctx, f.path)
	if err != nil {
		err = errors.Errorf("%w: %w", ErrIO, err)
		logger.Error().Err(err).Msg("cannot load target")
		for _, i := range f.targets {
			results[i] = report.TargetResult{Target: f.path, Err: err}
		}
		return err
	}

	f.read = true
	f.before = string(content)
	text := f.before

	for _, i := range f.targets {
		next, outcomes := patch.Apply(ctx, text, targets[i].Set)

		res := report.TargetResult{
			Target:   f.path,
			Outcomes: outcomes,
			Changed:  next != text,
		}
		res.Added, res.Removed = diff.Stats(text, next)
		results[i] = res

		text = next
	}

	f.after = text
	return nil
}

func (r *Runner) write(ctx context.Context, f *file) error {
	if r.backup {
		if err := r.files.BackupFile(ctx, f.path); err != nil {
			return errors.Errorf("%w: %w", ErrIO, err)
		}
	}

	if err := r.files.WriteFileAtomic(ctx, f.path, []byte(f.after)); err != nil {
		if r.backup {
			// put the original back and drop the backup
			if rerr := r.files.RestoreFile(ctx, f.path); rerr != nil {
				zerolog.Ctx(ctx).Warn().Err(rerr).Str("target", f.path).Msg("cannot restore backup")
			}
		}
		return errors.Errorf("%w: %w", ErrIO, err)
	}

	zerolog.Ctx(ctx).Info().Str("target", f.path).Msg("target written")
	return nil
}

func (r *Runner) cancel(f *file, targets []Target, results []report.TargetResult, cause error) {
	for _, i := range f.targets {
		results[i] = report.TargetResult{
			Target: targets[i].Path,
			Err:    errors.Errorf("target not processed: %w", cause),
		}
	}
}
