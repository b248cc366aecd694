// Package operation runs patch sets over many target files
package operation

import (
	"strings"

	"github.com/walteh/patchrc/pkg/patch"
	"github.com/walteh/patchrc/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// ErrIO marks a target that could not be read or written. It fails that
// target only.
var ErrIO = errors.New("target i/o failed")

// DefaultWorkers is the number of files processed at once when Options
// leaves Workers unset
const DefaultWorkers = 4

// 💾 PersistPolicy decides which patched files are written back
type PersistPolicy string

const (
	// PersistPerTarget writes a file when its own required patches succeeded
	PersistPerTarget PersistPolicy = "per-target"
	// PersistAllOrNothing writes files only when every target succeeded
	PersistAllOrNothing PersistPolicy = "all-or-nothing"
	// PersistAlways writes every changed file
	PersistAlways PersistPolicy = "always"
	// PersistNever writes nothing
	PersistNever PersistPolicy = "never"
)

// ParsePersistPolicy parses a policy name. The empty string is per-target.
func ParsePersistPolicy(s string) (PersistPolicy, error) {
	switch p := PersistPolicy(strings.ToLower(s)); p {
	case "":
		return PersistPerTarget, nil
	case PersistPerTarget, PersistAllOrNothing, PersistAlways, PersistNever:
		return p, nil
	default:
		return "", errors.Errorf("unknown persist policy %q (want per-target, all-or-nothing, always or never)", s)
	}
}

func (p PersistPolicy) allows(targetOK, runOK bool) bool {
	switch p {
	case PersistAlways:
		return true
	case PersistNever:
		return false
	case PersistAllOrNothing:
		return runOK
	default:
		return targetOK
	}
}

// 🎯 Target binds a patch set to a file
type Target struct {
	Path string
	Set  *patch.Set
}

// 🔧 Options contains configuration for the runner
type Options struct {
	// Files loads and stores targets
	Files status.FileManager
	// Workers bounds how many files are processed at once
	Workers int
	// Persist decides which files are written back
	Persist PersistPolicy
	// Backup keeps a .bak copy of every file before it is overwritten
	Backup bool
	// DryRun writes nothing and attaches a diff preview to each changed target
	DryRun bool
	// Progress receives one update per processed file (optional)
	Progress *status.Tracker
}

// 🏃 Runner applies patch sets to targets and persists the results
type Runner struct {
	files    status.FileManager
	workers  int
	persist  PersistPolicy
	backup   bool
	dryRun   bool
	progress *status.Tracker
}

// 🏭 New creates a new runner with the given options
func New(opts Options) (*Runner, error) {
	if opts.Files == nil {
		return nil, errors.Errorf("file manager is required")
	}

	persist, err := ParsePersistPolicy(string(opts.Persist))
	if err != nil {
		return nil, err
	}
	if opts.DryRun {
		persist = PersistNever
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	progress := opts.Progress
	if progress == nil {
		progress = status.NewTracker()
	}

	return &Runner{
		files:    opts.Files,
		workers:  workers,
		persist:  persist,
		backup:   opts.Backup,
		dryRun:   opts.DryRun,
		progress: progress,
	}, nil
}
