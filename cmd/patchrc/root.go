package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/patchrc/pkg/config"
	"github.com/walteh/patchrc/pkg/hardening"
	"github.com/walteh/patchrc/pkg/log"
	"github.com/walteh/patchrc/pkg/operation"
	"github.com/walteh/patchrc/pkg/report"
	"github.com/walteh/patchrc/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// errRunFailed is returned when the run finished but a required patch or a
// target failed. The report already says why.
var errRunFailed = errors.New("run failed")

// rootOpts holds the flag values of one invocation
type rootOpts struct {
	base       string
	configFile string
	dryRun     bool
	workers    int
	persist    string
	backup     bool
	format     string
	debug      bool
}

// addRootFlags adds the flags to the root command
func addRootFlags(cmd *cobra.Command, opts *rootOpts) {
	cmd.Flags().StringVarP(&opts.base, "base", "b", ".", "base directory targets are resolved against")
	cmd.Flags().StringVarP(&opts.configFile, "config", "c", "", "patch file (hcl, yaml or json); defaults to the built-in hardening set")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "write nothing and print a diff of what would change")
	cmd.Flags().IntVar(&opts.workers, "workers", operation.DefaultWorkers, "number of files processed at once")
	cmd.Flags().StringVar(&opts.persist, "persist", string(operation.PersistPerTarget), "which files are written: per-target, all-or-nothing, always or never")
	cmd.Flags().BoolVar(&opts.backup, "backup", false, "keep a "+status.BackupSuffix+" copy of every file before it is overwritten")
	cmd.Flags().StringVar(&opts.format, "format", string(report.FormatText), "report format: text, json or yaml")
	cmd.Flags().BoolVarP(&opts.debug, "debug", "d", false, "enable debug logging")
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOpts{}

	cmd := &cobra.Command{
		Use:   "patchrc",
		Short: "Apply idempotent structural patches to source files",
		Long: `patchrc applies ordered sets of structural patches to source files.

Each patch locates code with a pattern (literal text plus @{name} gaps),
rewrites or inserts text around it, and recognizes its own earlier edits,
so running patchrc twice is safe. Without --config the built-in hardening
set for the sales controllers is applied.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	addRootFlags(cmd, opts)
	return cmd
}

func run(ctx context.Context, opts *rootOpts, stdout, stderr io.Writer) error {
	persist, err := operation.ParsePersistPolicy(opts.persist)
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	level := zerolog.WarnLevel
	if opts.debug {
		level = zerolog.DebugLevel
	}

	// machine readable reports own stdout
	console := stdout
	if format != report.FormatText {
		console = stderr
	}
	logger := log.New(console, stderr, level)
	ctx = log.NewContext(ctx, logger)

	logger.Zerolog().Debug().
		Str("base", opts.base).
		Str("persist", string(persist)).
		Bool("dry_run", opts.dryRun).
		Int("workers", opts.workers).
		Msg("starting run")

	if format == report.FormatText {
		msg := fmt.Sprintf("patching files in %s", opts.base)
		if opts.dryRun {
			msg += " (dry run)"
		}
		logger.Header(msg)
	}

	targets, err := loadTargets(ctx, opts)
	if err != nil {
		return err
	}

	runner, err := operation.New(operation.Options{
		Files:   status.New(opts.base),
		Workers: opts.workers,
		Persist: persist,
		Backup:  opts.backup,
		DryRun:  opts.dryRun,
	})
	if err != nil {
		return errors.Errorf("creating runner: %w", err)
	}

	rep := runner.Run(ctx, targets)

	if err := rep.Write(stdout, format); err != nil {
		return err
	}
	if format == report.FormatText {
		if err := logger.Failures(rep); err != nil {
			return err
		}
	}

	logger.LogNewline()
	if n := unwritten(rep); n > 0 {
		if opts.dryRun {
			logger.Warning("dry run: no file was written")
		} else {
			logger.Warningf("%d changed target(s) left unwritten by the %s persist policy", n, persist)
		}
	}

	if !rep.OverallSuccess() {
		logger.Errorf("%d required patch(es) or target(s) failed", len(rep.FailedPatches()))
		return errRunFailed
	}

	if applied := rep.Counts().Applied; applied > 0 {
		logger.Successf("%d patch(es) applied", applied)
	} else {
		logger.Success("nothing to do, every patch is already in place")
	}
	return nil
}

// unwritten counts targets whose text changed but was not written back
func unwritten(rep *report.Report) int {
	n := 0
	for _, t := range rep.Targets() {
		if t.Changed && !t.Persisted && t.Err == nil {
			n++
		}
	}
	return n
}

func loadTargets(ctx context.Context, opts *rootOpts) ([]operation.Target, error) {
	logger := log.FromContext(ctx)

	if opts.configFile == "" {
		logger.Info("no --config given, applying the built-in hardening set")
		return hardening.Targets(hardening.ControllersDir), nil
	}

	cfg, err := config.Load(ctx, opts.configFile)
	if err != nil {
		return nil, errors.Errorf("loading config: %w", err)
	}

	targets, err := cfg.Expand(ctx, opts.base)
	if err != nil {
		return nil, errors.Errorf("expanding targets: %w", err)
	}

	logger.Infof("loaded %d target file(s) from %s", len(targets), opts.configFile)
	return targets, nil
}

// execute runs the command and returns the process exit code
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)

	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errRunFailed) {
			log.New(stderr, io.Discard, zerolog.Disabled).Error(err.Error())
		}
		return 1
	}
	return 0
}
