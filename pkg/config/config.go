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

package config

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/walteh/patchrc/pkg/operation"
	"github.com/walteh/patchrc/pkg/patch"
	"github.com/walteh/patchrc/pkg/pattern"
	"gitlab.com/tozd/go/errors"
)

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes. filename is used for
	// diagnostics and to resolve relative paths.
	Parse(ctx context.Context, filename string, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 🩹 PatchConfig is one patch of a target
type PatchConfig struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Match       string `json:"match" yaml:"match"`
	Replace     string `json:"replace" yaml:"replace"`
	Mode        string `json:"mode,omitempty" yaml:"mode,omitempty"`
	Required    *bool  `json:"required,omitempty" yaml:"required,omitempty"` // defaults to true
	Literal     bool   `json:"literal,omitempty" yaml:"literal,omitempty"`
	Occurrence  int    `json:"occurrence,omitempty" yaml:"occurrence,omitempty"`
}

// IsRequired returns Required, defaulting to true
func (p PatchConfig) IsRequired() bool {
	return p.Required == nil || *p.Required
}

// Patch converts the config entry into a patch descriptor
func (p PatchConfig) Patch() patch.Patch {
	return patch.Patch{
		Name:        p.Name,
		Description: p.Description,
		Match:       pattern.Spec{Text: p.Match, Literal: p.Literal},
		Replace:     p.Replace,
		Mode:        patch.Mode(p.Mode),
		Required:    p.IsRequired(),
		Occurrence:  p.Occurrence,
	}
}

// 🎯 TargetConfig binds an ordered list of patches to one or more files
type TargetConfig struct {
	Name    string        `json:"name" yaml:"name"`
	Files   []string      `json:"files" yaml:"files"` // doublestar globs, relative to the base directory
	Patches []PatchConfig `json:"patches" yaml:"patches"`
}

// Set compiles the target's patches
func (t TargetConfig) Set() (*patch.Set, error) {
	patches := make([]patch.Patch, len(t.Patches))
	for i, p := range t.Patches {
		patches[i] = p.Patch()
	}
	return patch.NewSet(t.Name, patches...)
}

// 📚 Config represents the complete configuration
type Config struct {
	Targets []TargetConfig `json:"targets" yaml:"targets"`

	location string
}

// Location returns the file the config was loaded from
func (cfg *Config) Location() string {
	return cfg.location
}

// 🎯 Load loads the configuration from a file
func Load(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	cfg, err := p.Parse(ctx, path, data)
	if err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}
	cfg.location = path

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	logger.Debug().Int("targets", len(cfg.Targets)).Msg("configuration loaded")
	return cfg, nil
}

// 🔍 Validate checks if the configuration is valid
func (cfg *Config) Validate() error {
	if len(cfg.Targets) == 0 {
		return errors.Errorf("at least one target is required")
	}

	seen := map[string]bool{}
	for i, t := range cfg.Targets {
		if t.Name == "" {
			return errors.Errorf("target %d: name is required", i+1)
		}
		if seen[t.Name] {
			return errors.Errorf("target %q is defined more than once", t.Name)
		}
		seen[t.Name] = true

		if len(t.Files) == 0 {
			return errors.Errorf("target %q: files is required", t.Name)
		}
		for _, f := range t.Files {
			if !doublestar.ValidatePattern(filepath.ToSlash(f)) {
				return errors.Errorf("target %q: invalid file pattern %q", t.Name, f)
			}
		}

		if len(t.Patches) == 0 {
			return errors.Errorf("target %q: at least one patch is required", t.Name)
		}
		if _, err := t.Set(); err != nil {
			return errors.Errorf("target %q: %w", t.Name, err)
		}
	}

	return nil
}

// 🗂️ Expand expands every target's file patterns against baseDir and
// binds the target's patch set to each file. A pattern that matches nothing
// is kept as a plain path so the run reports it instead of skipping it.
func (cfg *Config) Expand(ctx context.Context, baseDir string) ([]operation.Target, error) {
	logger := zerolog.Ctx(ctx)
	fsys := os.DirFS(baseDir)

	var out []operation.Target
	for _, t := range cfg.Targets {
		set, err := t.Set()
		if err != nil {
			return nil, errors.Errorf("target %q: %w", t.Name, err)
		}

		seen := map[string]bool{}
		for _, f := range t.Files {
			paths, err := expand(fsys, f)
			if err != nil {
				return nil, errors.Errorf("target %q: %w", t.Name, err)
			}
			logger.Debug().Str("target", t.Name).Str("pattern", f).Strs("files", paths).Msg("expanded file pattern")

			for _, p := range paths {
				if seen[p] {
					continue
				}
				seen[p] = true
				out = append(out, operation.Target{Path: p, Set: set.WithTarget(p)})
			}
		}
	}

	return out, nil
}

func expand(fsys fs.FS, pattern string) ([]string, error) {
	slashed := filepath.ToSlash(pattern)
	if !strings.ContainsAny(slashed, "*?[{") {
		return []string{filepath.FromSlash(slashed)}, nil
	}

	matches, err := doublestar.Glob(fsys, slashed, doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.Errorf("expanding %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return []string{filepath.FromSlash(slashed)}, nil
	}

	sort.Strings(matches)
	for i, m := range matches {
		matches[i] = filepath.FromSlash(m)
	}
	return matches, nil
}
