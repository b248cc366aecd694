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
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&HCLParser{})
}

// 🔧 HCLParser implements the Parser interface for HCL files
//
//	target "sales-order" {
//	  files = ["controllers/salesOrderController.js"]
//
//	  patch "import-sanitize" {
//	    mode    = "insert-after"
//	    match   = "const express = require('express');\n"
//	    replace = file("snippets/sanitize.js")
//	  }
//	}
//
// Expressions can read the environment through env.NAME. A literal "${"
// has to be written "$${".
type HCLParser struct{}

// 🔍 CanParse checks if this parser can handle the given file
func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".hcl")
}

type hclPatch struct {
	Name        string `hcl:"name,label"`
	Description string `hcl:"description,optional"`
	Match       string `hcl:"match"`
	Replace     string `hcl:"replace"`
	Mode        string `hcl:"mode,optional"`
	Required    *bool  `hcl:"required,optional"`
	Literal     bool   `hcl:"literal,optional"`
	Occurrence  int    `hcl:"occurrence,optional"`
}

type hclTarget struct {
	Name    string     `hcl:"name,label"`
	Files   []string   `hcl:"files"`
	Patches []hclPatch `hcl:"patch,block"`
}

type hclConfig struct {
	Targets []hclTarget `hcl:"target,block"`
}

// 📝 Parse parses the config from HCL
func (p *HCLParser) Parse(ctx context.Context, filename string, data []byte) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	var hclCfg hclConfig
	diags = gohcl.DecodeBody(hclFile.Body, evalContext(filepath.Dir(filename)), &hclCfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	cfg := &Config{}
	for _, t := range hclCfg.Targets {
		target := TargetConfig{Name: t.Name, Files: t.Files}
		for _, hp := range t.Patches {
			target.Patches = append(target.Patches, PatchConfig{
				Name:        hp.Name,
				Description: hp.Description,
				Match:       hp.Match,
				Replace:     hp.Replace,
				Mode:        hp.Mode,
				Required:    hp.Required,
				Literal:     hp.Literal,
				Occurrence:  hp.Occurrence,
			})
		}
		cfg.Targets = append(cfg.Targets, target)
	}

	return cfg, nil
}

func evalContext(dir string) *hcl.EvalContext {
	env := map[string]cty.Value{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = cty.StringVal(v)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(env),
		},
		Functions: map[string]function.Function{
			"file": fileFunc(dir),
		},
	}
}

// fileFunc reads a file relative to the config's directory, so long
// snippets can live next to the patch file
func fileFunc(dir string) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "path", Type: cty.String},
		},
		Type: function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			path := args[0].AsString()
			if !filepath.IsAbs(path) {
				path = filepath.Join(dir, path)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return cty.UnknownVal(cty.String), errors.Errorf("reading %s: %w", path, err)
			}
			return cty.StringVal(string(data)), nil
		},
	})
}
