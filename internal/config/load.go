// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/matt-FFFFFF/sysbatch/internal/ctxlog"
	"github.com/matt-FFFFFF/sysbatch/internal/runbatch"
	"github.com/matt-FFFFFF/sysbatch/internal/testcase"
	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"
)

var (
	// ErrReadDefinition is returned when the definition file cannot be read.
	ErrReadDefinition = errors.New("failed to read run definition")
	// ErrParseDefinition is returned when the definition cannot be parsed or decoded.
	ErrParseDefinition = errors.New("failed to parse run definition")
	// ErrUnsupportedFormat is returned for a file that is neither HCL nor YAML.
	ErrUnsupportedFormat = errors.New("unsupported definition file extension, expected .hcl, .yaml or .yml")
)

// Load reads a definition file through FsFactory and parses it according to its extension.
func Load(ctx context.Context, path string, vars Vars) (*Definition, error) {
	src, err := afero.ReadFile(FsFactory(), path)
	if err != nil {
		return nil, errors.Join(ErrReadDefinition, err)
	}

	return Parse(ctx, src, path, vars)
}

// Supported reports whether filename has an extension Parse understands.
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".hcl", ".yaml", ".yml":
		return true
	}

	return false
}

// Parse parses src, choosing HCL or YAML by the extension of filename.
func Parse(ctx context.Context, src []byte, filename string, vars Vars) (*Definition, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".hcl":
		return ParseHCL(ctx, src, filename, vars)
	case ".yaml", ".yml":
		return ParseYAML(ctx, src, filename, vars)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}
}

// rawDefinition is the format-independent result of decoding a file.
// Templates are still unevaluated.
type rawDefinition struct {
	Workers   int
	Radii     []int
	Triggers  []string
	Task      Task
	Post      []rawPost
	TestCases []rawTestCase
}

type rawPost struct {
	Name     string
	Command  *Template
	LogFile  *Template
	Requires []*Template
	RunsOn   string
}

type rawTestCase struct {
	Name              string
	Executable        *Template
	OutputDir         *Template
	Options           []string
	Triggers          []string
	MCResponseTrigger bool
	Flags             map[string]string
}

// resolve renders the load-time templates and validates the result.
func (raw *rawDefinition) resolve(ctx context.Context, source string, vars Vars) (*Definition, error) {
	def := &Definition{
		Source:   source,
		Vars:     vars,
		Workers:  raw.Workers,
		Radii:    raw.Radii,
		Triggers: raw.Triggers,
		Task:     raw.Task,
	}

	var err error

	base := vars.Values()

	for _, p := range raw.Post {
		ps := PostStep{
			Name:    p.Name,
			Command: p.Command,
			LogFile: p.LogFile,
			RunsOn:  runbatch.RunOnAlways,
		}

		if p.Command == nil {
			err = multierror.Append(err, fmt.Errorf("post_process %q: %w", p.Name, ErrNoTaskCommand))
		}

		if p.RunsOn != "" {
			rc, rcErr := runbatch.NewRunCondition(p.RunsOn)
			if rcErr != nil {
				err = multierror.Append(err, fmt.Errorf("post_process %q: %w", p.Name, rcErr))
			}

			ps.RunsOn = rc
		}

		for _, r := range p.Requires {
			path, rErr := r.Render(base)
			if rErr != nil {
				err = multierror.Append(err, fmt.Errorf("post_process %q requires: %w", p.Name, rErr))
				continue
			}

			ps.Requires = append(ps.Requires, path)
		}

		def.Post = append(def.Post, ps)
	}

	for _, rt := range raw.TestCases {
		tc, tcErr := rt.resolve(base, vars)
		if tcErr != nil {
			err = multierror.Append(err, tcErr)
			continue
		}

		def.TestCases = append(def.TestCases, tc)
	}

	if err != nil {
		return nil, errors.Join(ErrParseDefinition, err)
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}

	ctxlog.Debug(ctx, "run definition loaded",
		"source", source,
		"testcases", len(def.TestCases),
		"radii", def.Radii,
		"triggers", def.Triggers,
		"postSteps", len(def.Post))

	return def, nil
}

func (rt rawTestCase) resolve(base map[string]cty.Value, vars Vars) (testcase.TestCase, error) {
	vals := withVars(base, map[string]cty.Value{VarName: cty.StringVal(rt.Name)})

	exe, exeErr := rt.Executable.Render(vals)
	outDir, outErr := rt.OutputDir.Render(vals)

	if err := errors.Join(exeErr, outErr); err != nil {
		return testcase.TestCase{}, fmt.Errorf("testcase %q: %w", rt.Name, err)
	}

	if outDir == "" {
		outDir = filepath.Join(vars.OutputBase, rt.Name)
	}

	if !filepath.IsAbs(outDir) && vars.OutputBase != "" {
		outDir = filepath.Join(vars.OutputBase, outDir)
	}

	return testcase.TestCase{
		Name:              rt.Name,
		Executable:        exe,
		OutputDir:         outDir,
		Options:           rt.Options,
		Triggers:          rt.Triggers,
		MCResponseTrigger: rt.MCResponseTrigger,
		Flags:             rt.Flags,
	}, nil
}
