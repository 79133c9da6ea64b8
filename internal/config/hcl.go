// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"errors"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// hclFile is the top level of an HCL run definition.
// Attributes that are templates stay hcl.Expression and are evaluated later.
type hclFile struct {
	Workers   *int          `hcl:"workers,optional"`
	Radii     []int         `hcl:"radii"`
	Triggers  []string      `hcl:"triggers,optional"`
	Task      hclTask       `hcl:"task,block"`
	Post      []hclPost     `hcl:"post_process,block"`
	TestCases []hclTestCase `hcl:"testcase,block"`
}

type hclTask struct {
	Command hcl.Expression `hcl:"command"`
	LogFile hcl.Expression `hcl:"log_file,optional"`
	Inputs  []hclInput     `hcl:"input,block"`
}

type hclInput struct {
	Name string         `hcl:"name,label"`
	Path hcl.Expression `hcl:"path"`
}

type hclPost struct {
	Name     string         `hcl:"name,label"`
	Command  hcl.Expression `hcl:"command"`
	LogFile  hcl.Expression `hcl:"log_file,optional"`
	Requires hcl.Expression `hcl:"requires,optional"`
	RunsOn   *string        `hcl:"runs_on,optional"`
}

type hclTestCase struct {
	Name              string            `hcl:"name,label"`
	Executable        hcl.Expression    `hcl:"executable"`
	Options           []string          `hcl:"options"`
	OutputDir         hcl.Expression    `hcl:"output_dir,optional"`
	Triggers          []string          `hcl:"triggers,optional"`
	MCResponseTrigger *bool             `hcl:"mc_response_trigger,optional"`
	Flags             map[string]string `hcl:"flags,optional"`
}

// ParseHCL parses an HCL run definition.
func ParseHCL(ctx context.Context, src []byte, filename string, vars Vars) (*Definition, error) {
	parser := hclparse.NewParser()

	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, errors.Join(ErrParseDefinition, diags)
	}

	var root hclFile

	// Plain attributes may use the load-time variables and functions.
	diags = gohcl.DecodeBody(file.Body, evalContext(vars.Values()), &root)
	if diags.HasErrors() {
		return nil, errors.Join(ErrParseDefinition, diags)
	}

	raw, err := root.toRaw(src)
	if err != nil {
		return nil, errors.Join(ErrParseDefinition, err)
	}

	return raw.resolve(ctx, filename, vars)
}

func (f *hclFile) toRaw(src []byte) (*rawDefinition, error) {
	raw := &rawDefinition{
		Radii:    f.Radii,
		Triggers: f.Triggers,
		Task: Task{
			Command: templateFromExpr(f.Task.Command, src),
			LogFile: templateFromExpr(f.Task.LogFile, src),
		},
	}

	if f.Workers != nil {
		raw.Workers = *f.Workers
	}

	for _, in := range f.Task.Inputs {
		raw.Task.Inputs = append(raw.Task.Inputs, Input{
			Name: in.Name,
			Path: templateFromExpr(in.Path, src),
		})
	}

	var err error

	for _, p := range f.Post {
		rp := rawPost{
			Name:    p.Name,
			Command: templateFromExpr(p.Command, src),
			LogFile: templateFromExpr(p.LogFile, src),
		}

		if p.RunsOn != nil {
			rp.RunsOn = *p.RunsOn
		}

		if !isNullExpr(p.Requires) {
			exprs, diags := hcl.ExprList(p.Requires)
			if diags.HasErrors() {
				err = multierror.Append(err, diags.Errs()...)
				continue
			}

			for _, e := range exprs {
				if t := templateFromExpr(e, src); t != nil {
					rp.Requires = append(rp.Requires, t)
				}
			}
		}

		raw.Post = append(raw.Post, rp)
	}

	for _, tc := range f.TestCases {
		rt := rawTestCase{
			Name:       tc.Name,
			Executable: templateFromExpr(tc.Executable, src),
			OutputDir:  templateFromExpr(tc.OutputDir, src),
			Options:    tc.Options,
			Triggers:   tc.Triggers,
			Flags:      tc.Flags,
		}

		if tc.MCResponseTrigger != nil {
			rt.MCResponseTrigger = *tc.MCResponseTrigger
		}

		raw.TestCases = append(raw.TestCases, rt)
	}

	return raw, err
}
