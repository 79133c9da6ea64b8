// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/hashicorp/go-multierror"
)

type yamlFile struct {
	Workers   int            `yaml:"workers"`
	Radii     []int          `yaml:"radii"`
	Triggers  []string       `yaml:"triggers"`
	Task      yamlTask       `yaml:"task"`
	Post      []yamlPost     `yaml:"post_process"`
	TestCases []yamlTestCase `yaml:"testcases"`
}

type yamlTask struct {
	Command string      `yaml:"command"`
	LogFile string      `yaml:"log_file"`
	Inputs  []yamlInput `yaml:"inputs"`
}

type yamlInput struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

type yamlPost struct {
	Name     string   `yaml:"name"`
	Command  string   `yaml:"command"`
	LogFile  string   `yaml:"log_file"`
	Requires []string `yaml:"requires"`
	RunsOn   string   `yaml:"runs_on"`
}

type yamlTestCase struct {
	Name              string            `yaml:"name"`
	Executable        string            `yaml:"executable"`
	Options           []string          `yaml:"options"`
	OutputDir         string            `yaml:"output_dir"`
	Triggers          []string          `yaml:"triggers"`
	MCResponseTrigger bool              `yaml:"mc_response_trigger"`
	Flags             map[string]string `yaml:"flags"`
}

// ParseYAML parses a YAML run definition. Every string that is a template is
// parsed with the same template language as HCL.
func ParseYAML(ctx context.Context, src []byte, filename string, vars Vars) (*Definition, error) {
	var f yamlFile
	if err := yaml.UnmarshalWithOptions(src, &f, yaml.DisallowUnknownField()); err != nil {
		return nil, errors.Join(ErrParseDefinition, err)
	}

	tp := &templateParser{filename: filename}

	raw := &rawDefinition{
		Workers:  f.Workers,
		Radii:    f.Radii,
		Triggers: f.Triggers,
		Task: Task{
			Command: tp.parse("task.command", f.Task.Command),
			LogFile: tp.parse("task.log_file", f.Task.LogFile),
		},
	}

	for i, in := range f.Task.Inputs {
		raw.Task.Inputs = append(raw.Task.Inputs, Input{
			Name: in.Name,
			Path: tp.parse(fmt.Sprintf("task.inputs[%d].path", i), in.Path),
		})
	}

	for i, p := range f.Post {
		rp := rawPost{
			Name:    p.Name,
			Command: tp.parse(fmt.Sprintf("post_process[%d].command", i), p.Command),
			LogFile: tp.parse(fmt.Sprintf("post_process[%d].log_file", i), p.LogFile),
			RunsOn:  p.RunsOn,
		}

		for j, r := range p.Requires {
			if t := tp.parse(fmt.Sprintf("post_process[%d].requires[%d]", i, j), r); t != nil {
				rp.Requires = append(rp.Requires, t)
			}
		}

		raw.Post = append(raw.Post, rp)
	}

	for i, tc := range f.TestCases {
		raw.TestCases = append(raw.TestCases, rawTestCase{
			Name:              tc.Name,
			Executable:        tp.parse(fmt.Sprintf("testcases[%d].executable", i), tc.Executable),
			OutputDir:         tp.parse(fmt.Sprintf("testcases[%d].output_dir", i), tc.OutputDir),
			Options:           tc.Options,
			Triggers:          tc.Triggers,
			MCResponseTrigger: tc.MCResponseTrigger,
			Flags:             tc.Flags,
		})
	}

	if tp.err != nil {
		return nil, errors.Join(ErrParseDefinition, tp.err)
	}

	return raw.resolve(ctx, filename, vars)
}

// templateParser collects parse errors so every bad field is reported at once.
type templateParser struct {
	filename string
	err      error
}

func (tp *templateParser) parse(field, s string) *Template {
	if s == "" {
		return nil
	}

	t, err := ParseTemplate(s, tp.filename)
	if err != nil {
		tp.err = multierror.Append(tp.err, fmt.Errorf("%s: %w", field, err))
		return nil
	}

	return t
}
