// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/hashicorp/go-multierror"
	"github.com/matt-FFFFFF/sysbatch/internal/runbatch"
	"github.com/matt-FFFFFF/sysbatch/internal/testcase"
	"github.com/zclconf/go-cty/cty"
)

// DefaultWorkers is the worker count used when neither the definition nor the command line sets one.
const DefaultWorkers = 4

var (
	// ErrInvalidDefinition is returned when a parsed definition fails validation.
	ErrInvalidDefinition = errors.New("invalid run definition")
	// ErrInvalidWorkers is returned for a negative worker count.
	ErrInvalidWorkers = errors.New("workers must be a positive integer")
	// ErrNoRadii is returned when the definition has no radii.
	ErrNoRadii = errors.New("no radii defined")
	// ErrNoTaskCommand is returned when the task block has no command.
	ErrNoTaskCommand = errors.New("task has no command")
	// ErrNoTestCases is returned when the definition has no test cases.
	ErrNoTestCases = errors.New("no test cases defined")
	// ErrDuplicateName is returned when two blocks of the same kind share a name.
	ErrDuplicateName = errors.New("duplicate name")
)

// Definition is a fully loaded run definition.
// Test case executables, output directories and post step requirements are
// rendered at load time; task and post step commands are rendered per batch.
type Definition struct {
	Source    string              // File name or profile the definition came from
	Vars      Vars                // Load-time variables
	Workers   int                 // Worker count, 0 when not set
	Radii     []int               // Jet radii in tenths
	Triggers  []string            // Triggers, may be empty
	Task      Task                // Template of the per-point command
	Post      []PostStep          // Steps run after every batch, in order
	TestCases []testcase.TestCase // Test cases, in definition order
}

// Task is the template run once per variation point.
type Task struct {
	Command *Template
	LogFile *Template // Optional
	Inputs  []Input   // Input artifacts that must exist for a point to run
}

// Input is a named input artifact path template.
type Input struct {
	Name string
	Path *Template
}

// NamedPath is a rendered input path.
type NamedPath struct {
	Name string
	Path string
}

// PostStep is one post-processing command.
type PostStep struct {
	Name     string
	Command  *Template
	LogFile  *Template             // Optional
	Requires []string              // Artifacts checked before any batch runs
	RunsOn   runbatch.RunCondition // Condition relative to the previous post step
}

// RenderedTask is the task of one variation point.
type RenderedTask struct {
	Point   Point
	Command string
	LogFile string
	Inputs  []NamedPath
}

// RenderedPost is a post step rendered for one batch.
type RenderedPost struct {
	Name    string
	Command string
	LogFile string
	RunsOn  runbatch.RunCondition
}

// TriggersFor returns the triggers a test case runs with.
func (d *Definition) TriggersFor(tc testcase.TestCase) []string {
	if len(tc.Triggers) > 0 {
		return tc.Triggers
	}

	return d.Triggers
}

// Points enumerates radii × triggers, trigger-major as the analysis scripts did.
// Without triggers the domain is the radii alone.
func (d *Definition) Points(tc testcase.TestCase) []Point {
	triggers := d.TriggersFor(tc)
	if len(triggers) == 0 {
		triggers = []string{""}
	}

	points := make([]Point, 0, len(triggers)*len(d.Radii))

	for _, trg := range triggers {
		for _, r := range d.Radii {
			points = append(points, Point{Radius: r, Trigger: trg})
		}
	}

	return points
}

// RenderTask renders the inputs, log file and command of one point, in that order,
// each stage seeing the results of the previous ones.
func (d *Definition) RenderTask(tc testcase.TestCase, option, workDir string, p Point) (*RenderedTask, error) {
	vars := d.Vars.PointVars(tc, option, workDir, p)
	rt := &RenderedTask{Point: p}

	for _, in := range d.Task.Inputs {
		path, err := in.Path.Render(vars)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", in.Name, err)
		}

		if path != "" && !filepath.IsAbs(path) {
			path = filepath.Join(workDir, path)
		}

		rt.Inputs = append(rt.Inputs, NamedPath{Name: in.Name, Path: path})
	}

	vars = withVars(vars, map[string]cty.Value{VarInputs: objectOf(rt.Inputs)})

	logFile, err := d.Task.LogFile.Render(vars)
	if err != nil {
		return nil, fmt.Errorf("log_file: %w", err)
	}

	rt.LogFile = logFile

	vars = withVars(vars, map[string]cty.Value{VarLogFile: cty.StringVal(logFile)})

	cmd, err := d.Task.Command.Render(vars)
	if err != nil {
		return nil, fmt.Errorf("command: %w", err)
	}

	rt.Command = cmd

	return rt, nil
}

// RenderPost renders the post steps of one batch.
func (d *Definition) RenderPost(tc testcase.TestCase, option, workDir string) ([]RenderedPost, error) {
	vars := d.Vars.BatchVars(tc, option, workDir)
	out := make([]RenderedPost, 0, len(d.Post))

	var err error

	for _, ps := range d.Post {
		cmd, cmdErr := ps.Command.Render(vars)
		logFile, logErr := ps.LogFile.Render(vars)

		if e := errors.Join(cmdErr, logErr); e != nil {
			err = multierror.Append(err, fmt.Errorf("post_process %q: %w", ps.Name, e))
			continue
		}

		out = append(out, RenderedPost{
			Name:    ps.Name,
			Command: cmd,
			LogFile: logFile,
			RunsOn:  ps.RunsOn,
		})
	}

	if err != nil {
		return nil, err
	}

	return out, nil
}

// Select returns a copy of d restricted to the named test cases, and the names that matched nothing.
func (d *Definition) Select(names []string) (*Definition, []string) {
	cp := *d

	var unknown []string

	cp.TestCases, unknown = testcase.Select(d.TestCases, names)

	return &cp, unknown
}

// Validate checks the definition for errors that would make every batch fail.
func (d *Definition) Validate() error {
	var err error

	if d.Workers < 0 {
		err = multierror.Append(err, fmt.Errorf("%w: %d", ErrInvalidWorkers, d.Workers))
	}

	if len(d.Radii) == 0 {
		err = multierror.Append(err, ErrNoRadii)
	}

	if d.Task.Command == nil {
		err = multierror.Append(err, ErrNoTaskCommand)
	}

	if len(d.TestCases) == 0 {
		err = multierror.Append(err, ErrNoTestCases)
	}

	if dup := duplicates(d.TestCases, func(tc testcase.TestCase) string { return tc.Name }); len(dup) > 0 {
		err = multierror.Append(err, fmt.Errorf("%w: testcase %v", ErrDuplicateName, dup))
	}

	if dup := duplicates(d.Post, func(p PostStep) string { return p.Name }); len(dup) > 0 {
		err = multierror.Append(err, fmt.Errorf("%w: post_process %v", ErrDuplicateName, dup))
	}

	if dup := duplicates(d.Task.Inputs, func(i Input) string { return i.Name }); len(dup) > 0 {
		err = multierror.Append(err, fmt.Errorf("%w: input %v", ErrDuplicateName, dup))
	}

	for _, tc := range d.TestCases {
		if e := tc.Validate(); e != nil {
			err = multierror.Append(err, e)
		}
	}

	if err != nil {
		return errors.Join(ErrInvalidDefinition, err)
	}

	return nil
}

func duplicates[T any](items []T, key func(T) string) []string {
	seen := make(map[string]int, len(items))

	var dup []string

	for _, it := range items {
		k := key(it)

		seen[k]++
		if seen[k] == 2 { //nolint:mnd
			dup = append(dup, k)
		}
	}

	slices.Sort(dup)

	return dup
}
