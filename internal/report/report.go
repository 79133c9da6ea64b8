// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package report writes a YAML record of one run: every batch, the state it reached,
// the status and log file of each task and post step, and the points that were skipped.
package report

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
	"github.com/matt-FFFFFF/sysbatch/internal/orchestrator"
	"github.com/matt-FFFFFF/sysbatch/internal/runbatch"
	"github.com/spf13/afero"
)

var (
	// ErrWriteReport is returned when the report cannot be written.
	ErrWriteReport = errors.New("failed to write run report")
	// ErrReadReport is returned when a report cannot be read back.
	ErrReadReport = errors.New("failed to read run report")
)

// Report is the document written by `sysbatch run --out`.
type Report struct {
	RunID      string    `yaml:"run_id"`
	Definition string    `yaml:"definition"`
	StartedAt  time.Time `yaml:"started_at"`
	Duration   string    `yaml:"duration"`
	DryRun     bool      `yaml:"dry_run,omitempty"`
	Workers    int       `yaml:"workers"`
	Cancelled  bool      `yaml:"cancelled,omitempty"`
	Summary    Summary   `yaml:"summary"`
	Batches    []Batch   `yaml:"batches"`
}

// Summary counts the leaf results of the run.
type Summary struct {
	Total     int `yaml:"total"`
	Succeeded int `yaml:"succeeded"`
	Failed    int `yaml:"failed"`
	Skipped   int `yaml:"skipped"`
}

// Batch is one (test case, option) pass.
type Batch struct {
	TestCase string    `yaml:"testcase"`
	Option   string    `yaml:"option"`
	WorkDir  string    `yaml:"workdir"`
	State    string    `yaml:"state"`
	Status   string    `yaml:"status"`
	Error    string    `yaml:"error,omitempty"`
	Tasks    []Command `yaml:"tasks"`
	Skipped  []Skipped `yaml:"skipped,omitempty"`
	Post     []Command `yaml:"post_process,omitempty"`
}

// Command is one task or post step.
type Command struct {
	Label    string `yaml:"label"`
	Command  string `yaml:"command"`
	LogFile  string `yaml:"log_file,omitempty"`
	Status   string `yaml:"status"`
	ExitCode int    `yaml:"exit_code,omitempty"`
	Error    string `yaml:"error,omitempty"`
	Duration string `yaml:"duration,omitempty"`
}

// Skipped is a variation point that never ran because an input was missing.
type Skipped struct {
	Radius  int    `yaml:"radius"`
	Trigger string `yaml:"trigger,omitempty"`
	Input   string `yaml:"input"`
	Path    string `yaml:"path"`
}

// Options carries the run level fields of a report.
type Options struct {
	RunID      uuid.UUID
	Definition string
	StartedAt  time.Time
	Duration   time.Duration
	DryRun     bool
	Workers    int
	Cancelled  bool
}

// New builds a report from the batches of a finished run and its result tree.
func New(opts Options, batches []*orchestrator.Batch, results runbatch.Results) *Report {
	sum := runbatch.Summarize(results)

	r := &Report{
		RunID:      opts.RunID.String(),
		Definition: opts.Definition,
		StartedAt:  opts.StartedAt.UTC(),
		Duration:   opts.Duration.Round(time.Millisecond).String(),
		DryRun:     opts.DryRun,
		Workers:    opts.Workers,
		Cancelled:  opts.Cancelled,
		Summary: Summary{
			Total:     sum.Total,
			Succeeded: sum.Succeeded,
			Failed:    sum.Failed,
			Skipped:   sum.Skipped,
		},
		Batches: make([]Batch, 0, len(batches)),
	}

	for _, b := range batches {
		r.Batches = append(r.Batches, newBatch(b))
	}

	return r
}

func newBatch(b *orchestrator.Batch) Batch {
	out := Batch{
		TestCase: b.TestCase.Name,
		Option:   b.Option,
		WorkDir:  b.WorkDir,
		State:    b.State.String(),
		Status:   runbatch.ResultStatusUnknown.String(),
	}

	// A batch that never ran keeps the unknown status.
	var idx resultIndex

	if b.Result != nil {
		out.Status = b.Result.Status.String()
		out.Error = errString(b.Result.Error)
		idx = index(b.Result.Children)
	}

	for _, t := range b.Tasks {
		out.Tasks = append(out.Tasks, command(t.Point.String(), t.Command, t.LogFile, idx.tasks))
	}

	for _, sp := range b.Skipped {
		out.Skipped = append(out.Skipped, Skipped{
			Radius:  sp.Point.Radius,
			Trigger: sp.Point.Trigger,
			Input:   sp.Input,
			Path:    sp.Path,
		})
	}

	for _, ps := range b.Post {
		out.Post = append(out.Post, command(ps.Name, ps.Command, ps.LogFile, idx.post))
	}

	return out
}

// resultIndex holds the command results of one batch by label, kept apart per
// sub-batch since a post step may share its name with a point label.
type resultIndex struct {
	tasks map[string]*runbatch.Result
	post  map[string]*runbatch.Result
}

// index sorts the results below a batch result into tasks and post steps.
// Results directly under the batch belong to points that never reached the pool.
func index(children runbatch.Results) resultIndex {
	idx := resultIndex{
		tasks: make(map[string]*runbatch.Result),
		post:  make(map[string]*runbatch.Result),
	}

	for _, c := range children {
		m := idx.tasks
		if c.Label == orchestrator.PostLabel {
			m = idx.post
		}

		for _, l := range (runbatch.Results{c}).Leaves() {
			m[l.Label] = l
		}
	}

	return idx
}

func command(label, cmd, logFile string, results map[string]*runbatch.Result) Command {
	c := Command{
		Label:   label,
		Command: cmd,
		LogFile: logFile,
		Status:  runbatch.ResultStatusUnknown.String(),
	}

	if res, ok := results[label]; ok {
		c.Status = res.Status.String()
		c.ExitCode = res.ExitCode
		c.Error = errString(res.Error)

		if res.Duration > 0 {
			c.Duration = res.Duration.Round(time.Millisecond).String()
		}
	}

	return c
}

func errString(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}

// Write marshals the report to path, creating the parent directory.
func (r *Report) Write(fs afero.Fs, path string) error {
	data, err := yaml.MarshalWithOptions(r, yaml.IndentSequence(true))
	if err != nil {
		return errors.Join(ErrWriteReport, err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return errors.Join(ErrWriteReport, err)
		}
	}

	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return errors.Join(ErrWriteReport, err)
	}

	return nil
}

// Read loads a report written by Write.
func Read(fs afero.Fs, path string) (*Report, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Join(ErrReadReport, err)
	}

	r := &Report{}
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, errors.Join(ErrReadReport, fmt.Errorf("%s: %w", path, err))
	}

	return r, nil
}
