// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/matt-FFFFFF/sysbatch/internal/config"
	"github.com/matt-FFFFFF/sysbatch/internal/ctxlog"
	"github.com/matt-FFFFFF/sysbatch/internal/progress"
	"github.com/matt-FFFFFF/sysbatch/internal/runbatch"
	"github.com/matt-FFFFFF/sysbatch/internal/validate"
	"github.com/spf13/afero"
)

const rootLabel = "run"

var (
	// ErrPreconditionFailed is returned when the artifact check fails. No batch has run.
	ErrPreconditionFailed = errors.New("precondition check failed")
	// ErrNoDefinition is returned by Run when the orchestrator has no definition.
	ErrNoDefinition = errors.New("no run definition")
	// ErrCancelled is returned when the run was interrupted.
	ErrCancelled = errors.New("run cancelled")
)

// Orchestrator runs every batch of a definition: one per (test case, option)
// pair, in definition order, each with its own worker pool.
type Orchestrator struct {
	FS         afero.Fs           // Defaults to the OS file system
	Definition *config.Definition // Already filtered to the selected test cases
	Workers    int                // Overrides Definition.Workers when > 0
	Reporter   progress.Reporter  // Optional
	DryRun     bool
	NewCommand CommandFactory // Defaults to ShellCommand

	batches []*Batch
	check   *validate.Report
}

// Batches returns the batches of the last run, in execution order.
func (o *Orchestrator) Batches() []*Batch {
	return o.batches
}

// Check returns the artifact report of the last run.
func (o *Orchestrator) Check() *validate.Report {
	return o.check
}

// WorkerCount returns the worker count of every batch pool.
func (o *Orchestrator) WorkerCount() int {
	switch {
	case o.Workers > 0:
		return o.Workers
	case o.Definition != nil && o.Definition.Workers > 0:
		return o.Definition.Workers
	default:
		return config.DefaultWorkers
	}
}

func (o *Orchestrator) defaults() {
	if o.FS == nil {
		o.FS = afero.NewOsFs()
	}

	if o.NewCommand == nil {
		o.NewCommand = ShellCommand
	}
}

// Plan builds the batch tree without running it.
func (o *Orchestrator) Plan() *runbatch.SerialBatch {
	o.defaults()
	o.batches = nil

	root := &runbatch.SerialBatch{
		BaseCommand: runbatch.NewBaseCommand(rootLabel, "", runbatch.RunOnAlways, nil, nil),
	}

	for _, tc := range o.Definition.TestCases {
		tcBatch := &runbatch.SerialBatch{
			BaseCommand: runbatch.NewBaseCommand(tc.Name, absPath(tc.OutputDir), runbatch.RunOnAlways, nil, nil),
		}

		for _, option := range tc.Options {
			b := newBatch(o, tc, option)
			o.batches = append(o.batches, b)
			tcBatch.Commands = append(tcBatch.Commands, b)
		}

		root.Commands = append(root.Commands, tcBatch)
	}

	return root
}

// Run checks the required artifacts and then runs every batch.
// When the check fails the returned error wraps ErrPreconditionFailed and nothing has run.
// A failing task does not make Run return an error; inspect the results instead.
func (o *Orchestrator) Run(ctx context.Context) (runbatch.Results, error) {
	if o.Definition == nil {
		return nil, ErrNoDefinition
	}

	o.defaults()

	logger := ctxlog.Logger(ctx)

	report, err := validate.Check(ctx, o.FS, o.Definition)
	o.check = report

	if err != nil {
		o.batches = nil
		return nil, errors.Join(ErrPreconditionFailed, err)
	}

	root := o.Plan()

	if o.Reporter != nil {
		root.SetProgressReporter(o.Reporter)
	}

	logger.Info(fmt.Sprintf("running %d batches", len(o.batches)),
		"testCases", len(o.Definition.TestCases), "workers", o.WorkerCount(), "dryRun", o.DryRun)

	results := root.Run(ctx)

	if ctx.Err() != nil {
		return results, errors.Join(ErrCancelled, context.Cause(ctx))
	}

	return results, nil
}
