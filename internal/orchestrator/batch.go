// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"slices"
	"time"

	"github.com/matt-FFFFFF/sysbatch/internal/config"
	"github.com/matt-FFFFFF/sysbatch/internal/ctxlog"
	"github.com/matt-FFFFFF/sysbatch/internal/progress"
	"github.com/matt-FFFFFF/sysbatch/internal/runbatch"
	"github.com/matt-FFFFFF/sysbatch/internal/testcase"
	"github.com/matt-FFFFFF/sysbatch/internal/workqueue"
	"github.com/spf13/afero"
)

const (
	dirMode = 0o755
	// PoolLabel is the label of the worker pool of every batch.
	PoolLabel = "tasks"
	// PostLabel is the label of the post-processing steps of every batch.
	PostLabel = "post-processing"
)

var (
	// ErrInputMissing is set on the result of a variation point skipped for a missing input.
	ErrInputMissing = errors.New("input artifact not found")
	// ErrDryRun is set on every command result of a dry run.
	ErrDryRun = errors.New("not run, dry run")
	// ErrWorkDir is returned when a batch working directory cannot be created.
	ErrWorkDir = errors.New("failed to create working directory")
)

var _ runbatch.Runnable = (*Batch)(nil)

// SkippedPoint is a variation point that was not queued.
type SkippedPoint struct {
	Point config.Point
	Input string // Name of the missing input
	Path  string // Path that was not found
}

// Batch is one (test case, option) pass.
// It is a runbatch.Runnable so batches nest under the per test case serial batches.
type Batch struct {
	*runbatch.BaseCommand
	TestCase testcase.TestCase
	Option   string
	WorkDir  string
	Tasks    []*config.RenderedTask
	Skipped  []SkippedPoint
	Post     []config.RenderedPost
	State    State
	Result   *runbatch.Result // Set once Run returns

	def        *config.Definition
	fs         afero.Fs
	workers    int
	queued     int
	dryRun     bool
	newCommand CommandFactory
}

func newBatch(o *Orchestrator, tc testcase.TestCase, option string) *Batch {
	workDir := absPath(tc.OptionDir(option))

	return &Batch{
		BaseCommand: runbatch.NewBaseCommand(option, workDir, runbatch.RunOnAlways, nil, nil),
		TestCase:    tc,
		Option:      option,
		WorkDir:     workDir,
		def:         o.Definition,
		fs:          o.FS,
		workers:     o.WorkerCount(),
		dryRun:      o.DryRun,
		newCommand:  o.NewCommand,
	}
}

// Name returns "<testcase>/<option>".
func (b *Batch) Name() string {
	return path.Join(b.TestCase.Name, b.Option)
}

// advance moves the batch to the next state. Any other target is an error.
func (b *Batch) advance(to State) error {
	next, ok := b.State.next()
	if !ok || to != next {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.State, to)
	}

	b.State = to

	return nil
}

// enter advances and reports the new state.
func (b *Batch) enter(ctx context.Context, to State) error {
	if err := b.advance(to); err != nil {
		return err
	}

	ctxlog.Debug(ctx, "batch state", "batch", b.Name(), "state", to.String())

	if r := b.Reporter(); r != nil {
		r.Report(progress.Event{
			CommandPath: runbatch.LabelPath(b),
			Type:        progress.EventState,
			Message:     fmt.Sprintf("%s %s", b.Name(), to),
			Timestamp:   time.Now(),
			Data: progress.EventData{
				State: to.String(),
				Total: b.queued,
			},
		})
	}

	return nil
}

// Plan renders the tasks and post steps of the batch. Points with a missing
// input are logged and recorded in Skipped instead of being queued.
func (b *Batch) Plan(ctx context.Context) error {
	logger := ctxlog.Logger(ctx).With("batch", b.Name())

	b.Tasks = nil
	b.Skipped = nil

	for _, p := range b.def.Points(b.TestCase) {
		rt, err := b.def.RenderTask(b.TestCase, b.Option, b.WorkDir, p)
		if err != nil {
			return fmt.Errorf("%s %s: %w", b.Name(), p.String(), err)
		}

		if sp, missing := b.missingInput(rt); missing {
			logger.Error(fmt.Sprintf("%s file %s not found", sp.Input, sp.Path), "point", p.String())
			b.Skipped = append(b.Skipped, sp)

			continue
		}

		logger.Debug("task planned", "point", p.String(), "command", rt.Command, "logFile", rt.LogFile)
		b.Tasks = append(b.Tasks, rt)
	}

	post, err := b.def.RenderPost(b.TestCase, b.Option, b.WorkDir)
	if err != nil {
		return fmt.Errorf("%s: %w", b.Name(), err)
	}

	b.Post = post

	return nil
}

func (b *Batch) missingInput(rt *config.RenderedTask) (SkippedPoint, bool) {
	for _, in := range rt.Inputs {
		if ok, _ := afero.Exists(b.fs, in.Path); !ok {
			return SkippedPoint{Point: rt.Point, Input: in.Name, Path: in.Path}, true
		}
	}

	return SkippedPoint{}, false
}

// Run implements runbatch.Runnable.
func (b *Batch) Run(ctx context.Context) runbatch.Results {
	logger := ctxlog.Logger(ctx).With("testcase", b.TestCase.Name, "option", b.Option)
	start := time.Now()

	res := &runbatch.Result{
		Label:  b.Label,
		Status: runbatch.ResultStatusSuccess,
	}

	fail := func(err error) runbatch.Results {
		logger.Error("batch failed", "error", err)

		res.Status = runbatch.ResultStatusError
		res.Error = err
		res.ExitCode = -1
		res.Duration = time.Since(start)
		b.Result = res

		return runbatch.Results{res}
	}

	logger.Info("running systematics", "workDir", b.WorkDir, "dryRun", b.dryRun)

	if !b.dryRun {
		if err := b.fs.MkdirAll(b.WorkDir, dirMode); err != nil {
			return fail(errors.Join(ErrWorkDir, err))
		}
	}

	if err := b.enter(ctx, StatePopulating); err != nil {
		return fail(err)
	}

	if err := b.Plan(ctx); err != nil {
		return fail(err)
	}

	queue := workqueue.New[runbatch.Runnable]()

	var (
		children runbatch.Results
		pushed   []*config.RenderedTask
	)

	for _, sp := range b.Skipped {
		skipped := &runbatch.Result{
			Label:  sp.Point.String(),
			Status: runbatch.ResultStatusSkipped,
			Error:  fmt.Errorf("%w: %s", ErrInputMissing, sp.Path),
		}
		children = append(children, skipped)

		if r := b.Reporter(); r != nil {
			r.Report(progress.Event{
				CommandPath: append(runbatch.LabelPath(b), skipped.Label),
				Type:        progress.EventSkipped,
				Message:     skipped.Error.Error(),
				Timestamp:   time.Now(),
				Data:        progress.EventData{Error: skipped.Error},
			})
		}
	}

	for _, t := range b.Tasks {
		base := runbatch.NewBaseCommand(t.Point.String(), "", runbatch.RunOnAlways, nil, nil)

		cmd, err := b.newCommand(ctx, base, t.Command, t.LogFile)
		if err != nil {
			children = append(children, commandError(base.Label, err))
			continue
		}

		queue.Push(cmd)
		pushed = append(pushed, t)
	}

	b.queued = queue.Len()

	if err := b.enter(ctx, StateRunning); err != nil {
		return fail(err)
	}

	logger.Info("tasks queued", "tasks", queue.Len(), "skipped", len(b.Skipped), "workers", b.workers)

	pool := &runbatch.PoolBatch{
		BaseCommand: runbatch.NewBaseCommand(PoolLabel, b.WorkDir, runbatch.RunOnAlways, nil, nil),
		Source:      queue,
		Workers:     b.workers,
	}
	b.adopt(pool)

	if b.dryRun {
		children = append(children, dryRun(ctx, pool.Label, queue, pushed))
	} else {
		children = append(children, pool.Run(ctx)...)
	}

	if err := b.enter(ctx, StatePostProcessing); err != nil {
		return fail(err)
	}

	post := &runbatch.SerialBatch{
		BaseCommand: runbatch.NewBaseCommand(PostLabel, b.WorkDir, runbatch.RunOnAlways, nil, nil),
	}
	b.adopt(post)

	var postErrs runbatch.Results

	for _, ps := range b.Post {
		base := runbatch.NewBaseCommand(ps.Name, "", ps.RunsOn, nil, nil)

		cmd, err := b.newCommand(ctx, base, ps.Command, ps.LogFile)
		if err != nil {
			postErrs = append(postErrs, commandError(ps.Name, err))
			continue
		}

		post.Commands = append(post.Commands, cmd)
	}

	if b.dryRun {
		children = append(children, dryRunPost(ctx, post.Label, b.Post))
	} else if len(post.Commands) > 0 || len(postErrs) > 0 {
		postRes := post.Run(ctx)
		postRes[0].Children = slices.Concat(postRes[0].Children, postErrs)

		if postRes[0].Children.HasError() {
			postRes[0].Status = runbatch.ResultStatusError
			postRes[0].Error = runbatch.ErrResultChildrenHasError
			postRes[0].ExitCode = -1
		}

		children = append(children, postRes...)
	}

	if err := b.enter(ctx, StateDone); err != nil {
		return fail(err)
	}

	res.Children = children
	res.Duration = time.Since(start)

	if children.HasError() {
		res.Status = runbatch.ResultStatusError
		res.Error = runbatch.ErrResultChildrenHasError
		res.ExitCode = -1
	}

	logger.Info("systematics done",
		"summary", runbatch.Summarize(runbatch.Results{res}).String(),
		"duration", res.Duration.Round(time.Millisecond))

	b.Result = res

	return runbatch.Results{res}
}

// adopt makes r a child of the batch for labels, environment and progress.
func (b *Batch) adopt(r runbatch.Runnable) {
	r.SetParent(b)
	r.InheritEnv(b.Env)

	if rep := b.Reporter(); rep != nil {
		r.SetProgressReporter(rep)
	}
}

// absPath keeps working directories absolute so parents cannot re-root them.
func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}

	return p
}

func commandError(label string, err error) *runbatch.Result {
	return &runbatch.Result{
		Label:    label,
		Status:   runbatch.ResultStatusError,
		Error:    err,
		ExitCode: -1,
	}
}

// dryRun drains the queue without running anything and logs each command.
// tasks holds the rendered task of each queued command, in push order.
func dryRun(ctx context.Context, label string, q *workqueue.Queue[runbatch.Runnable], tasks []*config.RenderedTask) *runbatch.Result {
	res := &runbatch.Result{Label: label, Status: runbatch.ResultStatusSkipped}

	for i := 0; ; i++ {
		cmd, ok := q.Pop()
		if !ok {
			break
		}

		t := tasks[i]

		ctxlog.Info(ctx, "dry run, not executing", "task", cmd.GetLabel(), "command", t.Command, "logFile", t.LogFile)
		res.Children = append(res.Children, &runbatch.Result{
			Label:  cmd.GetLabel(),
			Status: runbatch.ResultStatusSkipped,
			Error:  ErrDryRun,
		})
	}

	return res
}

func dryRunPost(ctx context.Context, label string, post []config.RenderedPost) *runbatch.Result {
	res := &runbatch.Result{Label: label, Status: runbatch.ResultStatusSkipped}

	for _, ps := range post {
		ctxlog.Info(ctx, "dry run, not executing", "post", ps.Name, "command", ps.Command, "logFile", ps.LogFile)
		res.Children = append(res.Children, &runbatch.Result{
			Label:  ps.Name,
			Status: runbatch.ResultStatusSkipped,
			Error:  ErrDryRun,
		})
	}

	return res
}
