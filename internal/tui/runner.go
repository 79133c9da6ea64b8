// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"context"
	"errors"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/matt-FFFFFF/sysbatch/internal/progress"
	"github.com/matt-FFFFFF/sysbatch/internal/runbatch"
)

var _ progress.Listener = (*Runner)(nil)

// ErrAborted is the cancellation cause when the user quits the view before the run finishes.
var ErrAborted = errors.New("run aborted from the interactive view")

// Work is the run shown by the view.
type Work func(ctx context.Context) (runbatch.Results, error)

// Runner owns the bubbletea program.
type Runner struct {
	model      *Model
	program    *tea.Program
	closed     bool
	mutex      sync.RWMutex
	ExitOnDone bool // Quit as soon as the run finishes instead of waiting for 'q'
}

// NewRunner creates a runner. opts are appended to the default program options.
func NewRunner(ctx context.Context, opts ...tea.ProgramOption) *Runner {
	model := NewModel(ctx)
	options := append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)

	return &Runner{
		model:   model,
		program: tea.NewProgram(model, options...),
	}
}

// OnEvent implements progress.Listener.
func (r *Runner) OnEvent(event progress.Event) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if r.closed {
		return
	}

	r.program.Send(EventMsg{Event: event})
}

func (r *Runner) close() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.closed = true
}

// Run starts the view and runs work alongside it.
// Quitting the view before work returns cancels the context passed to work.
func (r *Runner) Run(ctx context.Context, work Work) (runbatch.Results, error) {
	workCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	type outcome struct {
		results runbatch.Results
		err     error
	}

	done := make(chan outcome, 1)

	go func() {
		res, err := work(workCtx)
		done <- outcome{res, err}
	}()

	tuiDone := make(chan error, 1)

	go func() {
		_, err := r.program.Run()
		tuiDone <- err
	}()

	var (
		out    outcome
		tuiErr error
	)

	select {
	case out = <-done:
		r.program.Send(DoneMsg{Results: out.results, Err: out.err})

		if r.ExitOnDone {
			r.program.Quit()
		}

		tuiErr = <-tuiDone

	case tuiErr = <-tuiDone:
		// A clean exit before the run finished means the user quit.
		if tuiErr == nil {
			cancel(ErrAborted)
		}

		out = <-done
	}

	r.close()

	if errors.Is(tuiErr, tea.ErrProgramKilled) && ctx.Err() != nil {
		tuiErr = nil
	}

	return out.results, errors.Join(out.err, tuiErr)
}
