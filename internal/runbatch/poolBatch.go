// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/matt-FFFFFF/sysbatch/internal/ctxlog"
)

var _ Runnable = (*PoolBatch)(nil)

// PoolBatch runs the commands handed out by Source on a fixed number of workers.
// Run returns only after every worker has exited, which happens once Source is
// empty or the context is done.
type PoolBatch struct {
	*BaseCommand
	Source  Source // Where workers take commands from
	Workers int    // Number of workers, values below 1 mean 1
}

// Run implements the Runnable interface for PoolBatch.
func (b *PoolBatch) Run(ctx context.Context) Results {
	start := time.Now()
	workers := max(b.Workers, 1)

	if b.Source == nil {
		b.Source = emptySource{}
	}

	logger := ctxlog.Logger(ctx).
		With("runnableType", "PoolBatch").
		With("label", b.Label)

	reportStarted(b.reporter, b, fmt.Sprintf("Starting pool with %d workers", workers))
	logger.Debug("starting workers", "workers", workers)

	resCh := make(chan Results)
	collected := make(chan Results, 1)

	go func() {
		var all Results
		for r := range resCh {
			all = append(all, r...)
		}
		collected <- all
	}()

	wg := &sync.WaitGroup{}

	for id := range workers {
		wg.Add(1)

		w := &worker{
			id:    id,
			batch: b,
			out:   resCh,
		}

		go func() {
			defer wg.Done()
			w.run(ctx)
		}()
	}

	// Barrier: no worker is still running past this point.
	wg.Wait()
	close(resCh)

	children := <-collected

	if ctx.Err() != nil {
		children = append(children, b.skipRemaining()...)
	} else if n := pending(b.Source); n > 0 {
		// Pushed after every worker saw the source empty. Left in place for the caller.
		logger.Warn("commands queued after the workers finished were not attempted", "count", n)
	}

	res := &Result{
		Label:    b.Label,
		Children: children,
		Status:   ResultStatusSuccess,
		Duration: time.Since(start),
	}

	if children.HasError() {
		res.ExitCode = -1
		res.Error = ErrResultChildrenHasError
		res.Status = ResultStatusError
	}

	logger.Debug("all workers finished", "results", len(children), "duration", res.Duration)
	reportComplete(ctx, b.reporter, b, res)

	return Results{res}
}

// skipRemaining drains the source after a cancel, marking every command skipped.
func (b *PoolBatch) skipRemaining() Results {
	var skipped Results

	for {
		cmd, ok := b.Source.Pop()
		if !ok {
			return skipped
		}

		cmd.SetParent(b)
		skipped = append(skipped, &Result{
			Label:  cmd.GetLabel(),
			Status: ResultStatusSkipped,
			Error:  ErrSkipCancelled,
		})
		reportSkipped(b.reporter, cmd, ErrSkipCancelled)
	}
}

// pending reports how many commands are still queued, when the source can tell.
func pending(s Source) int {
	if l, ok := s.(interface{ Len() int }); ok {
		return l.Len()
	}

	return 0
}

type emptySource struct{}

func (emptySource) Pop() (Runnable, bool) { return nil, false }
