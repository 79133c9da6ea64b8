// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
	"slices"
	"time"
)

var _ Runnable = (*SerialBatch)(nil)

// SerialBatch represents a collection of commands, which are run serially.
type SerialBatch struct {
	*BaseCommand
	Commands []Runnable // The commands or nested batches to run
}

// Run implements the Runnable interface for SerialBatch.
func (b *SerialBatch) Run(ctx context.Context) Results {
	start := time.Now()
	results := make(Results, 0, len(b.Commands))

	reportStarted(b.reporter, b, "Starting serial batch")

	prevState := PreviousCommandStatus{
		State: ResultStatusSuccess,
	}

	skipped := func(cmd Runnable, err error) {
		results = append(results, &Result{
			Label:  cmd.GetLabel(),
			Status: ResultStatusSkipped,
			Error:  err,
		})
		reportSkipped(b.reporter, cmd, err)
	}

	for cmd := range slices.Values(b.Commands) {
		cmd.SetParent(b)

		if b.reporter != nil {
			cmd.SetProgressReporter(b.reporter)
		}

		if ctx.Err() != nil {
			skipped(cmd, ErrSkipCancelled)
			continue
		}

		// Inherit env and cwd from the batch if not already set
		cmd.InheritEnv(b.Env)
		cmd.SetCwd(b.Cwd, CwdPolicyPreserveAbsolute)

		switch cmd.ShouldRun(prevState) {
		case ShouldRunActionSkip:
			skipped(cmd, ErrSkipIntentional)
			continue
		case ShouldRunActionError:
			skipped(cmd, ErrSkipOnError)
			continue
		}

		childResults := cmd.Run(ctx)
		if len(childResults) > 0 {
			prevState.State = childResults[0].Status
			prevState.ExitCode = childResults[0].ExitCode
			prevState.Err = childResults[0].Error
		}

		results = slices.Concat(results, childResults)
	}

	res := &Result{
		Label:    b.Label,
		Children: results,
		Status:   ResultStatusSuccess,
		Duration: time.Since(start),
	}

	if results.HasError() {
		res.ExitCode = -1
		res.Error = ErrResultChildrenHasError
		res.Status = ResultStatusError
	}

	reportComplete(ctx, b.reporter, b, res)

	return Results{res}
}
