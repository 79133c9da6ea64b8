// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"

	"github.com/matt-FFFFFF/sysbatch/internal/progress"
)

// Runnable is something that can be run as part of a batch (either a command or a nested batch).
type Runnable interface {
	// Run executes the command or batch and returns the results.
	// It should handle context cancellation and passing signals to any spawned process.
	Run(context.Context) Results
	// SetCwd sets the working directory according to the update policy.
	SetCwd(string, CwdUpdatePolicy)
	// InheritEnv adds environment variables without overwriting existing keys.
	InheritEnv(map[string]string)
	// GetLabel returns the label or description of the command or batch.
	GetLabel() string
	// GetParent returns the parent for this command or batch.
	GetParent() Runnable
	// SetParent sets the parent for this command or batch.
	SetParent(Runnable)
	// ShouldRun decides whether to run given the status of the previous sibling.
	ShouldRun(PreviousCommandStatus) ShouldRunAction
	// SetProgressReporter sets the reporter used for progress events.
	SetProgressReporter(progress.Reporter)
}

// Source hands out runnables to pool workers, one per call.
// Pop reports false once nothing is left; *workqueue.Queue[Runnable] satisfies it.
type Source interface {
	Pop() (Runnable, bool)
}
