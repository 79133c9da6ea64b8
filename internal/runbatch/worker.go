// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"

	"github.com/matt-FFFFFF/sysbatch/internal/ctxlog"
)

type worker struct {
	id    int
	batch *PoolBatch
	out   chan<- Results
}

// run pops commands until the source is empty or ctx is done.
// A failed command is recorded and the worker moves on.
func (w *worker) run(ctx context.Context) {
	logger := ctxlog.Logger(ctx).With("worker", w.id)
	ran := 0

	for {
		if ctx.Err() != nil {
			logger.Debug("context done, worker exiting", "ran", ran)
			return
		}

		cmd, ok := w.batch.Source.Pop()
		if !ok {
			logger.Debug("queue drained, worker exiting", "ran", ran)
			return
		}

		cmd.SetParent(w.batch)
		cmd.InheritEnv(w.batch.Env)
		cmd.SetCwd(w.batch.Cwd, CwdPolicyPreserveAbsolute)

		if w.batch.reporter != nil {
			cmd.SetProgressReporter(w.batch.reporter)
		}

		logger.Debug("running command", "label", cmd.GetLabel())

		res := cmd.Run(ctx)
		ran++

		if res.HasError() {
			logger.Warn("command failed, continuing", "label", cmd.GetLabel())
		}

		w.out <- res
	}
}
