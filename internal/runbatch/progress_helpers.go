// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
	"fmt"
	"time"

	"github.com/matt-FFFFFF/sysbatch/internal/ctxlog"
	"github.com/matt-FFFFFF/sysbatch/internal/progress"
)

// reportStarted reports that r has started. A nil reporter is a no-op.
func reportStarted(reporter progress.Reporter, r Runnable, msg string) {
	if reporter == nil {
		return
	}

	reporter.Report(progress.Event{
		CommandPath: LabelPath(r),
		Type:        progress.EventStarted,
		Message:     msg,
		Timestamp:   time.Now(),
	})
}

// reportSkipped reports that r was not run.
func reportSkipped(reporter progress.Reporter, r Runnable, reason error) {
	if reporter == nil {
		return
	}

	reporter.Report(progress.Event{
		CommandPath: LabelPath(r),
		Type:        progress.EventSkipped,
		Message:     fmt.Sprintf("%s skipped", r.GetLabel()),
		Timestamp:   time.Now(),
		Data:        progress.EventData{Error: reason},
	})
}

// reportComplete reports completion of r based on res.
func reportComplete(ctx context.Context, reporter progress.Reporter, r Runnable, res *Result) {
	if reporter == nil || res == nil {
		return
	}

	path := LabelPath(r)

	if res.Status == ResultStatusError {
		ctxlog.Debug(ctx, "reporting failed command", "commandPath", path, "exitCode", res.ExitCode)

		reporter.Report(progress.Event{
			CommandPath: path,
			Type:        progress.EventFailed,
			Message:     fmt.Sprintf("%s failed", r.GetLabel()),
			Timestamp:   time.Now(),
			Data: progress.EventData{
				ExitCode: res.ExitCode,
				Error:    res.Error,
			},
		})

		return
	}

	reporter.Report(progress.Event{
		CommandPath: path,
		Type:        progress.EventCompleted,
		Message:     fmt.Sprintf("%s completed", r.GetLabel()),
		Timestamp:   time.Now(),
		Data: progress.EventData{
			ExitCode: res.ExitCode,
		},
	})
}
