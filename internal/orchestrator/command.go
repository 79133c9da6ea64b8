// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"context"

	"github.com/matt-FFFFFF/sysbatch/internal/runbatch"
	"github.com/matt-FFFFFF/sysbatch/internal/shellcommand"
)

// CommandFactory builds the runnable for one rendered command line.
// logFile is empty when the command has no log file.
type CommandFactory func(ctx context.Context, base *runbatch.BaseCommand, commandLine, logFile string) (runbatch.Runnable, error)

// ShellCommand runs the command line through the default shell.
func ShellCommand(ctx context.Context, base *runbatch.BaseCommand, commandLine, logFile string) (runbatch.Runnable, error) {
	return shellcommand.NewWithLog(ctx, base, commandLine, logFile)
}
