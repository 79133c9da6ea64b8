// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main contains the sysbatch command-line interface (CLI).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/matt-FFFFFF/sysbatch"
	"github.com/matt-FFFFFF/sysbatch/cmd/sysbatch/check"
	"github.com/matt-FFFFFF/sysbatch/cmd/sysbatch/run"
	"github.com/matt-FFFFFF/sysbatch/cmd/sysbatch/show"
	"github.com/matt-FFFFFF/sysbatch/internal/ctxlog"
	"github.com/matt-FFFFFF/sysbatch/internal/signalbroker"
	"github.com/urfave/cli/v3"
)

// rootCmd is the root command for the CLI.
var rootCmd = &cli.Command{
	Commands: []*cli.Command{
		run.RunCmd,
		check.CheckCmd,
		show.ShowCmd,
	},
	Writer:    os.Stdout,
	ErrWriter: os.Stderr,
	Name:      "sysbatch",
	Description: `sysbatch runs the systematic uncertainty study of a jet substructure unfolding.
Every test case is run once per systematic option; each option runs one unfolding task
per jet radius (and trigger) in parallel, followed by the plotting and sorting steps.`,
	Usage:     "sysbatch run /path/to/data",
	Copyright: "Copyright (c) matt-FFFFFF 2025. All rights reserved.",
	Authors: []any{
		"Matt White (matt-FFFFFF)",
	},
	EnableShellCompletion: true,
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	ctx = ctxlog.New(ctx, ctxlog.DefaultLogger)
	defer cancel()

	sigCh := signalbroker.New(ctx)
	defer signalbroker.Stop(sigCh)

	go signalbroker.Watch(ctx, sigCh, cancel)

	rootCmd.Version = fmt.Sprintf("%s (commit: %s)", sysbatch.Version, sysbatch.Commit)

	err := rootCmd.Run(ctx, os.Args)

	if ctx.Err() != nil {
		ctxlog.Logger(ctx).Error("command terminated due to cancellation", "error", ctx.Err())
		os.Exit(1)
	}

	if err != nil {
		ctxlog.Logger(ctx).Error("command execution failed", "error", err)
		os.Exit(1)
	}
}
