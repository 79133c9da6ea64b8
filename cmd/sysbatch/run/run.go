// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package run implements `sysbatch run`.
package run

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/matt-FFFFFF/sysbatch/cmd/sysbatch/definition"
	"github.com/matt-FFFFFF/sysbatch/internal/color"
	"github.com/matt-FFFFFF/sysbatch/internal/config"
	"github.com/matt-FFFFFF/sysbatch/internal/ctxlog"
	"github.com/matt-FFFFFF/sysbatch/internal/orchestrator"
	"github.com/matt-FFFFFF/sysbatch/internal/progress"
	"github.com/matt-FFFFFF/sysbatch/internal/report"
	"github.com/matt-FFFFFF/sysbatch/internal/runbatch"
	"github.com/matt-FFFFFF/sysbatch/internal/tui"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
)

const (
	dataDirArg          = "datadir"
	dryRunFlag          = "dry-run"
	workersFlag         = "workers"
	tuiFlag             = "tui"
	outFlag             = "out"
	failOnTaskErrorFlag = "fail-on-task-error"
	outputStdOutFlag    = "output-stdout"
	outputSuccessFlag   = "output-success-details"
	progressBufferSize  = 256
	cliExitStr          = ""
	exitCodeFailure     = 1
)

// ErrInvalidWorkers is returned when --workers is below 1.
var ErrInvalidWorkers = errors.New("--workers must be a positive integer")

// FsFactory returns the file system the run uses. Tests replace it.
var FsFactory = afero.NewOsFs

// RunCmd runs every batch of a definition.
var RunCmd = NewCommand()

// NewCommand returns a run command with fresh flag values.
func NewCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run the systematic variations of every selected test case",
		Description: `Run the systematic variations of every selected test case against the data in DATADIR.

For every test case and option a working directory <output-base>/<testcase>/<option> is
created. One unfolding task per jet radius (and trigger) is queued and drained by a pool of
workers; once every task of the option has finished the post-processing steps run in the
same directory. Each command writes its combined output to a log file there.

Task failures are logged and reported but do not stop the run or the post-processing.
Use --fail-on-task-error to turn them into a non-zero exit status.`,
		ArgsUsage: "DATADIR",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: dataDirArg,
			},
		},
		Flags: append(definition.Flags(),
			&cli.BoolFlag{
				Name:     dryRunFlag,
				Aliases:  []string{"d"},
				Usage:    "Log the commands that would run without creating directories or running anything",
				OnlyOnce: true,
			},
			&cli.IntFlag{
				Name:    workersFlag,
				Aliases: []string{"n"},
				Usage: fmt.Sprintf("Number of concurrent tasks per batch. "+
					"Defaults to the definition's workers, or %d.", config.DefaultWorkers),
			},
			&cli.BoolFlag{
				Name:     tuiFlag,
				Aliases:  []string{"interactive"},
				Usage:    "Show an interactive view of the run",
				OnlyOnce: true,
			},
			&cli.StringFlag{
				Name:      outFlag,
				Usage:     "Write a YAML report of the run to this file",
				TakesFile: true,
				OnlyOnce:  true,
			},
			&cli.BoolFlag{
				Name:     failOnTaskErrorFlag,
				Usage:    "Exit with status 1 when any task or post-processing step failed",
				OnlyOnce: true,
			},
			&cli.BoolFlag{
				Name:     outputStdOutFlag,
				Aliases:  []string{"stdout"},
				Usage:    "Include the stdout of commands without a log file in the results",
				OnlyOnce: true,
			},
			&cli.BoolFlag{
				Name:     outputSuccessFlag,
				Aliases:  []string{"success"},
				Usage:    "Include successful results in the output",
				OnlyOnce: true,
			},
		),
		Action: actionFunc,
	}
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	runID := uuid.New()
	ctx = ctxlog.New(ctx, ctxlog.Logger(ctx).With("runID", runID.String()))
	logger := ctxlog.Logger(ctx).With("command", cmd.Name)

	dataDir := cmd.StringArg(dataDirArg)
	if dataDir == "" {
		logger.Error(definition.ErrDataDir.Error())
		return cli.Exit(cliExitStr, exitCodeFailure)
	}

	if cmd.IsSet(workersFlag) && cmd.Int(workersFlag) < 1 {
		logger.Error(fmt.Sprintf("%s, got %d", ErrInvalidWorkers.Error(), cmd.Int(workersFlag)))
		return cli.Exit(cliExitStr, exitCodeFailure)
	}

	def, err := definition.Load(ctx, cmd, dataDir)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to load run definition: %s", err.Error()))
		return cli.Exit(cliExitStr, exitCodeFailure)
	}

	fs := FsFactory()
	o := &orchestrator.Orchestrator{
		FS:         fs,
		Definition: def,
		Workers:    int(cmd.Int(workersFlag)),
		DryRun:     cmd.Bool(dryRunFlag),
	}

	started := time.Now()

	var (
		res    runbatch.Results
		runErr error
	)

	if cmd.Bool(tuiFlag) {
		res, runErr = runWithTUI(ctx, cmd, o)
	} else {
		res, runErr = o.Run(ctx)
	}

	if errors.Is(runErr, orchestrator.ErrPreconditionFailed) {
		logger.Error(runErr.Error())
		return cli.Exit(cliExitStr, exitCodeFailure)
	}

	if out := cmd.String(outFlag); out != "" {
		rep := report.New(report.Options{
			RunID:      runID,
			Definition: def.Source,
			StartedAt:  started,
			Duration:   time.Since(started),
			DryRun:     o.DryRun,
			Workers:    o.WorkerCount(),
			Cancelled:  runErr != nil,
		}, o.Batches(), res)

		if err := rep.Write(fs, out); err != nil {
			logger.Error(err.Error())
			return cli.Exit(cliExitStr, exitCodeFailure)
		}

		logger.Info(fmt.Sprintf("Report written to %s", out))
	}

	opts := runbatch.DefaultOutputOptions()
	opts.IncludeStdOut = cmd.Bool(outputStdOutFlag)
	opts.ShowSuccessDetails = cmd.Bool(outputSuccessFlag)

	if err := runbatch.WriteResults(cmd.Writer, res, opts); err != nil {
		logger.Error(fmt.Sprintf("Failed to write results: %s", err.Error()))
		return cli.Exit(cliExitStr, exitCodeFailure)
	}

	fmt.Fprintln(cmd.Writer, summaryLine(res)) //nolint:errcheck

	if runErr != nil {
		logger.Error(runErr.Error())
		return cli.Exit(cliExitStr, exitCodeFailure)
	}

	if res.HasError() {
		if cmd.Bool(failOnTaskErrorFlag) {
			logger.Error("Some tasks failed. See above for details.")
			return cli.Exit(cliExitStr, exitCodeFailure)
		}

		logger.Warn("Some tasks failed. See above and the log files for details.")
	}

	return nil
}

func summaryLine(res runbatch.Results) string {
	sum := runbatch.Summarize(res)

	code := color.FgGreen
	if sum.Failed > 0 {
		code = color.FgRed
	} else if sum.Skipped > 0 {
		code = color.FgYellow
	}

	return color.Colorize(sum.String(), code, color.Bold)
}

// runWithTUI runs o behind the interactive view. Logs are buffered while the view
// owns the terminal and written out afterwards.
func runWithTUI(ctx context.Context, cmd *cli.Command, o *orchestrator.Orchestrator) (runbatch.Results, error) {
	buf := new(bytes.Buffer)
	tuiCtx := ctxlog.NewForTUI(ctx, buf)

	defer buf.WriteTo(cmd.ErrWriter) //nolint:errcheck

	runner := tui.NewRunner(tuiCtx)
	reporter := progress.NewChannelReporter(tuiCtx, progressBufferSize)
	reporter.Listen(runner)

	o.Reporter = reporter

	res, err := runner.Run(tuiCtx, func(ctx context.Context) (runbatch.Results, error) {
		defer reporter.Close()
		return o.Run(ctx)
	})

	if errors.Is(err, tui.ErrAborted) {
		return res, errors.Join(orchestrator.ErrCancelled, err)
	}

	return res, err
}
