// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package check implements `sysbatch check`.
package check

import (
	"context"
	"fmt"

	"github.com/matt-FFFFFF/sysbatch/cmd/sysbatch/definition"
	"github.com/matt-FFFFFF/sysbatch/internal/ctxlog"
	"github.com/matt-FFFFFF/sysbatch/internal/validate"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
)

const (
	dataDirArg      = "datadir"
	cliExitStr      = ""
	exitCodeFailure = 1
)

// FsFactory returns the file system that is checked. Tests replace it.
var FsFactory = afero.NewOsFs

// CheckCmd runs only the artifact check of a run.
var CheckCmd = NewCommand()

// NewCommand returns a check command with fresh flag values.
func NewCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Check that every macro and required script of the selected test cases exists",
		Description: `Check that every artifact a run depends on exists, without running anything.
The same check gates 'sysbatch run'.`,
		ArgsUsage: "DATADIR",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: dataDirArg,
			},
		},
		Flags:  definition.Flags(),
		Action: actionFunc,
	}
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	logger := ctxlog.Logger(ctx).With("command", cmd.Name)

	dataDir := cmd.StringArg(dataDirArg)
	if dataDir == "" {
		logger.Error(definition.ErrDataDir.Error())
		return cli.Exit(cliExitStr, exitCodeFailure)
	}

	def, err := definition.Load(ctx, cmd, dataDir)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to load run definition: %s", err.Error()))
		return cli.Exit(cliExitStr, exitCodeFailure)
	}

	rep, err := validate.Check(ctx, FsFactory(), def)
	if err != nil {
		logger.Error(err.Error())
		return cli.Exit(cliExitStr, exitCodeFailure)
	}

	fmt.Fprintf(cmd.Writer, "%d artifacts found\n", rep.Checked()) //nolint:errcheck

	return nil
}
