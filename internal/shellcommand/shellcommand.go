// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package shellcommand builds a runbatch.OSCommand that runs a command line through the system shell.
package shellcommand

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/matt-FFFFFF/sysbatch/internal/ctxlog"
	"github.com/matt-FFFFFF/sysbatch/internal/runbatch"
)

const (
	// GOOSWindows is the string constant for Windows OS from the runtime package.
	GOOSWindows          = "windows"
	commandSwitchWindows = "/C"         // Command switch for Windows cmd.exe
	commandSwitchUnix    = "-c"         // Command switch for Unix-like shells
	winSystem32          = "System32"   // System32 is the directory where cmd.exe is located on Windows.
	cmdExe               = "cmd.exe"    // cmdExe is the name of the command interpreter executable on Windows.
	binSh                = "/bin/sh"    // Default shell for Unix-like systems.
	winSystemRootEnv     = "SystemRoot" // Environment variable for Windows system root directory.
	shellEnv             = "SHELL"
)

// ErrEmptyCommand is returned when the command line is empty.
var ErrEmptyCommand = errors.New("empty command line")

// New creates a runbatch.OSCommand that hands commandLine verbatim to the shell.
// The command line is never inspected or split.
func New(
	ctx context.Context,
	base *runbatch.BaseCommand,
	commandLine string,
	successExitCodes []int,
	skipExitCodes []int) (*runbatch.OSCommand, error,
) {
	if commandLine == "" {
		return nil, ErrEmptyCommand
	}

	var osCommandArgs []string

	switch runtime.GOOS {
	case GOOSWindows:
		osCommandArgs = []string{commandSwitchWindows, commandLine}
	default:
		osCommandArgs = []string{commandSwitchUnix, commandLine}
	}

	return &runbatch.OSCommand{
		BaseCommand:      base,
		Path:             DefaultShell(ctx),
		Args:             osCommandArgs,
		SuccessExitCodes: successExitCodes,
		SkipExitCodes:    skipExitCodes,
	}, nil
}

// NewWithLog is New with the combined output sent to logFile, relative to the command's working directory.
func NewWithLog(ctx context.Context, base *runbatch.BaseCommand, commandLine, logFile string) (*runbatch.OSCommand, error) {
	cmd, err := New(ctx, base, commandLine, nil, nil)
	if err != nil {
		return nil, err
	}

	cmd.LogFile = logFile

	return cmd, nil
}

// DefaultShell returns $SHELL, falling back to /bin/sh, or cmd.exe on Windows.
func DefaultShell(ctx context.Context) string {
	if runtime.GOOS == GOOSWindows {
		systemRoot := os.Getenv(winSystemRootEnv)
		if systemRoot == "" {
			systemRoot = `C:\Windows`
		}

		return fmt.Sprintf(`%s\%s\%s`, systemRoot, winSystem32, cmdExe)
	}

	if shell := os.Getenv(shellEnv); shell != "" {
		ctxlog.Debug(ctx, "using SHELL environment variable", "shell", shell)
		return shell
	}

	return binSh
}
