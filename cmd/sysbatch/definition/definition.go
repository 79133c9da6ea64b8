// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package definition holds the flags shared by the commands that need a run
// definition, and loads the definition they select.
package definition

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/matt-FFFFFF/sysbatch/internal/config"
	"github.com/matt-FFFFFF/sysbatch/internal/ctxlog"
	"github.com/matt-FFFFFF/sysbatch/internal/profiles"
	"github.com/urfave/cli/v3"
)

const (
	// ProfileFlag selects a built-in definition.
	ProfileFlag = "profile"
	// FileFlag is a go-getter URL of a definition file.
	FileFlag = "file"
	// OutputBaseFlag is the directory the test case directories are created in.
	OutputBaseFlag = "output-base"
	// CodeRepoFlag is the directory holding the macros and plotting scripts.
	CodeRepoFlag = "code-repo"
	// TestCasesFlag restricts the run to some test cases.
	TestCasesFlag = "testcases"
	// ConfigTimeoutFlag bounds fetching and parsing the definition.
	ConfigTimeoutFlag = "config-timeout"

	configTimeoutSecondsDefault = 30
)

var (
	// ErrNoTestCasesSelected is returned when --testcases matched nothing.
	ErrNoTestCasesSelected = errors.New("none of the requested test cases exist")
	// ErrDataDir is returned when the data directory argument is missing.
	ErrDataDir = errors.New("data directory argument is required")
)

// Flags returns the definition flags. Every command gets fresh flag values.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     ProfileFlag,
			Aliases:  []string{"p"},
			Usage:    fmt.Sprintf("Built-in definition to run, one of %v", profiles.Names()),
			Value:    profiles.Default,
			OnlyOnce: true,
		},
		&cli.StringFlag{
			Name:    FileFlag,
			Aliases: []string{"f"},
			Usage: "URL of a definition file (.hcl, .yaml or .yml), overrides --profile. " +
				"Supports Hashicorp's go-getter syntax for fetching files from various sources.",
			TakesFile: true,
			OnlyOnce:  true,
		},
		&cli.StringFlag{
			Name:      OutputBaseFlag,
			Aliases:   []string{"o"},
			Usage:     "Directory in which the test case directories are created. Defaults to the current directory.",
			TakesFile: true,
			OnlyOnce:  true,
		},
		&cli.StringFlag{
			Name:      CodeRepoFlag,
			Usage:     "Directory holding the unfolding macros and plotting scripts. Defaults to the current directory.",
			TakesFile: true,
			OnlyOnce:  true,
		},
		&cli.StringSliceFlag{
			Name:    TestCasesFlag,
			Aliases: []string{"t"},
			Usage:   "Test case to run, may be repeated. Defaults to every test case of the definition.",
		},
		&cli.IntFlag{
			Name:    ConfigTimeoutFlag,
			Aliases: []string{"timeout"},
			Usage:   "Maximum time in seconds for fetching and parsing the definition.",
			Value:   configTimeoutSecondsDefault,
		},
	}
}

// Vars returns the load-time variables for dataDir and the flags of cmd.
// Every directory is made absolute.
func Vars(cmd *cli.Command, dataDir string) (config.Vars, error) {
	wd, err := os.Getwd()
	if err != nil {
		return config.Vars{}, err
	}

	dir := func(flag string) string {
		if v := cmd.String(flag); v != "" {
			return v
		}

		return wd
	}

	vars := config.Vars{
		DataRepo:   dataDir,
		CodeRepo:   dir(CodeRepoFlag),
		OutputBase: dir(OutputBaseFlag),
	}

	for _, p := range []*string{&vars.DataRepo, &vars.CodeRepo, &vars.OutputBase} {
		if *p == "" {
			continue
		}

		abs, err := filepath.Abs(*p)
		if err != nil {
			return config.Vars{}, err
		}

		*p = abs
	}

	return vars, nil
}

// Load builds the definition selected by the flags of cmd and restricts it to --testcases.
// Unknown test case names are logged and ignored.
func Load(ctx context.Context, cmd *cli.Command, dataDir string) (*config.Definition, error) {
	logger := ctxlog.Logger(ctx)

	vars, err := Vars(cmd, dataDir)
	if err != nil {
		return nil, err
	}

	cfgCtx, cancel := context.WithTimeout(ctx, time.Duration(cmd.Int(ConfigTimeoutFlag))*time.Second)
	defer cancel()

	var def *config.Definition

	if url := cmd.String(FileFlag); url != "" {
		def, err = fetchDefinition(cfgCtx, url, vars)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", url, err)
		}
	} else {
		def, err = profiles.Load(cfgCtx, cmd.String(ProfileFlag), vars)
		if err != nil {
			return nil, err
		}
	}

	names := cmd.StringSlice(TestCasesFlag)
	if len(names) == 0 {
		return def, nil
	}

	selected, unknown := def.Select(names)
	for _, n := range unknown {
		logger.Warn(fmt.Sprintf("test case %q not found in %s, ignoring", n, def.Source))
	}

	if len(selected.TestCases) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrNoTestCasesSelected, names)
	}

	return selected, nil
}
