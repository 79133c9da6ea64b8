// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package show implements `sysbatch show`.
package show

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/matt-FFFFFF/sysbatch/cmd/sysbatch/definition"
	"github.com/matt-FFFFFF/sysbatch/internal/config"
	"github.com/matt-FFFFFF/sysbatch/internal/ctxlog"
	"github.com/matt-FFFFFF/sysbatch/internal/profiles"
	"github.com/urfave/cli/v3"
)

const (
	cliExitStr      = ""
	exitCodeFailure = 1
)

// ShowCmd prints the test case table of a definition.
var ShowCmd = &cli.Command{
	Name:  "show",
	Usage: "Print the test cases, options and variation points of a definition",
	Description: fmt.Sprintf(`Print the test cases of a definition without running or checking anything.
Built-in profiles: %s.`, strings.Join(profiles.Names(), ", ")),
	Flags:  definition.Flags(),
	Action: actionFunc,
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	logger := ctxlog.Logger(ctx).With("command", cmd.Name)

	// The data directory only appears in rendered commands, which show does not print.
	def, err := definition.Load(ctx, cmd, "")
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to load run definition: %s", err.Error()))
		return cli.Exit(cliExitStr, exitCodeFailure)
	}

	if err := Write(cmd.Writer, def); err != nil {
		return cli.Exit(err.Error(), exitCodeFailure)
	}

	return nil
}

// Write prints the definition summary and one row per test case.
func Write(w io.Writer, def *config.Definition) error {
	radii := make([]string, len(def.Radii))
	for i, r := range def.Radii {
		radii[i] = fmt.Sprintf("R%02d", r)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TEST CASE", "OPTIONS", "POINTS", "EXECUTABLE", "OUTPUT DIR")

	for _, tc := range def.TestCases {
		t.Row(
			tc.Name,
			strings.Join(tc.Options, ", "),
			strconv.Itoa(len(def.Points(tc))),
			tc.Executable,
			tc.OutputDir,
		)
	}

	_, err := fmt.Fprintf(w, "Definition: %s\nRadii:      %s\nTriggers:   %s\nPost steps: %s\n%s\n",
		def.Source,
		strings.Join(radii, ", "),
		orNone(def.Triggers),
		orNone(postNames(def.Post)),
		t.String(),
	)

	return err
}

func postNames(post []config.PostStep) []string {
	names := make([]string, len(post))
	for i, p := range post {
		names[i] = p.Name
	}

	return names
}

func orNone(s []string) string {
	if len(s) == 0 {
		return "none"
	}

	return strings.Join(s, ", ")
}
