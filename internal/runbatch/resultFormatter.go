// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/matt-FFFFFF/sysbatch/internal/color"
)

// OutputOptions controls what is included in the output.
type OutputOptions struct {
	IncludeStdOut      bool // Whether to include stdout in the output
	IncludeStdErr      bool // Whether to include stderr in the output
	ShowSuccessDetails bool // Whether to show details for successful commands
	ShowLogFiles       bool // Whether to print the log file path of each command
}

// DefaultOutputOptions returns a default set of output options.
func DefaultOutputOptions() *OutputOptions {
	return &OutputOptions{
		IncludeStdErr: true,
		ShowLogFiles:  true,
	}
}

// WriteResults writes a tree of results to w.
func WriteResults(w io.Writer, results Results, options *OutputOptions) error {
	if options == nil {
		options = DefaultOutputOptions()
	}

	for _, r := range results {
		if err := writeResultWithIndent(w, r, "", options); err != nil {
			return err
		}
	}

	return nil
}

func writeResultWithIndent(w io.Writer, r *Result, indent string, options *OutputOptions) error {
	var (
		statusStr string
		labelCol  color.Code
		errCol    = color.FgWhite
	)

	switch r.Status {
	case ResultStatusSkipped:
		statusStr = color.Colorize("~", color.FgYellow)
		labelCol = color.FgYellow
		errCol = color.FgYellow
	case ResultStatusError:
		statusStr = color.Colorize("✗", color.FgRed)
		labelCol = color.FgRed
		errCol = color.FgRed
	case ResultStatusSuccess:
		statusStr = color.Colorize("✓", color.FgGreen)
		labelCol = color.FgGreen
	default:
		statusStr = color.Colorize("?", color.FgWhite)
		labelCol = color.FgWhite
	}

	label := r.Label
	if label == "" {
		label = "[unnamed]"
	}

	if _, err := fmt.Fprintf(w, "%s%s %s", indent, statusStr, color.Colorize(label, color.Bold, labelCol)); err != nil {
		return err
	}

	if r.ExitCode != 0 {
		fmt.Fprintf(w, " (exit code: %d)", r.ExitCode) // nolint:errcheck
	}

	fmt.Fprintln(w) // nolint:errcheck

	// ErrResultChildrenHasError is redundant with the child errors printed below.
	if r.Error != nil && !errors.Is(r.Error, ErrResultChildrenHasError) {
		fmt.Fprintf(w, "%s  %s %s\n", indent, color.Colorize("➜ Error:", errCol), r.Error.Error()) // nolint:errcheck
	}

	isLeaf := len(r.Children) == 0

	if isLeaf && options.ShowLogFiles && r.LogFile != "" {
		fmt.Fprintf(w, "%s  %s %s\n", indent, color.Colorize("➜ Log:", color.FgCyan), r.LogFile) // nolint:errcheck
	}

	shouldShowDetails := (r.Status == ResultStatusError || options.ShowSuccessDetails) && isLeaf

	if shouldShowDetails && options.IncludeStdOut && len(r.StdOut) > 0 {
		fmt.Fprintf(w, "%s  ➜ Output:\n", indent)                    // nolint:errcheck
		fmt.Fprintf(w, "%s", formatOutput(r.StdOut, indent+"     ")) // nolint:errcheck
	}

	if shouldShowDetails && options.IncludeStdErr && len(r.StdErr) > 0 {
		fmt.Fprintf(w, "%s  %s\n", indent, color.Colorize("➜ Error Output:", color.FgHiRed)) // nolint:errcheck
		fmt.Fprintf(w, "%s", formatOutput(r.StdErr, indent+"     "))                         // nolint:errcheck
	}

	for _, child := range r.Children {
		if err := writeResultWithIndent(w, child, indent+"  ", options); err != nil {
			return err
		}
	}

	return nil
}

// formatOutput formats multi-line output with proper indentation.
func formatOutput(output []byte, indent string) string {
	sb := strings.Builder{}
	lines := strings.Split(strings.TrimRight(string(output), "\n"), "\n")
	sb.Grow(len(output) + len(lines)*len(indent))

	for _, line := range lines {
		if line == "" {
			sb.WriteString("\n")
			continue
		}

		sb.WriteString(indent)
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	return sb.String()
}

// Summary counts leaf results by status.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
}

// Summarize counts the leaf results of r.
func Summarize(r Results) Summary {
	var s Summary

	for _, l := range r.Leaves() {
		s.Total++

		switch l.Status {
		case ResultStatusSuccess:
			s.Succeeded++
		case ResultStatusSkipped:
			s.Skipped++
		default:
			s.Failed++
		}
	}

	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("%d tasks: %d succeeded, %d failed, %d skipped", s.Total, s.Succeeded, s.Failed, s.Skipped)
}
