// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"errors"
	"io"
	"os"
	"slices"
	"time"
)

var (
	// ErrResultChildrenHasError is set on a batch result when any child failed.
	ErrResultChildrenHasError = errors.New("result has children with errors")
	// ErrSkipIntentional is set when a command exits with one of its skip exit codes.
	ErrSkipIntentional = errors.New("intentionally skipped")
	// ErrSkipOnError is set when a command is skipped because a previous command failed.
	ErrSkipOnError = errors.New("skipped due to previous error")
	// ErrSkipCancelled is set for queued commands that never started because the run was cancelled.
	ErrSkipCancelled = errors.New("skipped, run cancelled before start")
)

// ResultStatus is the outcome of a command or batch.
type ResultStatus int

const (
	// ResultStatusSuccess means the command ran and succeeded.
	ResultStatusSuccess ResultStatus = iota
	// ResultStatusError means the command failed or could not be started.
	ResultStatusError
	// ResultStatusSkipped means the command was never run.
	ResultStatusSkipped
	// ResultStatusUnknown is used before the outcome is known.
	ResultStatusUnknown
)

func (s ResultStatus) String() string {
	switch s {
	case ResultStatusSuccess:
		return "success"
	case ResultStatusError:
		return "error"
	case ResultStatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Result represents the outcome of running a command or batch.
type Result struct {
	ExitCode int           // Exit code of the command or batch
	Error    error         // Error, if any
	StdOut   []byte        // Output from the command(s), empty when LogFile is set
	StdErr   []byte        // Error output from the command(s), empty when LogFile is set
	Label    string        // Label of the command or batch
	Status   ResultStatus  // Outcome
	LogFile  string        // Absolute path of the log file that captured the output, if any
	Duration time.Duration // Wall time of the command or batch
	Children Results       // Nested results for tree output
}

// Results is a slice of Result pointers, used to represent multiple results.
type Results []*Result

// HasError reports whether any result in the tree failed.
// Intentional skips do not count as failures.
func (r Results) HasError() bool {
	for v := range slices.Values(r) {
		if v.Status == ResultStatusError {
			return true
		}

		if v.Error != nil && !errors.Is(v.Error, ErrSkipIntentional) && v.Status != ResultStatusSkipped {
			return true
		}

		if v.Children.HasError() {
			return true
		}
	}

	return false
}

// Leaves returns every result without children, depth first.
func (r Results) Leaves() Results {
	var out Results

	for _, v := range r {
		if len(v.Children) == 0 {
			out = append(out, v)
			continue
		}

		out = append(out, v.Children.Leaves()...)
	}

	return out
}

// Print outputs the results to stdout with default options.
func (r Results) Print() error {
	return WriteResults(os.Stdout, r, nil)
}

// PrintWithOptions outputs the results to stdout with the specified options.
func (r Results) PrintWithOptions(options *OutputOptions) error {
	return WriteResults(os.Stdout, r, options)
}

// Write outputs the results to the specified writer with default options.
func (r Results) Write(w io.Writer) error {
	return WriteResults(w, r, nil)
}

// WriteWithOptions outputs the results to the specified writer with the specified options.
func (r Results) WriteWithOptions(w io.Writer, options *OutputOptions) error {
	return WriteResults(w, r, options)
}
