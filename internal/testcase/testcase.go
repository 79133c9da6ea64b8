// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package testcase describes one systematic study: the analysis macro to run,
// where its output goes and which systematic options it is run with.
package testcase

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

var (
	// ErrNoName is returned for a test case without a name.
	ErrNoName = errors.New("test case has no name")
	// ErrNoExecutable is returned for a test case without an executable.
	ErrNoExecutable = errors.New("test case has no executable")
	// ErrNoOptions is returned for a test case without systematic options.
	ErrNoOptions = errors.New("test case has no options")
	// ErrDuplicateOption is returned when an option is listed twice.
	ErrDuplicateOption = errors.New("duplicate option")
	// ErrInvalidOption is returned when an option cannot be used as a directory name.
	ErrInvalidOption = errors.New("option is not a valid directory name")
)

// TestCase is immutable once loaded.
type TestCase struct {
	Name              string            // Identifier, also the default output directory name
	Executable        string            // Path of the analysis macro, checked before any batch runs
	OutputDir         string            // Absolute output directory of the test case
	Options           []string          // Systematic options, one batch each
	Triggers          []string          // Per test case trigger override, empty means the definition's triggers
	MCResponseTrigger bool              // Use the trigger-specific MC response
	Flags             map[string]string // Free-form values for command templates
}

// OptionDir is the working directory of every command of the option's batch.
func (tc TestCase) OptionDir(option string) string {
	return filepath.Join(tc.OutputDir, option)
}

// Validate checks the fields that must be present after loading.
func (tc TestCase) Validate() error {
	var errs []error

	if tc.Name == "" {
		errs = append(errs, ErrNoName)
	}

	if tc.Executable == "" {
		errs = append(errs, fmt.Errorf("%w: %s", ErrNoExecutable, tc.Name))
	}

	if len(tc.Options) == 0 {
		errs = append(errs, fmt.Errorf("%w: %s", ErrNoOptions, tc.Name))
	}

	seen := make(map[string]struct{}, len(tc.Options))

	for _, o := range tc.Options {
		if o == "" || o == "." || o == ".." || strings.ContainsAny(o, `/\`) {
			errs = append(errs, fmt.Errorf("%w: %s %q", ErrInvalidOption, tc.Name, o))
			continue
		}

		if _, ok := seen[o]; ok {
			errs = append(errs, fmt.Errorf("%w: %s %q", ErrDuplicateOption, tc.Name, o))
		}

		seen[o] = struct{}{}
	}

	return errors.Join(errs...)
}

// Select returns the test cases named in names, in the order of all.
// Names that match nothing are returned as unknown. An empty names selects everything.
func Select(all []TestCase, names []string) (selected []TestCase, unknown []string) {
	if len(names) == 0 {
		return slices.Clone(all), nil
	}

	for _, n := range names {
		if !slices.ContainsFunc(all, func(tc TestCase) bool { return tc.Name == n }) {
			unknown = append(unknown, n)
		}
	}

	for _, tc := range all {
		if slices.Contains(names, tc.Name) {
			selected = append(selected, tc)
		}
	}

	return selected, unknown
}
