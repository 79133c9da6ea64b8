// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package validate checks that every artifact a run depends on exists before any batch starts.
package validate

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/matt-FFFFFF/sysbatch/internal/config"
	"github.com/matt-FFFFFF/sysbatch/internal/ctxlog"
	"github.com/spf13/afero"
)

// ErrMissingArtifacts is returned when at least one required artifact does not exist.
var ErrMissingArtifacts = errors.New("required artifacts missing, run aborted")

// Kind says why an artifact is required.
type Kind string

const (
	// KindExecutable is a test case macro.
	KindExecutable Kind = "executable"
	// KindRequirement is a path a post-processing step requires.
	KindRequirement Kind = "requires"
)

// Artifact is one checked path.
type Artifact struct {
	Path   string
	Kind   Kind
	Owner  string // Test case or post step name
	Exists bool
}

// Report is the outcome of a check.
type Report struct {
	Artifacts []Artifact
	Missing   int
}

// Checked returns the number of checked artifacts.
func (r *Report) Checked() int {
	return len(r.Artifacts)
}

// Check looks for the executable of every test case in def and every path its post steps require.
// It logs one line per artifact and a summary. A returned error means no batch may run.
func Check(ctx context.Context, fs afero.Fs, def *config.Definition) (*Report, error) {
	logger := ctxlog.Logger(ctx)
	logger.Info("checking whether required artifacts exist")

	report := &Report{}

	var err error

	check := func(path string, kind Kind, owner string) {
		exists, statErr := afero.Exists(fs, path)
		if statErr != nil {
			logger.Debug("stat failed", "path", path, "error", statErr)
		}

		a := Artifact{Path: path, Kind: kind, Owner: owner, Exists: exists}
		report.Artifacts = append(report.Artifacts, a)

		if exists {
			logger.Info(fmt.Sprintf("checking %s ... found", path), "kind", kind, "owner", owner)
			return
		}

		report.Missing++

		logger.Warn(fmt.Sprintf("checking %s ... not found", path), "kind", kind, "owner", owner)
		err = multierror.Append(err, fmt.Errorf("%s of %s not found: %s", kind, owner, path))
	}

	for _, tc := range def.TestCases {
		check(tc.Executable, KindExecutable, tc.Name)
	}

	for _, ps := range def.Post {
		for _, r := range ps.Requires {
			check(r, KindRequirement, ps.Name)
		}
	}

	logger.Info(fmt.Sprintf("artifact check: checked %d, missing %d", report.Checked(), report.Missing))

	if err != nil {
		logger.Error("artifact check failed, run aborted")
		return report, errors.Join(ErrMissingArtifacts, err)
	}

	logger.Info("artifact check successful, run can start")

	return report, nil
}
