// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package validate

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/matt-FFFFFF/sysbatch/internal/config"
	"github.com/matt-FFFFFF/sysbatch/internal/ctxlog"
	"github.com/matt-FFFFFF/sysbatch/internal/testcase"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func definition() *config.Definition {
	return &config.Definition{
		Radii: []int{2},
		TestCases: []testcase.TestCase{
			{Name: "truncation", Executable: "/code/trunc.cpp", Options: []string{"loose"}},
			{Name: "binning", Executable: "/code/binning.cpp", Options: []string{"option1"}},
		},
		Post: []config.PostStep{
			{Name: "plots", Requires: []string{"/code/makeallplots.py"}},
		},
	}
}

func logContext(buf *bytes.Buffer) context.Context {
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return ctxlog.New(context.Background(), logger)
}

func TestCheck_AllPresent(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, p := range []string{"/code/trunc.cpp", "/code/binning.cpp", "/code/makeallplots.py"} {
		require.NoError(t, afero.WriteFile(fs, p, []byte("x"), 0o644))
	}

	var buf bytes.Buffer

	report, err := Check(logContext(&buf), fs, definition())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Checked())
	assert.Zero(t, report.Missing)

	out := buf.String()
	assert.Contains(t, out, "checking /code/trunc.cpp ... found")
	assert.Contains(t, out, "checked 3, missing 0")
}

func TestCheck_Missing(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/code/trunc.cpp", []byte("x"), 0o644))

	var buf bytes.Buffer

	report, err := Check(logContext(&buf), fs, definition())
	require.ErrorIs(t, err, ErrMissingArtifacts)
	assert.Contains(t, err.Error(), "/code/binning.cpp")
	assert.Contains(t, err.Error(), "/code/makeallplots.py")
	assert.Equal(t, 2, report.Missing)

	assert.False(t, report.Artifacts[1].Exists)
	assert.Equal(t, KindRequirement, report.Artifacts[2].Kind)

	out := buf.String()
	assert.Contains(t, out, "checking /code/binning.cpp ... not found")
	assert.Contains(t, out, "checked 3, missing 2")
}

func TestCheck_Empty(t *testing.T) {
	report, err := Check(context.Background(), afero.NewMemMapFs(), &config.Definition{})
	require.NoError(t, err)
	assert.Zero(t, report.Checked())
}
