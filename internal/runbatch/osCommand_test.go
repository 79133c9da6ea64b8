// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/matt-FFFFFF/sysbatch/internal/ctxlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func testContext(t *testing.T) context.Context {
	t.Helper()

	ctxlog.LevelVar.Set(slog.LevelDebug)

	return ctxlog.New(t.Context(), ctxlog.DefaultLogger)
}

func skipOnWindows(t *testing.T) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestCommandRun_Success(t *testing.T) {
	skipOnWindows(t)

	cmd := &OSCommand{
		BaseCommand: NewBaseCommand("echo test", "", RunOnSuccess, nil, nil),
		Path:        "/bin/echo",
		Args:        []string{"hello"},
	}

	results := cmd.Run(testContext(t))
	require.Len(t, results, 1)

	res := results[0]
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, ResultStatusSuccess, res.Status)
	require.NoError(t, res.Error)
	assert.Contains(t, string(res.StdOut), "hello")
	assert.Positive(t, res.Duration)
}

func TestCommandRun_Failure(t *testing.T) {
	skipOnWindows(t)

	cmd := &OSCommand{
		BaseCommand: NewBaseCommand("fail test", "", RunOnSuccess, nil, nil),
		Path:        "/bin/sh",
		Args:        []string{"-c", "echo broken >&2; exit 3"},
	}

	results := cmd.Run(testContext(t))
	require.Len(t, results, 1)

	res := results[0]
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, ResultStatusError, res.Status)
	assert.Contains(t, string(res.StdErr), "broken")
	assert.True(t, results.HasError())
}

func TestCommandRun_SkipExitCode(t *testing.T) {
	skipOnWindows(t)

	cmd := &OSCommand{
		BaseCommand:   NewBaseCommand("skip test", "", RunOnSuccess, nil, nil),
		Path:          "/bin/sh",
		Args:          []string{"-c", "exit 99"},
		SkipExitCodes: []int{99},
	}

	res := cmd.Run(testContext(t))[0]
	assert.Equal(t, ResultStatusSuccess, res.Status)
	require.ErrorIs(t, res.Error, ErrSkipIntentional)
	assert.False(t, Results{res}.HasError())
}

func TestCommandRun_NotFound(t *testing.T) {
	cmd := &OSCommand{
		BaseCommand: NewBaseCommand("notfound test", "", RunOnSuccess, nil, nil),
		Path:        "/not/a/real/command",
	}

	res := cmd.Run(testContext(t))[0]

	var pathErr *os.PathError

	require.ErrorAs(t, res.Error, &pathErr)
	require.ErrorIs(t, res.Error, ErrCouldNotStartProcess)
	assert.Equal(t, -1, res.ExitCode)
	assert.Equal(t, ResultStatusError, res.Status)
}

func TestCommandRun_EnvAndCwd(t *testing.T) {
	skipOnWindows(t)

	tempDir := t.TempDir()
	cmd := &OSCommand{
		BaseCommand: NewBaseCommand("env and cwd test", tempDir, RunOnSuccess, nil, map[string]string{"FOO": "BAR"}),
		Path:        "/bin/sh",
		Args:        []string{"-c", "echo $FOO; pwd"},
	}

	res := cmd.Run(testContext(t))[0]
	assert.Equal(t, 0, res.ExitCode)

	out := string(res.StdOut)
	assert.Contains(t, out, "BAR")

	resolved, err := filepath.EvalSymlinks(tempDir)
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Base(resolved))
}

func TestCommandRun_LogFile(t *testing.T) {
	skipOnWindows(t)

	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "logunfolding_R02.log")
	require.NoError(t, os.WriteFile(logPath, []byte("stale content from a previous run\n"), 0o600))

	cmd := &OSCommand{
		BaseCommand: NewBaseCommand("log test", tempDir, RunOnSuccess, nil, nil),
		Path:        "/bin/sh",
		Args:        []string{"-c", "echo out; echo err >&2"},
		LogFile:     "logunfolding_R02.log",
	}

	res := cmd.Run(testContext(t))[0]
	require.NoError(t, res.Error)
	assert.Equal(t, logPath, res.LogFile)
	assert.Empty(t, res.StdOut)
	assert.Empty(t, res.StdErr)

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, "out\nerr\n", string(content), "log must be truncated and hold both streams")
}

func TestCommandRun_LogFileDirMissing(t *testing.T) {
	cmd := &OSCommand{
		BaseCommand: NewBaseCommand("log test", t.TempDir(), RunOnSuccess, nil, nil),
		Path:        "/bin/true",
		LogFile:     "missing/dir/out.log",
	}

	res := cmd.Run(testContext(t))[0]
	require.ErrorIs(t, res.Error, ErrFailedToOpenLogFile)
	assert.Equal(t, ResultStatusError, res.Status)
}

func TestCommandRun_LargeOutputDoesNotBlock(t *testing.T) {
	skipOnWindows(t)

	ctx, cancel := context.WithTimeout(testContext(t), 20*time.Second)
	defer cancel()

	// Enough to fill both pipe buffers many times over.
	cmd := &OSCommand{
		BaseCommand: NewBaseCommand("chatty", "", RunOnSuccess, nil, nil),
		Path:        "/bin/sh",
		Args:        []string{"-c", "i=0; while [ $i -lt 20000 ]; do echo line-$i; echo err-$i >&2; i=$((i+1)); done"},
	}

	res := cmd.Run(ctx)[0]
	require.NoError(t, res.Error)
	assert.Equal(t, 20000, strings.Count(string(res.StdOut), "line-"))
	assert.Equal(t, 20000, strings.Count(string(res.StdErr), "err-"))
}

func TestCommandRun_ContextCancelled(t *testing.T) {
	skipOnWindows(t)
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithTimeout(testContext(t), 100*time.Millisecond)
	defer cancel()

	cmd := &OSCommand{
		BaseCommand: NewBaseCommand("sleep test", "", RunOnSuccess, nil, nil),
		Path:        "/bin/sleep",
		Args:        []string{"10"},
	}

	res := cmd.Run(ctx)[0]
	assert.Equal(t, -1, res.ExitCode)
	require.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
	require.ErrorIs(t, res.Error, ErrTimeoutExceeded)
	assert.Equal(t, ResultStatusError, res.Status)
	assert.Less(t, res.Duration, 5*time.Second)
}

func TestCommandRun_SigInt(t *testing.T) {
	skipOnWindows(t)

	cmd := &OSCommand{
		BaseCommand: NewBaseCommand("sleep test", "", RunOnSuccess, nil, nil),
		Path:        "/bin/sleep",
		Args:        []string{"10"},
		sigCh:       make(chan os.Signal, 1),
	}

	ctx := testContext(t)

	go func() {
		time.Sleep(500 * time.Millisecond)
		cmd.sigCh <- os.Interrupt
	}()

	res := cmd.Run(ctx)[0]
	assert.Equal(t, -1, res.ExitCode)
	require.NoError(t, ctx.Err(), "a single signal must not cancel the run")
	require.ErrorIs(t, res.Error, ErrSignalReceived)
}

func TestReadAllUpToMax(t *testing.T) {
	ctx := testContext(t)

	b, err := readAllUpToMax(ctx, strings.NewReader("abcdef"), 4)
	require.ErrorIs(t, err, ErrBufferOverflow)
	assert.Equal(t, "abcd", string(b))

	b, err = readAllUpToMax(ctx, strings.NewReader("abc"), 4)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(b))
}
