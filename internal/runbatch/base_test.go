// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseCommand_SetCwd(t *testing.T) {
	tests := []struct {
		name        string
		initialCwd  string
		newCwd      string
		policy      CwdUpdatePolicy
		expectedCwd string
	}{
		{
			name:        "overwrite_replaces_absolute",
			initialCwd:  "/existing/path",
			newCwd:      "/new/path",
			policy:      CwdPolicyOverwrite,
			expectedCwd: "/new/path",
		},
		{
			name:        "preserve_keeps_absolute",
			initialCwd:  "/existing/path",
			newCwd:      "/new/path",
			policy:      CwdPolicyPreserveAbsolute,
			expectedCwd: "/existing/path",
		},
		{
			name:        "preserve_sets_empty",
			initialCwd:  "",
			newCwd:      "/new/path",
			policy:      CwdPolicyPreserveAbsolute,
			expectedCwd: "/new/path",
		},
		{
			name:        "preserve_joins_relative",
			initialCwd:  "sub/dir",
			newCwd:      "/base",
			policy:      CwdPolicyPreserveAbsolute,
			expectedCwd: "/base/sub/dir",
		},
		{
			name:        "append_joins_relative_and_cleans",
			initialCwd:  "../internal",
			newCwd:      "/tmp/out",
			policy:      CwdPolicyAppendIfRelative,
			expectedCwd: "/tmp/internal",
		},
		{
			name:        "append_overwrites_absolute",
			initialCwd:  "/abs",
			newCwd:      "/tmp/out",
			policy:      CwdPolicyAppendIfRelative,
			expectedCwd: "/tmp/out",
		},
		{
			name:        "empty_new_cwd_is_ignored",
			initialCwd:  "/keep",
			newCwd:      "",
			policy:      CwdPolicyOverwrite,
			expectedCwd: "/keep",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &BaseCommand{Cwd: tt.initialCwd}
			cmd.SetCwd(tt.newCwd, tt.policy)
			assert.Equal(t, tt.expectedCwd, cmd.Cwd)
		})
	}
}

func TestBaseCommand_InheritEnv(t *testing.T) {
	cmd := NewBaseCommand("x", "", RunOnSuccess, nil, map[string]string{"A": "own"})
	cmd.InheritEnv(map[string]string{"A": "parent", "B": "parent"})

	assert.Equal(t, map[string]string{"A": "own", "B": "parent"}, cmd.Env)

	empty := &BaseCommand{}
	src := map[string]string{"C": "1"}
	empty.InheritEnv(src)
	src["C"] = "2"

	assert.Equal(t, "1", empty.Env["C"], "inherited env must be a copy")
}

func TestBaseCommand_NewBaseCommand(t *testing.T) {
	cmd := NewBaseCommand("label", "/cwd", RunOnAlways, nil, nil)

	require.NotNil(t, cmd)
	assert.Equal(t, "label", cmd.GetLabel())
	assert.Equal(t, "/cwd", cmd.Cwd)
	assert.Equal(t, []int{0}, cmd.RunsOnExitCodes)
	assert.NotNil(t, cmd.Env)
	assert.Nil(t, cmd.GetParent())
	assert.Nil(t, cmd.Reporter())

	assert.Equal(t, "Command", (&BaseCommand{}).GetLabel())
}

func TestBaseCommand_ShouldRun(t *testing.T) {
	ok := PreviousCommandStatus{State: ResultStatusSuccess}
	failed := PreviousCommandStatus{State: ResultStatusError, ExitCode: 2}
	skipped := PreviousCommandStatus{State: ResultStatusSuccess, Err: ErrSkipIntentional}

	tests := []struct {
		name  string
		cond  RunCondition
		codes []int
		prev  PreviousCommandStatus
		want  ShouldRunAction
	}{
		{"always_after_error", RunOnAlways, nil, failed, ShouldRunActionRun},
		{"success_after_success", RunOnSuccess, nil, ok, ShouldRunActionRun},
		{"success_after_error", RunOnSuccess, nil, failed, ShouldRunActionError},
		{"success_after_intentional_skip", RunOnSuccess, nil, skipped, ShouldRunActionSkip},
		{"error_after_success", RunOnError, nil, ok, ShouldRunActionSkip},
		{"error_after_error", RunOnError, nil, failed, ShouldRunActionRun},
		{"exit_codes_match", RunOnExitCodes, []int{2}, failed, ShouldRunActionRun},
		{"exit_codes_no_match", RunOnExitCodes, []int{3}, failed, ShouldRunActionSkip},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewBaseCommand("x", "", tt.cond, tt.codes, nil)
			assert.Equal(t, tt.want, cmd.ShouldRun(tt.prev))
		})
	}
}

func TestRunCondition_RoundTrip(t *testing.T) {
	for _, s := range []string{"success", "error", "always", "exit-codes"} {
		rc, err := NewRunCondition(s)
		require.NoError(t, err)
		assert.Equal(t, s, rc.String())
	}

	_, err := NewRunCondition("sometimes")
	require.ErrorIs(t, err, ErrRunConditionUnknown)
}

func TestFullLabel(t *testing.T) {
	parent := &SerialBatch{BaseCommand: NewBaseCommand("binning", "", RunOnSuccess, nil, nil)}
	child := newFakeCmd("option1 R02", 0, nil)
	child.SetParent(parent)

	assert.Equal(t, "binning > option1 R02", FullLabel(child))
	assert.Equal(t, []string{"binning", "option1 R02"}, LabelPath(child))
	assert.Equal(t, "Unknown", FullLabel(nil))
}
