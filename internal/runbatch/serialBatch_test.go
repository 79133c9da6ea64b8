// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestSerialBatchRun_AllSuccess(t *testing.T) {
	defer goleak.VerifyNone(t)

	batch := &SerialBatch{
		BaseCommand: NewBaseCommand("batch1", "/work", RunOnSuccess, nil, nil),
		Commands: []Runnable{
			newFakeCmd("cmd1", 0, nil),
			newFakeCmd("cmd2", 0, nil),
		},
	}

	results := batch.Run(context.Background())
	require.Len(t, results, 1)

	res := results[0]
	assert.Equal(t, 0, res.ExitCode)
	require.NoError(t, res.Error)
	assert.Equal(t, ResultStatusSuccess, res.Status)
	assert.Len(t, res.Children, 2)

	for _, c := range batch.Commands {
		assert.Equal(t, batch, c.GetParent())
		assert.Equal(t, "/work", c.(*fakeCmd).Cwd)
	}
}

func TestSerialBatchRun_OneFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	after := newFakeCmd("cmd3", 0, nil)
	always := newFakeCmd("cmd4", 0, nil)
	always.RunsOnCondition = RunOnAlways

	batch := &SerialBatch{
		BaseCommand: NewBaseCommand("batch2", "", RunOnSuccess, nil, nil),
		Commands: []Runnable{
			newFakeCmd("cmd1", 0, nil),
			newFakeCmd("cmd2", 1, os.ErrPermission),
			after,
			always,
		},
	}

	res := batch.Run(context.Background())[0]
	assert.Equal(t, -1, res.ExitCode)
	require.ErrorIs(t, res.Error, ErrResultChildrenHasError)
	require.Len(t, res.Children, 4)

	assert.Equal(t, ResultStatusSkipped, res.Children[2].Status)
	require.ErrorIs(t, res.Children[2].Error, ErrSkipOnError)
	assert.Zero(t, after.runs.Load())
	assert.Equal(t, int32(1), always.runs.Load())
}

func TestSerialBatchRun_NestedBatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	childBatch := &SerialBatch{
		BaseCommand: NewBaseCommand("child", "", RunOnSuccess, nil, nil),
		Commands: []Runnable{
			newFakeCmd("cmdA", 0, nil),
			newFakeCmd("cmdB", 1, os.ErrNotExist),
		},
	}
	batch := &SerialBatch{
		BaseCommand: NewBaseCommand("parent", "", RunOnSuccess, nil, nil),
		Commands: []Runnable{
			childBatch,
			newFakeCmd("cmdC", 0, nil),
		},
	}

	res := batch.Run(context.Background())[0]
	assert.Equal(t, -1, res.ExitCode)
	require.ErrorIs(t, res.Error, ErrResultChildrenHasError)
	assert.Equal(t, "parent > child > cmdA", FullLabel(childBatch.Commands[0]))
}

func TestSerialBatchRun_Cancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cmd := newFakeCmd("cmd1", 0, nil)
	batch := &SerialBatch{
		BaseCommand: NewBaseCommand("batch", "", RunOnSuccess, nil, nil),
		Commands:    []Runnable{cmd},
	}

	res := batch.Run(ctx)[0]
	require.Len(t, res.Children, 1)
	require.ErrorIs(t, res.Children[0].Error, ErrSkipCancelled)
	assert.Zero(t, cmd.runs.Load())
}
