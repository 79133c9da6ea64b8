// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matt-FFFFFF/sysbatch/internal/progress"
	"github.com/matt-FFFFFF/sysbatch/internal/workqueue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"pgregory.net/rapid"
)

func fakeCmds(n int) []*fakeCmd {
	cmds := make([]*fakeCmd, n)
	for i := range cmds {
		cmds[i] = newFakeCmd(fmt.Sprintf("task%02d", i), 0, nil)
	}

	return cmds
}

func asRunnables(cmds []*fakeCmd) []Runnable {
	out := make([]Runnable, len(cmds))
	for i, c := range cmds {
		out[i] = c
	}

	return out
}

func TestPoolBatchRun_EveryTaskRunsOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	cmds := fakeCmds(25)
	q := workqueue.New(asRunnables(cmds)...)

	pool := &PoolBatch{
		BaseCommand: NewBaseCommand("pool", "/out", RunOnSuccess, nil, map[string]string{"K": "V"}),
		Source:      q,
		Workers:     4,
	}

	res := pool.Run(context.Background())
	require.Len(t, res, 1)
	assert.Equal(t, ResultStatusSuccess, res[0].Status)
	assert.Len(t, res[0].Children, 25)
	assert.Zero(t, q.Len())

	for _, c := range cmds {
		assert.Equal(t, int32(1), c.runs.Load(), c.Label)
		assert.Equal(t, "/out", c.Cwd)
		assert.Equal(t, "V", c.Env["K"])
		assert.Equal(t, pool, c.GetParent())
	}
}

func TestPoolBatchRun_FailuresDoNotStopOthers(t *testing.T) {
	defer goleak.VerifyNone(t)

	cmds := fakeCmds(6)
	cmds[1].exitCode = 1
	cmds[4].err = errors.New("boom")

	pool := &PoolBatch{
		BaseCommand: NewBaseCommand("pool", "", RunOnSuccess, nil, nil),
		Source:      workqueue.New(asRunnables(cmds)...),
		Workers:     2,
	}

	res := pool.Run(context.Background())[0]
	assert.Equal(t, ResultStatusError, res.Status)
	require.ErrorIs(t, res.Error, ErrResultChildrenHasError)
	assert.Len(t, res.Children, 6)

	for _, c := range cmds {
		assert.Equal(t, int32(1), c.runs.Load())
	}

	s := Summarize(Results{res})
	assert.Equal(t, Summary{Total: 6, Succeeded: 4, Failed: 2}, s)
}

func TestPoolBatchRun_ConcurrencyBound(t *testing.T) {
	defer goleak.VerifyNone(t)

	var active, peak atomic.Int32

	cmds := fakeCmds(12)
	for _, c := range cmds {
		c.delay = 20 * time.Millisecond
		c.active = &active
		c.peak = &peak
	}

	pool := &PoolBatch{
		BaseCommand: NewBaseCommand("pool", "", RunOnSuccess, nil, nil),
		Source:      workqueue.New(asRunnables(cmds)...),
		Workers:     3,
	}

	pool.Run(context.Background())

	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Zero(t, active.Load(), "no task may still be running after Run returns")
}

// More workers than tasks: the surplus workers find the source empty and exit.
func TestPoolBatchRun_MoreWorkersThanTasks(t *testing.T) {
	defer goleak.VerifyNone(t)

	cmds := fakeCmds(3)
	src := newSliceSource(asRunnables(cmds)...)

	pool := &PoolBatch{
		BaseCommand: NewBaseCommand("pool", "", RunOnSuccess, nil, nil),
		Source:      src,
		Workers:     8,
	}

	res := pool.Run(context.Background())[0]
	assert.Len(t, res.Children, 3)

	// Every worker pops until it sees the empty source once; the final drain adds one more.
	assert.Equal(t, int32(3+8+1), src.pops.Load())
}

func TestPoolBatchRun_ZeroWorkersMeansOne(t *testing.T) {
	defer goleak.VerifyNone(t)

	var active, peak atomic.Int32

	cmds := fakeCmds(3)
	for _, c := range cmds {
		c.active = &active
		c.peak = &peak
	}

	pool := &PoolBatch{
		BaseCommand: NewBaseCommand("pool", "", RunOnSuccess, nil, nil),
		Source:      workqueue.New(asRunnables(cmds)...),
	}

	res := pool.Run(context.Background())[0]
	assert.Len(t, res.Children, 3)
	assert.Equal(t, int32(1), peak.Load())
}

func TestPoolBatchRun_EmptySource(t *testing.T) {
	defer goleak.VerifyNone(t)

	pool := &PoolBatch{
		BaseCommand: NewBaseCommand("pool", "", RunOnSuccess, nil, nil),
		Workers:     2,
	}

	res := pool.Run(context.Background())[0]
	assert.Empty(t, res.Children)
	assert.Equal(t, ResultStatusSuccess, res.Status)
}

func TestPoolBatchRun_CancelledSkipsRemaining(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cmds := fakeCmds(5)
	pool := &PoolBatch{
		BaseCommand: NewBaseCommand("pool", "", RunOnSuccess, nil, nil),
		Source:      workqueue.New(asRunnables(cmds)...),
		Workers:     2,
	}

	res := pool.Run(ctx)[0]
	require.Len(t, res.Children, 5)

	for i, c := range cmds {
		assert.Zero(t, c.runs.Load())
		assert.Equal(t, ResultStatusSkipped, res.Children[i].Status)
		require.ErrorIs(t, res.Children[i].Error, ErrSkipCancelled)
	}

	assert.False(t, Results{res}.HasError(), "cancelled tasks are skipped, not failed")
}

func TestPoolBatchRun_LatePushNotMarkedCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	late := newFakeCmd("late", 0, nil)
	src := &lateSource{emptyPops: 2, items: []Runnable{late}}
	pool := &PoolBatch{
		BaseCommand: NewBaseCommand("pool", "", RunOnSuccess, nil, nil),
		Source:      src,
		Workers:     2,
	}

	res := pool.Run(context.Background())[0]
	assert.Empty(t, res.Children, "a command pushed after the barrier is not reported as cancelled")
	assert.Equal(t, ResultStatusSuccess, res.Status)
	assert.Zero(t, late.runs.Load())
	assert.Equal(t, 1, src.Len(), "the late command stays in the source")
}

type recordingListener struct {
	events []progress.Event
}

func (l *recordingListener) OnEvent(e progress.Event) { l.events = append(l.events, e) }

func TestPoolBatchRun_ReportsProgress(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	reporter := progress.NewChannelReporter(ctx, 100)
	listener := &recordingListener{}
	reporter.Listen(listener)

	cmds := fakeCmds(2)
	pool := &PoolBatch{
		BaseCommand: NewBaseCommand("pool", "", RunOnSuccess, nil, nil),
		Source:      workqueue.New(asRunnables(cmds)...),
		Workers:     2,
	}
	pool.SetProgressReporter(reporter)

	pool.Run(ctx)
	reporter.Close()

	for _, c := range cmds {
		assert.Equal(t, reporter, c.Reporter())
	}

	require.NotEmpty(t, listener.events)
	assert.Equal(t, progress.EventStarted, listener.events[0].Type)
	last := listener.events[len(listener.events)-1]
	assert.Equal(t, progress.EventCompleted, last.Type)
	assert.Equal(t, []string{"pool"}, last.CommandPath)
}

func TestPoolBatchRun_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 40).Draw(t, "tasks")
		workers := rapid.IntRange(-1, 10).Draw(t, "workers")
		failing := rapid.SliceOfDistinct(rapid.IntRange(0, max(n-1, 0)), rapid.ID[int]).Draw(t, "failing")

		cmds := fakeCmds(n)
		for _, i := range failing {
			if i < n {
				cmds[i].exitCode = 2
			}
		}

		pool := &PoolBatch{
			BaseCommand: NewBaseCommand("pool", "", RunOnSuccess, nil, nil),
			Source:      workqueue.New(asRunnables(cmds)...),
			Workers:     workers,
		}

		res := pool.Run(context.Background())[0]
		if len(res.Children) != n {
			t.Fatalf("got %d results, want %d", len(res.Children), n)
		}

		for _, c := range cmds {
			if c.runs.Load() != 1 {
				t.Fatalf("%s ran %d times", c.Label, c.runs.Load())
			}
		}

		wantErr := false
		for _, c := range cmds {
			if c.exitCode != 0 {
				wantErr = true
			}
		}

		if got := res.Status == ResultStatusError; got != wantErr {
			t.Fatalf("status error = %v, want %v", got, wantErr)
		}
	})
}
