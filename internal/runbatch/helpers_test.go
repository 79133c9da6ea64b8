// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// fakeCmd is a Runnable that records how often it ran and returns a canned result.
type fakeCmd struct {
	*BaseCommand
	exitCode int
	err      error
	delay    time.Duration
	runs     atomic.Int32
	active   *atomic.Int32 // shared across commands to measure concurrency
	peak     *atomic.Int32
}

func newFakeCmd(label string, exitCode int, err error) *fakeCmd {
	return &fakeCmd{
		BaseCommand: NewBaseCommand(label, "", RunOnSuccess, nil, nil),
		exitCode:    exitCode,
		err:         err,
	}
}

func (f *fakeCmd) Run(_ context.Context) Results {
	f.runs.Add(1)

	if f.active != nil {
		n := f.active.Add(1)
		defer f.active.Add(-1)

		for {
			p := f.peak.Load()
			if n <= p || f.peak.CompareAndSwap(p, n) {
				break
			}
		}
	}

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	status := ResultStatusSuccess
	if f.exitCode != 0 || f.err != nil {
		status = ResultStatusError
	}

	return Results{&Result{
		Label:    f.Label,
		ExitCode: f.exitCode,
		Error:    f.err,
		Status:   status,
	}}
}

// sliceSource is a Source over a fixed slice that counts Pop calls.
type sliceSource struct {
	items []Runnable
	pops  atomic.Int32
	mu    chan struct{}
}

func newSliceSource(items ...Runnable) *sliceSource {
	s := &sliceSource{items: items, mu: make(chan struct{}, 1)}
	return s
}

func (s *sliceSource) Pop() (Runnable, bool) {
	s.mu <- struct{}{}
	defer func() { <-s.mu }()

	s.pops.Add(1)

	if len(s.items) == 0 {
		return nil, false
	}

	r := s.items[0]
	s.items = s.items[1:]

	return r, true
}

// lateSource reports empty to the first emptyPops calls, then hands out items.
// It models a producer that pushes after the workers have already left.
type lateSource struct {
	mu        sync.Mutex
	emptyPops int
	items     []Runnable
}

func (s *lateSource) Pop() (Runnable, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.emptyPops > 0 {
		s.emptyPops--
		return nil, false
	}

	if len(s.items) == 0 {
		return nil, false
	}

	r := s.items[0]
	s.items = s.items[1:]

	return r, true
}

func (s *lateSource) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.items)
}
