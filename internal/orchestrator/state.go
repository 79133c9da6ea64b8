// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when a batch is moved to a state other than the next one.
var ErrInvalidTransition = errors.New("invalid batch state transition")

// State is the lifecycle state of a batch.
type State int

const (
	// StatePending is the state of a batch that has not started.
	StatePending State = iota
	// StatePopulating means the batch is rendering tasks into its queue.
	StatePopulating
	// StateRunning means the worker pool is draining the queue.
	StateRunning
	// StatePostProcessing means the post-processing steps are running.
	StatePostProcessing
	// StateDone is terminal.
	StateDone
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StatePopulating:
		return "populating-queue"
	case StateRunning:
		return "running"
	case StatePostProcessing:
		return "post-processing"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// next returns the only state s may move to.
func (s State) next() (State, bool) {
	if s >= StateDone {
		return s, false
	}

	return s + 1, true
}
