// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package progress

import (
	"time"
)

// Event is a real-time update emitted while a run executes.
type Event struct {
	CommandPath []string  // Hierarchical path, e.g. ["binning", "option1", "R02"]
	Type        EventType // What happened
	Message     string    // Human-readable status message
	Timestamp   time.Time // When the event occurred
	Data        EventData // Type-specific data
}

// EventType represents the type of progress event.
type EventType int

const (
	// EventStarted indicates a command or batch has begun execution.
	EventStarted EventType = iota
	// EventState indicates a batch moved to a new lifecycle state.
	EventState
	// EventCompleted indicates successful completion.
	EventCompleted
	// EventFailed indicates the command failed.
	EventFailed
	// EventSkipped indicates a command was not run.
	EventSkipped
)

// String implements the Stringer interface for EventType.
func (et EventType) String() string {
	switch et {
	case EventStarted:
		return "started"
	case EventState:
		return "state"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	case EventSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// EventData contains type-specific information for progress events.
type EventData struct {
	// For EventCompleted/EventFailed
	ExitCode int
	Error    error

	// For EventState
	State string
	Total int // number of queued tasks when a batch starts running
}

// Reporter is the interface for sending progress events.
type Reporter interface {
	// Report sends a progress event. Implementations must not block.
	Report(event Event)
	// Close signals that no more events will be sent and cleans up resources.
	Close()
}

// Listener receives progress events.
type Listener interface {
	// OnEvent is called for every event received.
	OnEvent(event Event)
}

// NullReporter is a no-op Reporter.
type NullReporter struct{}

// Report implements Reporter.
func (nr *NullReporter) Report(_ Event) {}

// Close implements Reporter.
func (nr *NullReporter) Close() {}

// NewNullReporter creates a new NullReporter.
func NewNullReporter() Reporter {
	return &NullReporter{}
}
