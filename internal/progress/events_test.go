// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestEventType_String(t *testing.T) {
	tests := []struct {
		eventType EventType
		expected  string
	}{
		{EventStarted, "started"},
		{EventState, "state"},
		{EventCompleted, "completed"},
		{EventFailed, "failed"},
		{EventSkipped, "skipped"},
		{EventType(999), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.eventType.String())
		})
	}
}

func TestNullReporter(t *testing.T) {
	reporter := NewNullReporter()
	require.NotNil(t, reporter)

	reporter.Report(Event{CommandPath: []string{"binning"}, Type: EventStarted, Timestamp: time.Now()})
	reporter.Close()
}

type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) OnEvent(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = append(c.events, e)
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.events)
}

func TestChannelReporter_Listen(t *testing.T) {
	defer goleak.VerifyNone(t)

	reporter := NewChannelReporter(context.Background(), 10)
	c := &collector{}
	reporter.Listen(c)

	reporter.Report(Event{CommandPath: []string{"binning", "option1"}, Type: EventState, Data: EventData{State: "running", Total: 4}})
	reporter.Report(Event{CommandPath: []string{"binning", "option1", "R02"}, Type: EventCompleted})

	require.Eventually(t, func() bool { return c.len() == 2 }, time.Second, 5*time.Millisecond)

	reporter.Close()

	assert.Equal(t, EventState, c.events[0].Type)
	assert.Equal(t, 4, c.events[0].Data.Total)
}

func TestChannelReporter_ReportAfterClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	reporter := NewChannelReporter(context.Background(), 1)
	reporter.Close()
	reporter.Close()

	assert.NotPanics(t, func() {
		reporter.Report(Event{Type: EventStarted})
	})
}

func TestChannelReporter_DropsWhenFull(t *testing.T) {
	defer goleak.VerifyNone(t)

	reporter := NewChannelReporter(context.Background(), 1)

	done := make(chan struct{})

	go func() {
		defer close(done)

		for range 10 {
			reporter.Report(Event{Type: EventStarted})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Report blocked on a full buffer")
	}

	assert.Len(t, reporter.Events(), 1)
	reporter.Close()
}
