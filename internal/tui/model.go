// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	bprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/matt-FFFFFF/sysbatch/internal/orchestrator"
	"github.com/matt-FFFFFF/sysbatch/internal/progress"
	"github.com/matt-FFFFFF/sysbatch/internal/runbatch"
)

// NodeStatus is the display status of one node of the tree.
type NodeStatus int

const (
	StatusPending NodeStatus = iota
	StatusRunning
	StatusSuccess
	StatusFailed
	StatusSkipped
)

// String returns a string representation of the status.
func (s NodeStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Node is one command or batch in the tree.
type Node struct {
	Path      []string
	Name      string
	Status    NodeStatus
	State     string // Batch lifecycle state, empty for commands
	StartTime *time.Time
	EndTime   *time.Time
	ErrorMsg  string
	Children  []*Node
	mutex     sync.RWMutex
}

// NewNode creates a pending node.
func NewNode(path []string, name string) *Node {
	return &Node{
		Path:     slices.Clone(path),
		Name:     name,
		Status:   StatusPending,
		Children: make([]*Node, 0),
	}
}

// UpdateStatus sets the status and records start and end times.
func (n *Node) UpdateStatus(status NodeStatus) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	n.Status = status
	now := time.Now()

	switch status {
	case StatusRunning:
		if n.StartTime == nil {
			n.StartTime = &now
		}
	case StatusSuccess, StatusFailed:
		if n.EndTime == nil {
			n.EndTime = &now
		}
	}
}

// UpdateState records the lifecycle state of a batch node.
func (n *Node) UpdateState(state string) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	n.State = state
}

// UpdateError sets the error message.
func (n *Node) UpdateError(err string) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	n.ErrorMsg = err
}

// displayInfo is a snapshot of a node for rendering.
type displayInfo struct {
	status    NodeStatus
	name      string
	state     string
	errorMsg  string
	startTime *time.Time
	endTime   *time.Time
}

func (n *Node) info() displayInfo {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	return displayInfo{
		status:    n.Status,
		name:      n.Name,
		state:     n.State,
		errorMsg:  n.ErrorMsg,
		startTime: n.StartTime,
		endTime:   n.EndTime,
	}
}

// batchProgress tracks the tasks of the batch whose pool is running.
type batchProgress struct {
	path  []string
	name  string
	total int
	done  int
}

// counts reports whether an event finishes one task of the batch.
// Task paths are <batch>/tasks/<task>.
func (bp *batchProgress) counts(path []string) bool {
	n := len(bp.path)

	return len(path) == n+2 &&
		path[n] == orchestrator.PoolLabel &&
		slices.Equal(path[:n], bp.path)
}

func (bp *batchProgress) percent() float64 {
	if bp.total == 0 {
		return 1
	}

	return float64(bp.done) / float64(bp.total)
}

// Model is the bubbletea model of the view.
type Model struct {
	ctx       context.Context
	rootNode  *Node
	nodeMap   map[string]*Node
	width     int
	height    int
	quitting  bool
	completed bool
	results   runbatch.Results
	current   *batchProgress
	finished  int // Batches that reached done
	viewport  viewport.Model
	bar       bprogress.Model
	styles    *Styles
	mutex     sync.RWMutex
}

// Styles contains all the styling for the view.
type Styles struct {
	Title      lipgloss.Style
	Pending    lipgloss.Style
	Running    lipgloss.Style
	Success    lipgloss.Style
	Failed     lipgloss.Style
	Skipped    lipgloss.Style
	State      lipgloss.Style
	Output     lipgloss.Style
	Error      lipgloss.Style
	Help       lipgloss.Style
	TreeBranch lipgloss.Style
	Border     lipgloss.Style
}

// NewStyles creates the default styling.
func NewStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")),
		Pending: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")),
		Running: lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true),
		Success: lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")),
		Failed: lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")),
		Skipped: lipgloss.NewStyle().
			Foreground(lipgloss.Color("13")),
		State: lipgloss.NewStyle().
			Foreground(lipgloss.Color("14")),
		Output: lipgloss.NewStyle().
			Foreground(lipgloss.Color("7")).
			Italic(true),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Italic(true),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")),
		TreeBranch: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")),
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")),
	}
}

// NewModel creates a new model.
func NewModel(ctx context.Context) *Model {
	return &Model{
		ctx:      ctx,
		rootNode: NewNode(nil, "Root"),
		nodeMap:  make(map[string]*Node),
		viewport: viewport.New(defaultWidth, defaultHeight),
		bar:      bprogress.New(bprogress.WithDefaultGradient()),
		styles:   NewStyles(),
	}
}

func pathToString(path []string) string {
	return strings.Join(path, "/")
}

// getOrCreateNode returns the node at path, creating it and any missing parents.
func (m *Model) getOrCreateNode(path []string) *Node {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	parent := m.rootNode

	for i := 1; i <= len(path); i++ {
		key := pathToString(path[:i])

		node, ok := m.nodeMap[key]
		if !ok {
			node = NewNode(path[:i], path[i-1])
			m.nodeMap[key] = node
			parent.Children = append(parent.Children, node)
		}

		parent = node
	}

	return parent
}

// processProgressEvent applies one event to the tree and the batch progress.
func (m *Model) processProgressEvent(event progress.Event) tea.Cmd {
	if len(event.CommandPath) == 0 {
		return nil
	}

	node := m.getOrCreateNode(event.CommandPath)

	switch event.Type {
	case progress.EventStarted:
		node.UpdateStatus(StatusRunning)

	case progress.EventState:
		node.UpdateState(event.Data.State)
		return m.onBatchState(event)

	case progress.EventCompleted:
		node.UpdateStatus(StatusSuccess)
		return m.onTaskDone(event.CommandPath)

	case progress.EventFailed:
		node.UpdateStatus(StatusFailed)

		if event.Data.Error != nil {
			node.UpdateError(event.Data.Error.Error())
		}

		return m.onTaskDone(event.CommandPath)

	case progress.EventSkipped:
		node.UpdateStatus(StatusSkipped)

		if event.Data.Error != nil {
			node.UpdateError(event.Data.Error.Error())
		}

		return m.onTaskDone(event.CommandPath)
	}

	return nil
}

func (m *Model) onBatchState(event progress.Event) tea.Cmd {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	switch event.Data.State {
	case orchestrator.StateRunning.String():
		name := event.CommandPath
		if len(name) > 1 {
			name = name[1:] // drop the root
		}

		m.current = &batchProgress{
			path:  slices.Clone(event.CommandPath),
			name:  pathToString(name),
			total: event.Data.Total,
		}

		return m.bar.SetPercent(m.current.percent())
	case orchestrator.StateDone.String():
		m.finished++
	}

	return nil
}

func (m *Model) onTaskDone(path []string) tea.Cmd {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.current == nil || !m.current.counts(path) {
		return nil
	}

	m.current.done++

	return m.bar.SetPercent(m.current.percent())
}
