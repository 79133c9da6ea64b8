// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"fmt"
	"strings"
	"time"

	bprogress "github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/matt-FFFFFF/sysbatch/internal/progress"
	"github.com/matt-FFFFFF/sysbatch/internal/runbatch"
)

const (
	defaultWidth            = 80
	defaultHeight           = 20
	reservedLines           = 8 // title, progress bar, border, status and help
	minViewportHeight       = 3
	minStatusBarHeight      = 10
	barPadding              = 4
	maxBarWidth             = 80
	commandDurationRounding = 100 * time.Millisecond
)

// EventMsg wraps a progress event for the tea framework.
type EventMsg struct {
	Event progress.Event
}

// DoneMsg indicates that the run has finished.
type DoneMsg struct {
	Results runbatch.Results
	Err     error
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.EnterAltScreen
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var vpCmd tea.Cmd

	m.viewport, vpCmd = m.viewport.Update(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}

		return m, vpCmd

	case tea.WindowSizeMsg:
		m.mutex.Lock()
		m.resize(msg.Width, msg.Height)
		m.mutex.Unlock()

		return m, vpCmd

	case EventMsg:
		return m, tea.Batch(vpCmd, m.processProgressEvent(msg.Event))

	case DoneMsg:
		m.mutex.Lock()
		m.completed = true
		m.results = msg.Results
		m.mutex.Unlock()

		return m, nil

	case bprogress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		if b, ok := bar.(bprogress.Model); ok {
			m.bar = b
		}

		return m, cmd
	}

	return m, vpCmd
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = max(width-2, 1)
	m.viewport.Height = max(height-reservedLines, minViewportHeight)
	m.bar.Width = min(max(width-barPadding, 1), maxBarWidth)
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var content strings.Builder

	m.renderTree(&content, m.rootNode, "", true)

	if m.completed {
		content.WriteString("\n")

		if m.results.HasError() {
			content.WriteString(m.styles.Failed.Render("Run completed with errors"))
		} else {
			content.WriteString(m.styles.Success.Render("Run completed successfully"))
		}

		content.WriteString("\n")
	}

	m.viewport.SetContent(content.String())

	var view strings.Builder

	view.WriteString(m.styles.Title.Render("sysbatch"))
	view.WriteString("\n")
	view.WriteString(m.renderProgress())
	view.WriteString("\n")
	view.WriteString(m.styles.Border.Render(m.viewport.View()))

	if m.height == 0 || m.height > minStatusBarHeight {
		view.WriteString("\n")
		view.WriteString(m.renderStatusBar())
		view.WriteString("\n")

		help := "↑/↓ or j/k to scroll, PgUp/PgDn for pages, 'q' to abort"
		if m.completed {
			help = "↑/↓ or j/k to scroll, 'q' to quit"
		}

		view.WriteString(m.styles.Help.Render(help))
	}

	return view.String()
}

func (m *Model) renderProgress() string {
	if m.current == nil {
		return m.styles.Pending.Render("waiting for the first batch")
	}

	label := fmt.Sprintf("%s %d/%d", m.current.name, m.current.done, m.current.total)

	return lipgloss.JoinHorizontal(lipgloss.Center, m.bar.View(), " ", m.styles.State.Render(label))
}

func (m *Model) renderStatusBar() string {
	counts := make(map[NodeStatus]int)

	for _, n := range m.nodeMap {
		if len(n.Children) == 0 {
			counts[n.info().status]++
		}
	}

	return fmt.Sprintf("%s  %s  %s  %s  %s",
		m.styles.Running.Render(fmt.Sprintf("running %d", counts[StatusRunning])),
		m.styles.Success.Render(fmt.Sprintf("ok %d", counts[StatusSuccess])),
		m.styles.Failed.Render(fmt.Sprintf("failed %d", counts[StatusFailed])),
		m.styles.Skipped.Render(fmt.Sprintf("skipped %d", counts[StatusSkipped])),
		m.styles.State.Render(fmt.Sprintf("batches done %d", m.finished)),
	)
}

// renderTree renders node and its children. The root itself is not shown.
func (m *Model) renderTree(b *strings.Builder, node *Node, prefix string, isLast bool) {
	if len(node.Path) == 0 {
		for i, child := range node.Children {
			m.renderTree(b, child, "", i == len(node.Children)-1)
		}

		return
	}

	m.renderNode(b, node, prefix, isLast)

	childPrefix := prefix + "│   "
	if isLast {
		childPrefix = prefix + "    "
	}

	for i, child := range node.Children {
		m.renderTree(b, child, childPrefix, i == len(node.Children)-1)
	}
}

func (m *Model) renderNode(b *strings.Builder, node *Node, prefix string, isLast bool) {
	info := node.info()

	connector := "├── "
	if isLast {
		connector = "└── "
	}

	var icon, name string

	switch info.status {
	case StatusRunning:
		icon, name = "⚡", m.styles.Running.Render(info.name)
	case StatusSuccess:
		icon, name = "✅", m.styles.Success.Render(info.name)
	case StatusFailed:
		icon, name = "❌", m.styles.Failed.Render(info.name)
	case StatusSkipped:
		icon, name = "⏭️", m.styles.Skipped.Render(info.name)
	default:
		icon, name = "⏳", m.styles.Pending.Render(info.name)
	}

	b.WriteString(m.styles.TreeBranch.Render(prefix + connector))
	b.WriteString(icon)
	b.WriteString(" ")
	b.WriteString(name)

	if info.state != "" && info.status == StatusRunning {
		b.WriteString(m.styles.State.Render(" [" + info.state + "]"))
	}

	if info.startTime != nil {
		elapsed := time.Since(*info.startTime)
		if info.endTime != nil {
			elapsed = info.endTime.Sub(*info.startTime)
		}

		b.WriteString(m.styles.Output.Render(fmt.Sprintf(" (%v)", elapsed.Round(commandDurationRounding))))
	}

	if info.errorMsg != "" && info.status == StatusFailed {
		b.WriteString(" ")
		b.WriteString(m.styles.Error.Render("Error: " + info.errorMsg))
	}

	b.WriteString("\n")
}
