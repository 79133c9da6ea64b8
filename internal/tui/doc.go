// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package tui provides an interactive terminal view of a running study.
// It shows the tree of test cases, batches, tasks and post-processing steps with
// their status, the lifecycle state of each batch and a progress bar for the
// batch whose worker pool is currently draining.
//
// The view is fed by progress events: Runner implements progress.Listener and
// forwards every event to the bubbletea program.
package tui
