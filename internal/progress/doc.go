// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package progress carries real-time events from the orchestrator and the
// worker pool to listeners such as the TUI. Reporting never blocks the sender.
package progress
