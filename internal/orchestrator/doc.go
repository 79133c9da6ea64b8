// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package orchestrator runs a systematics study.
//
// After the artifact check passes, every (test case, option) pair becomes one
// Batch. A batch creates its working directory, renders one task per variation
// point into a fresh queue, drains the queue with a worker pool and, once the
// pool has finished, runs the post-processing steps one after another in the
// same directory. Batches run one at a time in definition order.
package orchestrator
