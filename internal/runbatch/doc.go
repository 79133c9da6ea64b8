// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package runbatch runs shell commands serially or through a bounded worker pool.
//
// A PoolBatch starts a fixed number of workers that drain a shared Source
// (normally a workqueue.Queue) until it is empty, then returns once every worker
// has exited. A SerialBatch runs its commands one after another. Both return a
// tree of Results recording the exit status of each command; a failing command
// never stops its siblings.
package runbatch
