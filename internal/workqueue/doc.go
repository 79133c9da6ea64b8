// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package workqueue provides the shared FIFO that pool workers drain.
//
// Push and Pop are each guarded by a single mutex held only for the duration
// of the call, so producers may keep pushing while workers pop. Pop never
// waits: an empty queue is reported through its boolean result and workers
// treat it as "no more work".
package workqueue
