// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package workqueue

import "sync"

// compactThreshold is the number of consumed slots after which the backing slice is compacted.
const compactThreshold = 64

// Queue is a mutex guarded FIFO. The zero value is an empty queue ready to use.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
	head  int
}

// New returns a queue holding items in order.
func New[T any](items ...T) *Queue[T] {
	q := &Queue[T]{}
	q.items = append(q.items, items...)

	return q
}

// Push appends item to the tail of the queue.
func (q *Queue[T]) Push(item T) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, item)
}

// Pop removes and returns the head of the queue.
// The boolean is false when the queue is empty.
func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T

	if q.head == len(q.items) {
		return zero, false
	}

	item := q.items[q.head]
	q.items[q.head] = zero
	q.head++

	switch {
	case q.head == len(q.items):
		q.items = q.items[:0]
		q.head = 0
	case q.head >= compactThreshold && q.head*2 >= len(q.items):
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}

	return item, true
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items) - q.head
}
