// File: internal/concurrency/lock_free_queue.go
// Package concurrency provides the lock-free queue backing receive buffer pools.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Bounded MPMC queue after Dmitry Vyukov's sequence-number design. No operation
// waits on another caller, so it is safe to use from interrupt-like contexts.

package concurrency

import (
	"sync/atomic"

	"github.com/momentics/hioload-nic/api"
)

const cacheLinePad = 64

// Ensure compile-time interface compliance.
var _ api.Ring[any] = (*LockFreeQueue[any])(nil)

type cell[T any] struct {
	sequence atomic.Uint64
	data     T
}

// LockFreeQueue is a FIFO MPMC bounded queue with an exact capacity.
//
// Occupancy is reserved through used before a cell is claimed, so the number of
// stored items never exceeds capacity even when capacity is not a power of two.
type LockFreeQueue[T any] struct {
	head     atomic.Uint64
	_        [cacheLinePad]byte
	tail     atomic.Uint64
	_        [cacheLinePad]byte
	used     atomic.Int64
	_        [cacheLinePad]byte
	capacity int64
	size     uint64
	cells    []cell[T]
}

// NewLockFreeQueue creates a queue holding at most capacity items.
// Capacity below 1 is raised to 1.
func NewLockFreeQueue[T any](capacity int) *LockFreeQueue[T] {
	if capacity < 1 {
		capacity = 1
	}
	// The sequence scheme needs at least two cells to tell full from empty.
	size := capacity
	if size < 2 {
		size = 2
	}
	q := &LockFreeQueue[T]{
		capacity: int64(capacity),
		size:     uint64(size),
		cells:    make([]cell[T], size),
	}
	for i := range q.cells {
		q.cells[i].sequence.Store(uint64(i))
	}
	return q
}

func (q *LockFreeQueue[T]) reserve() bool {
	for {
		n := q.used.Load()
		if n >= q.capacity {
			return false
		}
		if q.used.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Enqueue adds val; returns false if full.
//
// A caller may also see false while a concurrent Dequeue still owns the target
// cell; the queue never spins on another caller's progress.
func (q *LockFreeQueue[T]) Enqueue(val T) bool {
	if !q.reserve() {
		return false
	}
	for {
		tail := q.tail.Load()
		c := &q.cells[tail%q.size]
		seq := c.sequence.Load()
		dif := int64(seq - tail)

		if dif == 0 {
			if q.tail.CompareAndSwap(tail, tail+1) {
				c.data = val
				c.sequence.Store(tail + 1)
				return true
			}
		} else if dif < 0 {
			q.used.Add(-1)
			return false
		}
		// tail moved, retry
	}
}

// Dequeue removes and returns the oldest item; ok false if empty.
func (q *LockFreeQueue[T]) Dequeue() (item T, ok bool) {
	for {
		head := q.head.Load()
		c := &q.cells[head%q.size]
		seq := c.sequence.Load()
		dif := int64(seq - (head + 1))

		if dif == 0 {
			if q.head.CompareAndSwap(head, head+1) {
				item = c.data
				var zero T
				c.data = zero
				c.sequence.Store(head + q.size)
				q.used.Add(-1)
				return item, true
			}
		} else if dif < 0 {
			var zero T
			return zero, false // empty
		}
		// head moved, retry
	}
}

// Len returns the number of items stored or being stored.
func (q *LockFreeQueue[T]) Len() int {
	return int(q.used.Load())
}

// Cap returns the fixed capacity.
func (q *LockFreeQueue[T]) Cap() int {
	return int(q.capacity)
}
