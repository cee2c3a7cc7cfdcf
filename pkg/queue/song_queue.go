// Package queue provides the SongQueue used to drive sequential playback.
// It is a FIFO queue with two retrieval modes layered on top: repeat and loop.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrIndexOutOfRange is returned by RemoveAt for a position outside the queue
	ErrIndexOutOfRange = errors.New("queue: index out of range")

	// ErrCancelled is returned by Dequeue when its context ends before an item arrives
	ErrCancelled = errors.New("queue: dequeue cancelled")
)

// SongQueue is an unbounded FIFO queue with loop and repeat modes.
//
// In normal mode Dequeue pops the head. With repeat set it returns the head
// without removing it. With loop set it first moves the head to the tail and
// then returns the new head without removing it, so the queue cycles forever.
// Loop takes precedence when both flags are set.
type SongQueue[T any] struct {
	mu      sync.Mutex
	items   []T
	waiters []chan struct{}
	// signalled counts waiters that were woken but have not taken an item yet
	signalled int
	loop      bool
	repeat    bool
}

// New creates an empty SongQueue
func New[T any]() *SongQueue[T] {
	return &SongQueue[T]{
		items:   make([]T, 0),
		waiters: make([]chan struct{}, 0),
	}
}

// Enqueue appends an item to the tail and wakes the oldest pending Dequeue
func (q *SongQueue[T]) Enqueue(item T) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, item)
	q.wakeLocked()
}

// Dequeue returns the next item according to the current mode.
// It blocks while the queue is empty. Waiters are served in arrival order.
// If ctx ends first, the returned error matches both ErrCancelled and the
// context error, and the queue contents are left untouched.
func (q *SongQueue[T]) Dequeue(ctx context.Context) (T, error) {
	q.mu.Lock()
	if len(q.waiters) == 0 && q.signalled == 0 && len(q.items) > 0 {
		item := q.takeLocked()
		q.mu.Unlock()
		return item, nil
	}

	ready := make(chan struct{}, 1)
	q.waiters = append(q.waiters, ready)
	q.mu.Unlock()

	for {
		select {
		case <-ready:
			q.mu.Lock()
			q.signalled--
			if len(q.items) == 0 {
				// Emptied by RemoveAt or Clear before we ran. Keep our place at the front.
				q.waiters = append([]chan struct{}{ready}, q.waiters...)
				q.mu.Unlock()
				continue
			}
			item := q.takeLocked()
			q.wakeLocked()
			q.mu.Unlock()
			return item, nil

		case <-ctx.Done():
			q.mu.Lock()
			if !q.dropWaiterLocked(ready) {
				// Woken concurrently with cancellation: hand the wakeup on.
				q.signalled--
				q.wakeLocked()
			}
			q.mu.Unlock()

			var zero T
			return zero, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
		}
	}
}

// takeLocked applies the retrieval policy. The queue must not be empty.
func (q *SongQueue[T]) takeLocked() T {
	if q.loop {
		head := q.items[0]
		copy(q.items, q.items[1:])
		q.items[len(q.items)-1] = head
		return q.items[0]
	}

	if q.repeat {
		return q.items[0]
	}

	head := q.items[0]
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]
	return head
}

// wakeLocked signals the oldest waiter. Only one waiter is in flight at a
// time; it wakes the next one after taking its item.
func (q *SongQueue[T]) wakeLocked() {
	if q.signalled > 0 || len(q.items) == 0 || len(q.waiters) == 0 {
		return
	}

	next := q.waiters[0]
	q.waiters[0] = nil
	q.waiters = q.waiters[1:]
	q.signalled++
	next <- struct{}{}
}

// dropWaiterLocked removes a waiter that is still waiting. It reports false
// if the waiter had already been signalled.
func (q *SongQueue[T]) dropWaiterLocked(ch chan struct{}) bool {
	for i, w := range q.waiters {
		if w == ch {
			q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
			return true
		}
	}
	return false
}

// ToList returns a point-in-time copy of the queued items in play order
func (q *SongQueue[T]) ToList() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]T, len(q.items))
	copy(out, q.items)
	return out
}

// RemoveAt removes the item at index and returns it. Remaining items keep their order.
//
// RemoveAt is not coordinated with an in-flight Dequeue: removing the item a
// consumer is about to receive is a race the caller has to rule out.
func (q *SongQueue[T]) RemoveAt(index int) (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if index < 0 || index >= len(q.items) {
		return zero, fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, index, len(q.items))
	}

	item := q.items[index]
	last := len(q.items) - 1
	copy(q.items[index:], q.items[index+1:])
	q.items[last] = zero
	q.items = q.items[:last]
	return item, nil
}

// Clear drops every queued item. Mode flags are kept.
func (q *SongQueue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = make([]T, 0)
}

// Len returns the number of queued items
func (q *SongQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// IsEmpty reports whether the queue holds no items
func (q *SongQueue[T]) IsEmpty() bool {
	return q.Len() == 0
}

// Waiting returns the number of blocked Dequeue calls
func (q *SongQueue[T]) Waiting() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiters) + q.signalled
}

// SetLoop enables or disables loop mode
func (q *SongQueue[T]) SetLoop(enabled bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.loop = enabled
}

// Loop reports whether loop mode is enabled
func (q *SongQueue[T]) Loop() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.loop
}

// SetRepeat enables or disables repeat mode
func (q *SongQueue[T]) SetRepeat(enabled bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.repeat = enabled
}

// Repeat reports whether repeat mode is enabled
func (q *SongQueue[T]) Repeat() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.repeat
}
