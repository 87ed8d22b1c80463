// Package queue implements the shared input queue: a FIFO of Segments with
// many concurrent readers (Workers) and many concurrent writers
// (Dispatcher at start, Workers on fatal failure). See spec §3 invariant 1
// and §5 "Shared resources".
package queue

import (
	"sync"
	"time"

	"github.com/lsiudut/yaffmpegp/lib/core"
)

// SharedQueue is a concurrency-safe, unbounded FIFO of core.Segment.
//
// Multiple goroutines may invoke methods on a SharedQueue simultaneously.
type SharedQueue struct {
	mu     sync.Mutex
	items  []core.Segment
	notify chan struct{} // closed and replaced whenever an item is pushed
}

// New returns an empty SharedQueue.
func New() *SharedQueue {
	return &SharedQueue{notify: make(chan struct{})}
}

// NewPreloaded returns a SharedQueue pre-loaded with segments, in order.
func NewPreloaded(segments []core.Segment) *SharedQueue {
	q := New()
	q.items = append(q.items, segments...)
	return q
}

// Push appends a Segment to the back of the queue. Used by the Dispatcher
// to load initial work, and by a Worker to re-queue a Segment exactly once
// per FatalWorkerFailure (spec §3 invariant 1, §4.3).
func (q *SharedQueue) Push(s core.Segment) {
	q.mu.Lock()
	q.items = append(q.items, s)
	old := q.notify
	q.notify = make(chan struct{})
	q.mu.Unlock()
	close(old)
}

// TryPop attempts to pop the front Segment within timeout. It returns
// ok=false if the queue is still empty once timeout elapses.
//
// This bounded wait is what lets a Worker supervisor periodically re-check
// its termination predicate (spec §5 "Cancellation / timeouts") instead of
// blocking on the queue forever.
func (q *SharedQueue) TryPop(timeout time.Duration) (s core.Segment, ok bool) {
	deadline := time.Now().Add(timeout)
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			s = q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return s, true
		}
		wake := q.notify
		q.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", false
		}
		select {
		case <-wake:
			// an item was pushed; loop around and try again
		case <-time.After(remaining):
			return "", false
		}
	}
}

// Len returns the current queue depth.
func (q *SharedQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Empty reports whether the queue currently holds no Segments.
func (q *SharedQueue) Empty() bool {
	return q.Len() == 0
}
