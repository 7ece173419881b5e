package pipeline

import (
	"context"
	"sync"
	"time"
)

// Queue is an unbounded FIFO of encoded sample lines.
//
// Push never blocks. Pop is meant for a single consumer and waits a bounded
// time for a line to arrive.
//
// Thread Safety:
//   - Push and Len are safe for concurrent use from multiple goroutines.
//   - Pop and Drain should be called from one consumer goroutine.
type Queue struct {
	mu    sync.Mutex
	lines []string

	// notify holds at most one pending wake-up for the consumer.
	notify chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		notify: make(chan struct{}, 1),
	}
}

// Push appends a line to the tail of the queue.
func (q *Queue) Push(line string) {
	q.mu.Lock()
	q.lines = append(q.lines, line)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Pop removes the line at the head of the queue, waiting up to wait for one
// to be pushed. It returns false if the wait expires or ctx is cancelled first.
func (q *Queue) Pop(ctx context.Context, wait time.Duration) (string, bool) {
	if line, ok := q.tryPop(); ok {
		return line, true
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case <-q.notify:
			if line, ok := q.tryPop(); ok {
				return line, true
			}
			// Stale wake-up from a line already taken by the fast path.
		case <-timer.C:
			return q.tryPop()
		case <-ctx.Done():
			return "", false
		}
	}
}

// Drain removes and returns everything currently queued.
func (q *Queue) Drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	lines := q.lines
	q.lines = nil
	return lines
}

// Len returns the number of queued lines.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lines)
}

func (q *Queue) tryPop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.lines) == 0 {
		return "", false
	}
	line := q.lines[0]
	q.lines[0] = ""
	q.lines = q.lines[1:]
	if len(q.lines) == 0 {
		// Let the backing array go once the queue empties.
		q.lines = nil
	}
	return line, true
}
