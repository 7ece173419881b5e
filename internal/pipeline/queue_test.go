package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue()
	q.Push("a")
	q.Push("b")
	q.Push("c")

	require.Equal(t, 3, q.Len())
	for _, want := range []string{"a", "b", "c"} {
		got, ok := q.Pop(context.Background(), time.Millisecond)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	assert.Zero(t, q.Len())
}

func TestQueue_PopTimesOut(t *testing.T) {
	q := NewQueue()

	start := time.Now()
	_, ok := q.Pop(context.Background(), 20*time.Millisecond)

	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestQueue_PopWakesOnPush(t *testing.T) {
	q := NewQueue()

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Push("late")
	}()

	start := time.Now()
	got, ok := q.Pop(context.Background(), 5*time.Second)

	require.True(t, ok)
	assert.Equal(t, "late", got)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestQueue_PopCancelled(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := q.Pop(ctx, 5*time.Second)
	assert.False(t, ok)
}

func TestQueue_StaleNotifyIsIgnored(t *testing.T) {
	q := NewQueue()
	q.Push("only")

	// Fast path consumes the line and leaves the wake-up token behind.
	got, ok := q.Pop(context.Background(), time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, "only", got)

	_, ok = q.Pop(context.Background(), 10*time.Millisecond)
	assert.False(t, ok)
}

func TestQueue_Drain(t *testing.T) {
	q := NewQueue()
	q.Push("a")
	q.Push("b")

	assert.Equal(t, []string{"a", "b"}, q.Drain())
	assert.Zero(t, q.Len())
	assert.Empty(t, q.Drain())
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	q := NewQueue()

	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				q.Push(fmt.Sprintf("%d-%d", p, i))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 4000, q.Len())

	seen := make(map[string]bool, 4000)
	for _, line := range q.Drain() {
		assert.False(t, seen[line], "duplicate %s", line)
		seen[line] = true
	}
	assert.Len(t, seen, 4000)
}
