package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/lsiudut/yaffmpegp/lib/core"
	"github.com/stretchr/testify/require"
)

func TestSharedQueueFIFOOrder(t *testing.T) {
	q := NewPreloaded([]core.Segment{"s0", "s1", "s2"})
	require.Equal(t, 3, q.Len())

	for _, want := range []core.Segment{"s0", "s1", "s2"} {
		got, ok := q.TryPop(time.Second)
		require.True(t, ok)
		require.Equal(t, want, got)
	}
	require.True(t, q.Empty())
}

func TestSharedQueueTryPopTimesOutWhenEmpty(t *testing.T) {
	q := New()
	start := time.Now()
	_, ok := q.TryPop(50 * time.Millisecond)
	require.False(t, ok)
	require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestSharedQueueTryPopWakesOnPush(t *testing.T) {
	q := New()
	done := make(chan core.Segment, 1)
	go func() {
		s, ok := q.TryPop(time.Second)
		if ok {
			done <- s
		}
	}()

	time.Sleep(20 * time.Millisecond) // give the reader time to start waiting
	q.Push("late-arrival")

	select {
	case s := <-done:
		require.Equal(t, core.Segment("late-arrival"), s)
	case <-time.After(time.Second):
		t.Fatal("TryPop did not wake up after Push")
	}
}

func TestSharedQueueConcurrentPushAndPop(t *testing.T) {
	q := New()
	const n = 200

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q.Push(core.Segment(string(rune('a' + i%26))))
		}(i)
	}
	wg.Wait()
	require.Equal(t, n, q.Len())

	popped := 0
	for {
		_, ok := q.TryPop(10 * time.Millisecond)
		if !ok {
			break
		}
		popped++
	}
	require.Equal(t, n, popped)
}
