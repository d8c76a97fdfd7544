package concurrency

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockFreeQueue_FIFO(t *testing.T) {
	q := NewLockFreeQueue[int](5)
	assert.Equal(t, 5, q.Cap())

	for i := 0; i < 5; i++ {
		require.True(t, q.Enqueue(i), "enqueue %d", i)
	}
	assert.False(t, q.Enqueue(99), "queue must reject items beyond capacity")
	assert.Equal(t, 5, q.Len())

	for i := 0; i < 5; i++ {
		v, ok := q.Dequeue()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	_, ok := q.Dequeue()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Len())
}

func TestLockFreeQueue_CapacityOne(t *testing.T) {
	q := NewLockFreeQueue[string](1)
	require.True(t, q.Enqueue("a"))
	assert.False(t, q.Enqueue("b"))

	v, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "a", v)

	// wraps around the two backing cells several times
	for i := 0; i < 10; i++ {
		require.True(t, q.Enqueue("x"))
		assert.False(t, q.Enqueue("y"))
		_, ok := q.Dequeue()
		require.True(t, ok)
	}
}

func TestLockFreeQueue_NonPowerOfTwoWrap(t *testing.T) {
	q := NewLockFreeQueue[int](3)
	next := 0
	want := 0
	for round := 0; round < 100; round++ {
		for q.Enqueue(next) {
			next++
		}
		assert.Equal(t, 3, q.Len())
		v, ok := q.Dequeue()
		require.True(t, ok)
		assert.Equal(t, want, v)
		want++
	}
}

func TestLockFreeQueue_MPMC(t *testing.T) {
	q := NewLockFreeQueue[int](1000)
	producers := 8
	consumers := 8
	itemsPerProducer := 10000

	var wg sync.WaitGroup
	var sentSum int64
	var receivedSum int64
	var receivedCount int64
	totalItems := int64(producers * itemsPerProducer)

	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(pid int) {
			defer wg.Done()
			for i := 0; i < itemsPerProducer; i++ {
				val := pid*itemsPerProducer + i + 1
				for !q.Enqueue(val) {
					runtime.Gosched()
				}
				atomic.AddInt64(&sentSum, int64(val))
			}
		}(p)
	}

	var maxLen int64
	consumerWg := sync.WaitGroup{}
	for c := 0; c < consumers; c++ {
		consumerWg.Add(1)
		go func() {
			defer consumerWg.Done()
			for {
				if l := int64(q.Len()); l > atomic.LoadInt64(&maxLen) {
					atomic.StoreInt64(&maxLen, l)
				}
				if val, ok := q.Dequeue(); ok {
					atomic.AddInt64(&receivedSum, int64(val))
					if atomic.AddInt64(&receivedCount, 1) == totalItems {
						return
					}
				} else {
					if atomic.LoadInt64(&receivedCount) >= totalItems {
						return
					}
					runtime.Gosched()
				}
			}
		}()
	}

	wg.Wait()

	done := make(chan struct{})
	go func() {
		consumerWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		assert.Equal(t, sentSum, receivedSum, "checksum mismatch")
		assert.LessOrEqual(t, atomic.LoadInt64(&maxLen), int64(q.Cap()))
	case <-time.After(10 * time.Second):
		t.Errorf("Timeout waiting for consumers. Received %d/%d", atomic.LoadInt64(&receivedCount), totalItems)
	}
}
