package pool_test

import (
	"errors"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rcrowley/go-metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-nic/api"
	"github.com/momentics/hioload-nic/memory"
	"github.com/momentics/hioload-nic/pool"
)

func newPool(t *testing.T, capacity int, opts ...pool.Option) (*pool.BufferPool, *memory.Arena) {
	t.Helper()
	p, err := pool.NewBufferPool(capacity, opts...)
	require.NoError(t, err)
	return p, memory.NewArena(memory.DefaultArenaBase, 0)
}

func TestBufferPool_AcquireEmpty(t *testing.T) {
	p, _ := newPool(t, 4)
	buf, ok := p.Acquire()
	assert.False(t, ok)
	assert.Nil(t, buf)
	assert.Equal(t, int64(1), p.Stats().AcquireMisses)
}

func TestBufferPool_InvalidCapacity(t *testing.T) {
	_, err := pool.NewBufferPool(0)
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestBufferPool_ReleaseFullReturnsBuffer(t *testing.T) {
	p, a := newPool(t, 2)
	var bufs []*pool.ReceiveBuffer
	for i := 0; i < 3; i++ {
		b, err := p.Allocate(a, 2048)
		require.NoError(t, err)
		bufs = append(bufs, b)
	}
	require.NoError(t, bufs[0].Release())
	require.NoError(t, bufs[1].Release())

	err := bufs[2].Release()
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrPoolFull)

	var full *pool.FullError
	require.True(t, errors.As(err, &full))
	assert.Same(t, bufs[2], full.Buffer)
	assert.Equal(t, 2, full.Cap)
	assert.Equal(t, 2, p.Len())

	// the rejected buffer is still checked out and can go back once room exists
	_, ok := p.Acquire()
	require.True(t, ok)
	assert.NoError(t, full.Buffer.Release())

	st := p.Stats()
	assert.Equal(t, int64(3), st.Releases)
	assert.Equal(t, int64(1), st.ReleaseFull)
	assert.Equal(t, 2, st.Idle)
}

func TestBufferPool_DoubleReleaseAndForeignPool(t *testing.T) {
	p, a := newPool(t, 4)
	other, _ := newPool(t, 4)

	b, err := p.Allocate(a, 512)
	require.NoError(t, err)
	require.NoError(t, b.Release())
	assert.ErrorIs(t, b.Release(), api.ErrBufferIdle)
	assert.Equal(t, 1, p.Len())

	c, err := p.Allocate(a, 512)
	require.NoError(t, err)
	assert.ErrorIs(t, other.Release(c), api.ErrInvalidArgument)
	assert.Equal(t, 0, other.Len())
	assert.Same(t, p, c.Pool())
}

func TestBufferPool_FIFOOrder(t *testing.T) {
	p, a := newPool(t, 4)
	var want []api.PhysicalAddress
	for i := 0; i < 4; i++ {
		b, err := p.Allocate(a, 2048)
		require.NoError(t, err)
		want = append(want, b.PhysAddr())
		require.NoError(t, b.Release())
	}
	for i := 0; i < 4; i++ {
		b, ok := p.Acquire()
		require.True(t, ok)
		assert.Equal(t, want[i], b.PhysAddr())
	}
}

func TestBufferPool_AllocateExactSize(t *testing.T) {
	p, a := newPool(t, 1)
	b, err := p.Allocate(a, 1514)
	require.NoError(t, err)
	assert.Equal(t, 1514, b.Len())
	assert.Len(t, b.Bytes(), 1514)
	assert.True(t, b.PhysAddr().IsAligned(memory.PageSize))
	assert.Equal(t, api.MMIOFlags, b.Region().Flags())

	_, err = p.Allocate(a, pool.MaxBufferSize+1)
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
	assert.Equal(t, memory.PageSize, a.InUse(), "rejected mapping is released")
}

func TestBufferPool_CapacityInvariant(t *testing.T) {
	const capacity = 8
	p, a := newPool(t, capacity)
	rng := rand.New(rand.NewSource(1))

	var out []*pool.ReceiveBuffer
	for i := 0; i < 16; i++ {
		b, err := p.Allocate(a, 256)
		require.NoError(t, err)
		out = append(out, b)
	}
	for i := 0; i < 5000; i++ {
		if rng.Intn(2) == 0 && len(out) > 0 {
			j := rng.Intn(len(out))
			b := out[j]
			err := p.Release(b)
			if p.Len() == capacity && err != nil {
				var full *pool.FullError
				require.True(t, errors.As(err, &full))
				require.Same(t, b, full.Buffer)
				continue
			}
			require.NoError(t, err)
			out = append(out[:j], out[j+1:]...)
		} else if b, ok := p.Acquire(); ok {
			out = append(out, b)
		}
		require.LessOrEqual(t, p.Len(), capacity)
		require.Equal(t, 16, len(out)+p.Len(), "no buffer is ever lost")
	}
}

func TestBufferPool_InterruptAndNormalContexts(t *testing.T) {
	const capacity, total = 64, 200
	p, a := newPool(t, capacity)

	// buffers are either idle in the pool or held by the replenisher's "ring"
	ring := make(chan *pool.ReceiveBuffer, total)
	for i := 0; i < total; i++ {
		b, err := p.Allocate(a, 128)
		require.NoError(t, err)
		ring <- b
	}

	var fullCount atomic.Int64
	var wg sync.WaitGroup
	stop := make(chan struct{})

	// reclaimer: hands completed buffers back to the pool, never blocks on it
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 20000; i++ {
			b := <-ring
			if err := b.Release(); err != nil {
				var full *pool.FullError
				if !errors.As(err, &full) {
					t.Errorf("unexpected release error: %v", err)
					return
				}
				fullCount.Add(1)
				ring <- full.Buffer
			}
		}
		close(stop)
	}()

	// replenisher: refills descriptors from the pool
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			if b, ok := p.Acquire(); ok {
				ring <- b
			} else {
				runtime.Gosched()
			}
		}
	}()
	wg.Wait()

	assert.Equal(t, total, len(ring)+p.Len())
	assert.LessOrEqual(t, p.Len(), capacity)
}

func TestBufferPool_DrainAndMetrics(t *testing.T) {
	reg := metrics.NewRegistry()
	p, a := newPool(t, 4, pool.WithName("q0"), pool.WithRegistry(reg))
	for i := 0; i < 3; i++ {
		b, err := p.Allocate(a, 1024)
		require.NoError(t, err)
		require.NoError(t, b.Release())
	}
	gauge, ok := reg.Get("pool.q0.idle").(metrics.Gauge)
	require.True(t, ok)
	assert.Equal(t, int64(3), gauge.Value())
	assert.Equal(t, int64(3), reg.Get("pool.q0.release.ok").(metrics.Counter).Count())

	n, err := p.Drain()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, 0, a.InUse())
	assert.Equal(t, "q0", p.Name())
}
