// File: pool/buffer_pool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Bounded lock-free receive buffer pool. Acquire never allocates; callers fall back
// to Allocate when the pool is empty.

package pool

import (
	"errors"
	"fmt"

	"github.com/rcrowley/go-metrics"

	"github.com/momentics/hioload-nic/api"
	"github.com/momentics/hioload-nic/internal/concurrency"
)

// FullError is returned by Release when the pool is at capacity.
// Buffer is handed back to the caller; dropping it leaks its mapping.
type FullError struct {
	Buffer *ReceiveBuffer
	Cap    int
}

func (e *FullError) Error() string {
	return fmt.Sprintf("%v: capacity %d, rejected %v", api.ErrPoolFull, e.Cap, e.Buffer)
}

func (e *FullError) Unwrap() error { return api.ErrPoolFull }

// Option customizes pool construction.
type Option func(*BufferPool)

// WithName sets the metric prefix (pool.<name>.*). Defaults to "rx".
func WithName(name string) Option {
	return func(p *BufferPool) {
		p.name = name
	}
}

// WithRegistry publishes pool metrics to r instead of a private registry.
func WithRegistry(r metrics.Registry) Option {
	return func(p *BufferPool) {
		p.registry = r
	}
}

// Stats is a snapshot of pool accounting.
type Stats struct {
	Capacity      int
	Idle          int
	AcquireHits   int64
	AcquireMisses int64
	Releases      int64
	ReleaseFull   int64
}

// BufferPool holds idle ReceiveBuffers. Acquire and Release are lock-free and may
// be called concurrently from any number of contexts.
type BufferPool struct {
	name     string
	registry metrics.Registry
	queue    *concurrency.LockFreeQueue[*ReceiveBuffer]

	hits, misses, releases, full metrics.Counter
}

// NewBufferPool creates an empty pool holding at most capacity buffers.
func NewBufferPool(capacity int, opts ...Option) (*BufferPool, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: pool capacity %d", api.ErrInvalidArgument, capacity)
	}
	p := &BufferPool{
		name:  "rx",
		queue: concurrency.NewLockFreeQueue[*ReceiveBuffer](capacity),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.registry == nil {
		p.registry = metrics.NewRegistry()
	}
	prefix := "pool." + p.name + "."
	p.hits = metrics.GetOrRegisterCounter(prefix+"acquire.hit", p.registry)
	p.misses = metrics.GetOrRegisterCounter(prefix+"acquire.miss", p.registry)
	p.releases = metrics.GetOrRegisterCounter(prefix+"release.ok", p.registry)
	p.full = metrics.GetOrRegisterCounter(prefix+"release.full", p.registry)
	p.registry.GetOrRegister(prefix+"idle", metrics.NewFunctionalGauge(func() int64 {
		return int64(p.queue.Len())
	}))
	return p, nil
}

// Name returns the pool's metric name.
func (p *BufferPool) Name() string { return p.name }

// Acquire removes one idle buffer. ok is false when the pool is empty, which is a
// normal condition.
func (p *BufferPool) Acquire() (buf *ReceiveBuffer, ok bool) {
	buf, ok = p.queue.Dequeue()
	if !ok {
		p.misses.Inc(1)
		return nil, false
	}
	buf.idle.Store(false)
	p.hits.Inc(1)
	return buf, true
}

// Release returns buf to the pool. It fails with *FullError when the pool is at
// capacity, with api.ErrBufferIdle if buf is already in a pool, and with
// api.ErrInvalidArgument if buf belongs to another pool.
func (p *BufferPool) Release(buf *ReceiveBuffer) error {
	if buf == nil {
		return fmt.Errorf("%w: nil buffer", api.ErrInvalidArgument)
	}
	if buf.pool != p {
		return fmt.Errorf("%w: %v belongs to pool %q, not %q", api.ErrInvalidArgument, buf, buf.pool.Name(), p.name)
	}
	if !buf.idle.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: %v", api.ErrBufferIdle, buf)
	}
	if !p.queue.Enqueue(buf) {
		buf.idle.Store(false)
		p.full.Inc(1)
		return &FullError{Buffer: buf, Cap: p.queue.Cap()}
	}
	p.releases.Inc(1)
	return nil
}

// Allocate maps a fresh buffer of exactly size bytes bound to this pool. The buffer
// is checked out; it enters the pool on Release.
func (p *BufferPool) Allocate(m api.Mapper, size int) (*ReceiveBuffer, error) {
	region, err := m.CreateContiguousMapping(size, api.MMIOFlags)
	if err != nil {
		return nil, err
	}
	buf, err := NewReceiveBuffer(region, size, p)
	if err != nil {
		_ = region.Release()
		return nil, err
	}
	return buf, nil
}

// Len returns the number of idle buffers.
func (p *BufferPool) Len() int { return p.queue.Len() }

// Cap returns the fixed capacity.
func (p *BufferPool) Cap() int { return p.queue.Cap() }

// Stats returns a snapshot of pool counters.
func (p *BufferPool) Stats() Stats {
	return Stats{
		Capacity:      p.queue.Cap(),
		Idle:          p.queue.Len(),
		AcquireHits:   p.hits.Count(),
		AcquireMisses: p.misses.Count(),
		Releases:      p.releases.Count(),
		ReleaseFull:   p.full.Count(),
	}
}

// Registry returns the metrics registry the pool publishes to.
func (p *BufferPool) Registry() metrics.Registry { return p.registry }

// Drain removes every idle buffer and unmaps it. Used at device teardown.
func (p *BufferPool) Drain() (int, error) {
	var errs []error
	n := 0
	for {
		buf, ok := p.queue.Dequeue()
		if !ok {
			break
		}
		n++
		if err := buf.region.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	return n, errors.Join(errs...)
}
