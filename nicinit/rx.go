// File: nicinit/rx.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package nicinit

import (
	"fmt"
	"math"
	"unsafe"

	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-nic/api"
	"github.com/momentics/hioload-nic/memory"
	"github.com/momentics/hioload-nic/pool"
)

// RxDescriptorOf constrains P to be a pointer to a receive descriptor record T.
type RxDescriptorOf[T any] interface {
	*T
	api.RxDescriptor
}

// FillPool initializes the receive buffer pool: it maps count fresh buffers of
// bufferSize bytes and releases each into p. It stops at the first failure.
// Buffers already inserted stay in the pool. A buffer the full pool rejected is
// unmapped, so the returned error wraps api.ErrPoolFull and carries no buffer.
func FillPool(env Env, count, bufferSize int, p *pool.BufferPool) error {
	for i := 0; i < count; i++ {
		buf, err := p.Allocate(env.Mapper, bufferSize)
		if err != nil {
			return err
		}
		if p.Release(buf) != nil {
			// if the pool is full, Release hands the buffer back to us
			env.log().WithFields(logrus.Fields{
				"pool":   p.Name(),
				"buffer": i,
				"cap":    p.Cap(),
			}).Error("rx buffer pool is full, cannot add rx buffer")
			_ = buf.Region().Release()
			return fmt.Errorf("fill pool %q at buffer %d of %d: %w", p.Name(), i, count, api.ErrPoolFull)
		}
	}
	return nil
}

// InitRxQueue creates and initializes a receive descriptor queue of numDesc records
// of type T. Each descriptor gets a buffer taken from p, or freshly mapped with
// bufferSize bytes when p is empty. The returned buffers are index-aligned with the
// descriptors: buffers[i] is the buffer descriptor i points at.
//
// Mapping failures are returned unchanged. A *memory.SliceError carries the
// descriptor mapping back to the caller.
func InitRxQueue[T any, P RxDescriptorOf[T]](env Env, numDesc int, p *pool.BufferPool, bufferSize int, regs api.RxQueueRegisters) (*memory.BorrowedSlice[T], []*pool.ReceiveBuffer, error) {
	ringBytes, err := ringSize[T](numDesc)
	if err != nil {
		return nil, nil, err
	}

	// Rx descriptors must be 128 byte-aligned, which is satisfied because the mapping
	// starts on a page boundary.
	region, err := env.Mapper.CreateContiguousMapping(ringBytes, api.MMIOFlags)
	if err != nil {
		return nil, nil, err
	}
	if err := checkAligned(region); err != nil {
		return nil, nil, err
	}

	descs, err := memory.Borrow[T](region, 0, numDesc)
	if err != nil {
		return nil, nil, err
	}

	fresh := env.counter("rx.fresh_alloc")
	bufs := make([]*pool.ReceiveBuffer, 0, numDesc)
	items := descs.Items()
	for i := range items {
		buf, ok := p.Acquire()
		if !ok {
			buf, err = p.Allocate(env.Mapper, bufferSize)
			if err != nil {
				returnBuffers(bufs)
				_ = descs.Release()
				return nil, nil, err
			}
			fresh.Inc(1)
		}
		bufs = append(bufs, buf)
		P(&items[i]).Init(buf.PhysAddr())
	}

	phys := descs.PhysAddr()
	regs.SetRDBAL(phys.Low())
	regs.SetRDBAH(phys.High())
	regs.SetRDLEN(uint32(ringBytes))
	regs.SetRDH(0)
	regs.SetRDT(0)

	env.log().WithFields(logrus.Fields{
		"descriptors": numDesc,
		"phys":        phys,
		"bytes":       ringBytes,
		"pool_idle":   p.Len(),
	}).Debug("rx queue initialized")
	return descs, bufs, nil
}

// ReplaceRxBuffer attaches fresh to descriptor i and returns the buffer it replaces.
// The descriptor address and the buffers entry change together. A nil fresh, an
// index out of range or bufs not aligned with descs fails with
// api.ErrInvalidArgument and leaves both untouched.
func ReplaceRxBuffer[T any, P RxDescriptorOf[T]](descs *memory.BorrowedSlice[T], bufs []*pool.ReceiveBuffer, i int, fresh *pool.ReceiveBuffer) (*pool.ReceiveBuffer, error) {
	switch {
	case fresh == nil:
		return nil, fmt.Errorf("%w: nil replacement buffer for descriptor %d", api.ErrInvalidArgument, i)
	case len(bufs) != descs.Len():
		return nil, fmt.Errorf("%w: %d buffers for %d descriptors", api.ErrInvalidArgument, len(bufs), descs.Len())
	case i < 0 || i >= len(bufs):
		return nil, fmt.Errorf("%w: descriptor %d out of range [0, %d)", api.ErrInvalidArgument, i, len(bufs))
	}
	old := bufs[i]
	P(descs.At(i)).Init(fresh.PhysAddr())
	bufs[i] = fresh
	return old, nil
}

func ringSize[T any](numDesc int) (int, error) {
	var zero T
	recSize := int(unsafe.Sizeof(zero))
	if numDesc < 0 || uint64(numDesc)*uint64(recSize) > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d descriptors of %d bytes", api.ErrInvalidArgument, numDesc, recSize)
	}
	return numDesc * recSize, nil
}

func checkAligned(region api.Region) error {
	if region.PhysAddr().IsAligned(api.DescriptorAlignment) {
		return nil
	}
	err := fmt.Errorf("%w: %v is not %d-byte aligned", api.ErrMisaligned, region.PhysAddr(), api.DescriptorAlignment)
	_ = region.Release()
	return err
}

// returnBuffers gives acquired buffers back after a failed bring-up. Buffers the
// pool cannot take are unmapped.
func returnBuffers(bufs []*pool.ReceiveBuffer) {
	for _, b := range bufs {
		if err := b.Release(); err != nil {
			_ = b.Region().Release()
		}
	}
}
