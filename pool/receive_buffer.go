// File: pool/receive_buffer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/momentics/hioload-nic/api"
)

// MaxBufferSize is the largest receive buffer a 16-bit descriptor length field can describe.
const MaxBufferSize = math.MaxUint16

// ReceiveBuffer owns one physically-contiguous region a NIC receives into.
// Releasing it returns it to the pool it was bound to at creation.
type ReceiveBuffer struct {
	region api.Region
	phys   api.PhysicalAddress
	length int
	pool   *BufferPool
	idle   atomic.Bool
}

// NewReceiveBuffer wraps region as a checked-out buffer of length bytes bound to pool.
func NewReceiveBuffer(region api.Region, length int, pool *BufferPool) (*ReceiveBuffer, error) {
	switch {
	case region == nil:
		return nil, fmt.Errorf("%w: nil region", api.ErrInvalidArgument)
	case pool == nil:
		return nil, fmt.Errorf("%w: receive buffer needs an origin pool", api.ErrInvalidArgument)
	case length <= 0 || length > MaxBufferSize:
		return nil, fmt.Errorf("%w: buffer length %d out of range (1..%d)", api.ErrInvalidArgument, length, MaxBufferSize)
	case length > region.Size():
		return nil, fmt.Errorf("%w: buffer length %d exceeds %d-byte region", api.ErrInvalidArgument, length, region.Size())
	}
	return &ReceiveBuffer{
		region: region,
		phys:   region.PhysAddr(),
		length: length,
		pool:   pool,
	}, nil
}

// PhysAddr returns the physical address programmed into receive descriptors.
func (b *ReceiveBuffer) PhysAddr() api.PhysicalAddress { return b.phys }

// Bytes returns the buffer contents (exactly Len bytes).
func (b *ReceiveBuffer) Bytes() []byte { return b.region.Bytes()[:b.length] }

// Len returns the buffer size in bytes.
func (b *ReceiveBuffer) Len() int { return b.length }

// Pool returns the pool this buffer returns to.
func (b *ReceiveBuffer) Pool() *BufferPool { return b.pool }

// Region returns the underlying mapping.
func (b *ReceiveBuffer) Region() api.Region { return b.region }

// Release returns the buffer to its origin pool. On *FullError the buffer was not
// accepted and still belongs to the caller.
func (b *ReceiveBuffer) Release() error {
	return b.pool.Release(b)
}

func (b *ReceiveBuffer) String() string {
	return fmt.Sprintf("rxbuf{phys=%v len=%d}", b.phys, b.length)
}
