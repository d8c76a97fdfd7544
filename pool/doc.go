// Package pool
// Author: momentics <momentics@gmail.com>
//
// Receive buffer pooling for NIC drivers.
// A BufferPool is a bounded, lock-free MPMC collection of idle, pre-mapped,
// physically-contiguous ReceiveBuffers. The interrupt-side reclaimer releases
// buffers into it and the normal-side replenisher acquires from it; neither side
// ever blocks on the other. See buffer_pool.go and receive_buffer.go.
package pool
