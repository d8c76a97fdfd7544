// File: api/memory.go
// Package api
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Contracts consumed from the memory-management collaborator: physically-contiguous
// mapped regions and the mapper that produces them.

package api

import "fmt"

// PhysicalAddress is a bus/physical address as seen by a DMA-capable device.
type PhysicalAddress uint64

// Value returns the raw address.
func (p PhysicalAddress) Value() uint64 { return uint64(p) }

// Low returns the lower 32 bits, as written into a base-address-low register.
func (p PhysicalAddress) Low() uint32 { return uint32(p) }

// High returns the upper 32 bits, as written into a base-address-high register.
func (p PhysicalAddress) High() uint32 { return uint32(p >> 32) }

// IsAligned reports whether the address is a multiple of align (a power of two).
func (p PhysicalAddress) IsAligned(align uint64) bool {
	return align == 0 || uint64(p)&(align-1) == 0
}

// Add returns the address offset by n bytes.
func (p PhysicalAddress) Add(n int) PhysicalAddress { return p + PhysicalAddress(n) }

func (p PhysicalAddress) String() string { return fmt.Sprintf("%#x", uint64(p)) }

// MappingFlags are page-table attributes requested for a mapping.
type MappingFlags uint32

const (
	FlagWritable MappingFlags = 1 << iota
	FlagNoCache
	FlagWriteThrough
	FlagHugePage
)

// MMIOFlags marks a region as device memory: writable, uncached, write-through.
const MMIOFlags = FlagWritable | FlagNoCache | FlagWriteThrough

// IsDevice reports whether the flags describe uncached device memory.
func (f MappingFlags) IsDevice() bool { return f&FlagNoCache != 0 }

// Region is one physically-contiguous region mapped into the kernel address space.
// The physical address is stable for the lifetime of the region.
type Region interface {
	// Bytes returns the mapped memory. Backing storage is at least 8-byte aligned.
	Bytes() []byte

	// PhysAddr returns the physical address of the first byte.
	PhysAddr() PhysicalAddress

	// Size returns the mapped length in bytes (a whole number of pages).
	Size() int

	// Flags returns the attributes the region was mapped with.
	Flags() MappingFlags

	// Release unmaps the region. The region must not be used afterwards.
	Release() error
}

// Mapper allocates physically-contiguous mapped regions.
type Mapper interface {
	// CreateContiguousMapping maps at least size bytes of physically-contiguous memory
	// with the given flags. The returned region starts on a page boundary.
	CreateContiguousMapping(size int, flags MappingFlags) (Region, error)
}
