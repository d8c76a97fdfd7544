//go:build linux

// File: memory/device_linux.go
// Package memory
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// DeviceMapper maps locked, populated anonymous memory and resolves its physical
// address through /proc/self/pagemap (requires CAP_SYS_ADMIN). Regions larger than a
// page come from huge pages, which are physically contiguous.

package memory

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-nic/api"
)

const (
	pagemapEntrySize = 8
	pagemapPresent   = 1 << 63
	pagemapPFNMask   = (1 << 55) - 1

	// DefaultHugePageSize is the x86-64 2 MiB huge page.
	DefaultHugePageSize = 2 << 20
)

// DeviceMapper allocates DMA-capable memory from the running kernel.
type DeviceMapper struct {
	mu           sync.Mutex
	pagemap      *os.File
	osPageSize   int
	hugePageSize int
}

// NewDeviceMapper opens the pagemap of the current process.
func NewDeviceMapper() (*DeviceMapper, error) {
	f, err := os.Open("/proc/self/pagemap")
	if err != nil {
		return nil, fmt.Errorf("open pagemap: %w", err)
	}
	return &DeviceMapper{
		pagemap:      f,
		osPageSize:   unix.Getpagesize(),
		hugePageSize: DefaultHugePageSize,
	}, nil
}

// Close releases the pagemap handle. Existing mappings stay valid.
func (d *DeviceMapper) Close() error {
	return d.pagemap.Close()
}

// CreateContiguousMapping maps size bytes of locked memory and returns its physical base.
func (d *DeviceMapper) CreateContiguousMapping(size int, flags api.MappingFlags) (api.Region, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: negative mapping size %d", api.ErrInvalidArgument, size)
	}
	length := PagesFor(size) * PageSize
	mflags := unix.MAP_SHARED | unix.MAP_ANONYMOUS | unix.MAP_POPULATE | unix.MAP_LOCKED
	if length > d.osPageSize || flags&api.FlagHugePage != 0 {
		mflags |= unix.MAP_HUGETLB
		length = RoundUp(length, d.hugePageSize)
	}

	data, err := unix.Mmap(-1, 0, length, unix.PROT_READ|unix.PROT_WRITE, mflags)
	if err != nil {
		return nil, api.NewError(api.ErrCodeResourceExhausted, "mmap failed", fmt.Errorf("%w: %w", api.ErrMappingFailed, err)).
			WithContext("length", length)
	}
	unmap := func() error { return unix.Munmap(data) }

	virt := uintptr(unsafe.Pointer(&data[0]))
	phys, err := d.virtToPhys(virt)
	if err != nil {
		_ = unmap()
		return nil, err
	}
	for off := d.osPageSize; off < length; off += d.osPageSize {
		p, err := d.virtToPhys(virt + uintptr(off))
		if err != nil {
			_ = unmap()
			return nil, err
		}
		if p != phys.Add(off) {
			_ = unmap()
			return nil, fmt.Errorf("%w: page at offset %d maps to %v, want %v", api.ErrNotContiguous, off, p, phys.Add(off))
		}
	}
	return NewMappedPages(data, phys, flags, unmap), nil
}

func (d *DeviceMapper) virtToPhys(virt uintptr) (api.PhysicalAddress, error) {
	var buf [pagemapEntrySize]byte
	d.mu.Lock()
	_, err := d.pagemap.ReadAt(buf[:], int64(virt/uintptr(d.osPageSize))*pagemapEntrySize)
	d.mu.Unlock()
	if err != nil {
		return 0, api.NewError(api.ErrCodeInternal, "read pagemap", fmt.Errorf("%w: %w", api.ErrPhysAddrUnavailable, err)).
			WithContext("virt", fmt.Sprintf("%#x", virt))
	}
	entry := binary.LittleEndian.Uint64(buf[:])
	pfn := entry & pagemapPFNMask
	if entry&pagemapPresent == 0 || pfn == 0 {
		// PFNs read as zero without CAP_SYS_ADMIN
		return 0, api.ErrPhysAddrUnavailable
	}
	return api.PhysicalAddress(pfn*uint64(d.osPageSize) + uint64(virt)%uint64(d.osPageSize)), nil
}

var _ api.Mapper = (*DeviceMapper)(nil)
