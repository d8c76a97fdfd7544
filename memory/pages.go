// File: memory/pages.go
// Package memory
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Physically-contiguous mapped regions handed to device drivers.

package memory

import (
	"sync/atomic"

	"github.com/momentics/hioload-nic/api"
)

// PageSize is the hardware page granularity used for contiguous mappings.
const PageSize = 4096

// RoundUp rounds n up to the next multiple of align (a power of two).
func RoundUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

// PagesFor returns the number of whole pages needed to hold size bytes.
// A zero-sized request still occupies one page.
func PagesFor(size int) int {
	if size <= 0 {
		return 1
	}
	return RoundUp(size, PageSize) / PageSize
}

// MappedPages is a mapped, physically-contiguous run of whole pages.
type MappedPages struct {
	data     []byte
	phys     api.PhysicalAddress
	flags    api.MappingFlags
	release  func() error
	released atomic.Bool
}

// NewMappedPages wraps an existing mapping. release is invoked once by Release.
func NewMappedPages(data []byte, phys api.PhysicalAddress, flags api.MappingFlags, release func() error) *MappedPages {
	return &MappedPages{data: data, phys: phys, flags: flags, release: release}
}

func (m *MappedPages) Bytes() []byte                 { return m.data }
func (m *MappedPages) PhysAddr() api.PhysicalAddress { return m.phys }
func (m *MappedPages) Size() int                     { return len(m.data) }
func (m *MappedPages) Flags() api.MappingFlags       { return m.flags }

// Release unmaps the pages. A second call returns api.ErrReleased.
func (m *MappedPages) Release() error {
	if !m.released.CompareAndSwap(false, true) {
		return api.ErrReleased
	}
	if m.release == nil {
		return nil
	}
	return m.release()
}

var _ api.Region = (*MappedPages)(nil)
