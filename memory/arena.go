// File: memory/arena.go
// Package memory
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Arena is a simulated physical memory: it hands out page-aligned, stable "physical"
// addresses backed by ordinary Go memory. It lets the ring initializers run without
// device access (tests, bring-up rehearsal, emulated NICs).

package memory

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/eapache/queue"

	"github.com/momentics/hioload-nic/api"
)

// DefaultArenaBase is the first simulated physical address (above 4 GiB so the
// high base-address register is exercised).
const DefaultArenaBase api.PhysicalAddress = 0x1_0000_0000

type arenaFrame struct {
	phys  api.PhysicalAddress
	words []uint64
}

func (f *arenaFrame) bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(&f.words[0])), len(f.words)*8)
}

// Arena implements api.Mapper over simulated physical memory.
type Arena struct {
	mu       sync.Mutex
	next     api.PhysicalAddress
	limit    int
	inUse    int
	mappings uint64
	free     map[int]*queue.Queue // page count -> released frames, reused FIFO
	resident map[api.PhysicalAddress]*arenaFrame
}

// NewArena creates an arena starting at base (rounded up to a page). limit bounds
// the bytes mapped at once; zero means unlimited.
func NewArena(base api.PhysicalAddress, limit int) *Arena {
	b := api.PhysicalAddress(RoundUp(int(base), PageSize))
	if b == 0 {
		// physical page zero is never handed to a device
		b = PageSize
	}
	return &Arena{
		next:     b,
		limit:    limit,
		free:     make(map[int]*queue.Queue),
		resident: make(map[api.PhysicalAddress]*arenaFrame),
	}
}

// CreateContiguousMapping maps whole pages covering size bytes.
func (a *Arena) CreateContiguousMapping(size int, flags api.MappingFlags) (api.Region, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: negative mapping size %d", api.ErrInvalidArgument, size)
	}
	pages := PagesFor(size)
	length := pages * PageSize

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.limit > 0 && a.inUse+length > a.limit {
		return nil, api.NewError(api.ErrCodeResourceExhausted, "arena exhausted", api.ErrMappingFailed).
			WithContext("requested", length).
			WithContext("in_use", a.inUse).
			WithContext("limit", a.limit)
	}

	var frame *arenaFrame
	if q, ok := a.free[pages]; ok && q.Length() > 0 {
		frame = q.Remove().(*arenaFrame)
		clear(frame.words)
	} else {
		frame = &arenaFrame{phys: a.next, words: make([]uint64, length/8)}
		a.next = a.next.Add(length)
	}
	a.inUse += length
	a.mappings++
	a.resident[frame.phys] = frame

	return NewMappedPages(frame.bytes(), frame.phys, flags, func() error {
		a.unmap(frame, pages)
		return nil
	}), nil
}

func (a *Arena) unmap(frame *arenaFrame, pages int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.resident, frame.phys)
	a.inUse -= pages * PageSize
	q, ok := a.free[pages]
	if !ok {
		q = queue.New()
		a.free[pages] = q
	}
	q.Add(frame)
}

// Resolve returns the mapped bytes starting at phys, if phys lies in a live mapping.
// It stands in for a device's DMA engine reading or writing host memory.
func (a *Arena) Resolve(phys api.PhysicalAddress, n int) ([]byte, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for base, f := range a.resident {
		if phys < base {
			continue
		}
		off := int(phys - base)
		b := f.bytes()
		if off+n <= len(b) {
			return b[off : off+n], true
		}
	}
	return nil, false
}

// InUse returns the number of bytes currently mapped.
func (a *Arena) InUse() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inUse
}

// Mappings returns the number of mappings created so far.
func (a *Arena) Mappings() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mappings
}

var _ api.Mapper = (*Arena)(nil)
