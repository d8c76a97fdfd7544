// File: memory/slice.go
// Package memory
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Typed, bounds-checked views of mapped regions. Used to treat a descriptor ring's
// pages as a mutable slice of hardware records.

package memory

import (
	"fmt"
	"unsafe"

	"github.com/momentics/hioload-nic/api"
)

// SliceError reports a region that cannot host the requested records.
// Region is handed back untouched so the caller can release it.
type SliceError struct {
	Region     api.Region
	Offset     int
	Count      int
	RecordSize int
	Reason     string
}

func (e *SliceError) Error() string {
	return fmt.Sprintf("%v: %d records of %d bytes at offset %d in %d-byte region: %s",
		api.ErrSliceMismatch, e.Count, e.RecordSize, e.Offset, e.Region.Size(), e.Reason)
}

func (e *SliceError) Unwrap() error { return api.ErrSliceMismatch }

// BorrowedSlice is a typed mutable view of count records of T inside a region.
// T must be a fixed-layout record without Go pointers.
type BorrowedSlice[T any] struct {
	region api.Region
	offset int
	items  []T
}

// Borrow reinterprets region bytes [offset, offset+count*sizeof(T)) as []T.
// It never returns an undersized view: on any mismatch it fails with *SliceError.
func Borrow[T any](region api.Region, offset, count int) (*BorrowedSlice[T], error) {
	var zero T
	recSize := int(unsafe.Sizeof(zero))
	fail := func(reason string) (*BorrowedSlice[T], error) {
		return nil, &SliceError{Region: region, Offset: offset, Count: count, RecordSize: recSize, Reason: reason}
	}

	if offset < 0 || count < 0 {
		return fail("negative offset or count")
	}
	if recSize == 0 {
		return fail("zero-sized record")
	}
	data := region.Bytes()
	if offset > len(data) || count > (len(data)-offset)/recSize {
		return fail("region too small")
	}
	if count == 0 {
		return &BorrowedSlice[T]{region: region, offset: offset, items: []T{}}, nil
	}
	ptr := unsafe.Pointer(&data[offset])
	if uintptr(ptr)%unsafe.Alignof(zero) != 0 {
		return fail("misaligned record start")
	}
	return &BorrowedSlice[T]{
		region: region,
		offset: offset,
		items:  unsafe.Slice((*T)(ptr), count),
	}, nil
}

// Items returns the records as a mutable slice.
func (s *BorrowedSlice[T]) Items() []T { return s.items }

// Len returns the number of records.
func (s *BorrowedSlice[T]) Len() int { return len(s.items) }

// At returns a pointer to record i.
func (s *BorrowedSlice[T]) At(i int) *T { return &s.items[i] }

// PhysAddr returns the physical address of record 0.
func (s *BorrowedSlice[T]) PhysAddr() api.PhysicalAddress {
	return s.region.PhysAddr().Add(s.offset)
}

// SizeBytes returns the byte length covered by the records.
func (s *BorrowedSlice[T]) SizeBytes() int {
	var zero T
	return len(s.items) * int(unsafe.Sizeof(zero))
}

// Region returns the underlying mapping.
func (s *BorrowedSlice[T]) Region() api.Region { return s.region }

// Release drops the view and unmaps the region.
func (s *BorrowedSlice[T]) Release() error {
	s.items = nil
	return s.region.Release()
}
