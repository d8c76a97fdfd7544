// Package api
// Author: momentics
//
// Mock/testing utilities for core contracts.

package api

// MockMapper is a test-friendly Mapper driven by a function.
type MockMapper struct {
	CreateFunc func(size int, flags MappingFlags) (Region, error)
}

func (m *MockMapper) CreateContiguousMapping(size int, flags MappingFlags) (Region, error) {
	return m.CreateFunc(size, flags)
}

// MockRegion is a Region backed by caller-supplied values.
type MockRegion struct {
	Data        []byte
	Phys        PhysicalAddress
	MapFlags    MappingFlags
	ReleaseFunc func() error
}

func (r *MockRegion) Bytes() []byte             { return r.Data }
func (r *MockRegion) PhysAddr() PhysicalAddress { return r.Phys }
func (r *MockRegion) Size() int                 { return len(r.Data) }
func (r *MockRegion) Flags() MappingFlags       { return r.MapFlags }

func (r *MockRegion) Release() error {
	if r.ReleaseFunc == nil {
		return nil
	}
	return r.ReleaseFunc()
}

var (
	_ Mapper = (*MockMapper)(nil)
	_ Region = (*MockRegion)(nil)
)
