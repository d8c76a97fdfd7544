// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"fmt"
	"sync"

	"github.com/momentics/hioload-nic/api"
)

// Mapper wraps a real mapper, recording request sizes and failing on demand.
type Mapper struct {
	Inner api.Mapper

	// FailAt makes the n-th call (1-based) fail with api.ErrMappingFailed. Zero never fails.
	FailAt int

	mu    sync.Mutex
	calls int
	sizes []int
}

func (m *Mapper) CreateContiguousMapping(size int, flags api.MappingFlags) (api.Region, error) {
	m.mu.Lock()
	m.calls++
	n := m.calls
	m.sizes = append(m.sizes, size)
	m.mu.Unlock()

	if m.FailAt != 0 && n == m.FailAt {
		return nil, fmt.Errorf("%w: injected failure on call %d", api.ErrMappingFailed, n)
	}
	return m.Inner.CreateContiguousMapping(size, flags)
}

// Sizes returns the requested sizes in call order.
func (m *Mapper) Sizes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.sizes...)
}

// Calls returns the number of mapping requests seen.
func (m *Mapper) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

var _ api.Mapper = (*Mapper)(nil)
