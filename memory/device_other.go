//go:build !linux

// File: memory/device_other.go
// Author: momentics <momentics@gmail.com>
//
// Device memory is only available on Linux; use Arena elsewhere.

package memory

import "github.com/momentics/hioload-nic/api"

// DeviceMapper is unavailable on this platform.
type DeviceMapper struct{}

// NewDeviceMapper always fails with api.ErrNotSupported.
func NewDeviceMapper() (*DeviceMapper, error) {
	return nil, api.ErrNotSupported
}

func (d *DeviceMapper) Close() error { return nil }

func (d *DeviceMapper) CreateContiguousMapping(int, api.MappingFlags) (api.Region, error) {
	return nil, api.ErrNotSupported
}

var _ api.Mapper = (*DeviceMapper)(nil)
