//go:build !linux
// +build !linux

// File: affinity/affinity_other.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for platforms without thread affinity support.

package affinity

import (
	"fmt"

	"github.com/momentics/hioload-nic/api"
)

type cpuMask struct{}

func pinPlatform(cpuID int) (*cpuMask, error) {
	return nil, fmt.Errorf("affinity: pin cpu %d: %w", cpuID, api.ErrNotSupported)
}

func restorePlatform(*cpuMask) {}

// Current is not supported on this platform.
func Current() ([]int, error) {
	return nil, fmt.Errorf("affinity: %w", api.ErrNotSupported)
}
