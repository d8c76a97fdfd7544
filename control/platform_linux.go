//go:build linux
// +build linux

// control/platform_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific debug probes: huge page availability for device memory.

package control

import (
	"os"
	"runtime"
	"strconv"
	"strings"
)

const hugePagesDir = "/sys/kernel/mm/hugepages/hugepages-2048kB/"

// RegisterPlatformProbes sets Linux-specific debug probes.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.page_size", func() any {
		return os.Getpagesize()
	})
	dp.RegisterProbe("platform.hugepages_2m", func() any {
		return map[string]int{
			"total": readSysInt(hugePagesDir + "nr_hugepages"),
			"free":  readSysInt(hugePagesDir + "free_hugepages"),
		}
	})
}

// readSysInt returns -1 when the file is missing or malformed.
func readSysInt(path string) int {
	b, err := os.ReadFile(path)
	if err != nil {
		return -1
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return -1
	}
	return n
}
