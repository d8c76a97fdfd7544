// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. Queue bring-up pins itself to the queue's
// CPU so descriptor rings and buffers are first touched on that CPU's NUMA node.
// Platform-specific implementations are guarded by build tags.

package affinity

import "runtime"

// Pin locks the calling goroutine to its OS thread and binds that thread to cpuID.
// The returned restore function undoes both. On error the goroutine is left unlocked.
func Pin(cpuID int) (restore func(), err error) {
	runtime.LockOSThread()
	prev, err := pinPlatform(cpuID)
	if err != nil {
		runtime.UnlockOSThread()
		return nil, err
	}
	return func() {
		restorePlatform(prev)
		runtime.UnlockOSThread()
	}, nil
}

// CPUFor returns the CPU assigned to queue q from cpus, round robin, or -1 when no
// CPUs are configured.
func CPUFor(cpus []int, q int) int {
	if len(cpus) == 0 || q < 0 {
		return -1
	}
	return cpus[q%len(cpus)]
}
