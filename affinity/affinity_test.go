package affinity

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCPUFor(t *testing.T) {
	assert.Equal(t, -1, CPUFor(nil, 0))
	assert.Equal(t, -1, CPUFor([]int{1}, -1))
	cpus := []int{2, 5, 7}
	assert.Equal(t, []int{2, 5, 7, 2, 5}, []int{CPUFor(cpus, 0), CPUFor(cpus, 1), CPUFor(cpus, 2), CPUFor(cpus, 3), CPUFor(cpus, 4)})
}

func TestPin(t *testing.T) {
	if runtime.GOOS != "linux" {
		_, err := Pin(0)
		assert.Error(t, err)
		return
	}
	before, err := Current()
	require.NoError(t, err)
	require.NotEmpty(t, before)

	restore, err := Pin(before[0])
	require.NoError(t, err)
	now, err := Current()
	require.NoError(t, err)
	assert.Equal(t, []int{before[0]}, now)

	restore()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	after, err := Current()
	require.NoError(t, err)
	assert.Equal(t, before, after)

	_, err = Pin(-1)
	assert.Error(t, err)
}
