//go:build linux

package memory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-nic/api"
)

func TestDeviceMapper_SinglePage(t *testing.T) {
	d, err := NewDeviceMapper()
	if err != nil {
		t.Skipf("pagemap unavailable: %v", err)
	}
	defer d.Close()

	r, err := d.CreateContiguousMapping(1024, api.MMIOFlags)
	if errors.Is(err, api.ErrPhysAddrUnavailable) || errors.Is(err, api.ErrMappingFailed) {
		t.Skipf("device memory unavailable in this environment: %v", err)
	}
	require.NoError(t, err)
	defer r.Release()

	assert.Equal(t, PageSize, r.Size())
	assert.True(t, r.PhysAddr().IsAligned(PageSize))
	r.Bytes()[r.Size()-1] = 1
}

func TestDeviceMapper_PagemapReadFailure(t *testing.T) {
	d, err := NewDeviceMapper()
	if err != nil {
		t.Skipf("pagemap unavailable: %v", err)
	}
	require.NoError(t, d.Close())

	_, err = d.virtToPhys(0x1000)
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrPhysAddrUnavailable)
	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, api.ErrCodeInternal, apiErr.Code)
	assert.Equal(t, "0x1000", apiErr.Context["virt"])
}
