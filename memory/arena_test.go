package memory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-nic/api"
)

func TestArena_PageAlignedAndDistinct(t *testing.T) {
	a := NewArena(DefaultArenaBase, 0)

	r1, err := a.CreateContiguousMapping(2048, api.MMIOFlags)
	require.NoError(t, err)
	r2, err := a.CreateContiguousMapping(3*PageSize+1, api.MMIOFlags)
	require.NoError(t, err)
	r3, err := a.CreateContiguousMapping(0, api.MMIOFlags)
	require.NoError(t, err)

	for _, r := range []api.Region{r1, r2, r3} {
		assert.True(t, r.PhysAddr().IsAligned(PageSize), "%v not page aligned", r.PhysAddr())
		assert.True(t, r.PhysAddr().IsAligned(api.DescriptorAlignment))
		assert.Equal(t, api.MMIOFlags, r.Flags())
	}
	assert.Equal(t, PageSize, r1.Size())
	assert.Equal(t, 4*PageSize, r2.Size())
	assert.Equal(t, PageSize, r3.Size(), "zero-sized mapping occupies one page")

	assert.Equal(t, DefaultArenaBase, r1.PhysAddr())
	assert.Equal(t, r1.PhysAddr().Add(PageSize), r2.PhysAddr())
	assert.Equal(t, r2.PhysAddr().Add(4*PageSize), r3.PhysAddr())
	assert.Equal(t, 6*PageSize, a.InUse())
}

func TestArena_ReleaseReusesFramesFIFO(t *testing.T) {
	a := NewArena(0, 0)
	r1, err := a.CreateContiguousMapping(PageSize, 0)
	require.NoError(t, err)
	r2, err := a.CreateContiguousMapping(PageSize, 0)
	require.NoError(t, err)
	p1, p2 := r1.PhysAddr(), r2.PhysAddr()
	assert.Equal(t, api.PhysicalAddress(PageSize), p1, "page zero is skipped")

	r1.Bytes()[0] = 0xAB
	require.NoError(t, r1.Release())
	require.NoError(t, r2.Release())
	assert.ErrorIs(t, r1.Release(), api.ErrReleased)
	assert.Equal(t, 0, a.InUse())

	r3, err := a.CreateContiguousMapping(10, 0)
	require.NoError(t, err)
	r4, err := a.CreateContiguousMapping(10, 0)
	require.NoError(t, err)
	assert.Equal(t, p1, r3.PhysAddr())
	assert.Equal(t, p2, r4.PhysAddr())
	assert.Equal(t, byte(0), r3.Bytes()[0], "reused frames are zeroed")
	assert.Equal(t, uint64(4), a.Mappings())
}

func TestArena_Limit(t *testing.T) {
	a := NewArena(DefaultArenaBase, 2*PageSize)
	_, err := a.CreateContiguousMapping(PageSize, 0)
	require.NoError(t, err)
	_, err = a.CreateContiguousMapping(PageSize+1, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrMappingFailed)

	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, api.ErrCodeResourceExhausted, apiErr.Code)

	_, err = a.CreateContiguousMapping(-1, 0)
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestArena_Resolve(t *testing.T) {
	a := NewArena(DefaultArenaBase, 0)
	r, err := a.CreateContiguousMapping(2*PageSize, 0)
	require.NoError(t, err)

	b, ok := a.Resolve(r.PhysAddr().Add(PageSize+8), 4)
	require.True(t, ok)
	copy(b, []byte{1, 2, 3, 4})
	assert.Equal(t, []byte{1, 2, 3, 4}, r.Bytes()[PageSize+8:PageSize+12])

	_, ok = a.Resolve(r.PhysAddr().Add(2*PageSize-2), 4)
	assert.False(t, ok, "range crossing the end of the mapping")

	require.NoError(t, r.Release())
	_, ok = a.Resolve(r.PhysAddr(), 1)
	assert.False(t, ok)
}
