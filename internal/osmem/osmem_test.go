package osmem

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestMapReturnsZeroedAlignedRegion(t *testing.T) {
	m := Default()

	region, err := m.Map(8 * 4096)
	require.NoError(t, err)
	require.Len(t, region, 8*4096)

	base := uintptr(unsafe.Pointer(&region[0]))
	require.Zero(t, base%4096, "region base must be page-aligned")

	for i, b := range region {
		if b != 0 {
			t.Fatalf("byte %d not zero-initialized", i)
		}
	}

	// The region must be writable end to end.
	region[0] = 1
	region[len(region)-1] = 1

	require.NoError(t, m.Unmap(region))
}

func TestUnmapEmptyIsNoop(t *testing.T) {
	require.NoError(t, Default().Unmap(nil))
}
