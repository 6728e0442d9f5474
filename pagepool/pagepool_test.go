package pagepool_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpcpool/sparseann/pagepool"
)

func TestAppendAndScan(t *testing.T) {
	p := pagepool.New()
	for i := uint32(0); i < 10; i++ {
		p.Append(i)
	}
	require.Equal(t, 10, p.Len())
	require.ElementsMatch(t, []uint32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, p.Scan())
}

func TestAppendAcrossPageBoundary(t *testing.T) {
	p := pagepool.New()
	total := pagepool.PageSize*2 + 5
	for i := 0; i < total; i++ {
		p.Append(uint32(i))
	}
	require.Equal(t, total, p.Len())
	require.True(t, p.Contains(uint32(total-1)))
}

func TestContainsMissing(t *testing.T) {
	p := pagepool.New()
	p.Append(1)
	require.False(t, p.Contains(2))
	require.True(t, p.Contains(1))
}

func TestEmptyPool(t *testing.T) {
	p := pagepool.New()
	require.Equal(t, 0, p.Len())
	require.Empty(t, p.Scan())
	require.False(t, p.Contains(0))
}
