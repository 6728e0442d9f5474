package sparseindex_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpcpool/sparseann/quantize"
	"github.com/rpcpool/sparseann/sparseindex"
)

func TestNewIndexRejectsBadQuantization(t *testing.T) {
	_, err := sparseindex.NewIndex(7, sparseindex.DefaultConfig())
	require.ErrorIs(t, err, sparseindex.ErrInvalidQuantization)
}

func TestInsertAndLookupScenario1(t *testing.T) {
	idx, err := sparseindex.NewIndex(quantize.Q32, sparseindex.DefaultConfig())
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Insert(0, 0.5, 42))

	q, ok := idx.Lookup(0, 42)
	require.True(t, ok)
	require.Equal(t, uint8(15), q)
}

func TestInsertCreatesImplicitAncestors(t *testing.T) {
	idx, err := sparseindex.NewIndex(quantize.Q32, sparseindex.DefaultConfig())
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Insert(5, 0.25, 1))

	node := idx.FindNode(5)
	require.NotNil(t, node)
	require.Equal(t, uint32(5), node.DimIndex())
	require.True(t, node.Implicit())
}

func TestFindNodeMissingReturnsNil(t *testing.T) {
	idx, err := sparseindex.NewIndex(quantize.Q32, sparseindex.DefaultConfig())
	require.NoError(t, err)
	defer idx.Close()

	require.Nil(t, idx.FindNode(100))
}

func TestLookupMissingDimensionIsMiss(t *testing.T) {
	idx, err := sparseindex.NewIndex(quantize.Q32, sparseindex.DefaultConfig())
	require.NoError(t, err)
	defer idx.Close()

	_, ok := idx.Lookup(100, 1)
	require.False(t, ok)
}

func TestAddSparseVectorSkipsZeroEntries(t *testing.T) {
	idx, err := sparseindex.NewIndex(quantize.Q32, sparseindex.DefaultConfig())
	require.NoError(t, err)
	defer idx.Close()

	vec := sparseindex.SparseVector{
		VectorID: 1,
		Entries: []sparseindex.Entry{
			{DimIndex: 0, Value: 0},
			{DimIndex: 3, Value: 0.75},
		},
	}
	require.NoError(t, idx.AddSparseVector(vec))

	// Dim 0 is the root, which always exists; the skipped entry must have
	// left no posting there.
	_, recorded := idx.FindNode(0).ScanKeyOf(1)
	require.False(t, recorded)
	require.NotNil(t, idx.FindNode(3))
}

func TestAddSparseVectorParallelManyEntries(t *testing.T) {
	idx, err := sparseindex.NewIndex(quantize.Q64, sparseindex.DefaultConfig())
	require.NoError(t, err)
	defer idx.Close()

	const n = 1000
	entries := make([]sparseindex.Entry, n)
	for i := 0; i < n; i++ {
		entries[i] = sparseindex.Entry{DimIndex: uint32(i), Value: float32(i%64) / 63}
	}
	require.NoError(t, idx.AddSparseVector(sparseindex.SparseVector{VectorID: 99, Entries: entries}))

	for i := 0; i < n; i++ {
		_, ok := idx.Lookup(uint32(i), 99)
		// Entries with i%64 == 0 have value 0 and are skipped by AddSparseVector.
		require.Equal(t, i%64 != 0, ok, "dim %d must be discoverable after parallel add iff its value is non-zero", i)
	}
}

func TestVerifyLookupsCatchesFilterDivergence(t *testing.T) {
	cfg := sparseindex.DefaultConfig()
	cfg.VerifyLookups = true
	idx, err := sparseindex.NewIndex(quantize.Q16, cfg)
	require.NoError(t, err)
	defer idx.Close()

	for i := uint32(0); i < 64; i++ {
		require.NoError(t, idx.Insert(0, float32(i%16)/15, i))
	}

	for i := uint32(0); i < 64; i++ {
		q, ok := idx.Lookup(0, i)
		require.True(t, ok)
		scanned, scanOK := idx.FindNode(0).ScanKeyOf(i)
		require.True(t, scanOK)
		require.Equal(t, scanned, q, "verified lookup must always match the scan")
	}
}

func TestDirectInsertOfZeroValueRecordsBucketZero(t *testing.T) {
	idx, err := sparseindex.NewIndex(quantize.Q32, sparseindex.DefaultConfig())
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Insert(0, 0.0, 1))
	q, ok := idx.Lookup(0, 1)
	require.True(t, ok)
	require.Equal(t, uint8(0), q)
}

func TestAddSparseVectorScenario3ZeroValueAtLargeDimension(t *testing.T) {
	idx, err := sparseindex.NewIndex(quantize.Q64, sparseindex.DefaultConfig())
	require.NoError(t, err)
	defer idx.Close()

	vec := sparseindex.SparseVector{
		VectorID: 99,
		Entries:  []sparseindex.Entry{{DimIndex: 21845, Value: 0.0}},
	}
	require.NoError(t, idx.AddSparseVector(vec))
	require.Nil(t, idx.FindNode(21845))
}

func TestLookupScenario2PathDecomposition(t *testing.T) {
	idx, err := sparseindex.NewIndex(quantize.Q64, sparseindex.DefaultConfig())
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Insert(5, 1.0, 7))

	root := idx.Root()
	child1 := root.Child(1)
	require.NotNil(t, child1)
	require.Equal(t, uint32(4), child1.DimIndex())

	child0 := child1.Child(0)
	require.NotNil(t, child0)
	require.Equal(t, uint32(5), child0.DimIndex())
	require.Same(t, child0, idx.FindNode(5))

	q, ok := idx.Lookup(5, 7)
	require.True(t, ok)
	require.Equal(t, uint8(63), q)
}

func TestOpenPropertyStoreOpensRealFile(t *testing.T) {
	dir := t.TempDir()
	cfg := sparseindex.Config{Root: dir, PropertyFile: "prop.data"}
	idx, err := sparseindex.NewIndex(quantize.Q32, cfg)
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Insert(0, 0.5, 1))
	q, ok := idx.Lookup(0, 1)
	require.True(t, ok)
	require.Equal(t, uint8(15), q)
}
