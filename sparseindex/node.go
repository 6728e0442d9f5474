// Package sparseindex implements a radix-4 sparse dimension tree: a lazily
// materialized tree whose nodes are addressed by dimension index, each node
// holding quantized postings and the acceleration filters that answer
// "which bucket is vector v in?" without scanning.
package sparseindex

import (
	"sync/atomic"

	"github.com/rpcpool/sparseann/fixedset"
	"github.com/rpcpool/sparseann/lazychild"
	"github.com/rpcpool/sparseann/metrics"
	"github.com/rpcpool/sparseann/pagepool"
	"github.com/rpcpool/sparseann/quantize"
)

// exclusiveKeyFilterCapacity and bitFilterCapacity are sizing hints. They
// bound memory; they are not part of the membership contract, so tests must
// not depend on them.
const exclusiveKeyFilterCapacity = 8

func bitFilterCapacity(q uint8) int {
	return int(q/2) * exclusiveKeyFilterCapacity
}

// Node owns a dimension index, its posting buckets keyed by quantized
// value, its acceleration filters, and its lazy child array.
type Node struct {
	dimIndex     uint32
	implicit     atomic.Bool
	quantization uint8

	data                []*pagepool.Pool
	exclusiveKeyFilters []*fixedset.Set
	bitFilters          []*fixedset.Set
	children            lazychild.Array[Node]
}

// DimIndex returns the absolute dimension this node represents.
func (n *Node) DimIndex() uint32 { return n.dimIndex }

// Implicit reports whether this node was lazily created during traversal
// (true) or explicitly materialized at construction (false for the root).
func (n *Node) Implicit() bool { return n.implicit.Load() }

// Quantization returns this node's Q, copied down from its parent at
// creation.
func (n *Node) Quantization() uint8 { return n.quantization }

func newNode(dimIndex uint32, implicit bool, quantization uint8) *Node {
	n := &Node{
		dimIndex:             dimIndex,
		quantization:         quantization,
		data:                make([]*pagepool.Pool, quantization),
		exclusiveKeyFilters: make([]*fixedset.Set, quantization),
		bitFilters:          make([]*fixedset.Set, quantize.Bits(quantization)),
	}
	n.implicit.Store(implicit)
	for q := range n.data {
		n.data[q] = pagepool.New()
		n.exclusiveKeyFilters[q] = fixedset.New(exclusiveKeyFilterCapacity)
	}
	for i := range n.bitFilters {
		n.bitFilters[i] = fixedset.New(bitFilterCapacity(quantization))
	}
	if implicit {
		metrics.NodesCreated.Inc()
	}
	return n
}

// Insert quantizes value and records vectorID in this node's posting
// bucket and acceleration filters. Steps need not be atomic as a group: a
// concurrent reader may observe the bucket before the filters are fully
// updated, or vice versa.
func (n *Node) Insert(value float32, vectorID uint32) error {
	q, err := quantize.Quantize(value, n.quantization)
	if err != nil {
		return err
	}
	n.data[q].Append(vectorID)
	n.exclusiveKeyFilters[q].Insert(vectorID)
	bits := quantize.Bits(n.quantization)
	for i := 0; i < bits; i++ {
		if q&(1<<uint(i)) != 0 {
			n.bitFilters[i].Insert(vectorID)
		}
	}
	return nil
}

// Child returns the existing occupant of lazy-child slot i, or nil.
func (n *Node) Child(i int) *Node {
	return n.children.Get(i)
}

// ChildOrInsert installs a child at slot i via factory if empty, under a
// "first writer wins" contract.
func (n *Node) ChildOrInsert(i int, factory func() *Node) *Node {
	return n.children.GetOrInsert(i, factory)
}

// FindKeyOf recovers the candidate quantized value from the bit filters,
// verifies it against the exclusive-key filter, and falls back to submask
// alternates in descending numeric order when the direct candidate doesn't
// verify. When no bit filter matches, the only candidate is bucket 0, which
// is checked against its exclusive-key filter. The result may be a false
// positive; callers that need exactness
// must verify against the posting bucket (ScanKeyOf, or Pool.Contains on
// the returned bucket).
func (n *Node) FindKeyOf(vectorID uint32) (uint8, bool) {
	var idx uint8
	for i := range n.bitFilters {
		if n.bitFilters[i].IsMember(vectorID) {
			idx |= 1 << uint(i)
		}
	}
	if idx == 0 {
		if n.exclusiveKeyFilters[0].IsMember(vectorID) {
			return 0, true
		}
		return 0, false
	}
	if n.exclusiveKeyFilters[idx].IsMember(vectorID) {
		return idx, true
	}
	for _, alt := range submasksDescending(idx) {
		if n.exclusiveKeyFilters[alt].IsMember(vectorID) {
			return alt, true
		}
	}
	return 0, false
}

// ScanKeyOf is the brute-force verifier: a linear scan of every posting
// bucket for vectorID, with no false positives or negatives. It is an
// explicit, always-correct alternative to the filter path.
func (n *Node) ScanKeyOf(vectorID uint32) (uint8, bool) {
	for q, bucket := range n.data {
		if bucket.Contains(vectorID) {
			return uint8(q), true
		}
	}
	return 0, false
}

// submasksDescending returns every non-zero proper submask of idx (i.e.
// idx with some non-empty subset of its set bits cleared), in descending
// numeric order. It derives the bit count from the value itself, so it
// works for any quantization width rather than a fixed bit sweep.
func submasksDescending(idx uint8) []uint8 {
	var onePositions []uint
	for pos := uint(0); pos < 8; pos++ {
		if idx&(1<<pos) != 0 {
			onePositions = append(onePositions, pos)
		}
	}
	seen := map[uint8]bool{idx: true}
	result := []uint8{idx}
	for _, pos := range onePositions {
		mask := ^(uint8(1) << pos)
		n := len(result)
		for i := 0; i < n; i++ {
			candidate := result[i] & mask
			if candidate != 0 && !seen[candidate] {
				seen[candidate] = true
				result = append(result, candidate)
			}
		}
	}
	// Drop idx itself (the caller already tried the direct candidate) and
	// sort the rest descending.
	alternates := result[1:]
	for i := 1; i < len(alternates); i++ {
		for j := i; j > 0 && alternates[j-1] < alternates[j]; j-- {
			alternates[j-1], alternates[j] = alternates[j], alternates[j-1]
		}
	}
	return alternates
}
