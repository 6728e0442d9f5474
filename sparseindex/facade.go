package sparseindex

import (
	"fmt"

	"github.com/rpcpool/sparseann/ingest"
	"github.com/rpcpool/sparseann/metrics"
	"github.com/rpcpool/sparseann/nodecache"
	"github.com/rpcpool/sparseann/quantize"
	"github.com/rpcpool/sparseann/radixpath"
	"k8s.io/klog/v2"
)

// Config configures index construction. The zero value is a valid,
// in-memory-only configuration: Root == "" means no property-file
// collaborator is opened, leaving the node cache as a plain in-memory,
// no-op-on-disk cache.
type Config struct {
	// Root is the directory holding the property file and (if a real
	// buffer-manager factory is later plugged in) the {version}.index
	// files. Empty means skip opening any on-disk collaborator.
	Root string

	// PropertyFile is the auxiliary file name opened under Root at
	// construction and held by the Index until Close. It is not handed to
	// the node cache. Unused when Root == "".
	PropertyFile string

	// VerifyLookups, when true, double-checks every Lookup against the
	// brute-force posting-bucket scan, logs on divergence, and returns the
	// scan's answer. Debug-only: it turns an O(1)-ish filter lookup into an
	// O(n) scan.
	VerifyLookups bool
}

// DefaultConfig returns the in-memory-only default: Root is empty, so the
// property file (named prop.data) is not opened; no lookup verification.
func DefaultConfig() Config {
	return Config{PropertyFile: "prop.data"}
}

// Index is the root node plus the external node cache, implementing
// AddSparseVector/Insert/FindNode/Lookup.
type Index struct {
	root         *Node
	quantization uint8
	cache        *nodecache.Registry[Node]
	property     *PropertyStore
	cfg          Config
}

// NewIndex constructs an index with the given quantization width (one of
// 16, 32, 64). Construction errors (bad quantization, or a storage
// collaborator that cannot be opened) are fatal.
func NewIndex(quantization uint8, cfg Config) (*Index, error) {
	if !quantize.Valid(quantization) {
		return nil, ErrInvalidQuantization
	}

	var store *PropertyStore
	if cfg.Root != "" {
		var err error
		store, err = OpenPropertyStore(cfg.Root, cfg.PropertyFile)
		if err != nil {
			return nil, err
		}
	}

	return &Index{
		root:         newNode(0, false, quantization),
		quantization: quantization,
		cache:        nodecache.New[Node](),
		property:     store,
		cfg:          cfg,
	}, nil
}

// Close releases the property-file collaborator, if one was opened.
func (idx *Index) Close() error {
	if idx.property == nil {
		return nil
	}
	return idx.property.Close()
}

// Root returns the index's root node (dim_index 0, implicit == false).
func (idx *Index) Root() *Node { return idx.root }

// Quantization returns the Q fixed at construction.
func (idx *Index) Quantization() uint8 { return idx.quantization }

// FindNode walks the path from root to dimIndex, returning the node there
// if every slot along the way is already materialized, or nil on the first
// missing slot.
func (idx *Index) FindNode(dimIndex uint32) *Node {
	path, err := radixpath.Path(dimIndex, idx.root.dimIndex)
	if err != nil {
		return nil
	}
	current := idx.root
	for _, childIdx := range path {
		current = current.Child(childIdx)
		if current == nil {
			return nil
		}
	}
	return current
}

// Insert quantizes value and records vectorID at dimIndex, creating any
// implicit ancestor nodes the path requires.
func (idx *Index) Insert(dimIndex uint32, value float32, vectorID uint32) error {
	path, err := radixpath.Path(dimIndex, idx.root.dimIndex)
	if err != nil {
		metrics.Inserts.WithLabelValues("error").Inc()
		return fmt.Errorf("insert dim %d: %w", dimIndex, err)
	}
	node, err := idx.findOrCreateDescendant(path)
	if err != nil {
		metrics.Inserts.WithLabelValues("error").Inc()
		return fmt.Errorf("insert dim %d: %w", dimIndex, err)
	}
	if err := node.Insert(value, vectorID); err != nil {
		metrics.Inserts.WithLabelValues("error").Inc()
		return err
	}
	metrics.Inserts.WithLabelValues("ok").Inc()
	return nil
}

// findOrCreateDescendant resolves each hop of path, creating implicit
// children via the lazy child array's first-writer-wins install and
// routing through the node cache so that at most one materialization
// happens per dimension even under concurrent inserts targeting siblings
// along the same path.
func (idx *Index) findOrCreateDescendant(path []int) (*Node, error) {
	current := idx.root
	for _, childIdx := range path {
		if child := current.Child(childIdx); child != nil {
			current = child
			continue
		}
		newDimIndex := current.dimIndex + radixpath.Powers[childIdx]
		quantization := current.quantization

		var materializeErr error
		child := current.ChildOrInsert(childIdx, func() *Node {
			ref := nodecache.Reference{DimIndex: newDimIndex}
			resolved, err := idx.cache.TryGet(ref, func() (*Node, error) {
				return newNode(newDimIndex, true, quantization), nil
			})
			if err != nil {
				materializeErr = err
				return newNode(newDimIndex, true, quantization)
			}
			return resolved
		})
		if materializeErr != nil {
			return nil, fmt.Errorf("%w: dim %d", ErrNodeLoadFailed, newDimIndex)
		}
		current = child
	}
	return current, nil
}

// AddSparseVector fans out insertion of every non-zero entry under a
// work-stealing pool. It never surfaces per-entry storage faults; those are
// a separate persistence layer's concern.
func (idx *Index) AddSparseVector(vec SparseVector) error {
	entries := make([]ingest.Entry, 0, len(vec.Entries))
	for _, e := range vec.Entries {
		if e.Value != 0 {
			entries = append(entries, ingest.Entry{DimIndex: e.DimIndex, Value: e.Value})
		}
	}
	if len(entries) == 0 {
		return nil
	}
	err := ingest.Run(ingest.Vector{VectorID: vec.VectorID, Entries: entries}, idx)
	if err != nil {
		klog.Warningf("sparseindex: add_sparse_vector(%d) had entry failures: %v", vec.VectorID, err)
	}
	return nil
}

// Lookup returns the quantized value vectorID has at dimIndex, following
// the acceleration-filter path. It returns false if the node doesn't exist,
// or if the filters report no match. With Config.VerifyLookups set, the
// posting-bucket scan's answer is returned instead of the filter's.
func (idx *Index) Lookup(dimIndex uint32, vectorID uint32) (uint8, bool) {
	node := idx.FindNode(dimIndex)
	if node == nil {
		metrics.Lookups.WithLabelValues("miss").Inc()
		return 0, false
	}
	q, ok := node.FindKeyOf(vectorID)
	if idx.cfg.VerifyLookups {
		scanned, scanOK := node.ScanKeyOf(vectorID)
		if scanOK != ok || (ok && scanOK && scanned != q) {
			metrics.FilterVerificationDivergence.Inc()
			klog.Warningf(
				"sparseindex: lookup divergence at dim %d id %d: filter=(%d,%v) scan=(%d,%v)",
				dimIndex, vectorID, q, ok, scanned, scanOK,
			)
		}
		ok = scanOK
		q = scanned
	}
	if ok {
		metrics.Lookups.WithLabelValues("hit").Inc()
	} else {
		metrics.Lookups.WithLabelValues("miss").Inc()
	}
	return q, ok
}
