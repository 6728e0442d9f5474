// Package nodecache implements a process-wide node registry: given a
// reference (an offset and version in an on-disk layout this package never
// emits itself), it returns a strong reference to a materialized tree node,
// performing at most one materialization per reference even under
// concurrent callers.
//
// It is an in-memory stand-in for a file-backed node registry: for
// in-memory-only usage the cache just stores owned nodes. The backing store
// is a generic in-memory map rather than a byte-oriented cache, because lazy
// children must resolve every caller to the *same* node object, not a
// deserialized copy reconstructed from bytes.
package nodecache

import (
	"fmt"
	"sync"

	"github.com/tidwall/hashmap"
	"golang.org/x/sync/singleflight"
	"k8s.io/klog/v2"
)

// Reference identifies a lazily materialized node by its dimension index
// and a version, mirroring how an on-disk layout would address a node by
// (file offset, version). For a purely in-memory index, DimIndex alone is a
// stable, unique key.
type Reference struct {
	DimIndex uint32
	Version  uint32
}

// Registry is a thread-safe, generic node cache. Callers of TryGet that
// race on the same Reference observe exactly one materialization; losers
// block on the winner instead of invoking their own loader.
type Registry[T any] struct {
	mu sync.RWMutex
	m  *hashmap.Map[Reference, *T]
	g  singleflight.Group
}

// New returns an empty Registry.
func New[T any]() *Registry[T] {
	return &Registry[T]{m: hashmap.New[Reference, *T](0)}
}

// TryGet returns the node for ref, invoking loader at most once per ref
// across all concurrent callers. loader's error is wrapped and surfaced to
// every caller waiting on this materialization.
func (r *Registry[T]) TryGet(ref Reference, loader func() (*T, error)) (*T, error) {
	if v, ok := r.load(ref); ok {
		return v, nil
	}

	key := fmt.Sprintf("%d:%d", ref.DimIndex, ref.Version)
	v, err, _ := r.g.Do(key, func() (interface{}, error) {
		if v, ok := r.load(ref); ok {
			return v, nil
		}
		node, err := loader()
		if err != nil {
			klog.V(2).Infof("nodecache: materialization failed for %+v: %v", ref, err)
			return nil, fmt.Errorf("materialize node %+v: %w", ref, err)
		}
		r.store(ref, node)
		return node, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*T), nil
}

// Peek returns the node for ref without triggering materialization.
func (r *Registry[T]) Peek(ref Reference) (*T, bool) {
	return r.load(ref)
}

func (r *Registry[T]) load(ref Reference) (*T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.m.Get(ref)
}

func (r *Registry[T]) store(ref Reference, v *T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m.Set(ref, v)
}

// Len returns the number of materialized nodes currently cached.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.m.Len()
}
