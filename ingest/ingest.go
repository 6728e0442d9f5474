// Package ingest drives insertion of every non-zero entry of a sparse
// vector, fanning out across entries under a work-stealing execution
// discipline. It depends only on an Inserter interface, not on the concrete
// index type, so it composes with sparseindex.Index without an import
// cycle.
package ingest

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	concurrently "github.com/tejzpr/ordered-concurrently/v3"
	"k8s.io/klog/v2"
)

// Entry is one non-zero (dimension, weight) pair.
type Entry struct {
	DimIndex uint32
	Value    float32
}

// Vector is the unit of work fanned out by Run.
type Vector struct {
	VectorID uint32
	Entries  []Entry
}

// Inserter is anything that can record (dim, value, vectorID) at the
// storage layer. sparseindex.Index satisfies this structurally.
type Inserter interface {
	Insert(dimIndex uint32, value float32, vectorID uint32) error
}

// parallelThreshold is the smallest entry count Run will hand to the
// worker pool. Below it, spawning pool workers costs more than just doing
// the inserts on the calling goroutine.
const parallelThreshold = 8

// Run processes every entry of vec. Entries within a single vector may be
// processed in any order and never block on each other — they target
// independent or only loosely-contended nodes. Per-entry failures are
// collected into a single aggregated error; Run still attempts every entry
// regardless of earlier failures.
func Run(vec Vector, ins Inserter) error {
	if len(vec.Entries) < parallelThreshold {
		return runSequential(vec, ins)
	}
	return runPooled(vec, ins)
}

func runSequential(vec Vector, ins Inserter) error {
	var errs []error
	for _, e := range vec.Entries {
		if err := ins.Insert(e.DimIndex, e.Value, vec.VectorID); err != nil {
			errs = append(errs, fmt.Errorf("dim %d: %w", e.DimIndex, err))
		}
	}
	return joinErrors(vec.VectorID, errs)
}

type insertTask struct {
	entry    Entry
	vectorID uint32
	ins      Inserter
}

func (t insertTask) Run(ctx context.Context) interface{} {
	if err := t.ins.Insert(t.entry.DimIndex, t.entry.Value, t.vectorID); err != nil {
		return fmt.Errorf("dim %d: %w", t.entry.DimIndex, err)
	}
	return nil
}

// runPooled drives insertion through a work-stealing pool of
// runtime.NumCPU() workers.
func runPooled(vec Vector, ins Inserter) error {
	numWorkers := runtime.NumCPU()
	if numWorkers > len(vec.Entries) {
		numWorkers = len(vec.Entries)
	}

	inputChan := make(chan concurrently.WorkFunction, len(vec.Entries))
	outputChan := concurrently.Process(context.Background(), inputChan, &concurrently.Options{
		PoolSize:         numWorkers,
		OutChannelBuffer: numWorkers,
	})

	var mu sync.Mutex
	var errs []error
	done := make(chan struct{})
	go func() {
		defer close(done)
		for result := range outputChan {
			if err, ok := result.Value.(error); ok && err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}
	}()

	for _, e := range vec.Entries {
		inputChan <- insertTask{entry: e, vectorID: vec.VectorID, ins: ins}
	}
	close(inputChan)
	<-done

	return joinErrors(vec.VectorID, errs)
}

func joinErrors(vectorID uint32, errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	klog.V(2).Infof("ingest: vector %d had %d entry failures", vectorID, len(errs))
	msg := fmt.Sprintf("vector %d: %d of its entries failed to insert: ", vectorID, len(errs))
	for i, err := range errs {
		if i > 0 {
			msg += "; "
		}
		msg += err.Error()
	}
	return fmt.Errorf("%s", msg)
}
