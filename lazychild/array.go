// Package lazychild implements a fixed-width lazy child slot array: each of
// the 16 slots holds at most one child, installed at most once, with
// "first writer wins" semantics and no reader-side locking.
package lazychild

import "sync/atomic"

// Width is the fixed fan-out of a tree node's lazy children.
const Width = 16

// Array is a fixed-width array of one-shot, atomically-installed slots.
type Array[T any] struct {
	slots [Width]atomic.Pointer[T]
}

// Get returns the current occupant of slot i, or nil if empty.
func (a *Array[T]) Get(i int) *T {
	return a.slots[i].Load()
}

// GetOrInsert returns the occupant of slot i, creating it via factory if
// the slot is empty. factory may be invoked more than once under a race,
// but exactly one result is ever retained: every caller observes the same
// winning value once the slot is installed.
func (a *Array[T]) GetOrInsert(i int, factory func() *T) *T {
	if existing := a.slots[i].Load(); existing != nil {
		return existing
	}
	candidate := factory()
	if a.slots[i].CompareAndSwap(nil, candidate) {
		return candidate
	}
	// Someone else won the race; their value is the one that sticks.
	return a.slots[i].Load()
}
