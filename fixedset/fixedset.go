// Package fixedset implements a compact, approximate membership set over
// 32-bit vector IDs: a fixed-capacity structure that never reports a false
// negative but may report false positives.
//
// The set is a plain bit array addressed by xxHash(id) mod capacity, guarded
// by a reader/writer lock around write-guarded inserts.
package fixedset

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// minWords is the smallest backing array size, in 64-bit words, so that a
// capacity hint of a handful of bits still gets a usable spread.
const minWords = 1

// Set is a fixed-capacity, concurrency-safe approximate membership set.
type Set struct {
	mu    sync.RWMutex
	bits  []uint64
	nbits uint64
}

// New returns a Set sized from a capacity hint (the expected number of
// distinct members). The backing storage is proportional to capacityHint,
// not to the universe of possible IDs.
func New(capacityHint int) *Set {
	if capacityHint < 1 {
		capacityHint = 1
	}
	// A handful of bits per expected member keeps false-positive rates low
	// without needing a configurable hash count.
	words := (capacityHint*8 + 63) / 64
	if words < minWords {
		words = minWords
	}
	return &Set{
		bits:  make([]uint64, words),
		nbits: uint64(words) * 64,
	}
}

func (s *Set) slot(id uint32) (word int, mask uint64) {
	var buf [4]byte
	buf[0] = byte(id)
	buf[1] = byte(id >> 8)
	buf[2] = byte(id >> 16)
	buf[3] = byte(id >> 24)
	h := xxhash.Sum64(buf[:]) % s.nbits
	return int(h / 64), uint64(1) << (h % 64)
}

// Insert records id as (possibly) a member. Idempotent.
func (s *Set) Insert(id uint32) {
	word, mask := s.slot(id)
	s.mu.Lock()
	s.bits[word] |= mask
	s.mu.Unlock()
}

// IsMember returns false with no false negatives for never-inserted IDs; it
// may return true for an ID that was never inserted (false positive).
func (s *Set) IsMember(id uint32) bool {
	word, mask := s.slot(id)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bits[word]&mask != 0
}
