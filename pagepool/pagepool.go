// Package pagepool implements a posting bucket: an append-only, paginated
// list of vector IDs, kept entirely in memory since on-disk layout belongs
// to a separate persistence layer.
package pagepool

import "sync"

// PageSize is the number of IDs held by a single page.
const PageSize = 32

type page struct {
	ids [PageSize]uint32
	n   int
}

// Pool is an append-only, page-granular list of vector IDs. Concurrent
// Append is safe; Append never blocks Scan indefinitely (Append holds the
// write lock for a single append, Scan holds the read lock for the whole
// scan, so each waits at most for one operation of the other).
type Pool struct {
	mu    sync.RWMutex
	pages []*page
}

// New returns an empty Pool.
func New() *Pool {
	return &Pool{}
}

// Append places id into the last page, allocating a new page when full.
func (p *Pool) Append(id uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pages) == 0 || p.pages[len(p.pages)-1].n == PageSize {
		p.pages = append(p.pages, &page{})
	}
	last := p.pages[len(p.pages)-1]
	last.ids[last.n] = id
	last.n++
}

// Scan enumerates all inserted IDs in an unspecified order (page order,
// insertion order within a page).
func (p *Pool) Scan() []uint32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]uint32, 0, len(p.pages)*PageSize)
	for _, pg := range p.pages {
		out = append(out, pg.ids[:pg.n]...)
	}
	return out
}

// Contains is O(n): a diagnostic/verifier path only, not meant for the hot
// lookup path.
func (p *Pool) Contains(id uint32) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, pg := range p.pages {
		for i := 0; i < pg.n; i++ {
			if pg.ids[i] == id {
				return true
			}
		}
	}
	return false
}

// Len returns the total number of appended IDs.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := 0
	for _, pg := range p.pages {
		n += pg.n
	}
	return n
}
