package buffer

import "corundb/storage/page"

// BasicGuard owns a pin on a page but no latch. Guards are move-only in
// spirit: callers should not copy a guard after constructing it, and must
// call Drop exactly once (Drop is idempotent to make defer safe).
type BasicGuard struct {
	bpm     *PoolManager
	pg      *page.Page
	dirty   bool
	dropped bool
}

func newBasicGuard(bpm *PoolManager, pg *page.Page) *BasicGuard {
	return &BasicGuard{bpm: bpm, pg: pg}
}

func (g *BasicGuard) Page() *page.Page { return g.pg }

// SetDirty marks the underlying page dirty; the dirty flag is sticky until
// the page is next flushed.
func (g *BasicGuard) SetDirty() { g.dirty = true }

// Drop releases the pin, propagating the accumulated dirty flag.
func (g *BasicGuard) Drop() {
	if g.dropped {
		return
	}
	g.dropped = true
	g.bpm.unpin(g.pg.ID(), g.dirty)
}

// ReadGuard adds a shared latch on top of a pin. Release order on Drop is
// latch first, then unpin, per the guard contract.
type ReadGuard struct {
	inner *BasicGuard
}

func newReadGuard(bpm *PoolManager, pg *page.Page) *ReadGuard {
	pg.RLatch()
	return &ReadGuard{inner: newBasicGuard(bpm, pg)}
}

func (g *ReadGuard) Page() *page.Page { return g.inner.pg }

func (g *ReadGuard) Drop() {
	if g.inner.dropped {
		return
	}
	g.inner.pg.RUnlatch()
	g.inner.Drop()
}

// WriteGuard adds an exclusive latch on top of a pin.
type WriteGuard struct {
	inner *BasicGuard
}

func newWriteGuard(bpm *PoolManager, pg *page.Page) *WriteGuard {
	pg.WLatch()
	return &WriteGuard{inner: newBasicGuard(bpm, pg)}
}

func (g *WriteGuard) Page() *page.Page { return g.inner.pg }

func (g *WriteGuard) SetDirty() { g.inner.SetDirty() }

func (g *WriteGuard) Drop() {
	if g.inner.dropped {
		return
	}
	g.inner.pg.WUnlatch()
	g.inner.dirty = true // a write guard's mere existence implies a possible mutation
	g.inner.Drop()
}

// Upgrade transfers a BasicGuard's pin into a WriteGuard, taking the latch.
// The original BasicGuard must no longer be used after this call.
func (g *BasicGuard) Upgrade() *WriteGuard {
	g.dropped = true // ownership of the pin transfers to the new guard
	g.pg.WLatch()
	return &WriteGuard{inner: &BasicGuard{bpm: g.bpm, pg: g.pg, dirty: g.dirty}}
}
