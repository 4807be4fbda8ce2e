package table

import "corundb/storage/page"

// Iterator walks a Heap's pages forward, yielding every physical slot
// (including tombstoned/deleted ones; visibility is the transaction
// manager's concern, not the heap's).
type Iterator struct {
	h          *Heap
	curPageID  page.ID
	curSlot    int
	slotsOnPag int
	done       bool
}

func NewIterator(h *Heap) *Iterator {
	it := &Iterator{h: h, curPageID: h.firstPageID, curSlot: -1}
	it.loadPageBounds()
	return it
}

func (it *Iterator) loadPageBounds() {
	if it.curPageID == page.InvalidID {
		it.done = true
		return
	}
	g, err := it.h.bpm.FetchPageRead(it.curPageID)
	if err != nil {
		it.done = true
		return
	}
	it.slotsOnPag = page.TupleCount(g.Page())
	g.Drop()
}

// Next advances to the next slot, returning false once the chain is
// exhausted.
func (it *Iterator) Next() bool {
	if it.done {
		return false
	}
	for {
		it.curSlot++
		if it.curSlot < it.slotsOnPag {
			return true
		}

		g, err := it.h.bpm.FetchPageRead(it.curPageID)
		if err != nil {
			it.done = true
			return false
		}
		next := page.NextPageID(g.Page())
		g.Drop()

		if next == page.InvalidID {
			it.done = true
			return false
		}
		it.curPageID = next
		it.curSlot = -1
		it.loadPageBounds()
		if it.done {
			return false
		}
	}
}

// Current returns the (rid, meta, tuple) at the iterator's current
// position. Only valid after Next returns true.
func (it *Iterator) Current() (RID, TupleMeta, Tuple, error) {
	rid := RID{PageID: it.curPageID, Slot: int32(it.curSlot)}
	meta, tuple, err := it.h.GetTuple(rid)
	return rid, meta, tuple, err
}
