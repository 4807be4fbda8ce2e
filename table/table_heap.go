package table

import (
	"fmt"
	"sync"

	"corundb/buffer"
	"corundb/storage/page"
)

// Heap is a singly-linked chain of slotted table pages. All mutations take
// a short-lived write guard on the target page; the chain's tail pointer is
// protected by its own mutex so concurrent inserters don't race appending a
// new page.
type Heap struct {
	bpm         *buffer.PoolManager
	firstPageID page.ID

	mu         sync.Mutex
	lastPageID page.ID
}

// NewHeap allocates the first page of a new table heap.
func NewHeap(bpm *buffer.PoolManager) (*Heap, error) {
	g, err := bpm.NewPage()
	if err != nil {
		return nil, fmt.Errorf("table heap: allocate first page: %w", err)
	}
	page.InitTablePage(g.Page(), page.InvalidID)
	id := g.Page().ID()
	g.SetDirty()
	g.Drop()

	return &Heap{bpm: bpm, firstPageID: id, lastPageID: id}, nil
}

// OpenHeap reconstructs a Heap handle around an existing chain.
// lastPageID is discovered by walking the chain once.
func OpenHeap(bpm *buffer.PoolManager, firstPageID page.ID) (*Heap, error) {
	h := &Heap{bpm: bpm, firstPageID: firstPageID, lastPageID: firstPageID}
	id := firstPageID
	for {
		g, err := h.bpm.FetchPageRead(id)
		if err != nil {
			return nil, err
		}
		next := page.NextPageID(g.Page())
		g.Drop()
		if next == page.InvalidID {
			break
		}
		id = next
	}
	h.lastPageID = id
	return h, nil
}

func (h *Heap) FirstPageID() page.ID { return h.firstPageID }

// InsertTuple appends tuple with meta, returning its RID. If the tail page
// has no room, a new page is allocated and linked in.
func (h *Heap) InsertTuple(meta TupleMeta, tuple Tuple) (RID, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	g, err := h.bpm.FetchPageWrite(h.lastPageID)
	if err != nil {
		return RID{}, false, err
	}

	slot, ok := page.InsertTuple(g.Page(), meta, tuple.Data)
	if ok {
		g.SetDirty()
		rid := RID{PageID: h.lastPageID, Slot: int32(slot)}
		g.Drop()
		return rid, true, nil
	}
	g.Drop()

	// Tail page is full: allocate a new one and link it in.
	newG, err := h.bpm.NewPage()
	if err != nil {
		return RID{}, false, err
	}
	page.InitTablePage(newG.Page(), page.InvalidID)
	newID := newG.Page().ID()

	slot, ok = page.InsertTuple(newG.Page(), meta, tuple.Data)
	if !ok {
		newG.Drop()
		return RID{}, false, fmt.Errorf("table heap: tuple too large for an empty page")
	}
	newG.SetDirty()
	newG.Drop()

	oldG, err := h.bpm.FetchPageWrite(h.lastPageID)
	if err != nil {
		return RID{}, false, err
	}
	page.SetNextPageID(oldG.Page(), newID)
	oldG.SetDirty()
	oldG.Drop()

	h.lastPageID = newID
	return RID{PageID: newID, Slot: int32(slot)}, true, nil
}

// GetTuple resolves rid to its current (meta, tuple) pair.
func (h *Heap) GetTuple(rid RID) (TupleMeta, Tuple, error) {
	g, err := h.bpm.FetchPageRead(rid.PageID)
	if err != nil {
		return TupleMeta{}, Tuple{}, err
	}
	defer g.Drop()

	meta, data, err := page.GetTuple(g.Page(), int(rid.Slot))
	if err != nil {
		return TupleMeta{}, Tuple{}, err
	}
	return meta, Tuple{Data: data}, nil
}

// GetTupleMeta resolves just the meta at rid.
func (h *Heap) GetTupleMeta(rid RID) (TupleMeta, error) {
	g, err := h.bpm.FetchPageRead(rid.PageID)
	if err != nil {
		return TupleMeta{}, err
	}
	defer g.Drop()
	return page.GetTupleMeta(g.Page(), int(rid.Slot))
}

// UpdateTupleMeta overwrites rid's meta in place (used by delete, and by
// the commit path to stamp the final commit timestamp).
func (h *Heap) UpdateTupleMeta(meta TupleMeta, rid RID) error {
	g, err := h.bpm.FetchPageWrite(rid.PageID)
	if err != nil {
		return err
	}
	defer g.Drop()
	if err := page.SetTupleMeta(g.Page(), int(rid.Slot), meta); err != nil {
		return err
	}
	g.SetDirty()
	return nil
}

// GuardPredicate inspects a page (while it is write-latched) before the
// mutation is applied, so callers can re-validate an optimistic check
// (e.g. version-link in_progress) under the same latch that protects the
// write.
type GuardPredicate func(currentMeta TupleMeta) bool

// UpdateTupleInPlace overwrites rid's tuple bytes and meta, but only if
// pred (when non-nil) returns true once the page is write-latched. Returns
// false if pred rejected the update or the new data doesn't fit in the
// original slot's allocation.
func (h *Heap) UpdateTupleInPlace(meta TupleMeta, tuple Tuple, rid RID, pred GuardPredicate) (bool, error) {
	g, err := h.bpm.FetchPageWrite(rid.PageID)
	if err != nil {
		return false, err
	}
	defer g.Drop()

	if pred != nil {
		cur, err := page.GetTupleMeta(g.Page(), int(rid.Slot))
		if err != nil {
			return false, err
		}
		if !pred(cur) {
			return false, nil
		}
	}

	ok := page.UpdateTupleInPlace(g.Page(), int(rid.Slot), meta, tuple.Data)
	if ok {
		g.SetDirty()
	}
	return ok, nil
}
