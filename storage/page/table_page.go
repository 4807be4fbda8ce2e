package page

import (
	"encoding/binary"
	"fmt"
)

// TablePage is a slotted page holding (meta, tuple) pairs addressed by slot
// number, chained into the next page of the table heap. Layout, following
// the teacher's disk/pages.HeapPage ASCII-diagram convention:
//
//	---------------------------------------------------------------------
//	| Type(1) | NextPageID(8) | TupleCount(4) | FreeSpacePtr(4) | ...    |
//	---------------------------------------------------------------------
//	| slot 0: {offset(4), size(4), ts(8), deleted(1)} | slot 1: ... | -> |
//	---------------------------------------------------------------------
//	                      ... free space ...
//	---------------------------------------------------------------------
//	                                        | tuple 1 | tuple 0 |
//	---------------------------------------------------------------------
//
// Tuples are appended from the end of the page backward; the slot array
// grows forward from the header. A page is full when the two meet.
const (
	tpHeaderSize = 1 + 8 + 4 + 4
	tpSlotSize   = 4 + 4 + 8 + 1 // offset, size, ts, deleted
)

type TupleMeta struct {
	Ts        int64
	IsDeleted bool
}

func InitTablePage(p *Page, next ID) {
	SetPageType(p, TypeTableHeap)
	setNextPageID(p, next)
	setTupleCount(p, 0)
	setFreeSpacePtr(p, Size)
}

func NextPageID(p *Page) ID {
	return ID(int64(binary.LittleEndian.Uint64(p.Data()[1:9])))
}

func setNextPageID(p *Page, id ID) {
	binary.LittleEndian.PutUint64(p.Data()[1:9], uint64(id))
}

func SetNextPageID(p *Page, id ID) { setNextPageID(p, id) }

func tupleCount(p *Page) int {
	return int(binary.LittleEndian.Uint32(p.Data()[9:13]))
}

func setTupleCount(p *Page, n int) {
	binary.LittleEndian.PutUint32(p.Data()[9:13], uint32(n))
}

func freeSpacePtr(p *Page) int {
	return int(binary.LittleEndian.Uint32(p.Data()[13:17]))
}

func setFreeSpacePtr(p *Page, v int) {
	binary.LittleEndian.PutUint32(p.Data()[13:17], uint32(v))
}

func slotOffset(slot int) int { return tpHeaderSize + slot*tpSlotSize }

func readSlot(p *Page, slot int) (offset, size int, meta TupleMeta) {
	d := p.Data()
	o := slotOffset(slot)
	offset = int(binary.LittleEndian.Uint32(d[o : o+4]))
	size = int(binary.LittleEndian.Uint32(d[o+4 : o+8]))
	meta.Ts = int64(binary.LittleEndian.Uint64(d[o+8 : o+16]))
	meta.IsDeleted = d[o+16] != 0
	return
}

func writeSlot(p *Page, slot, offset, size int, meta TupleMeta) {
	d := p.Data()
	o := slotOffset(slot)
	binary.LittleEndian.PutUint32(d[o:o+4], uint32(offset))
	binary.LittleEndian.PutUint32(d[o+4:o+8], uint32(size))
	binary.LittleEndian.PutUint64(d[o+8:o+16], uint64(meta.Ts))
	if meta.IsDeleted {
		d[o+16] = 1
	} else {
		d[o+16] = 0
	}
}

// FreeSpace returns the number of unused bytes between the slot array and
// the tuple region.
func FreeSpace(p *Page) int {
	return freeSpacePtr(p) - (tpHeaderSize + tupleCount(p)*tpSlotSize)
}

// InsertTuple appends tuple data with meta, returning its slot number, or
// false if the page lacks room.
func InsertTuple(p *Page, meta TupleMeta, data []byte) (int, bool) {
	need := len(data) + tpSlotSize
	if FreeSpace(p) < need {
		return 0, false
	}
	n := tupleCount(p)
	newFreePtr := freeSpacePtr(p) - len(data)
	copy(p.Data()[newFreePtr:newFreePtr+len(data)], data)
	setFreeSpacePtr(p, newFreePtr)
	writeSlot(p, n, newFreePtr, len(data), meta)
	setTupleCount(p, n+1)
	return n, true
}

// GetTuple returns the meta and tuple bytes stored at slot.
func GetTuple(p *Page, slot int) (TupleMeta, []byte, error) {
	if slot < 0 || slot >= tupleCount(p) {
		return TupleMeta{}, nil, fmt.Errorf("table page: slot %d out of range", slot)
	}
	offset, size, meta := readSlot(p, slot)
	out := make([]byte, size)
	copy(out, p.Data()[offset:offset+size])
	return meta, out, nil
}

// GetTupleMeta returns only the meta at slot.
func GetTupleMeta(p *Page, slot int) (TupleMeta, error) {
	if slot < 0 || slot >= tupleCount(p) {
		return TupleMeta{}, fmt.Errorf("table page: slot %d out of range", slot)
	}
	_, _, meta := readSlot(p, slot)
	return meta, nil
}

// SetTupleMeta overwrites the meta at slot in place.
func SetTupleMeta(p *Page, slot int, meta TupleMeta) error {
	if slot < 0 || slot >= tupleCount(p) {
		return fmt.Errorf("table page: slot %d out of range", slot)
	}
	offset, size, _ := readSlot(p, slot)
	writeSlot(p, slot, offset, size, meta)
	return nil
}

// UpdateTupleInPlace overwrites slot's tuple bytes if newData is no larger
// than the original allocation, and always overwrites meta. Returns false
// if newData does not fit (callers fall back to delete+insert semantics at
// a higher layer, e.g. primary-key changes).
func UpdateTupleInPlace(p *Page, slot int, meta TupleMeta, newData []byte) bool {
	if slot < 0 || slot >= tupleCount(p) {
		return false
	}
	offset, size, _ := readSlot(p, slot)
	if len(newData) > size {
		return false
	}
	copy(p.Data()[offset:offset+len(newData)], newData)
	writeSlot(p, slot, offset, len(newData), meta)
	return true
}

// TupleCount returns the number of slots (including deleted/tombstoned
// ones) on the page.
func TupleCount(p *Page) int {
	return tupleCount(p)
}
