// Package hash implements a persistent extendible hash index laid out
// across header/directory/bucket pages served by the buffer pool manager,
// following the split/merge protocol bustub's disk_extendible_hash_table.cpp
// implements (see original_source/src/container/disk/hash) and the teacher's
// convention of talking to the pool exclusively through page guards.
package hash

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"corundb/buffer"
	"corundb/storage/page"
)

// Table is a disk-backed extendible hash index mapping fixed-width keys to
// fixed-width values (typically a serialized RID).
type Table struct {
	bpm              *buffer.PoolManager
	headerPageID     page.ID
	headerMaxDepth   uint8
	directoryMaxDepth uint8
	keySize          int
	valueSize        int
}

// New creates a fresh index: allocates and initializes its header page.
// bucketMaxSize is derived from keySize/valueSize to fill a page, per the
// spec's bucket page design; it is not independently configurable.
func New(bpm *buffer.PoolManager, headerMaxDepth, directoryMaxDepth uint8, keySize, valueSize int) (*Table, error) {
	g, err := bpm.NewPage()
	if err != nil {
		return nil, fmt.Errorf("hash: allocate header page: %w", err)
	}
	page.InitHashHeaderPage(g.Page(), headerMaxDepth)
	id := g.Page().ID()
	g.SetDirty()
	g.Drop()

	return &Table{
		bpm:               bpm,
		headerPageID:      id,
		headerMaxDepth:    headerMaxDepth,
		directoryMaxDepth: directoryMaxDepth,
		keySize:           keySize,
		valueSize:         valueSize,
	}, nil
}

// Open reconstructs a Table handle around an existing header page, reading
// the header's max depth from the page.
func Open(bpm *buffer.PoolManager, headerPageID page.ID, directoryMaxDepth uint8, keySize, valueSize int) (*Table, error) {
	g, err := bpm.FetchPage(headerPageID)
	if err != nil {
		return nil, err
	}
	maxDepth := page.HashHeaderMaxDepth(g.Page())
	g.Drop()
	return &Table{
		bpm:               bpm,
		headerPageID:      headerPageID,
		headerMaxDepth:    maxDepth,
		directoryMaxDepth: directoryMaxDepth,
		keySize:           keySize,
		valueSize:         valueSize,
	}, nil
}

func (t *Table) HeaderPageID() page.ID { return t.headerPageID }

// Hash computes a key's 32-bit hash via xxhash, following the spec's
// "key -> 32-bit hash" step.
func Hash(key []byte) uint32 {
	return uint32(xxhash.Sum64(key))
}

// Get looks up key, returning its value and whether it was found. Pages are
// read-latched and each parent latch is dropped as soon as the child page
// id is read (latch crabbing).
func (t *Table) Get(key []byte) ([]byte, bool, error) {
	hv := Hash(key)

	hg, err := t.bpm.FetchPageRead(t.headerPageID)
	if err != nil {
		return nil, false, err
	}
	dirIdx := page.HashHeaderIndex(hg.Page(), hv)
	dirID := page.HashHeaderGetDirectoryID(hg.Page(), dirIdx)
	hg.Drop()
	if dirID == page.InvalidID {
		return nil, false, nil
	}

	dg, err := t.bpm.FetchPageRead(dirID)
	if err != nil {
		return nil, false, err
	}
	bktIdx := page.HashDirIndex(dg.Page(), hv, uint32(t.headerMaxDepth))
	bktID := page.HashDirBucketID(dg.Page(), bktIdx)
	dg.Drop()
	if bktID == page.InvalidID {
		return nil, false, nil
	}

	bg, err := t.bpm.FetchPageRead(bktID)
	if err != nil {
		return nil, false, err
	}
	defer bg.Drop()
	v, ok := page.HashBucketFind(bg.Page(), key)
	return v, ok, nil
}

// Insert adds (key, value). Returns false if key already exists, or an
// error if the directory would need to exceed directoryMaxDepth.
func (t *Table) Insert(key, value []byte) (bool, error) {
	hv := Hash(key)

	hg, err := t.bpm.FetchPageWrite(t.headerPageID)
	if err != nil {
		return false, err
	}
	dirIdx := page.HashHeaderIndex(hg.Page(), hv)
	dirID := page.HashHeaderGetDirectoryID(hg.Page(), dirIdx)

	if dirID == page.InvalidID {
		dg, err := t.bpm.NewPage()
		if err != nil {
			hg.Drop()
			return false, err
		}
		page.InitHashDirectoryPage(dg.Page(), t.directoryMaxDepth)
		dirID = dg.Page().ID()
		page.HashHeaderSetDirectoryID(hg.Page(), dirIdx, dirID)
		hg.SetDirty()
		hg.Drop()
		wdg := dg.Upgrade()
		defer wdg.Drop()
		return t.insertIntoDirectory(wdg, key, value, hv)
	}
	hg.Drop()

	dg, err := t.bpm.FetchPageWrite(dirID)
	if err != nil {
		return false, err
	}
	defer dg.Drop()
	return t.insertIntoDirectory(dg, key, value, hv)
}

func (t *Table) insertIntoDirectory(dg *buffer.WriteGuard, key, value []byte, hv uint32) (bool, error) {
	bktIdx := page.HashDirIndex(dg.Page(), hv, uint32(t.headerMaxDepth))
	bktID := page.HashDirBucketID(dg.Page(), bktIdx)

	if bktID == page.InvalidID {
		bg, err := t.bpm.NewPage()
		if err != nil {
			return false, err
		}
		page.InitHashBucketPage(bg.Page(), t.keySize, t.valueSize)
		bktID = bg.Page().ID()
		page.HashDirSetBucketID(dg.Page(), bktIdx, bktID)
		dg.SetDirty()
		bg.SetDirty()
		inserted, _ := page.HashBucketInsert(bg.Page(), key, value)
		bg.Drop()
		return inserted, nil
	}

	for {
		bg, err := t.bpm.FetchPageWrite(bktID)
		if err != nil {
			return false, err
		}

		inserted, isFull := page.HashBucketInsert(bg.Page(), key, value)
		if inserted {
			bg.SetDirty()
			bg.Drop()
			return true, nil
		}
		if !isFull {
			// key already present
			bg.Drop()
			return false, nil
		}

		// Bucket is full: split.
		localDepth := page.HashDirLocalDepth(dg.Page(), bktIdx)
		globalDepth := page.HashDirGlobalDepth(dg.Page())

		if localDepth == globalDepth {
			if globalDepth >= t.directoryMaxDepth {
				bg.Drop()
				return false, fmt.Errorf("hash: directory at max depth %d, cannot split", t.directoryMaxDepth)
			}
			t.growDirectory(dg.Page())
			globalDepth++
		}

		newBg, err := t.bpm.NewPage()
		if err != nil {
			bg.Drop()
			return false, err
		}
		page.InitHashBucketPage(newBg.Page(), t.keySize, t.valueSize)
		newBucketID := newBg.Page().ID()
		newLocalDepth := localDepth + 1

		t.redirectSplitSlots(dg.Page(), bktIdx, newLocalDepth, bktID, newBucketID)

		// Rehash old bucket's entries between old and new bucket.
		keys, values := page.HashBucketAllEntries(bg.Page())
		page.HashBucketClear(bg.Page())
		for i, k := range keys {
			kh := Hash(k)
			targetIdx := page.HashDirIndex(dg.Page(), kh, uint32(t.headerMaxDepth))
			targetID := page.HashDirBucketID(dg.Page(), targetIdx)
			if targetID == newBucketID {
				page.HashBucketInsert(newBg.Page(), k, values[i])
			} else {
				page.HashBucketInsert(bg.Page(), k, values[i])
			}
		}

		dg.SetDirty()
		bg.SetDirty()
		newBg.SetDirty()
		bg.Drop()
		newBg.Drop()

		// Loop: the key's target bucket may have changed, and a single
		// split can still leave a bucket full if all keys collapsed to
		// one side.
		bktIdx = page.HashDirIndex(dg.Page(), hv, uint32(t.headerMaxDepth))
		bktID = page.HashDirBucketID(dg.Page(), bktIdx)
	}
}

// growDirectory doubles the directory by copying every slot's bucket id and
// local depth into its mirror at the new high bit.
func (t *Table) growDirectory(dir *page.Page) {
	gd := page.HashDirGlobalDepth(dir)
	size := 1 << gd
	for i := 0; i < size; i++ {
		mirror := i + size
		page.HashDirSetBucketID(dir, uint32(mirror), page.HashDirBucketID(dir, uint32(i)))
		page.HashDirSetLocalDepth(dir, uint32(mirror), page.HashDirLocalDepth(dir, uint32(i)))
	}
	page.HashDirSetGlobalDepth(dir, gd+1)
}

// redirectSplitSlots rewrites every directory slot that mapped to
// oldBucketID: slots whose new high bit (at newLocalDepth) is 1 now point
// to newBucketID. The update stride is 2^newLocalDepth, matching every
// slot that shares the old bucket's low (newLocalDepth-1) bits.
func (t *Table) redirectSplitSlots(dir *page.Page, splitIdx uint32, newLocalDepth uint8, oldBucketID, newBucketID page.ID) {
	gd := page.HashDirGlobalDepth(dir)
	cap := 1 << gd
	lowBits := splitIdx & (1<<(newLocalDepth-1) - 1)
	highBit := uint32(1) << (newLocalDepth - 1)

	for i := uint32(0); i < uint32(cap); i++ {
		if i&(highBit-1) != lowBits || page.HashDirBucketID(dir, i) != oldBucketID {
			continue
		}
		page.HashDirSetLocalDepth(dir, i, newLocalDepth)
		if i&highBit != 0 {
			page.HashDirSetBucketID(dir, i, newBucketID)
		}
	}
}

// splitImage returns slot i's split-image sibling at local depth d, per the
// spec's formula i XOR (1 << (d-1)).
func splitImage(i uint32, d uint8) uint32 {
	return i ^ (1 << (d - 1))
}

// Remove deletes key, merging the owning bucket with its split image when
// the bucket becomes empty and the image shares its local depth, and
// halving the directory when every slot's local depth is strictly below
// the global depth. Returns whether key was found.
func (t *Table) Remove(key []byte) (bool, error) {
	hv := Hash(key)

	hg, err := t.bpm.FetchPageRead(t.headerPageID)
	if err != nil {
		return false, err
	}
	dirIdx := page.HashHeaderIndex(hg.Page(), hv)
	dirID := page.HashHeaderGetDirectoryID(hg.Page(), dirIdx)
	hg.Drop()
	if dirID == page.InvalidID {
		return false, nil
	}

	dg, err := t.bpm.FetchPageWrite(dirID)
	if err != nil {
		return false, err
	}
	defer dg.Drop()

	bktIdx := page.HashDirIndex(dg.Page(), hv, uint32(t.headerMaxDepth))
	bktID := page.HashDirBucketID(dg.Page(), bktIdx)
	if bktID == page.InvalidID {
		return false, nil
	}

	bg, err := t.bpm.FetchPageWrite(bktID)
	if err != nil {
		return false, err
	}
	found := page.HashBucketRemove(bg.Page(), key)
	if !found {
		bg.Drop()
		return false, nil
	}
	bg.SetDirty()
	dg.SetDirty()

	// Merge loop.
	curIdx := bktIdx
	curID := bktID
	curGuard := bg
	for {
		localDepth := page.HashDirLocalDepth(dg.Page(), curIdx)
		if localDepth == 0 {
			curGuard.Drop()
			break
		}
		imageIdx := splitImage(curIdx, localDepth)
		imageID := page.HashDirBucketID(dg.Page(), imageIdx)
		imageLocalDepth := page.HashDirLocalDepth(dg.Page(), imageIdx)

		curEmpty := page.HashBucketCount(curGuard.Page()) == 0

		if !curEmpty || imageLocalDepth != localDepth || imageID == page.InvalidID || imageID == curID {
			curGuard.Drop()
			break
		}

		// curGuard's bucket is empty; fold it into its split image.
		ig, err := t.bpm.FetchPageWrite(imageID)
		if err != nil {
			curGuard.Drop()
			return true, err
		}

		// The emptied bucket (cur) is always the one deleted and its split
		// image survives. Roles are never swapped: a non-empty bucket whose
		// split image is empty is not merged.
		survivorID := imageID
		survivorGuard := ig
		emptyID := curID
		emptyGuard := curGuard

		t.repointSlots(dg.Page(), emptyID, survivorID, localDepth-1)

		emptyGuard.Drop()
		if err := t.bpm.DeletePage(emptyID); err != nil {
			survivorGuard.Drop()
			return true, err
		}

		curIdx = page.HashDirIndex(dg.Page(), hv, uint32(t.headerMaxDepth))
		curID = survivorID
		curGuard = survivorGuard
	}

	// Halve the directory while every slot's local depth is strictly below
	// global depth.
	for {
		gd := page.HashDirGlobalDepth(dg.Page())
		if gd == 0 {
			break
		}
		canShrink := true
		half := 1 << (gd - 1)
		for i := 0; i < half; i++ {
			if page.HashDirLocalDepth(dg.Page(), uint32(i)) >= gd {
				canShrink = false
				break
			}
		}
		if !canShrink {
			break
		}
		page.HashDirSetGlobalDepth(dg.Page(), gd-1)
	}

	return true, nil
}

// repointSlots rewrites every directory slot currently pointing at either
// emptyID or survivorID to point at survivorID, and sets their local depth
// to newDepth. Used by merge: both the emptied bucket's aliases and the
// surviving split image's aliases shrink to the same, shallower depth.
func (t *Table) repointSlots(dir *page.Page, emptyID, survivorID page.ID, newDepth uint8) {
	gd := page.HashDirGlobalDepth(dir)
	cap := 1 << gd
	for i := 0; i < cap; i++ {
		id := page.HashDirBucketID(dir, uint32(i))
		if id == emptyID || id == survivorID {
			page.HashDirSetBucketID(dir, uint32(i), survivorID)
			page.HashDirSetLocalDepth(dir, uint32(i), newDepth)
		}
	}
}
