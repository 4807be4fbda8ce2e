package page

import "encoding/binary"

// Pages backing the extendible hash index: a header page fanning out to
// directory pages, each fanning out to bucket pages. Page ids inside these
// three page kinds are stored as 4 bytes (uint32) rather than full page.ID
// words, the way bustub's on-disk extendible hash table does, so a
// directory's bucket-id array and local-depth array both fit comfortably
// alongside the header in one 4 KiB page even at a directory depth of 8-9.
// 0 is the "unset" sentinel inside these arrays (page id 0 is reserved
// metadata and is never a directory/bucket page).

// ---- header page ----

const hdrHeaderSize = 2 // type + maxDepth

func InitHashHeaderPage(p *Page, maxDepth uint8) {
	SetPageType(p, TypeHashHeader)
	p.Data()[1] = maxDepth
	cap := 1 << maxDepth
	d := p.Data()[hdrHeaderSize:]
	for i := 0; i < cap; i++ {
		binary.LittleEndian.PutUint32(d[i*4:i*4+4], 0)
	}
}

func HashHeaderMaxDepth(p *Page) uint8 { return p.Data()[1] }

// HashHeaderIndex picks the directory slot for hash: the top maxDepth bits.
func HashHeaderIndex(p *Page, hash uint32) uint32 {
	maxDepth := HashHeaderMaxDepth(p)
	if maxDepth == 0 {
		return 0
	}
	return hash >> (32 - maxDepth)
}

func HashHeaderGetDirectoryID(p *Page, idx uint32) ID {
	off := hdrHeaderSize + int(idx)*4
	v := binary.LittleEndian.Uint32(p.Data()[off : off+4])
	if v == 0 {
		return InvalidID
	}
	return ID(v)
}

func HashHeaderSetDirectoryID(p *Page, idx uint32, id ID) {
	off := hdrHeaderSize + int(idx)*4
	binary.LittleEndian.PutUint32(p.Data()[off:off+4], uint32(id))
}

// ---- directory page ----

const dirHeaderSize = 3 // type + globalDepth + maxDepth

func InitHashDirectoryPage(p *Page, maxDepth uint8) {
	SetPageType(p, TypeHashDirectory)
	p.Data()[1] = 0 // globalDepth
	p.Data()[2] = maxDepth
	cap := 1 << maxDepth
	d := p.Data()[dirHeaderSize:]
	for i := 0; i < cap; i++ {
		binary.LittleEndian.PutUint32(d[i*4:i*4+4], 0)
	}
	ld := p.Data()[dirHeaderSize+cap*4:]
	for i := 0; i < cap; i++ {
		ld[i] = 0
	}
}

func HashDirGlobalDepth(p *Page) uint8   { return p.Data()[1] }
func HashDirMaxDepth(p *Page) uint8      { return p.Data()[2] }
func HashDirSetGlobalDepth(p *Page, d uint8) { p.Data()[1] = d }

func hashDirCap(p *Page) int { return 1 << HashDirMaxDepth(p) }

func HashDirBucketID(p *Page, idx uint32) ID {
	off := dirHeaderSize + int(idx)*4
	v := binary.LittleEndian.Uint32(p.Data()[off : off+4])
	if v == 0 {
		return InvalidID
	}
	return ID(v)
}

func HashDirSetBucketID(p *Page, idx uint32, id ID) {
	off := dirHeaderSize + int(idx)*4
	binary.LittleEndian.PutUint32(p.Data()[off:off+4], uint32(id))
}

func HashDirLocalDepth(p *Page, idx uint32) uint8 {
	off := dirHeaderSize + hashDirCap(p)*4 + int(idx)
	return p.Data()[off]
}

func HashDirSetLocalDepth(p *Page, idx uint32, depth uint8) {
	off := dirHeaderSize + hashDirCap(p)*4 + int(idx)
	p.Data()[off] = depth
}

// HashDirIndex picks the bucket slot for hash: its lowest globalDepth bits,
// so growing the directory by one bit keeps every slot i and adds its
// mirror i + 2^oldGlobalDepth. headerMaxDepth is not used: the header
// consumes the hash's top bits, the directory its bottom bits.
func HashDirIndex(p *Page, hash, headerMaxDepth uint32) uint32 {
	gd := uint32(HashDirGlobalDepth(p))
	mask := uint32(1)<<gd - 1
	return hash & mask
}

// ---- bucket page ----

const bktHeaderSize = 9 // type + count(4) + keySize(2) + valueSize(2)

func InitHashBucketPage(p *Page, keySize, valueSize int) {
	SetPageType(p, TypeHashBucket)
	binary.LittleEndian.PutUint32(p.Data()[1:5], 0)
	binary.LittleEndian.PutUint16(p.Data()[5:7], uint16(keySize))
	binary.LittleEndian.PutUint16(p.Data()[7:9], uint16(valueSize))
}

func HashBucketCount(p *Page) int {
	return int(binary.LittleEndian.Uint32(p.Data()[1:5]))
}

func setHashBucketCount(p *Page, n int) {
	binary.LittleEndian.PutUint32(p.Data()[1:5], uint32(n))
}

func hashBucketKeySize(p *Page) int   { return int(binary.LittleEndian.Uint16(p.Data()[5:7])) }
func hashBucketValueSize(p *Page) int { return int(binary.LittleEndian.Uint16(p.Data()[7:9])) }

// HashBucketMaxSize returns how many entries fit in one bucket page given
// its configured key/value widths.
func HashBucketMaxSize(p *Page) int {
	ks, vs := hashBucketKeySize(p), hashBucketValueSize(p)
	return (Size - bktHeaderSize) / (ks + vs)
}

func hashBucketEntryOffset(p *Page, i int) int {
	return bktHeaderSize + i*(hashBucketKeySize(p)+hashBucketValueSize(p))
}

// HashBucketEntryAt returns the key and value bytes at slot i.
func HashBucketEntryAt(p *Page, i int) (key, value []byte) {
	ks, vs := hashBucketKeySize(p), hashBucketValueSize(p)
	off := hashBucketEntryOffset(p, i)
	d := p.Data()
	key = append([]byte(nil), d[off:off+ks]...)
	value = append([]byte(nil), d[off+ks:off+ks+vs]...)
	return
}

// HashBucketFind linear-scans the bucket for key, returning its value and
// whether it was found.
func HashBucketFind(p *Page, key []byte) ([]byte, bool) {
	n := HashBucketCount(p)
	for i := 0; i < n; i++ {
		k, v := HashBucketEntryAt(p, i)
		if bytesEqual(k, key) {
			return v, true
		}
	}
	return nil, false
}

// HashBucketInsert appends (key, value) if key is not already present and
// the bucket has room. Returns (inserted, full). full reports whether the
// bucket is now (or already was) at capacity, which the caller uses to
// decide whether a split is needed.
func HashBucketInsert(p *Page, key, value []byte) (inserted bool, isFull bool) {
	n := HashBucketCount(p)
	max := HashBucketMaxSize(p)
	if _, ok := HashBucketFind(p, key); ok {
		return false, n >= max
	}
	if n >= max {
		return false, true
	}
	ks, vs := hashBucketKeySize(p), hashBucketValueSize(p)
	off := hashBucketEntryOffset(p, n)
	d := p.Data()
	copy(d[off:off+ks], key)
	copy(d[off+ks:off+ks+vs], value)
	setHashBucketCount(p, n+1)
	return true, n+1 >= max
}

// HashBucketRemove deletes key if present, compacting the entry array.
// Returns whether key was found.
func HashBucketRemove(p *Page, key []byte) bool {
	n := HashBucketCount(p)
	idx := -1
	for i := 0; i < n; i++ {
		k, _ := HashBucketEntryAt(p, i)
		if bytesEqual(k, key) {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false
	}
	ks, vs := hashBucketKeySize(p), hashBucketValueSize(p)
	entrySize := ks + vs
	d := p.Data()
	lastOff := hashBucketEntryOffset(p, n-1)
	idxOff := hashBucketEntryOffset(p, idx)
	copy(d[idxOff:idxOff+entrySize], d[lastOff:lastOff+entrySize])
	setHashBucketCount(p, n-1)
	return true
}

// HashBucketAllEntries returns all (key, value) pairs currently stored.
func HashBucketAllEntries(p *Page) (keys, values [][]byte) {
	n := HashBucketCount(p)
	for i := 0; i < n; i++ {
		k, v := HashBucketEntryAt(p, i)
		keys = append(keys, k)
		values = append(values, v)
	}
	return
}

// HashBucketClear empties a bucket without reformatting its key/value
// widths, used when a bucket's entries are all rehashed away.
func HashBucketClear(p *Page) {
	setHashBucketCount(p, 0)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
