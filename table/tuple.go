// Package table implements the table heap: a singly-linked chain of
// slotted pages holding (meta, tuple) pairs addressed by RID, following the
// teacher's disk/structures.TableHeap but generalized to the MVCC tuple
// meta the spec requires (ts + is_deleted rather than a txn-id/lsn pair).
package table

import (
	"encoding/binary"

	"corundb/storage/page"
)

// RID (record identifier) uniquely names a tuple within a table heap.
type RID struct {
	PageID page.ID
	Slot   int32
}

// Encode serializes an RID to a fixed 12-byte representation, used as the
// value type stored in hash index buckets.
func (r RID) Encode() []byte {
	buf := make([]byte, 12)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(r.PageID))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(r.Slot))
	return buf
}

func DecodeRID(b []byte) RID {
	return RID{
		PageID: page.ID(binary.LittleEndian.Uint64(b[0:8])),
		Slot:   int32(binary.LittleEndian.Uint32(b[8:12])),
	}
}

// Tuple is an opaque serialized row; table heap and buffer pool code never
// interpret its bytes. Schema-aware interpretation lives in the catalog
// package.
type Tuple struct {
	Data []byte
}

// TupleMeta mirrors page.TupleMeta; re-exported here so callers outside
// storage/page don't need to import it directly.
type TupleMeta = page.TupleMeta
