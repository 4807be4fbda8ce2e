package mvcc

import (
	"corundb/catalog"
	"corundb/table"
	"corundb/txn"
)

// HeapLookup resolves a table's heap by OID, the way VerifyTxn needs to
// reach across every table a transaction touched.
type HeapLookup func(oid catalog.TableOID) *table.Heap

// VerifyTxn re-validates a serializable transaction's entire write set at
// commit time: no row it wrote may now carry a commit timestamp from a
// different, already-committed transaction greater than this transaction's
// read_ts. Every write already passed this exact check at write time under
// the row's in_progress flag, and nothing else can touch a
// transaction-temp-ts row before it commits, so in practice this always
// holds; it is kept as a real, if narrow, safety net for serializable
// isolation rather than a full conflict-graph test; snapshot isolation
// never calls it.
func VerifyTxn(t *txn.Transaction, heaps HeapLookup) bool {
	for key := range t.WriteSet {
		heap := heaps(catalog.TableOID(key.TableOID))
		if heap == nil {
			continue
		}
		meta, err := heap.GetTupleMeta(key.RID)
		if err != nil {
			return false
		}
		if meta.Ts == t.TempTs() {
			continue
		}
		if meta.Ts > t.ReadTs {
			return false
		}
	}
	return true
}
