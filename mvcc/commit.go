package mvcc

import (
	"fmt"

	"corundb/catalog"
	"corundb/txn"
)

// Commit runs serializable validation (when applicable) and then commits t
// through mgr, stamping every row in its write set with the freshly
// assigned commit timestamp while preserving each row's is_deleted flag.
func Commit(mgr *txn.Manager, t *txn.Transaction, heaps HeapLookup) error {
	if t.IsolationLevel == txn.Serializable && !VerifyTxn(t, heaps) {
		t.State = txn.Tainted
		return fmt.Errorf("mvcc: commit %d: serializable validation failed", t.ID)
	}

	return mgr.Commit(t, func(commitTs int64) error {
		for key := range t.WriteSet {
			heap := heaps(catalog.TableOID(key.TableOID))
			if heap == nil {
				return fmt.Errorf("mvcc: commit: unknown table oid %d", key.TableOID)
			}
			meta, err := heap.GetTupleMeta(key.RID)
			if err != nil {
				return err
			}
			meta.Ts = commitTs
			if err := heap.UpdateTupleMeta(meta, key.RID); err != nil {
				return err
			}
		}
		return nil
	})
}
