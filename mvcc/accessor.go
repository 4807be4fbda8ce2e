package mvcc

import (
	"fmt"

	"corundb/catalog"
	"corundb/common/corerr"
	"corundb/storage/page"
	"corundb/table"
	"corundb/txn"
)

// Accessor is the write-protocol gateway for one table: every DML executor
// mutates rows through it rather than touching the table.Heap directly, so
// the version-chain and write-set bookkeeping in the spec's §4.6 protocol
// happens in exactly one place.
type Accessor struct {
	mgr      *txn.Manager
	tableOID catalog.TableOID
	heap     *table.Heap
	schema   catalog.Schema
}

func NewAccessor(mgr *txn.Manager, tableOID catalog.TableOID, heap *table.Heap, schema catalog.Schema) *Accessor {
	return &Accessor{mgr: mgr, tableOID: tableOID, heap: heap, schema: schema}
}

func (a *Accessor) versionKey(rid table.RID) txn.VersionKey {
	return txn.VersionKey{TableOID: uint32(a.tableOID), RID: rid}
}

// Read applies the read-visibility rule for rid under t's snapshot,
// reconstructing an older version from the undo chain if the current
// physical tuple postdates the snapshot. ok is false if no visible version
// exists (including: the visible version is a tombstone).
func (a *Accessor) Read(t *txn.Transaction, rid table.RID) (tuple table.Tuple, ok bool, err error) {
	meta, cur, err := a.heap.GetTuple(rid)
	if err != nil {
		return table.Tuple{}, false, err
	}

	if IsVisible(meta, t.ReadTs, t.TempTs()) {
		if meta.IsDeleted {
			return table.Tuple{}, false, nil
		}
		return cur, true, nil
	}

	link, ok := a.mgr.GetVersionLink(a.versionKey(rid))
	if !ok {
		return table.Tuple{}, false, nil
	}
	logs, found := CollectUndoLogs(a.mgr, link.Prev, t.ReadTs)
	if !found {
		return table.Tuple{}, false, nil
	}
	recon, ok := ReconstructTuple(a.schema, cur, logs)
	return recon, ok, nil
}

// Insert adds a brand-new physical row. A fresh slot is never visible to
// anyone else until commit, so no version-chain interaction is needed.
func (a *Accessor) Insert(t *txn.Transaction, tuple table.Tuple) (table.RID, error) {
	meta := page.TupleMeta{Ts: t.TempTs(), IsDeleted: false}
	rid, ok, err := a.heap.InsertTuple(meta, tuple)
	if err != nil {
		return table.RID{}, fmt.Errorf("mvcc: insert: %w", err)
	}
	if !ok {
		return table.RID{}, fmt.Errorf("mvcc: insert: table heap rejected tuple")
	}
	t.AddToWriteSet(uint32(a.tableOID), rid)
	return rid, nil
}

// Update applies the write protocol to turn rid's row into newTuple,
// live (not deleted). Used both for ordinary same-primary-key updates and
// for reviving a tombstone (insert-after-delete).
func (a *Accessor) Update(t *txn.Transaction, rid table.RID, newTuple table.Tuple) error {
	return a.write(t, rid, &newTuple, false)
}

// Delete tombstones rid's row, keeping its tuple bytes (undo logs may still
// need to reconstruct the pre-delete version).
func (a *Accessor) Delete(t *txn.Transaction, rid table.RID) error {
	return a.write(t, rid, nil, true)
}

// write implements the insert/update/delete write protocol: self-modify
// merge if this transaction already owns the row, else an optimistic CAS
// on the version link with a write-write conflict recheck.
func (a *Accessor) write(t *txn.Transaction, rid table.RID, newTupleOrNil *table.Tuple, newIsDeleted bool) error {
	key := a.versionKey(rid)

	for {
		curMeta, curTuple, err := a.heap.GetTuple(rid)
		if err != nil {
			return err
		}
		newTuple := curTuple
		if newTupleOrNil != nil {
			newTuple = *newTupleOrNil
		}

		if txn.IsTempTs(curMeta.Ts) {
			if curMeta.Ts != t.TempTs() {
				t.State = txn.Tainted
				return fmt.Errorf("%w: mvcc: write-write conflict on rid %+v: row held by another uncommitted writer", corerr.ErrExecution, rid)
			}
			if err := a.selfModify(t, key, curMeta, curTuple, newTuple, newIsDeleted, rid); err != nil {
				return err
			}
			t.AddToWriteSet(uint32(a.tableOID), rid)
			return nil
		}

		oldLink, oldOK := a.mgr.GetVersionLink(key)
		if oldOK && oldLink.InProgress {
			t.State = txn.Tainted
			return fmt.Errorf("%w: mvcc: write-write conflict on rid %+v: concurrent writer in progress", corerr.ErrExecution, rid)
		}
		inProgressLink := txn.VersionLink{Prev: oldLink.Prev, InProgress: true}
		if !a.mgr.UpdateVersionLink(key, oldLink, oldOK, inProgressLink) {
			continue // lost the CAS race, retry from a fresh read
		}

		// Re-check under the claimed in_progress flag: did the row change
		// between our read above and winning the CAS?
		recheckMeta, recheckTuple, err := a.heap.GetTuple(rid)
		if err != nil {
			a.mgr.UpdateVersionLink(key, inProgressLink, true, txn.VersionLink{Prev: oldLink.Prev, InProgress: false})
			return err
		}
		if recheckMeta.Ts != curMeta.Ts {
			a.mgr.UpdateVersionLink(key, inProgressLink, true, txn.VersionLink{Prev: oldLink.Prev, InProgress: false})
			continue
		}
		if recheckMeta.Ts > t.ReadTs && recheckMeta.Ts != t.TempTs() {
			a.mgr.UpdateVersionLink(key, inProgressLink, true, txn.VersionLink{Prev: oldLink.Prev, InProgress: false})
			t.State = txn.Tainted
			return fmt.Errorf("%w: mvcc: write-write conflict on rid %+v: committed after this transaction's snapshot", corerr.ErrExecution, rid)
		}

		diffLog := GenerateUndoLog(a.schema, recheckMeta, recheckTuple, newTuple, oldLink.Prev)
		undoLink := t.AppendUndoLog(diffLog)
		published := txn.VersionLink{Prev: undoLink, InProgress: true}
		if !a.mgr.UpdateVersionLink(key, inProgressLink, true, published) {
			return fmt.Errorf("mvcc: internal error: lost in_progress ownership on rid %+v", rid)
		}

		newMeta := page.TupleMeta{Ts: t.TempTs(), IsDeleted: newIsDeleted}
		if err := a.applyInPlace(rid, newMeta, newTuple); err != nil {
			return err
		}

		a.mgr.UpdateVersionLink(key, published, true, txn.VersionLink{Prev: undoLink, InProgress: false})
		t.AddToWriteSet(uint32(a.tableOID), rid)
		return nil
	}
}

func (a *Accessor) selfModify(t *txn.Transaction, key txn.VersionKey, curMeta page.TupleMeta, curTuple, newTuple table.Tuple, newIsDeleted bool, rid table.RID) error {
	link, ok := a.mgr.GetVersionLink(key)
	if ok && link.Prev.Valid() && link.Prev.TxnID == t.ID {
		existing, found := t.UndoLogAt(link.Prev.LogIndex)
		if found {
			merged := MergeUndoLog(a.schema, existing, curTuple, newTuple)
			t.UpdateUndoLog(link.Prev.LogIndex, merged)
		}
	}
	newMeta := page.TupleMeta{Ts: curMeta.Ts, IsDeleted: newIsDeleted}
	return a.applyInPlace(rid, newMeta, newTuple)
}

func (a *Accessor) applyInPlace(rid table.RID, meta page.TupleMeta, tuple table.Tuple) error {
	ok, err := a.heap.UpdateTupleInPlace(meta, tuple, rid, func(page.TupleMeta) bool { return true })
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("mvcc: in-place update rejected for rid %+v (row grew past its slot)", rid)
	}
	return nil
}
