package mvcc

import (
	"corundb/catalog"
	"corundb/catalog/dbtype"
	"corundb/storage/page"
	"corundb/table"
	"corundb/txn"
)

// GenerateUndoLog diffs oldTuple against newTuple column-by-column and
// builds the delta undo log recording oldTuple's pre-image for exactly the
// columns that changed, per the write protocol. oldMeta supplies the
// pre-image is_deleted flag and Ts (the commit timestamp of the version
// this log reverts to — CollectUndoLogs' stop condition `Ts <= readTs`
// depends on this being the old version's real timestamp, not the new
// writer's). prev links to the chain's previous head, so the new head
// this log becomes does not terminate the chain.
func GenerateUndoLog(schema catalog.Schema, oldMeta page.TupleMeta, oldTuple, newTuple table.Tuple, prev txn.UndoLink) txn.UndoLog {
	cols := schema.Columns()
	modified := make([]bool, len(cols))
	for i := range cols {
		ov := catalog.GetValue(schema, oldTuple, i)
		nv := catalog.GetValue(schema, newTuple, i)
		modified[i] = !dbtype.Equal(ov, nv)
	}
	return txn.UndoLog{
		IsDeleted:      oldMeta.IsDeleted,
		ModifiedFields: modified,
		Partial:        buildPartial(schema, modified, oldTuple),
		Ts:             oldMeta.Ts,
		Next:           prev,
	}
}

// MergeUndoLog folds a second self-modification by the same transaction
// into an already-appended undo log: newly-touched columns contribute their
// pre-image from oldTuple (the value immediately before this write, which
// for a never-before-touched column equals the value before the
// transaction's first write too); already-touched columns keep the
// pre-image bytes the existing log already carries, since that is the
// value from before the transaction touched the row at all. is_deleted is
// left untouched — it records the state before the transaction's first
// write, which a later self-modify does not change.
func MergeUndoLog(schema catalog.Schema, existing txn.UndoLog, oldTuple, newTuple table.Tuple) txn.UndoLog {
	cols := schema.Columns()
	merged := make([]bool, len(cols))
	for i := range cols {
		wasModified := i < len(existing.ModifiedFields) && existing.ModifiedFields[i]
		nowDiffers := !dbtype.Equal(catalog.GetValue(schema, oldTuple, i), catalog.GetValue(schema, newTuple, i))
		merged[i] = wasModified || nowDiffers
	}

	partial := make([]byte, 0, len(existing.Partial))
	existingCursor := 0
	for i, col := range cols {
		sz := col.Size()
		wasModified := i < len(existing.ModifiedFields) && existing.ModifiedFields[i]
		if !merged[i] {
			if wasModified {
				existingCursor += sz
			}
			continue
		}
		if wasModified {
			partial = append(partial, existing.Partial[existingCursor:existingCursor+sz]...)
			existingCursor += sz
		} else {
			partial = append(partial, oldTuple.Data[col.Offset:int(col.Offset)+sz]...)
		}
	}

	return txn.UndoLog{
		IsDeleted:      existing.IsDeleted,
		ModifiedFields: merged,
		Partial:        partial,
		Ts:             existing.Ts,
		Next:           existing.Next,
	}
}

func buildPartial(schema catalog.Schema, modified []bool, source table.Tuple) []byte {
	var out []byte
	for i, col := range schema.Columns() {
		if !modified[i] {
			continue
		}
		sz := col.Size()
		out = append(out, source.Data[col.Offset:int(col.Offset)+sz]...)
	}
	return out
}
