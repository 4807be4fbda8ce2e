// Package mvcc bridges the schema-agnostic bookkeeping in package txn with
// catalog.Schema-aware tuple reconstruction and the write protocol DML
// executors drive: read visibility, undo-log generation/merging, and the
// optimistic write-write conflict check. Kept separate from package txn the
// way the original engine splits transaction_manager from execution_common:
// txn never imports catalog, so the storage core stays reusable without a
// query layer.
package mvcc

import (
	"corundb/catalog"
	"corundb/storage/page"
	"corundb/table"
	"corundb/txn"
)

// IsVisible reports whether meta is directly visible to a reader with the
// given read_ts / transaction-temp-ts, per the read-visibility rule: either
// committed at or before the snapshot, or self-written.
func IsVisible(meta page.TupleMeta, readTs, selfTempTs int64) bool {
	return meta.Ts <= readTs || meta.Ts == selfTempTs
}

// CollectUndoLogs walks a row's undo chain from its head, collecting logs
// newest-to-oldest, stopping at (and including) the first log whose Ts is
// at or below readTs. It returns ok=false if the chain runs out before
// finding such a log (the row is invisible to this snapshot).
func CollectUndoLogs(mgr *txn.Manager, head txn.UndoLink, readTs int64) ([]txn.UndoLog, bool) {
	var logs []txn.UndoLog
	link := head
	for link.Valid() {
		owner, ok := mgr.Get(link.TxnID)
		if !ok {
			return logs, false
		}
		log, ok := owner.UndoLogAt(link.LogIndex)
		if !ok {
			return logs, false
		}
		logs = append(logs, log)
		if log.Ts <= readTs {
			return logs, true
		}
		link = log.Next
	}
	return logs, false
}

// ReconstructTuple overlays a chain of undo logs (newest-to-oldest, as
// returned by CollectUndoLogs) onto base, producing the tuple as it stood
// at the snapshot the chain walk targeted. The second return is false if
// that version is a tombstone.
func ReconstructTuple(schema catalog.Schema, base table.Tuple, logs []txn.UndoLog) (table.Tuple, bool) {
	data := make([]byte, len(base.Data))
	copy(data, base.Data)

	deleted := false
	for _, log := range logs {
		overlayPartial(schema, data, log)
		deleted = log.IsDeleted
	}
	return table.Tuple{Data: data}, !deleted
}

// overlayPartial writes log's partial column values into data, in place.
func overlayPartial(schema catalog.Schema, data []byte, log txn.UndoLog) {
	cursor := 0
	for i, col := range schema.Columns() {
		sz := col.Size()
		if i < len(log.ModifiedFields) && log.ModifiedFields[i] {
			copy(data[col.Offset:int(col.Offset)+sz], log.Partial[cursor:cursor+sz])
			cursor += sz
		}
	}
}
