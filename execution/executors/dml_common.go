package executors

import (
	"fmt"

	"corundb/catalog"
	"corundb/catalog/dbtype"
	"corundb/common/corerr"
	"corundb/mvcc"
	"corundb/table"
	"corundb/txn"
)

// CountSchema is the single-column int32 schema every DML executor (Insert,
// Delete, Update) emits: one row holding the number of rows affected.
func CountSchema() catalog.Schema {
	return catalog.NewSchema([]catalog.Column{{Name: "count", Type: dbtype.TypeID{Kind: dbtype.KindInteger}}})
}

func countRow(n int) table.Tuple {
	return catalog.NewTuple([]dbtype.Value{dbtype.NewInt(int32(n))}, CountSchema())
}

// insertRow inserts tuple into info's table, maintaining every index
// defined on it. A live row already occupying a unique index's key errors
// and taints the transaction; a tombstoned one is revived in place
// (insert-after-delete) instead of allocating a new physical row.
func insertRow(t *txn.Transaction, accessor *mvcc.Accessor, info *catalog.TableInfo, indexes []*catalog.IndexInfo, tuple table.Tuple) error {
	for _, idx := range indexes {
		if !idx.IsUnique {
			continue
		}
		key := idx.KeyOf(info.Schema, tuple)
		encoded, found, err := idx.Index.Get(key)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		existingRID := table.DecodeRID(encoded)
		meta, err := info.Heap.GetTupleMeta(existingRID)
		if err != nil {
			return err
		}
		if !meta.IsDeleted {
			t.State = txn.Tainted
			return fmt.Errorf("%w: insert: duplicate key on unique index %q", corerr.ErrExecution, idx.Name)
		}
		return accessor.Update(t, existingRID, tuple)
	}

	rid, err := accessor.Insert(t, tuple)
	if err != nil {
		return err
	}
	for _, idx := range indexes {
		key := idx.KeyOf(info.Schema, tuple)
		if _, err := idx.Index.Insert(key, rid.Encode()); err != nil {
			return err
		}
	}
	return nil
}
