package catalog

import (
	"corundb/catalog/dbtype"
	"corundb/table"
)

// GetValue interprets tuple's bytes at columnIdx under schema.
func GetValue(schema Schema, tuple table.Tuple, columnIdx int) dbtype.Value {
	col := schema.Column(columnIdx)
	sz := col.Size()
	return dbtype.Deserialize(col.Type, tuple.Data[col.Offset:int(col.Offset)+sz])
}

// NewTuple serializes values into a single inlined tuple under schema.
func NewTuple(values []dbtype.Value, schema Schema) table.Tuple {
	data := make([]byte, schema.RowWidth())
	for i, col := range schema.Columns() {
		sz := col.Size()
		dbtype.Serialize(data[col.Offset:int(col.Offset)+sz], values[i])
	}
	return table.Tuple{Data: data}
}

// ConcatTuples splices two tuples together byte-for-byte, for join output rows
// whose schema is Concat(leftSchema, rightSchema).
func ConcatTuples(l, r table.Tuple) table.Tuple {
	out := make([]byte, len(l.Data)+len(r.Data))
	copy(out, l.Data)
	copy(out[len(l.Data):], r.Data)
	return table.Tuple{Data: out}
}
