package expressions

import (
	"corundb/catalog"
	"corundb/catalog/dbtype"
	"corundb/table"
)

// ColumnValue reads one column, either from the sole input tuple (TupleIdx
// 0 in single-child contexts) or, in a join, from the left (0) or right (1)
// side.
type ColumnValue struct {
	Base
	TupleIdx int
	ColIdx   int
}

func NewColumnValue(tupleIdx, colIdx int) *ColumnValue {
	return &ColumnValue{TupleIdx: tupleIdx, ColIdx: colIdx}
}

func (e *ColumnValue) Eval(t table.Tuple, s catalog.Schema) dbtype.Value {
	return catalog.GetValue(s, t, e.ColIdx)
}

func (e *ColumnValue) EvalJoin(left table.Tuple, leftSchema catalog.Schema, right table.Tuple, rightSchema catalog.Schema) dbtype.Value {
	if e.TupleIdx == 0 {
		return catalog.GetValue(leftSchema, left, e.ColIdx)
	}
	return catalog.GetValue(rightSchema, right, e.ColIdx)
}
