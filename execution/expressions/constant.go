package expressions

import (
	"corundb/catalog"
	"corundb/catalog/dbtype"
	"corundb/table"
)

// Constant always evaluates to the same value, regardless of the input
// tuple.
type Constant struct {
	Base
	Val dbtype.Value
}

func NewConstant(v dbtype.Value) *Constant { return &Constant{Val: v} }

func (e *Constant) Eval(table.Tuple, catalog.Schema) dbtype.Value { return e.Val }

func (e *Constant) EvalJoin(table.Tuple, catalog.Schema, table.Tuple, catalog.Schema) dbtype.Value {
	return e.Val
}
