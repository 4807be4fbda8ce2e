package expressions

import (
	"corundb/catalog"
	"corundb/catalog/dbtype"
	"corundb/table"
)

type CompType int

const (
	Eq CompType = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

// Comparison evaluates its two children and compares the results.
type Comparison struct {
	Base
	Op CompType
}

func NewComparison(op CompType, lhs, rhs Expression) *Comparison {
	return &Comparison{Base: Base{Kids: []Expression{lhs, rhs}}, Op: op}
}

func (e *Comparison) Eval(t table.Tuple, s catalog.Schema) dbtype.Value {
	lhs := e.Kids[0].Eval(t, s)
	rhs := e.Kids[1].Eval(t, s)
	return dbtype.NewBool(compare(e.Op, lhs, rhs))
}

func (e *Comparison) EvalJoin(l table.Tuple, ls catalog.Schema, r table.Tuple, rs catalog.Schema) dbtype.Value {
	lhs := e.Kids[0].EvalJoin(l, ls, r, rs)
	rhs := e.Kids[1].EvalJoin(l, ls, r, rs)
	return dbtype.NewBool(compare(e.Op, lhs, rhs))
}

func compare(op CompType, lhs, rhs dbtype.Value) bool {
	switch op {
	case Eq:
		return dbtype.Equal(lhs, rhs)
	case Ne:
		return !dbtype.Equal(lhs, rhs)
	case Lt:
		return dbtype.Less(lhs, rhs)
	case Le:
		return dbtype.Less(lhs, rhs) || dbtype.Equal(lhs, rhs)
	case Gt:
		return dbtype.Less(rhs, lhs)
	case Ge:
		return dbtype.Less(rhs, lhs) || dbtype.Equal(lhs, rhs)
	default:
		panic("expressions: unknown comparison operator")
	}
}

// AsBool reads a boolean result out of an evaluated predicate Value,
// treating null as false (a null predicate filters its row out, same as a
// false one).
func AsBool(v dbtype.Value) bool {
	if v.IsNull() {
		return false
	}
	return v.AsBool()
}
