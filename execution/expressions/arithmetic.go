package expressions

import (
	"corundb/catalog"
	"corundb/catalog/dbtype"
	"corundb/table"
)

type ArithOp int

const (
	Add ArithOp = iota
	Sub
)

// Arithmetic evaluates its two integer children and combines them with +
// or -. Aggregation and window functions keep their running sums
// directly and do not use it.
type Arithmetic struct {
	Base
	Op ArithOp
}

func NewArithmetic(op ArithOp, lhs, rhs Expression) *Arithmetic {
	return &Arithmetic{Base: Base{Kids: []Expression{lhs, rhs}}, Op: op}
}

func (e *Arithmetic) Eval(t table.Tuple, s catalog.Schema) dbtype.Value {
	lhs := e.Kids[0].Eval(t, s)
	rhs := e.Kids[1].Eval(t, s)
	return e.apply(lhs, rhs)
}

func (e *Arithmetic) EvalJoin(l table.Tuple, ls catalog.Schema, r table.Tuple, rs catalog.Schema) dbtype.Value {
	lhs := e.Kids[0].EvalJoin(l, ls, r, rs)
	rhs := e.Kids[1].EvalJoin(l, ls, r, rs)
	return e.apply(lhs, rhs)
}

func (e *Arithmetic) apply(lhs, rhs dbtype.Value) dbtype.Value {
	if lhs.IsNull() || rhs.IsNull() {
		return dbtype.NewNull(dbtype.TypeID{Kind: dbtype.KindInteger})
	}
	switch e.Op {
	case Add:
		return dbtype.Add(lhs, rhs)
	case Sub:
		return dbtype.NewInt(lhs.AsInt32() - rhs.AsInt32())
	default:
		panic("expressions: unknown arithmetic operator")
	}
}
