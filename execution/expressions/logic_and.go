package expressions

import (
	"corundb/catalog"
	"corundb/catalog/dbtype"
	"corundb/table"
)

// LogicAnd conjoins its children, short-circuiting on the first false.
// This is also the node the NLJ->HashJoin rewrite walks to pull out a list
// of equi-join conjuncts.
type LogicAnd struct {
	Base
}

func NewLogicAnd(conjuncts ...Expression) *LogicAnd {
	return &LogicAnd{Base: Base{Kids: conjuncts}}
}

func (e *LogicAnd) Eval(t table.Tuple, s catalog.Schema) dbtype.Value {
	for _, k := range e.Kids {
		if !AsBool(k.Eval(t, s)) {
			return dbtype.NewBool(false)
		}
	}
	return dbtype.NewBool(true)
}

func (e *LogicAnd) EvalJoin(l table.Tuple, ls catalog.Schema, r table.Tuple, rs catalog.Schema) dbtype.Value {
	for _, k := range e.Kids {
		if !AsBool(k.EvalJoin(l, ls, r, rs)) {
			return dbtype.NewBool(false)
		}
	}
	return dbtype.NewBool(true)
}

// Conjuncts flattens a (possibly absent) predicate into its top-level
// AND'ed conjuncts; a non-LogicAnd expression is a single conjunct.
func Conjuncts(e Expression) []Expression {
	if e == nil {
		return nil
	}
	if and, ok := e.(*LogicAnd); ok {
		return and.Kids
	}
	return []Expression{e}
}
