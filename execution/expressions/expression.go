// Package expressions implements the expression tree shared by every
// predicate, join key, and aggregate argument in the execution layer.
package expressions

import (
	"corundb/catalog"
	"corundb/catalog/dbtype"
	"corundb/table"
)

// Expression is one node of an expression tree. Eval works against a
// single tuple (scans, filters); EvalJoin works against a pair of tuples
// from two different child schemas (join predicates, join keys).
type Expression interface {
	Eval(t table.Tuple, s catalog.Schema) dbtype.Value
	EvalJoin(left table.Tuple, leftSchema catalog.Schema, right table.Tuple, rightSchema catalog.Schema) dbtype.Value
	Children() []Expression
}

// Base implements the tree-traversal boilerplate every node embeds, the
// way BaseExecutor does for executors.
type Base struct {
	Kids []Expression
}

func (b *Base) Children() []Expression { return b.Kids }
