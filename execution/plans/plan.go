// Package plans is the volcano-style logical/physical plan tree the
// executor factory and the optimizer rewrite rules both operate on.
package plans

import (
	"corundb/catalog"
	"corundb/execution/expressions"
)

type Kind int

const (
	SeqScanKind Kind = iota
	IndexScanKind
	InsertKind
	DeleteKind
	UpdateKind
	NestedLoopJoinKind
	HashJoinKind
	AggregationKind
	SortKind
	TopNKind
	WindowKind
)

type JoinType int

const (
	Inner JoinType = iota
	Left
)

// Node is one plan tree node.
type Node interface {
	Kind() Kind
	Schema() catalog.Schema
	Children() []Node
}

// Base holds the fields every node needs: its output schema (volcano
// model — every node's Next yields tuples of exactly this shape) and its
// child nodes.
type Base struct {
	OutSchema catalog.Schema
	Kids      []Node
}

func (b *Base) Schema() catalog.Schema { return b.OutSchema }
func (b *Base) Children() []Node       { return b.Kids }

// OrderKey is one ORDER BY term, shared by Sort, TopN, and Window.
type OrderKey struct {
	Expr expressions.Expression
	Desc bool
}
