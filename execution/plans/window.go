package plans

import (
	"corundb/catalog"
	"corundb/execution/expressions"
)

// WindowFunc is one window function column: Op (including Rank) applied
// to Arg (nil for CountStar/Rank), partitioned and ordered per the
// enclosing WindowPlan.
type WindowFunc struct {
	Op  WindowOp
	Arg expressions.Expression
}

type WindowOp int

const (
	WinCountStar WindowOp = iota
	WinCount
	WinSum
	WinMin
	WinMax
	WinRank
)

// WindowPlan appends one running-aggregate column per Funcs entry to each
// input row, computed over PartitionBy groups ordered by OrderBy.
type WindowPlan struct {
	Base
	PartitionBy []expressions.Expression
	OrderBy     []OrderKey
	Funcs       []WindowFunc
}

func NewWindowPlan(outSchema catalog.Schema, child Node, partitionBy []expressions.Expression, orderBy []OrderKey, funcs []WindowFunc) *WindowPlan {
	return &WindowPlan{Base: Base{OutSchema: outSchema, Kids: []Node{child}}, PartitionBy: partitionBy, OrderBy: orderBy, Funcs: funcs}
}

func (*WindowPlan) Kind() Kind { return WindowKind }
