package plans

import (
	"corundb/catalog"
	"corundb/execution/expressions"
)

type AggType int

const (
	CountStar AggType = iota
	Count
	Sum
	Min
	Max
)

// AggregateTerm is one aggregate in the SELECT list: Op applied to Arg
// (Arg is nil for CountStar).
type AggregateTerm struct {
	Op  AggType
	Arg expressions.Expression
}

// AggregationPlan groups its child's output by GroupBys and emits one row
// per group, the aggregate columns followed after the group-by columns.
type AggregationPlan struct {
	Base
	GroupBys   []expressions.Expression
	Aggregates []AggregateTerm
}

func NewAggregationPlan(outSchema catalog.Schema, child Node, groupBys []expressions.Expression, aggregates []AggregateTerm) *AggregationPlan {
	return &AggregationPlan{Base: Base{OutSchema: outSchema, Kids: []Node{child}}, GroupBys: groupBys, Aggregates: aggregates}
}

func (*AggregationPlan) Kind() Kind { return AggregationKind }
