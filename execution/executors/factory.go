package executors

import (
	"fmt"

	"corundb/execution"
	"corundb/execution/plans"
)

// Build recursively instantiates the operator tree for plan, wiring each
// node's children first the way a volcano-style executor is assembled
// bottom-up.
func Build(ctx *execution.ExecutorContext, plan plans.Node) (Executor, error) {
	children := make([]Executor, len(plan.Children()))
	for i, child := range plan.Children() {
		c, err := Build(ctx, child)
		if err != nil {
			return nil, err
		}
		children[i] = c
	}

	switch p := plan.(type) {
	case *plans.SeqScanPlan:
		return NewSeqScan(ctx, p), nil
	case *plans.IndexScanPlan:
		return NewIndexScan(ctx, p), nil
	case *plans.InsertPlan:
		var child Executor
		if len(children) > 0 {
			child = children[0]
		}
		return NewInsert(ctx, p, child), nil
	case *plans.DeletePlan:
		return NewDelete(ctx, p, children[0]), nil
	case *plans.UpdatePlan:
		return NewUpdate(ctx, p, children[0]), nil
	case *plans.NestedLoopJoinPlan:
		return NewNestedLoopJoin(ctx, p, children[0], children[1]), nil
	case *plans.HashJoinPlan:
		return NewHashJoin(ctx, p, children[0], children[1]), nil
	case *plans.AggregationPlan:
		return NewAggregation(ctx, p, children[0]), nil
	case *plans.SortPlan:
		return NewSort(ctx, p, children[0]), nil
	case *plans.TopNPlan:
		return NewTopN(ctx, p, children[0]), nil
	case *plans.WindowPlan:
		return NewWindow(ctx, p, children[0]), nil
	default:
		return nil, fmt.Errorf("executors: unhandled plan node %T", plan)
	}
}
