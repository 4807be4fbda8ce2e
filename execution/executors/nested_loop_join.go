package executors

import (
	"corundb/catalog"
	"corundb/execution"
	"corundb/execution/expressions"
	"corundb/execution/plans"
	"corundb/table"
)

// NestedLoopJoin rescans the right child for every left row. Supports
// INNER and LEFT; LEFT emits a null-padded row when no right row matched.
type NestedLoopJoin struct {
	Base
	plan  *plans.NestedLoopJoinPlan
	left  Executor
	right Executor

	leftSchema, rightSchema catalog.Schema
	leftTuple               table.Tuple
	leftRID                 table.RID
	leftValid               bool
	leftMatched             bool
}

func NewNestedLoopJoin(ctx *execution.ExecutorContext, plan *plans.NestedLoopJoinPlan, left, right Executor) *NestedLoopJoin {
	return &NestedLoopJoin{
		Base:        Base{ExecutorCtx: ctx, Schema: plan.OutSchema},
		plan:        plan,
		left:        left,
		right:       right,
		leftSchema:  left.OutSchema(),
		rightSchema: right.OutSchema(),
	}
}

func (e *NestedLoopJoin) Init() error {
	if err := e.left.Init(); err != nil {
		return err
	}
	return e.advanceLeft()
}

func (e *NestedLoopJoin) Next(out *table.Tuple, rid *table.RID) (bool, error) {
	for e.leftValid {
		var rightTuple table.Tuple
		var rightRID table.RID
		ok, err := e.right.Next(&rightTuple, &rightRID)
		if err != nil {
			return false, err
		}
		if ok {
			matches := e.plan.Predicate == nil ||
				expressions.AsBool(e.plan.Predicate.EvalJoin(e.leftTuple, e.leftSchema, rightTuple, e.rightSchema))
			if !matches {
				continue
			}
			e.leftMatched = true
			*out = catalog.ConcatTuples(e.leftTuple, rightTuple)
			*rid = e.leftRID
			return true, nil
		}

		unmatched := e.plan.JoinType == plans.Left && !e.leftMatched
		var emitTuple table.Tuple
		var emitRID table.RID
		if unmatched {
			nullRight := table.Tuple{Data: make([]byte, e.rightSchema.RowWidth())}
			emitTuple = catalog.ConcatTuples(e.leftTuple, nullRight)
			emitRID = e.leftRID
		}
		if err := e.advanceLeft(); err != nil {
			return false, err
		}
		if unmatched {
			*out = emitTuple
			*rid = emitRID
			return true, nil
		}
	}
	return false, nil
}

// advanceLeft fetches the next left row and restarts the right child
// against it.
func (e *NestedLoopJoin) advanceLeft() error {
	ok, err := e.left.Next(&e.leftTuple, &e.leftRID)
	if err != nil {
		return err
	}
	e.leftValid = ok
	e.leftMatched = false
	if !ok {
		return nil
	}
	return e.right.Init()
}
