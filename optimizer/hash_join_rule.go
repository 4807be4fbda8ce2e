package optimizer

import (
	"corundb/execution/expressions"
	"corundb/execution/plans"
)

// rewriteHashJoin replaces a NestedLoopJoinPlan with a HashJoinPlan when
// every conjunct of its predicate is a column-to-column equality that
// compares one side of the join to the other. A predicate with any
// non-equality conjunct, or one that isn't column-vs-column, is left as a
// nested-loop join — HashJoinPlan has no residual filter slot, so a
// partial match can't be expressed.
func rewriteHashJoin(node plans.Node) plans.Node {
	nlj, ok := node.(*plans.NestedLoopJoinPlan)
	if !ok {
		return node
	}
	if nlj.Predicate == nil {
		return node
	}

	conjuncts := expressions.Conjuncts(nlj.Predicate)
	leftKeys := make([]expressions.Expression, 0, len(conjuncts))
	rightKeys := make([]expressions.Expression, 0, len(conjuncts))

	for _, c := range conjuncts {
		cmp, ok := c.(*expressions.Comparison)
		if !ok || cmp.Op != expressions.Eq {
			return node
		}
		kids := cmp.Children()
		lhs, lok := kids[0].(*expressions.ColumnValue)
		rhs, rok := kids[1].(*expressions.ColumnValue)
		if !lok || !rok || lhs.TupleIdx == rhs.TupleIdx {
			return node
		}
		if lhs.TupleIdx == 0 {
			leftKeys = append(leftKeys, lhs)
			rightKeys = append(rightKeys, rhs)
		} else {
			leftKeys = append(leftKeys, rhs)
			rightKeys = append(rightKeys, lhs)
		}
	}

	kids := nlj.Children()
	return plans.NewHashJoinPlan(nlj.Schema(), kids[0], kids[1], nlj.JoinType, leftKeys, rightKeys)
}
