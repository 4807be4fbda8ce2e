package plans

import (
	"corundb/catalog"
	"corundb/execution/expressions"
)

// NestedLoopJoinPlan evaluates Predicate against every (left, right) pair.
// The NLJ->HashJoin optimizer rule replaces this with a HashJoinPlan when
// Predicate is a conjunction of equalities.
type NestedLoopJoinPlan struct {
	Base
	JoinType  JoinType
	Predicate expressions.Expression
}

func NewNestedLoopJoinPlan(outSchema catalog.Schema, left, right Node, joinType JoinType, predicate expressions.Expression) *NestedLoopJoinPlan {
	return &NestedLoopJoinPlan{Base: Base{OutSchema: outSchema, Kids: []Node{left, right}}, JoinType: joinType, Predicate: predicate}
}

func (*NestedLoopJoinPlan) Kind() Kind { return NestedLoopJoinKind }

// HashJoinPlan builds a hash table on the left child keyed by LeftKeys,
// probing with RightKeys.
type HashJoinPlan struct {
	Base
	JoinType  JoinType
	LeftKeys  []expressions.Expression
	RightKeys []expressions.Expression
}

func NewHashJoinPlan(outSchema catalog.Schema, left, right Node, joinType JoinType, leftKeys, rightKeys []expressions.Expression) *HashJoinPlan {
	return &HashJoinPlan{Base: Base{OutSchema: outSchema, Kids: []Node{left, right}}, JoinType: joinType, LeftKeys: leftKeys, RightKeys: rightKeys}
}

func (*HashJoinPlan) Kind() Kind { return HashJoinKind }
