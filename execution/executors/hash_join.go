package executors

import (
	"corundb/catalog"
	"corundb/catalog/dbtype"
	"corundb/execution"
	"corundb/execution/expressions"
	"corundb/execution/plans"
	"corundb/table"
)

// HashJoin builds an in-memory hash table over the left child keyed by
// plan.LeftKeys, then probes it once per right row. Supports INNER and
// LEFT; LEFT emits unmatched left rows after the right child is drained.
type HashJoin struct {
	Base
	plan  *plans.HashJoinPlan
	left  Executor
	right Executor

	leftSchema, rightSchema catalog.Schema
	buckets                 map[string][]hashJoinEntry
	matchedLeft             map[string]bool

	probeMatches []table.Tuple
	probeIdx     int
	probeLeftKey string

	leftover    []string
	leftoverIdx int
}

type hashJoinEntry struct {
	tuple table.Tuple
	rid   table.RID
}

func NewHashJoin(ctx *execution.ExecutorContext, plan *plans.HashJoinPlan, left, right Executor) *HashJoin {
	return &HashJoin{
		Base:        Base{ExecutorCtx: ctx, Schema: plan.OutSchema},
		plan:        plan,
		left:        left,
		right:       right,
		leftSchema:  left.OutSchema(),
		rightSchema: right.OutSchema(),
	}
}

func (e *HashJoin) Init() error {
	if err := e.left.Init(); err != nil {
		return err
	}
	if err := e.right.Init(); err != nil {
		return err
	}

	e.buckets = make(map[string][]hashJoinEntry)
	e.matchedLeft = make(map[string]bool)
	e.probeMatches = nil
	e.probeIdx = 0
	e.leftover = nil
	e.leftoverIdx = 0

	var tuple table.Tuple
	var rid table.RID
	for {
		ok, err := e.left.Next(&tuple, &rid)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		key := e.hashKey(e.plan.LeftKeys, tuple, e.leftSchema)
		e.buckets[key] = append(e.buckets[key], hashJoinEntry{tuple: tuple, rid: rid})
	}
	return nil
}

func (e *HashJoin) hashKey(exprs []expressions.Expression, tuple table.Tuple, schema catalog.Schema) string {
	var buf []byte
	for _, expr := range exprs {
		v := expr.Eval(tuple, schema)
		buf = append(buf, keyBytes(v)...)
		buf = append(buf, 0)
	}
	return string(buf)
}

func keyBytes(v dbtype.Value) []byte {
	if v.IsNull() {
		return []byte{0xff}
	}
	buf := make([]byte, dbtype.Size(v.TypeID()))
	dbtype.Serialize(buf, v)
	return buf
}

func (e *HashJoin) Next(out *table.Tuple, rid *table.RID) (bool, error) {
	for {
		if e.probeIdx < len(e.probeMatches) {
			m := e.probeMatches[e.probeIdx]
			e.probeIdx++
			*out = m
			*rid = table.RID{}
			return true, nil
		}

		var rightTuple table.Tuple
		var rightRID table.RID
		ok, err := e.right.Next(&rightTuple, &rightRID)
		if err != nil {
			return false, err
		}
		if !ok {
			break
		}

		key := e.hashKey(e.plan.RightKeys, rightTuple, e.rightSchema)
		entries := e.buckets[key]
		e.probeMatches = e.probeMatches[:0]
		for _, entry := range entries {
			e.matchedLeft[key] = true
			e.probeMatches = append(e.probeMatches, catalog.ConcatTuples(entry.tuple, rightTuple))
		}
		e.probeIdx = 0
	}

	if e.plan.JoinType != plans.Left {
		return false, nil
	}

	if e.leftover == nil {
		for key := range e.buckets {
			if !e.matchedLeft[key] {
				e.leftover = append(e.leftover, key)
			}
		}
	}
	for e.leftoverIdx < len(e.leftover) {
		key := e.leftover[e.leftoverIdx]
		e.leftoverIdx++
		entries := e.buckets[key]
		if len(entries) == 0 {
			continue
		}
		nullRight := table.Tuple{Data: make([]byte, e.rightSchema.RowWidth())}
		e.probeMatches = e.probeMatches[:0]
		for _, entry := range entries {
			e.probeMatches = append(e.probeMatches, catalog.ConcatTuples(entry.tuple, nullRight))
		}
		e.probeIdx = 1
		*out = e.probeMatches[0]
		*rid = table.RID{}
		return true, nil
	}
	return false, nil
}
