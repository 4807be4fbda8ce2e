package executors

import (
	"sort"

	"corundb/catalog"
	"corundb/catalog/dbtype"
	"corundb/execution"
	"corundb/execution/plans"
	"corundb/table"
)

// Sort materializes its child's entire output, orders it by plan.Keys, and
// streams the result.
type Sort struct {
	Base
	plan  *plans.SortPlan
	child Executor
	rows  []table.Tuple
	rids  []table.RID
	cursor int
}

func NewSort(ctx *execution.ExecutorContext, plan *plans.SortPlan, child Executor) *Sort {
	return &Sort{Base: Base{ExecutorCtx: ctx, Schema: plan.OutSchema}, plan: plan, child: child}
}

func (e *Sort) Init() error {
	if err := e.child.Init(); err != nil {
		return err
	}
	e.rows = nil
	e.rids = nil
	var tuple table.Tuple
	var rid table.RID
	for {
		ok, err := e.child.Next(&tuple, &rid)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		e.rows = append(e.rows, tuple)
		e.rids = append(e.rids, rid)
	}

	idx := make([]int, len(e.rows))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return lessByKeys(e.Schema, e.rows[idx[i]], e.rows[idx[j]], e.plan.Keys)
	})

	sortedRows := make([]table.Tuple, len(idx))
	sortedRIDs := make([]table.RID, len(idx))
	for i, p := range idx {
		sortedRows[i] = e.rows[p]
		sortedRIDs[i] = e.rids[p]
	}
	e.rows = sortedRows
	e.rids = sortedRIDs
	e.cursor = 0
	return nil
}

func (e *Sort) Next(out *table.Tuple, rid *table.RID) (bool, error) {
	if e.cursor >= len(e.rows) {
		return false, nil
	}
	*out = e.rows[e.cursor]
	*rid = e.rids[e.cursor]
	e.cursor++
	return true, nil
}

// lessByKeys implements the comparator every ORDER BY-driven operator
// (Sort, TopN) shares: compare each key in order, first difference wins.
func lessByKeys(schema catalog.Schema, a, b table.Tuple, keys []plans.OrderKey) bool {
	for _, k := range keys {
		av := k.Expr.Eval(a, schema)
		bv := k.Expr.Eval(b, schema)
		if dbtype.Equal(av, bv) {
			continue
		}
		if k.Desc {
			return dbtype.Less(bv, av)
		}
		return dbtype.Less(av, bv)
	}
	return false
}
