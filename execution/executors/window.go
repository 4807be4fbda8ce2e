package executors

import (
	"sort"

	"corundb/catalog"
	"corundb/catalog/dbtype"
	"corundb/execution"
	"corundb/execution/plans"
	"corundb/table"
)

// Window appends one running-aggregate column per plan.Funcs to each input
// row: rows are grouped by PartitionBy, ordered within a partition by
// OrderBy, and each function is folded over the rows seen so far in that
// order (a running total, not a whole-partition aggregate).
type Window struct {
	Base
	plan        *plans.WindowPlan
	child       Executor
	childSchema catalog.Schema

	rows   []table.Tuple
	rids   []table.RID
	cursor int
}

func NewWindow(ctx *execution.ExecutorContext, plan *plans.WindowPlan, child Executor) *Window {
	return &Window{Base: Base{ExecutorCtx: ctx, Schema: plan.OutSchema}, plan: plan, child: child, childSchema: child.OutSchema()}
}

func (e *Window) Init() error {
	if err := e.child.Init(); err != nil {
		return err
	}

	var baseRows []table.Tuple
	var baseRIDs []table.RID
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
		baseRows = append(baseRows, tuple)
		baseRIDs = append(baseRIDs, rid)
	}

	n := len(baseRows)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	partKey := func(i int) string {
		var buf []byte
		for _, expr := range e.plan.PartitionBy {
			v := expr.Eval(baseRows[i], e.childSchema)
			buf = append(buf, keyBytes(v)...)
			buf = append(buf, 0)
		}
		return string(buf)
	}

	sort.SliceStable(idx, func(a, b int) bool {
		pa, pb := partKey(idx[a]), partKey(idx[b])
		if pa != pb {
			return pa < pb
		}
		return lessByKeys(e.childSchema, baseRows[idx[a]], baseRows[idx[b]], e.plan.OrderBy)
	})

	states := make([]aggState, len(e.plan.Funcs))
	var lastPart string
	havePart := false
	rank := 0
	lastRank := 0
	var lastOrderVals []dbtype.Value

	e.rows = make([]table.Tuple, n)
	e.rids = make([]table.RID, n)

	for pos, i := range idx {
		row := baseRows[i]
		e.rids[pos] = baseRIDs[i]

		p := partKey(i)
		if !havePart || p != lastPart {
			for s := range states {
				states[s] = aggState{}
			}
			lastPart = p
			havePart = true
			rank = 0
			lastRank = 0
			lastOrderVals = nil
		}

		orderVals := make([]dbtype.Value, len(e.plan.OrderBy))
		for k, ok := range e.plan.OrderBy {
			orderVals[k] = ok.Expr.Eval(row, e.childSchema)
		}
		// Standard RANK(): row count so far determines the candidate rank,
		// but rows tying the previous row's order key keep its rank instead
		// of advancing (the next distinct key then jumps by the tie size).
		rank++
		var effectiveRank int
		if lastOrderVals != nil && sameValues(orderVals, lastOrderVals) {
			effectiveRank = lastRank
		} else {
			effectiveRank = rank
			lastOrderVals = orderVals
		}
		lastRank = effectiveRank

		values := make([]dbtype.Value, 0, e.childSchema.Len()+len(e.plan.Funcs))
		for c := 0; c < e.childSchema.Len(); c++ {
			values = append(values, catalog.GetValue(e.childSchema, row, c))
		}
		for fi, fn := range e.plan.Funcs {
			applyWindowFunc(&states[fi], fn, row, e.childSchema)
			values = append(values, windowValue(fn, states[fi], effectiveRank))
		}
		e.rows[pos] = catalog.NewTuple(values, e.Schema)
	}

	e.cursor = 0
	return nil
}

func sameValues(a, b []dbtype.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !dbtype.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func applyWindowFunc(s *aggState, fn plans.WindowFunc, tuple table.Tuple, schema catalog.Schema) {
	s.countStar++
	if fn.Op == plans.WinCountStar || fn.Op == plans.WinRank {
		return
	}
	v := fn.Arg.Eval(tuple, schema)
	if v.IsNull() {
		return
	}
	s.count++
	switch fn.Op {
	case plans.WinSum:
		s.sum += v.AsInt32()
	case plans.WinMin:
		if !s.haveMM || dbtype.Less(v, s.min) {
			s.min = v
			s.haveMM = true
		}
	case plans.WinMax:
		if !s.haveMM || dbtype.Less(s.max, v) {
			s.max = v
			s.haveMM = true
		}
	}
}

func windowValue(fn plans.WindowFunc, s aggState, rank int) dbtype.Value {
	switch fn.Op {
	case plans.WinCountStar:
		return dbtype.NewInt(s.countStar)
	case plans.WinCount:
		return dbtype.NewInt(s.count)
	case plans.WinSum:
		if s.count == 0 {
			return dbtype.NewNull(dbtype.TypeID{Kind: dbtype.KindInteger})
		}
		return dbtype.NewInt(s.sum)
	case plans.WinMin:
		if !s.haveMM {
			return dbtype.NewNull(dbtype.TypeID{Kind: dbtype.KindInteger})
		}
		return s.min
	case plans.WinMax:
		if !s.haveMM {
			return dbtype.NewNull(dbtype.TypeID{Kind: dbtype.KindInteger})
		}
		return s.max
	case plans.WinRank:
		return dbtype.NewInt(int32(rank))
	}
	return dbtype.NewNull(dbtype.TypeID{Kind: dbtype.KindInteger})
}

func (e *Window) Next(out *table.Tuple, rid *table.RID) (bool, error) {
	if e.cursor >= len(e.rows) {
		return false, nil
	}
	*out = e.rows[e.cursor]
	*rid = e.rids[e.cursor]
	e.cursor++
	return true, nil
}
