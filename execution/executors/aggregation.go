package executors

import (
	"corundb/catalog"
	"corundb/catalog/dbtype"
	"corundb/execution"
	"corundb/execution/plans"
	"corundb/table"
)

// Aggregation groups its child's output by plan.GroupBys and emits one row
// per group: group-by columns followed by one column per aggregate. With
// no group-by and no input rows, emits a single row of aggregate
// identities (0 for count kinds, null for sum/min/max) rather than nothing.
type Aggregation struct {
	Base
	plan        *plans.AggregationPlan
	child       Executor
	childSchema catalog.Schema

	rows    []table.Tuple
	cursor  int
}

type aggState struct {
	countStar int32 // rows seen in the group, for CountStar
	count     int32 // non-null values seen, for Count/Sum
	sum       int32
	min, max  dbtype.Value
	haveMM    bool
}

func NewAggregation(ctx *execution.ExecutorContext, plan *plans.AggregationPlan, child Executor) *Aggregation {
	return &Aggregation{Base: Base{ExecutorCtx: ctx, Schema: plan.OutSchema}, plan: plan, child: child, childSchema: child.OutSchema()}
}

func (e *Aggregation) Init() error {
	if err := e.child.Init(); err != nil {
		return err
	}

	type group struct {
		key    []dbtype.Value
		states []aggState
	}
	order := make([]string, 0)
	groups := make(map[string]*group)

	var tuple table.Tuple
	var rid table.RID
	anyInput := false
	for {
		ok, err := e.child.Next(&tuple, &rid)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		anyInput = true

		key := make([]dbtype.Value, len(e.plan.GroupBys))
		for i, expr := range e.plan.GroupBys {
			key[i] = expr.Eval(tuple, e.childSchema)
		}
		hashKey := e.hashKey(key)

		g, ok := groups[hashKey]
		if !ok {
			g = &group{key: key, states: make([]aggState, len(e.plan.Aggregates))}
			groups[hashKey] = g
			order = append(order, hashKey)
		}
		for i, term := range e.plan.Aggregates {
			applyAgg(&g.states[i], term, tuple, e.childSchema)
		}
	}

	e.rows = nil
	if !anyInput && len(e.plan.GroupBys) == 0 {
		states := make([]aggState, len(e.plan.Aggregates))
		e.rows = append(e.rows, e.buildRow(nil, states))
	} else {
		for _, k := range order {
			g := groups[k]
			e.rows = append(e.rows, e.buildRow(g.key, g.states))
		}
	}
	e.cursor = 0
	return nil
}

func (e *Aggregation) hashKey(key []dbtype.Value) string {
	var buf []byte
	for _, v := range key {
		buf = append(buf, keyBytes(v)...)
		buf = append(buf, 0)
	}
	return string(buf)
}

func applyAgg(s *aggState, term plans.AggregateTerm, tuple table.Tuple, schema catalog.Schema) {
	s.countStar++
	if term.Op == plans.CountStar {
		return
	}
	v := term.Arg.Eval(tuple, schema)
	if v.IsNull() {
		return
	}
	s.count++
	switch term.Op {
	case plans.Sum:
		s.sum += v.AsInt32()
	case plans.Min:
		if !s.haveMM || dbtype.Less(v, s.min) {
			s.min = v
			s.haveMM = true
		}
	case plans.Max:
		if !s.haveMM || dbtype.Less(s.max, v) {
			s.max = v
			s.haveMM = true
		}
	}
}

func (e *Aggregation) buildRow(key []dbtype.Value, states []aggState) table.Tuple {
	values := make([]dbtype.Value, 0, len(key)+len(states))
	values = append(values, key...)
	for i, term := range e.plan.Aggregates {
		s := states[i]
		switch term.Op {
		case plans.CountStar:
			values = append(values, dbtype.NewInt(s.countStar))
		case plans.Count:
			values = append(values, dbtype.NewInt(s.count))
		case plans.Sum:
			if s.count == 0 {
				values = append(values, dbtype.NewNull(dbtype.TypeID{Kind: dbtype.KindInteger}))
			} else {
				values = append(values, dbtype.NewInt(s.sum))
			}
		case plans.Min, plans.Max:
			if !s.haveMM {
				values = append(values, dbtype.NewNull(dbtype.TypeID{Kind: dbtype.KindInteger}))
			} else if term.Op == plans.Min {
				values = append(values, s.min)
			} else {
				values = append(values, s.max)
			}
		}
	}
	return catalog.NewTuple(values, e.Schema)
}

func (e *Aggregation) Next(out *table.Tuple, rid *table.RID) (bool, error) {
	if e.cursor >= len(e.rows) {
		return false, nil
	}
	*out = e.rows[e.cursor]
	*rid = table.RID{}
	e.cursor++
	return true, nil
}
