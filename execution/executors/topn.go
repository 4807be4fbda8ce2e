package executors

import (
	"container/heap"
	"sort"

	"corundb/catalog"
	"corundb/execution"
	"corundb/execution/plans"
	"corundb/table"
)

// TopN keeps only the N least (by plan.Keys) rows seen, using a bounded
// max-heap under the inverse comparator so the current worst-of-the-best
// is always the one considered for eviction — the standard bounded top-N
// pattern, grounded on container/heap rather than a hand-rolled structure.
type TopN struct {
	Base
	plan  *plans.TopNPlan
	child Executor

	rows   []table.Tuple
	rids   []table.RID
	cursor int
}

func NewTopN(ctx *execution.ExecutorContext, plan *plans.TopNPlan, child Executor) *TopN {
	return &TopN{Base: Base{ExecutorCtx: ctx, Schema: plan.OutSchema}, plan: plan, child: child}
}

type rowRID struct {
	tuple table.Tuple
	rid   table.RID
}

// topNMaxHeap is a max-heap under the ORDER BY comparator: its root is the
// worst-ranked row among those currently kept, the one eviction pops first.
type topNMaxHeap struct {
	items  []rowRID
	schema catalog.Schema
	keys   []plans.OrderKey
}

func (h *topNMaxHeap) Len() int { return len(h.items) }
func (h *topNMaxHeap) Less(i, j int) bool {
	return lessByKeys(h.schema, h.items[j].tuple, h.items[i].tuple, h.keys)
}
func (h *topNMaxHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *topNMaxHeap) Push(x any)    { h.items = append(h.items, x.(rowRID)) }
func (h *topNMaxHeap) Pop() any {
	n := len(h.items)
	item := h.items[n-1]
	h.items = h.items[:n-1]
	return item
}

func (e *TopN) Init() error {
	if err := e.child.Init(); err != nil {
		return err
	}

	h := &topNMaxHeap{schema: e.Schema, keys: e.plan.Keys}
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
		heap.Push(h, rowRID{tuple: tuple, rid: rid})
		if h.Len() > e.plan.N {
			heap.Pop(h)
		}
	}

	sort.Sort(sort.Reverse(h))
	e.rows = make([]table.Tuple, h.Len())
	e.rids = make([]table.RID, h.Len())
	for i, r := range h.items {
		e.rows[i] = r.tuple
		e.rids[i] = r.rid
	}
	e.cursor = 0
	return nil
}

func (e *TopN) Next(out *table.Tuple, rid *table.RID) (bool, error) {
	if e.cursor >= len(e.rows) {
		return false, nil
	}
	*out = e.rows[e.cursor]
	*rid = e.rids[e.cursor]
	e.cursor++
	return true, nil
}
