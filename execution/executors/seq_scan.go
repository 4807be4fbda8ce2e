package executors

import (
	"corundb/execution"
	"corundb/execution/expressions"
	"corundb/execution/plans"
	"corundb/table"
)

// SeqScan iterates a table heap end to end, applying the read-visibility
// rule and an optional residual filter.
type SeqScan struct {
	Base
	plan *plans.SeqScanPlan
	iter *table.Iterator
}

func NewSeqScan(ctx *execution.ExecutorContext, plan *plans.SeqScanPlan) *SeqScan {
	return &SeqScan{Base: Base{ExecutorCtx: ctx, Schema: plan.OutSchema}, plan: plan}
}

func (e *SeqScan) Init() error {
	info := e.Ctx().Catalog.GetTableByOID(e.plan.TableOID)
	e.iter = table.NewIterator(info.Heap)
	return nil
}

func (e *SeqScan) Next(out *table.Tuple, rid *table.RID) (bool, error) {
	accessor := e.Ctx().Accessors.Accessor(e.plan.TableOID)
	for e.iter.Next() {
		r, _, _, err := e.iter.Current()
		if err != nil {
			return false, err
		}
		tuple, visible, err := accessor.Read(e.Ctx().Txn, r)
		if err != nil {
			return false, err
		}
		if !visible {
			continue
		}
		if e.plan.Predicate != nil && !expressions.AsBool(e.plan.Predicate.Eval(tuple, e.Schema)) {
			continue
		}
		*out = tuple
		*rid = r
		return true, nil
	}
	return false, nil
}
