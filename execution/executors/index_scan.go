package executors

import (
	"corundb/catalog"
	"corundb/execution"
	"corundb/execution/expressions"
	"corundb/execution/plans"
	"corundb/table"
)

// IndexScan probes a single equality index with a constant key and
// resolves to at most one row.
type IndexScan struct {
	Base
	plan *plans.IndexScanPlan
	done bool
}

func NewIndexScan(ctx *execution.ExecutorContext, plan *plans.IndexScanPlan) *IndexScan {
	return &IndexScan{Base: Base{ExecutorCtx: ctx, Schema: plan.OutSchema}, plan: plan}
}

func (e *IndexScan) Init() error {
	e.done = false
	return nil
}

func (e *IndexScan) Next(out *table.Tuple, rid *table.RID) (bool, error) {
	if e.done {
		return false, nil
	}
	e.done = true

	idx := e.Ctx().Catalog.GetIndexByOID(e.plan.IndexOID)
	keyTuple := catalog.NewTuple(e.plan.ProbeKey, idx.KeySchema)

	encoded, found, err := idx.Index.Get(keyTuple.Data)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	r := table.DecodeRID(encoded)

	accessor := e.Ctx().Accessors.Accessor(e.plan.TableOID)
	tuple, visible, err := accessor.Read(e.Ctx().Txn, r)
	if err != nil {
		return false, err
	}
	if !visible {
		return false, nil
	}
	if e.plan.Residual != nil && !expressions.AsBool(e.plan.Residual.Eval(tuple, e.Schema)) {
		return false, nil
	}
	*out = tuple
	*rid = r
	return true, nil
}
