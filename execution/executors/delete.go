package executors

import (
	"corundb/execution"
	"corundb/execution/plans"
	"corundb/table"
)

// Delete drains its child and tombstones every row it produces. Index
// entries are left pointing at the tombstoned RID — per the write
// protocol's insert-after-delete rule, a later insert on the same key
// revives that slot rather than allocating a new one, so deletion must
// never remove the index's mapping. Emits a single row holding the delete
// count.
type Delete struct {
	Base
	plan  *plans.DeletePlan
	child Executor
	done  bool
}

func NewDelete(ctx *execution.ExecutorContext, plan *plans.DeletePlan, child Executor) *Delete {
	return &Delete{Base: Base{ExecutorCtx: ctx, Schema: plan.OutSchema}, plan: plan, child: child}
}

func (e *Delete) Init() error {
	e.done = false
	return e.child.Init()
}

func (e *Delete) Next(out *table.Tuple, rid *table.RID) (bool, error) {
	if e.done {
		return false, nil
	}
	e.done = true

	accessor := e.Ctx().Accessors.Accessor(e.plan.TableOID)

	count := 0
	var tuple table.Tuple
	var r table.RID
	for {
		ok, err := e.child.Next(&tuple, &r)
		if err != nil {
			return false, err
		}
		if !ok {
			break
		}
		if err := accessor.Delete(e.Ctx().Txn, r); err != nil {
			return false, err
		}
		count++
	}

	*out = countRow(count)
	*rid = table.RID{}
	return true, nil
}
