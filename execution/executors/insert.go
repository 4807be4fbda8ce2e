package executors

import (
	"corundb/catalog"
	"corundb/execution"
	"corundb/execution/plans"
	"corundb/table"
)

// Insert drains its child (or a literal set of raw rows) and inserts each
// row into the target table, maintaining every index defined on it. Emits
// a single row holding the insert count.
type Insert struct {
	Base
	plan  *plans.InsertPlan
	child Executor
	done  bool
}

func NewInsert(ctx *execution.ExecutorContext, plan *plans.InsertPlan, child Executor) *Insert {
	return &Insert{Base: Base{ExecutorCtx: ctx, Schema: plan.OutSchema}, plan: plan, child: child}
}

func (e *Insert) Init() error {
	e.done = false
	if !e.plan.IsRaw() {
		return e.child.Init()
	}
	return nil
}

func (e *Insert) Next(out *table.Tuple, rid *table.RID) (bool, error) {
	if e.done {
		return false, nil
	}
	e.done = true

	info := e.Ctx().Catalog.GetTableByOID(e.plan.TableOID)
	indexes := e.Ctx().Catalog.GetTableIndexes(info.Name)
	accessor := e.Ctx().Accessors.Accessor(e.plan.TableOID)
	t := e.Ctx().Txn

	count := 0
	if e.plan.IsRaw() {
		for _, values := range e.plan.RawRows {
			tuple := catalog.NewTuple(values, info.Schema)
			if err := insertRow(t, accessor, info, indexes, tuple); err != nil {
				return false, err
			}
			count++
		}
	} else {
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
			if err := insertRow(t, accessor, info, indexes, tuple); err != nil {
				return false, err
			}
			count++
		}
	}

	*out = countRow(count)
	*rid = table.RID{}
	return true, nil
}
