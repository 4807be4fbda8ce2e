package executors

import (
	"corundb/catalog"
	"corundb/catalog/dbtype"
	"corundb/execution"
	"corundb/execution/plans"
	"corundb/table"
)

// Update re-evaluates plan.TargetExprs against each row its child produces.
// A change to any primary-key column is performed as delete-of-old plus
// insert-of-new (possibly reviving a tombstone); any other change updates
// in place. Emits a single row holding the update count.
type Update struct {
	Base
	plan  *plans.UpdatePlan
	child Executor
	done  bool
}

func NewUpdate(ctx *execution.ExecutorContext, plan *plans.UpdatePlan, child Executor) *Update {
	return &Update{Base: Base{ExecutorCtx: ctx, Schema: plan.OutSchema}, plan: plan, child: child}
}

func (e *Update) Init() error {
	e.done = false
	return e.child.Init()
}

func (e *Update) Next(out *table.Tuple, rid *table.RID) (bool, error) {
	if e.done {
		return false, nil
	}
	e.done = true

	info := e.Ctx().Catalog.GetTableByOID(e.plan.TableOID)
	indexes := e.Ctx().Catalog.GetTableIndexes(info.Name)
	accessor := e.Ctx().Accessors.Accessor(e.plan.TableOID)
	t := e.Ctx().Txn

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

		values := make([]dbtype.Value, len(e.plan.TargetExprs))
		for i, expr := range e.plan.TargetExprs {
			values[i] = expr.Eval(tuple, info.Schema)
		}
		newTuple := catalog.NewTuple(values, info.Schema)

		if e.primaryKeyChanged(info.Schema, tuple, newTuple) {
			if err := accessor.Delete(t, r); err != nil {
				return false, err
			}
			if err := insertRow(t, accessor, info, indexes, newTuple); err != nil {
				return false, err
			}
		} else if err := accessor.Update(t, r, newTuple); err != nil {
			return false, err
		}
		count++
	}

	*out = countRow(count)
	*rid = table.RID{}
	return true, nil
}

func (e *Update) primaryKeyChanged(schema catalog.Schema, oldTuple, newTuple table.Tuple) bool {
	for _, colIdx := range e.plan.PrimaryKeyCols {
		if !dbtype.Equal(catalog.GetValue(schema, oldTuple, colIdx), catalog.GetValue(schema, newTuple, colIdx)) {
			return true
		}
	}
	return false
}
