package plans

import (
	"corundb/catalog"
	"corundb/catalog/dbtype"
	"corundb/execution/expressions"
)

// InsertPlan inserts either its child's output rows, or — when Child is
// nil — a literal set of raw rows (the teacher's "raw insert" shape).
type InsertPlan struct {
	Base
	TableOID catalog.TableOID
	RawRows  [][]dbtype.Value
}

func NewInsertPlan(outSchema catalog.Schema, tableOID catalog.TableOID, child Node) *InsertPlan {
	p := &InsertPlan{Base: Base{OutSchema: outSchema}, TableOID: tableOID}
	if child != nil {
		p.Kids = []Node{child}
	}
	return p
}

func NewRawInsertPlan(outSchema catalog.Schema, tableOID catalog.TableOID, rows [][]dbtype.Value) *InsertPlan {
	return &InsertPlan{Base: Base{OutSchema: outSchema}, TableOID: tableOID, RawRows: rows}
}

func (p *InsertPlan) Kind() Kind    { return InsertKind }
func (p *InsertPlan) IsRaw() bool   { return len(p.Kids) == 0 }

// DeletePlan tombstones every row its child produces.
type DeletePlan struct {
	Base
	TableOID catalog.TableOID
}

func NewDeletePlan(outSchema catalog.Schema, tableOID catalog.TableOID, child Node) *DeletePlan {
	return &DeletePlan{Base: Base{OutSchema: outSchema, Kids: []Node{child}}, TableOID: tableOID}
}

func (*DeletePlan) Kind() Kind { return DeleteKind }

// UpdatePlan re-evaluates TargetExprs against each row its child produces
// and writes the result back. PrimaryKeyCols names the columns whose
// change forces a delete+insert instead of an in-place update.
type UpdatePlan struct {
	Base
	TableOID      catalog.TableOID
	TargetExprs   []expressions.Expression
	PrimaryKeyCols []int
}

func NewUpdatePlan(outSchema catalog.Schema, tableOID catalog.TableOID, child Node, targets []expressions.Expression, pkCols []int) *UpdatePlan {
	return &UpdatePlan{Base: Base{OutSchema: outSchema, Kids: []Node{child}}, TableOID: tableOID, TargetExprs: targets, PrimaryKeyCols: pkCols}
}

func (*UpdatePlan) Kind() Kind { return UpdateKind }
