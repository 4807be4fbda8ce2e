package plans

import (
	"corundb/catalog"
	"corundb/catalog/dbtype"
	"corundb/execution/expressions"
)

// SeqScanPlan iterates a table heap, applying an optional residual filter.
type SeqScanPlan struct {
	Base
	TableOID  catalog.TableOID
	Predicate expressions.Expression
}

func NewSeqScanPlan(outSchema catalog.Schema, tableOID catalog.TableOID, predicate expressions.Expression) *SeqScanPlan {
	return &SeqScanPlan{Base: Base{OutSchema: outSchema}, TableOID: tableOID, Predicate: predicate}
}

func (*SeqScanPlan) Kind() Kind { return SeqScanKind }

// IndexScanPlan probes a single-column-or-more equality index with a
// constant key, then applies an optional residual filter (e.g. the part
// of the original scan predicate the index didn't fully subsume).
type IndexScanPlan struct {
	Base
	TableOID  catalog.TableOID
	IndexOID  catalog.IndexOID
	ProbeKey  []dbtype.Value
	Residual  expressions.Expression
}

func NewIndexScanPlan(outSchema catalog.Schema, tableOID catalog.TableOID, indexOID catalog.IndexOID, probeKey []dbtype.Value, residual expressions.Expression) *IndexScanPlan {
	return &IndexScanPlan{Base: Base{OutSchema: outSchema}, TableOID: tableOID, IndexOID: indexOID, ProbeKey: probeKey, Residual: residual}
}

func (*IndexScanPlan) Kind() Kind { return IndexScanKind }
