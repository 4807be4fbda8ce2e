package optimizer

import (
	"corundb/catalog"
	"corundb/catalog/dbtype"
	"corundb/execution/expressions"
	"corundb/execution/plans"
)

// rewriteIndexScan replaces a SeqScanPlan with an IndexScanPlan when its
// predicate has an equality conjunct, against a constant, on a column that
// a single-column index on the table covers. Remaining conjuncts (if any)
// survive as the index scan's residual filter.
func rewriteIndexScan(cat *catalog.Catalog, node plans.Node) plans.Node {
	scan, ok := node.(*plans.SeqScanPlan)
	if !ok || scan.Predicate == nil {
		return node
	}

	info := cat.GetTableByOID(scan.TableOID)
	if info == nil {
		return node
	}
	indexes := cat.GetTableIndexes(info.Name)
	if len(indexes) == 0 {
		return node
	}

	conjuncts := expressions.Conjuncts(scan.Predicate)

	for _, idx := range indexes {
		if len(idx.ColumnIndexes) != 1 {
			continue
		}
		targetCol := idx.ColumnIndexes[0]

		for i, c := range conjuncts {
			cmp, ok := c.(*expressions.Comparison)
			if !ok || cmp.Op != expressions.Eq {
				continue
			}
			kids := cmp.Children()
			colExpr, constExpr, matched := matchEquality(kids[0], kids[1], targetCol)
			if !matched {
				continue
			}
			_ = colExpr

			residual := residualOf(conjuncts, i)
			return plans.NewIndexScanPlan(scan.Schema(), scan.TableOID, idx.OID, []dbtype.Value{constExpr.Val}, residual)
		}
	}

	return node
}

// matchEquality reports whether (a, b) is a ColumnValue-vs-Constant pair
// where the column is colIdx, regardless of which side it's on.
func matchEquality(a, b expressions.Expression, colIdx int) (*expressions.ColumnValue, *expressions.Constant, bool) {
	if col, ok := a.(*expressions.ColumnValue); ok {
		if cst, ok := b.(*expressions.Constant); ok && col.TupleIdx == 0 && col.ColIdx == colIdx {
			return col, cst, true
		}
	}
	if col, ok := b.(*expressions.ColumnValue); ok {
		if cst, ok := a.(*expressions.Constant); ok && col.TupleIdx == 0 && col.ColIdx == colIdx {
			return col, cst, true
		}
	}
	return nil, nil, false
}

// residualOf rebuilds a predicate from every conjunct except skipIdx.
func residualOf(conjuncts []expressions.Expression, skipIdx int) expressions.Expression {
	remaining := make([]expressions.Expression, 0, len(conjuncts)-1)
	for i, c := range conjuncts {
		if i == skipIdx {
			continue
		}
		remaining = append(remaining, c)
	}
	switch len(remaining) {
	case 0:
		return nil
	case 1:
		return remaining[0]
	default:
		return expressions.NewLogicAnd(remaining...)
	}
}
