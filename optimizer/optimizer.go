// Package optimizer applies a small, fixed set of rewrite rules to a plan
// tree: nested-loop joins with an equi-join predicate become hash joins,
// and sequential scans with an equality predicate on an indexed column
// become index scans. Both rules are applied bottom-up, once.
package optimizer

import (
	"corundb/catalog"
	"corundb/execution/plans"
)

// Optimize rewrites plan bottom-up, applying every rule in turn to each
// node after its children have already been optimized.
func Optimize(cat *catalog.Catalog, plan plans.Node) plans.Node {
	children := plan.Children()
	for i, child := range children {
		children[i] = Optimize(cat, child)
	}

	plan = rewriteHashJoin(plan)
	plan = rewriteIndexScan(cat, plan)
	return plan
}
