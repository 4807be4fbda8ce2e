package plans

import "corundb/catalog"

// SortPlan materializes its child and streams it back ordered by Keys.
type SortPlan struct {
	Base
	Keys []OrderKey
}

func NewSortPlan(outSchema catalog.Schema, child Node, keys []OrderKey) *SortPlan {
	return &SortPlan{Base: Base{OutSchema: outSchema, Kids: []Node{child}}, Keys: keys}
}

func (*SortPlan) Kind() Kind { return SortKind }

// TopNPlan keeps only the N smallest rows under Keys, the way a bounded
// heap would, without materializing the full child output.
type TopNPlan struct {
	Base
	Keys []OrderKey
	N    int
}

func NewTopNPlan(outSchema catalog.Schema, child Node, keys []OrderKey, n int) *TopNPlan {
	return &TopNPlan{Base: Base{OutSchema: outSchema, Kids: []Node{child}}, Keys: keys, N: n}
}

func (*TopNPlan) Kind() Kind { return TopNKind }
