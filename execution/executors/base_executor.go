// Package executors implements the volcano-style Init/Next operators: one
// type per plan.Kind, composed by the factory in executors/factory.go.
package executors

import (
	"corundb/catalog"
	"corundb/execution"
	"corundb/table"
)

// Executor is the uniform operator contract: Init resets iteration state,
// Next produces the next (tuple, rid) pair or reports exhaustion.
type Executor interface {
	Init() error
	Next(t *table.Tuple, rid *table.RID) (bool, error)
	Ctx() *execution.ExecutorContext
	OutSchema() catalog.Schema
}

// Base implements the trivial parts of Executor every concrete operator
// embeds.
type Base struct {
	ExecutorCtx *execution.ExecutorContext
	Schema      catalog.Schema
}

func (b *Base) Ctx() *execution.ExecutorContext { return b.ExecutorCtx }
func (b *Base) OutSchema() catalog.Schema        { return b.Schema }
