// Package execution wires plans, expressions, and executors around a
// per-query ExecutorContext; the operators themselves live in the
// executors subpackage the way the teacher splits plans/expressions from
// executors.
package execution

import (
	"corundb/catalog"
	"corundb/mvcc"
	"corundb/txn"
)

// AccessorProvider resolves a table's mvcc.Accessor. Implemented by
// engine.Engine; kept as an interface here so this package never imports
// the engine package.
type AccessorProvider interface {
	Accessor(oid catalog.TableOID) *mvcc.Accessor
}

// ExecutorContext bundles everything an executor needs beyond its plan
// node and children: the running transaction, the catalog, and the means
// to read/write table rows through the MVCC write protocol.
type ExecutorContext struct {
	Txn       *txn.Transaction
	Catalog   *catalog.Catalog
	Accessors AccessorProvider
}

func NewExecutorContext(t *txn.Transaction, cat *catalog.Catalog, accessors AccessorProvider) *ExecutorContext {
	return &ExecutorContext{Txn: t, Catalog: cat, Accessors: accessors}
}
