// Command corundb opens a database file and runs a short built-in demo
// against it: create a table and an index, insert rows inside one
// transaction, then scan them back through the index in another. It
// exists to exercise the engine end to end, the way the teacher's demo.go
// exercised the bare buffer pool.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/sirupsen/logrus"

	"corundb/catalog"
	"corundb/catalog/dbtype"
	"corundb/engine"
	"corundb/execution/plans"
	"corundb/txn"
)

func main() {
	path := flag.String("db", "corundb.db", "database file path")
	poolSize := flag.Int("pool-size", 256, "buffer pool frame count")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	logger := logrus.New()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	e, err := engine.Open(*path, engine.Config{PoolSize: *poolSize, Log: logrus.NewEntry(logger)})
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	defer e.Close()

	if err := runDemo(e); err != nil {
		log.Fatalf("demo: %v", err)
	}
}

func runDemo(e *engine.Engine) error {
	schema := catalog.NewSchema([]catalog.Column{
		{Name: "id", Type: dbtype.TypeID{Kind: dbtype.KindInteger}},
		{Name: "name", Type: dbtype.TypeID{Kind: dbtype.KindVarchar, Size: 32}},
	})

	info, err := e.CreateTable("users", schema)
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	idx, err := e.CreateIndex("users_pk", "users", []int{0}, true)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	countSchema := catalog.NewSchema([]catalog.Column{{Name: "count", Type: dbtype.TypeID{Kind: dbtype.KindInteger}}})

	insertTxn := e.Begin(txn.Snapshot)
	rows := [][]dbtype.Value{
		{dbtype.NewInt(1), dbtype.NewVarchar("ada", 32)},
		{dbtype.NewInt(2), dbtype.NewVarchar("grace", 32)},
		{dbtype.NewInt(3), dbtype.NewVarchar("margaret", 32)},
	}
	insertPlan := plans.NewRawInsertPlan(countSchema, info.OID, rows)
	if _, err := e.Execute(insertTxn, insertPlan); err != nil {
		e.Abort(insertTxn)
		return fmt.Errorf("insert: %w", err)
	}
	if err := e.Commit(insertTxn); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}

	readTxn := e.Begin(txn.Snapshot)
	probe := plans.NewIndexScanPlan(schema, info.OID, idx.OID, []dbtype.Value{dbtype.NewInt(2)}, nil)
	result, err := e.Execute(readTxn, probe)
	if err != nil {
		e.Abort(readTxn)
		return fmt.Errorf("index scan: %w", err)
	}
	if err := e.Commit(readTxn); err != nil {
		return fmt.Errorf("commit read: %w", err)
	}

	for _, tuple := range result {
		id := catalog.GetValue(schema, tuple, 0)
		name := catalog.GetValue(schema, tuple, 1)
		fmt.Printf("id=%d name=%s\n", id.AsInt32(), name.AsString())
	}

	return nil
}
