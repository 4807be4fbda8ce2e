// Package engine ties the storage, MVCC, and execution layers together
// behind a single handle: open a database file, begin transactions, and
// run plans against it. It plays the role the teacher's db package plays
// for its own (non-transactional, non-relational) store.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"corundb/buffer"
	"corundb/catalog"
	"corundb/execution"
	"corundb/execution/executors"
	"corundb/execution/plans"
	"corundb/mvcc"
	"corundb/optimizer"
	"corundb/storage/disk"
	"corundb/table"
	"corundb/txn"
)

// Config configures a freshly opened Engine. Zero values are replaced with
// sane defaults by Open.
type Config struct {
	PoolSize     int           // number of buffer pool frames
	ReplacerK    int           // K used by the LRU-K replacer
	GCInterval   time.Duration // how often RunGC runs in the background
	IndexHeaderK uint8         // extendible hash header depth for new indexes
	IndexDirK    uint8         // extendible hash directory depth for new indexes
	Log          *logrus.Entry
}

func (c Config) withDefaults() Config {
	if c.PoolSize == 0 {
		c.PoolSize = 256
	}
	if c.ReplacerK == 0 {
		c.ReplacerK = 2
	}
	if c.GCInterval == 0 {
		c.GCInterval = 5 * time.Second
	}
	if c.IndexHeaderK == 0 {
		c.IndexHeaderK = 9
	}
	if c.IndexDirK == 0 {
		c.IndexDirK = 9
	}
	if c.Log == nil {
		c.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	return c
}

// Engine is the top-level handle: one disk file, one buffer pool, one
// catalog, one transaction manager.
type Engine struct {
	cfg  Config
	dm   *disk.Manager
	sch  *disk.Scheduler
	bpm  *buffer.PoolManager
	cat  *catalog.Catalog
	txns *txn.Manager
	log  *logrus.Entry

	mu        sync.Mutex
	accessors map[catalog.TableOID]*mvcc.Accessor

	gcStop chan struct{}
	gcDone chan struct{}
}

// Open opens (or creates) the database file at path and starts its
// background GC ticker.
func Open(path string, cfg Config) (*Engine, error) {
	cfg = cfg.withDefaults()

	dm, err := disk.Open(path)
	if err != nil {
		return nil, fmt.Errorf("engine: open %q: %w", path, err)
	}
	sch := disk.NewScheduler(dm)
	bpm := buffer.NewPoolManager(cfg.PoolSize, cfg.ReplacerK, dm, sch, cfg.Log)
	cat := catalog.New(bpm)
	txns := txn.NewManager(cfg.Log)

	e := &Engine{
		cfg:       cfg,
		dm:        dm,
		sch:       sch,
		bpm:       bpm,
		cat:       cat,
		txns:      txns,
		log:       cfg.Log.WithField("component", "engine"),
		accessors: make(map[catalog.TableOID]*mvcc.Accessor),
		gcStop:    make(chan struct{}),
		gcDone:    make(chan struct{}),
	}
	go e.runGCLoop()
	return e, nil
}

func (e *Engine) runGCLoop() {
	defer close(e.gcDone)
	ticker := time.NewTicker(e.cfg.GCInterval)
	defer ticker.Stop()
	for {
		select {
		case <-e.gcStop:
			return
		case <-ticker.C:
			if n := e.txns.RunGC(); n > 0 {
				e.log.Debugf("gc collected %d transactions", n)
			}
		}
	}
}

// Close stops background GC, flushes every resident page, and closes the
// underlying file.
func (e *Engine) Close() error {
	close(e.gcStop)
	<-e.gcDone
	flushErr := e.bpm.FlushAllPages()
	e.sch.Shutdown()
	if flushErr != nil {
		return fmt.Errorf("engine: close: flush: %w", flushErr)
	}
	return e.dm.Close()
}

// Catalog exposes the engine's table/index directory.
func (e *Engine) Catalog() *catalog.Catalog { return e.cat }

// CreateTable defines a new table.
func (e *Engine) CreateTable(name string, schema catalog.Schema) (*catalog.TableInfo, error) {
	return e.cat.CreateTable(name, schema)
}

// CreateIndex builds a new extendible hash index on an existing table.
func (e *Engine) CreateIndex(name, tableName string, columnIndexes []int, isUnique bool) (*catalog.IndexInfo, error) {
	return e.cat.CreateIndex(name, tableName, columnIndexes, isUnique, e.cfg.IndexHeaderK, e.cfg.IndexDirK)
}

// Accessor resolves oid's mvcc.Accessor, creating and caching it on first
// use. Implements execution.AccessorProvider.
func (e *Engine) Accessor(oid catalog.TableOID) *mvcc.Accessor {
	e.mu.Lock()
	defer e.mu.Unlock()
	if a, ok := e.accessors[oid]; ok {
		return a
	}
	info := e.cat.GetTableByOID(oid)
	if info == nil {
		return nil
	}
	a := mvcc.NewAccessor(e.txns, oid, info.Heap, info.Schema)
	e.accessors[oid] = a
	return a
}

// Begin starts a new transaction under the given isolation level.
func (e *Engine) Begin(level txn.IsolationLevel) *txn.Transaction {
	return e.txns.Begin(level)
}

// Commit validates (if serializable) and commits t, stamping its write set
// with the newly assigned commit timestamp.
func (e *Engine) Commit(t *txn.Transaction) error {
	return mvcc.Commit(e.txns, t, e.heapLookup)
}

// Abort releases t's in-progress write-set claims without replaying any
// undo log, per the engine's committed-only visibility rule.
func (e *Engine) Abort(t *txn.Transaction) error {
	return e.txns.Abort(t)
}

func (e *Engine) heapLookup(oid catalog.TableOID) *table.Heap {
	info := e.cat.GetTableByOID(oid)
	if info == nil {
		return nil
	}
	return info.Heap
}

// Execute optimizes and runs plan under t, returning every row it produces.
func (e *Engine) Execute(t *txn.Transaction, plan plans.Node) ([]table.Tuple, error) {
	plan = optimizer.Optimize(e.cat, plan)

	ctx := execution.NewExecutorContext(t, e.cat, e)
	exec, err := executors.Build(ctx, plan)
	if err != nil {
		return nil, err
	}
	if err := exec.Init(); err != nil {
		return nil, fmt.Errorf("engine: init: %w", err)
	}

	var rows []table.Tuple
	var tuple table.Tuple
	var rid table.RID
	for {
		ok, err := exec.Next(&tuple, &rid)
		if err != nil {
			return rows, fmt.Errorf("engine: execute: %w", err)
		}
		if !ok {
			break
		}
		rows = append(rows, tuple)
	}
	return rows, nil
}
