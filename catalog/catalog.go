package catalog

import (
	"fmt"
	"sync"
	"sync/atomic"

	"corundb/buffer"
	"corundb/catalog/dbtype"
	"corundb/index/hash"
	"corundb/table"
)

type TableOID uint32
type IndexOID uint32

const NullTableOID TableOID = 0
const NullIndexOID IndexOID = 0

// TableInfo binds a table's name and schema to its heap.
type TableInfo struct {
	Name   string
	Schema Schema
	Heap   *table.Heap
	OID    TableOID
}

// IndexInfo binds an index's name to its hash table and the columns it
// indexes.
type IndexInfo struct {
	Name          string
	TableName     string
	OID           IndexOID
	IsUnique      bool
	ColumnIndexes []int
	KeySchema     Schema // projection of the indexed columns, for key encoding
	Index         *hash.Table
}

// KeyOf extracts and serializes an index's key columns from a tuple.
func (ii *IndexInfo) KeyOf(tableSchema Schema, tuple table.Tuple) []byte {
	values := make([]dbtype.Value, len(ii.ColumnIndexes))
	for i, colIdx := range ii.ColumnIndexes {
		values[i] = GetValue(tableSchema, tuple, colIdx)
	}
	t := NewTuple(values, ii.KeySchema)
	return t.Data
}

// Catalog is the in-memory table/index directory.
type Catalog struct {
	bpm *buffer.PoolManager

	mu         sync.RWMutex
	tables     map[TableOID]*TableInfo
	tableNames map[string]TableOID
	indexes    map[IndexOID]*IndexInfo
	indexNames map[string]map[string]IndexOID // table -> index -> oid

	nextTableOID atomic.Uint32
	nextIndexOID atomic.Uint32
}

func New(bpm *buffer.PoolManager) *Catalog {
	return &Catalog{
		bpm:        bpm,
		tables:     make(map[TableOID]*TableInfo),
		tableNames: make(map[string]TableOID),
		indexes:    make(map[IndexOID]*IndexInfo),
		indexNames: make(map[string]map[string]IndexOID),
	}
}

func (c *Catalog) CreateTable(name string, schema Schema) (*TableInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.tableNames[name]; exists {
		return nil, fmt.Errorf("catalog: table %q already exists", name)
	}

	heap, err := table.NewHeap(c.bpm)
	if err != nil {
		return nil, fmt.Errorf("catalog: create table %q: %w", name, err)
	}

	oid := TableOID(c.nextTableOID.Add(1))
	info := &TableInfo{Name: name, Schema: schema, Heap: heap, OID: oid}
	c.tables[oid] = info
	c.tableNames[name] = oid
	c.indexNames[name] = map[string]IndexOID{}
	return info, nil
}

func (c *Catalog) GetTable(name string) *TableInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	oid, ok := c.tableNames[name]
	if !ok {
		return nil
	}
	return c.tables[oid]
}

func (c *Catalog) GetTableByOID(oid TableOID) *TableInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tables[oid]
}

// CreateIndex builds a fresh extendible hash index on tableName over
// columnIndexes. headerDepth/directoryDepth configure the index's hash
// table per the engine's configuration values.
func (c *Catalog) CreateIndex(name, tableName string, columnIndexes []int, isUnique bool, headerDepth, directoryDepth uint8) (*IndexInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tableOID, ok := c.tableNames[tableName]
	if !ok {
		return nil, fmt.Errorf("catalog: no such table %q", tableName)
	}
	if _, exists := c.indexNames[tableName][name]; exists {
		return nil, fmt.Errorf("catalog: index %q already exists on %q", name, tableName)
	}

	tableInfo := c.tables[tableOID]
	keyCols := make([]Column, len(columnIndexes))
	for i, idx := range columnIndexes {
		keyCols[i] = tableInfo.Schema.Column(idx)
	}
	keySchema := NewSchema(keyCols)

	ht, err := hash.New(c.bpm, headerDepth, directoryDepth, keySchema.RowWidth(), 12) // 12 = encoded RID width
	if err != nil {
		return nil, fmt.Errorf("catalog: create index %q: %w", name, err)
	}

	oid := IndexOID(c.nextIndexOID.Add(1))
	info := &IndexInfo{
		Name:          name,
		TableName:     tableName,
		OID:           oid,
		IsUnique:      isUnique,
		ColumnIndexes: columnIndexes,
		KeySchema:     keySchema,
		Index:         ht,
	}
	c.indexes[oid] = info
	c.indexNames[tableName][name] = oid
	return info, nil
}

func (c *Catalog) GetIndex(tableName, indexName string) *IndexInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	oid, ok := c.indexNames[tableName][indexName]
	if !ok {
		return nil
	}
	return c.indexes[oid]
}

func (c *Catalog) GetIndexByOID(oid IndexOID) *IndexInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.indexes[oid]
}

// GetTableIndexes returns every index defined on tableName.
func (c *Catalog) GetTableIndexes(tableName string) []*IndexInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*IndexInfo, 0, len(c.indexNames[tableName]))
	for _, oid := range c.indexNames[tableName] {
		out = append(out, c.indexes[oid])
	}
	return out
}
