package executors

import (
	"io"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corundb/buffer"
	"corundb/catalog"
	"corundb/catalog/dbtype"
	"corundb/execution"
	"corundb/execution/expressions"
	"corundb/execution/plans"
	"corundb/mvcc"
	"corundb/storage/disk"
	"corundb/table"
	"corundb/txn"
)

// testEnv bundles a full, disposable storage stack plus a transaction
// manager, the way engine.Engine composes them, so executor tests can run
// real plans end to end instead of against fakes.
type testEnv struct {
	t         *testing.T
	cat       *catalog.Catalog
	txns      *txn.Manager
	accessors map[catalog.TableOID]*mvcc.Accessor
	cleanup   func()
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	id, err := uuid.NewUUID()
	require.NoError(t, err)
	path := id.String()

	dm, err := disk.Open(path)
	require.NoError(t, err)
	sched := disk.NewScheduler(dm)
	log := logrus.New()
	log.SetOutput(io.Discard)
	bpm := buffer.NewPoolManager(64, 2, dm, sched, logrus.NewEntry(log))

	env := &testEnv{
		t:         t,
		cat:       catalog.New(bpm),
		txns:      txn.NewManager(logrus.NewEntry(log)),
		accessors: make(map[catalog.TableOID]*mvcc.Accessor),
		cleanup: func() {
			sched.Shutdown()
			dm.Close()
			os.Remove(path)
		},
	}
	return env
}

// Accessor implements execution.AccessorProvider.
func (e *testEnv) Accessor(oid catalog.TableOID) *mvcc.Accessor {
	if a, ok := e.accessors[oid]; ok {
		return a
	}
	info := e.cat.GetTableByOID(oid)
	a := mvcc.NewAccessor(e.txns, oid, info.Heap, info.Schema)
	e.accessors[oid] = a
	return a
}

func (e *testEnv) ctx(tx *txn.Transaction) *execution.ExecutorContext {
	return execution.NewExecutorContext(tx, e.cat, e)
}

// commit commits tx through mvcc.Commit, stamping its write set with the
// commit timestamp the way engine.Engine.Commit does.
func (e *testEnv) commit(tx *txn.Transaction) error {
	return mvcc.Commit(e.txns, tx, func(oid catalog.TableOID) *table.Heap {
		return e.cat.GetTableByOID(oid).Heap
	})
}

func (e *testEnv) run(tx *txn.Transaction, exec Executor) ([]table.Tuple, []table.RID) {
	require.NoError(e.t, exec.Init())
	var rows []table.Tuple
	var rids []table.RID
	var tuple table.Tuple
	var rid table.RID
	for {
		ok, err := exec.Next(&tuple, &rid)
		require.NoError(e.t, err)
		if !ok {
			break
		}
		rows = append(rows, tuple)
		rids = append(rids, rid)
	}
	return rows, rids
}

func usersSchema() catalog.Schema {
	return catalog.NewSchema([]catalog.Column{
		{Name: "id", Type: dbtype.TypeID{Kind: dbtype.KindInteger}},
		{Name: "name", Type: dbtype.TypeID{Kind: dbtype.KindVarchar, Size: 16}},
	})
}

func (e *testEnv) seedUsers(t *testing.T, rows [][]dbtype.Value) (*catalog.TableInfo, *txn.Transaction) {
	info, err := e.cat.CreateTable("users", usersSchema())
	require.NoError(t, err)

	tx := e.txns.Begin(txn.Snapshot)
	insertPlan := plans.NewRawInsertPlan(CountSchema(), info.OID, rows)
	ins := NewInsert(e.ctx(tx), insertPlan, nil)
	e.run(tx, ins)
	require.NoError(t, e.commit(tx))
	return info, tx
}

func TestInsertAndSeqScan(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()

	info, _ := env.seedUsers(t, [][]dbtype.Value{
		{dbtype.NewInt(1), dbtype.NewVarchar("ada", 16)},
		{dbtype.NewInt(2), dbtype.NewVarchar("grace", 16)},
	})

	reader := env.txns.Begin(txn.Snapshot)
	scanPlan := plans.NewSeqScanPlan(info.Schema, info.OID, nil)
	scan := NewSeqScan(env.ctx(reader), scanPlan)
	rows, _ := env.run(reader, scan)

	require.Len(t, rows, 2)
	assert.Equal(t, int32(1), catalog.GetValue(info.Schema, rows[0], 0).AsInt32())
	assert.Equal(t, int32(2), catalog.GetValue(info.Schema, rows[1], 0).AsInt32())
}

func TestSeqScan_AppliesResidualPredicate(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()

	info, _ := env.seedUsers(t, [][]dbtype.Value{
		{dbtype.NewInt(1), dbtype.NewVarchar("ada", 16)},
		{dbtype.NewInt(2), dbtype.NewVarchar("grace", 16)},
		{dbtype.NewInt(3), dbtype.NewVarchar("margaret", 16)},
	})

	reader := env.txns.Begin(txn.Snapshot)
	pred := expressions.NewComparison(expressions.Gt, expressions.NewColumnValue(0, 0), expressions.NewConstant(dbtype.NewInt(1)))
	scanPlan := plans.NewSeqScanPlan(info.Schema, info.OID, pred)
	scan := NewSeqScan(env.ctx(reader), scanPlan)
	rows, _ := env.run(reader, scan)

	require.Len(t, rows, 2)
	assert.Equal(t, int32(2), catalog.GetValue(info.Schema, rows[0], 0).AsInt32())
	assert.Equal(t, int32(3), catalog.GetValue(info.Schema, rows[1], 0).AsInt32())
}

func TestIndexScan_ProbesUniqueEquality(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()

	info, err := env.cat.CreateTable("users", usersSchema())
	require.NoError(t, err)
	idx, err := env.cat.CreateIndex("users_pk", "users", []int{0}, true, 9, 9)
	require.NoError(t, err)

	tx := env.txns.Begin(txn.Snapshot)
	insertPlan := plans.NewRawInsertPlan(CountSchema(), info.OID, [][]dbtype.Value{
		{dbtype.NewInt(1), dbtype.NewVarchar("ada", 16)},
		{dbtype.NewInt(2), dbtype.NewVarchar("grace", 16)},
	})
	ins := NewInsert(env.ctx(tx), insertPlan, nil)
	env.run(tx, ins)
	require.NoError(t, env.commit(tx))

	reader := env.txns.Begin(txn.Snapshot)
	probe := plans.NewIndexScanPlan(info.Schema, info.OID, idx.OID, []dbtype.Value{dbtype.NewInt(2)}, nil)
	scan := NewIndexScan(env.ctx(reader), probe)
	rows, _ := env.run(reader, scan)

	require.Len(t, rows, 1)
	assert.Equal(t, "grace", catalog.GetValue(info.Schema, rows[0], 1).AsString())
}

func TestInsert_RevivesDeletedRowOnUniqueIndexConflict(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()

	info, err := env.cat.CreateTable("users", usersSchema())
	require.NoError(t, err)
	_, err = env.cat.CreateIndex("users_pk", "users", []int{0}, true, 9, 9)
	require.NoError(t, err)

	tx := env.txns.Begin(txn.Snapshot)
	insertPlan := plans.NewRawInsertPlan(CountSchema(), info.OID, [][]dbtype.Value{{dbtype.NewInt(1), dbtype.NewVarchar("ada", 16)}})
	env.run(tx, NewInsert(env.ctx(tx), insertPlan, nil))
	require.NoError(t, env.commit(tx))

	delTx := env.txns.Begin(txn.Snapshot)
	scanPlan := plans.NewSeqScanPlan(info.Schema, info.OID, nil)
	del := NewDelete(env.ctx(delTx), plans.NewDeletePlan(CountSchema(), info.OID, scanPlan), NewSeqScan(env.ctx(delTx), scanPlan))
	env.run(delTx, del)
	require.NoError(t, env.commit(delTx))

	reviveTx := env.txns.Begin(txn.Snapshot)
	revivePlan := plans.NewRawInsertPlan(CountSchema(), info.OID, [][]dbtype.Value{{dbtype.NewInt(1), dbtype.NewVarchar("ada-2", 16)}})
	env.run(reviveTx, NewInsert(env.ctx(reviveTx), revivePlan, nil))
	require.NoError(t, env.commit(reviveTx))

	final := env.txns.Begin(txn.Snapshot)
	rows, _ := env.run(final, NewSeqScan(env.ctx(final), plans.NewSeqScanPlan(info.Schema, info.OID, nil)))
	require.Len(t, rows, 1)
	assert.Equal(t, "ada-2", catalog.GetValue(info.Schema, rows[0], 1).AsString())
}

func ordersSchema() catalog.Schema {
	return catalog.NewSchema([]catalog.Column{
		{Name: "user_id", Type: dbtype.TypeID{Kind: dbtype.KindInteger}},
		{Name: "amount", Type: dbtype.TypeID{Kind: dbtype.KindInteger}},
	})
}

func TestHashJoin_InnerAndLeft(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()

	users, _ := env.seedUsers(t, [][]dbtype.Value{
		{dbtype.NewInt(1), dbtype.NewVarchar("ada", 16)},
		{dbtype.NewInt(2), dbtype.NewVarchar("grace", 16)},
	})

	ordersInfo, err := env.cat.CreateTable("orders", ordersSchema())
	require.NoError(t, err)
	tx := env.txns.Begin(txn.Snapshot)
	ordersInsert := plans.NewRawInsertPlan(CountSchema(), ordersInfo.OID, [][]dbtype.Value{
		{dbtype.NewInt(1), dbtype.NewInt(100)},
	})
	env.run(tx, NewInsert(env.ctx(tx), ordersInsert, nil))
	require.NoError(t, env.commit(tx))

	reader := env.txns.Begin(txn.Snapshot)
	leftScan := NewSeqScan(env.ctx(reader), plans.NewSeqScanPlan(users.Schema, users.OID, nil))
	rightScan := NewSeqScan(env.ctx(reader), plans.NewSeqScanPlan(ordersInfo.Schema, ordersInfo.OID, nil))
	outSchema := catalog.Concat(users.Schema, ordersInfo.Schema)

	innerPlan := plans.NewHashJoinPlan(outSchema, nil, nil, plans.Inner,
		[]expressions.Expression{expressions.NewColumnValue(0, 0)},
		[]expressions.Expression{expressions.NewColumnValue(0, 0)})
	inner := NewHashJoin(env.ctx(reader), innerPlan, leftScan, rightScan)
	rows, _ := env.run(reader, inner)
	require.Len(t, rows, 1)
	assert.Equal(t, int32(100), catalog.GetValue(outSchema, rows[0], 3).AsInt32())

	reader2 := env.txns.Begin(txn.Snapshot)
	leftScan2 := NewSeqScan(env.ctx(reader2), plans.NewSeqScanPlan(users.Schema, users.OID, nil))
	rightScan2 := NewSeqScan(env.ctx(reader2), plans.NewSeqScanPlan(ordersInfo.Schema, ordersInfo.OID, nil))
	leftPlan := plans.NewHashJoinPlan(outSchema, nil, nil, plans.Left,
		[]expressions.Expression{expressions.NewColumnValue(0, 0)},
		[]expressions.Expression{expressions.NewColumnValue(0, 0)})
	left := NewHashJoin(env.ctx(reader2), leftPlan, leftScan2, rightScan2)
	rows2, _ := env.run(reader2, left)
	require.Len(t, rows2, 2, "grace has no matching order and must still be emitted once under LEFT join")
}

func TestNestedLoopJoin_LeftUnmatchedNullPadded(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()

	users, _ := env.seedUsers(t, [][]dbtype.Value{
		{dbtype.NewInt(1), dbtype.NewVarchar("ada", 16)},
	})
	ordersInfo, err := env.cat.CreateTable("orders", ordersSchema())
	require.NoError(t, err)

	reader := env.txns.Begin(txn.Snapshot)
	leftScan := NewSeqScan(env.ctx(reader), plans.NewSeqScanPlan(users.Schema, users.OID, nil))
	rightScan := NewSeqScan(env.ctx(reader), plans.NewSeqScanPlan(ordersInfo.Schema, ordersInfo.OID, nil))
	outSchema := catalog.Concat(users.Schema, ordersInfo.Schema)

	pred := expressions.NewComparison(expressions.Eq, expressions.NewColumnValue(0, 0), expressions.NewColumnValue(1, 0))
	joinPlan := plans.NewNestedLoopJoinPlan(outSchema, nil, nil, plans.Left, pred)
	join := NewNestedLoopJoin(env.ctx(reader), joinPlan, leftScan, rightScan)
	rows, _ := env.run(reader, join)

	require.Len(t, rows, 1)
	assert.True(t, catalog.GetValue(outSchema, rows[0], 2).IsNull())
}

func TestAggregation_GroupByWithSumAndCountStar(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()

	ordersInfo, err := env.cat.CreateTable("orders", ordersSchema())
	require.NoError(t, err)
	tx := env.txns.Begin(txn.Snapshot)
	insertPlan := plans.NewRawInsertPlan(CountSchema(), ordersInfo.OID, [][]dbtype.Value{
		{dbtype.NewInt(1), dbtype.NewInt(10)},
		{dbtype.NewInt(1), dbtype.NewInt(20)},
		{dbtype.NewInt(2), dbtype.NewInt(5)},
	})
	env.run(tx, NewInsert(env.ctx(tx), insertPlan, nil))
	require.NoError(t, env.commit(tx))

	reader := env.txns.Begin(txn.Snapshot)
	scan := NewSeqScan(env.ctx(reader), plans.NewSeqScanPlan(ordersInfo.Schema, ordersInfo.OID, nil))
	outSchema := catalog.NewSchema([]catalog.Column{
		{Name: "user_id", Type: dbtype.TypeID{Kind: dbtype.KindInteger}},
		{Name: "total", Type: dbtype.TypeID{Kind: dbtype.KindInteger}},
		{Name: "cnt", Type: dbtype.TypeID{Kind: dbtype.KindInteger}},
	})
	aggPlan := plans.NewAggregationPlan(outSchema, nil,
		[]expressions.Expression{expressions.NewColumnValue(0, 0)},
		[]plans.AggregateTerm{
			{Op: plans.Sum, Arg: expressions.NewColumnValue(0, 1)},
			{Op: plans.CountStar},
		})
	agg := NewAggregation(env.ctx(reader), aggPlan, scan)
	rows, _ := env.run(reader, agg)

	require.Len(t, rows, 2)
	assert.Equal(t, int32(1), catalog.GetValue(outSchema, rows[0], 0).AsInt32())
	assert.Equal(t, int32(30), catalog.GetValue(outSchema, rows[0], 1).AsInt32())
	assert.Equal(t, int32(2), catalog.GetValue(outSchema, rows[0], 2).AsInt32())
	assert.Equal(t, int32(2), catalog.GetValue(outSchema, rows[1], 0).AsInt32())
	assert.Equal(t, int32(5), catalog.GetValue(outSchema, rows[1], 1).AsInt32())
}

func TestSort_OrdersByDescendingKey(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()

	info, _ := env.seedUsers(t, [][]dbtype.Value{
		{dbtype.NewInt(3), dbtype.NewVarchar("c", 16)},
		{dbtype.NewInt(1), dbtype.NewVarchar("a", 16)},
		{dbtype.NewInt(2), dbtype.NewVarchar("b", 16)},
	})

	reader := env.txns.Begin(txn.Snapshot)
	scan := NewSeqScan(env.ctx(reader), plans.NewSeqScanPlan(info.Schema, info.OID, nil))
	sortPlan := plans.NewSortPlan(info.Schema, nil, []plans.OrderKey{{Expr: expressions.NewColumnValue(0, 0), Desc: true}})
	sortExec := NewSort(env.ctx(reader), sortPlan, scan)
	rows, _ := env.run(reader, sortExec)

	require.Len(t, rows, 3)
	assert.Equal(t, int32(3), catalog.GetValue(info.Schema, rows[0], 0).AsInt32())
	assert.Equal(t, int32(2), catalog.GetValue(info.Schema, rows[1], 0).AsInt32())
	assert.Equal(t, int32(1), catalog.GetValue(info.Schema, rows[2], 0).AsInt32())
}

func TestTopN_KeepsOnlyBestNUnderOrderBy(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()

	info, _ := env.seedUsers(t, [][]dbtype.Value{
		{dbtype.NewInt(3), dbtype.NewVarchar("c", 16)},
		{dbtype.NewInt(1), dbtype.NewVarchar("a", 16)},
		{dbtype.NewInt(4), dbtype.NewVarchar("d", 16)},
		{dbtype.NewInt(2), dbtype.NewVarchar("b", 16)},
	})

	reader := env.txns.Begin(txn.Snapshot)
	scan := NewSeqScan(env.ctx(reader), plans.NewSeqScanPlan(info.Schema, info.OID, nil))
	topPlan := plans.NewTopNPlan(info.Schema, nil, []plans.OrderKey{{Expr: expressions.NewColumnValue(0, 0)}}, 2)
	top := NewTopN(env.ctx(reader), topPlan, scan)
	rows, _ := env.run(reader, top)

	require.Len(t, rows, 2)
	assert.Equal(t, int32(1), catalog.GetValue(info.Schema, rows[0], 0).AsInt32())
	assert.Equal(t, int32(2), catalog.GetValue(info.Schema, rows[1], 0).AsInt32())
}

func TestWindow_RankTiesShareRankAndSkip(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()

	ordersInfo, err := env.cat.CreateTable("orders", ordersSchema())
	require.NoError(t, err)
	tx := env.txns.Begin(txn.Snapshot)
	insertPlan := plans.NewRawInsertPlan(CountSchema(), ordersInfo.OID, [][]dbtype.Value{
		{dbtype.NewInt(1), dbtype.NewInt(10)},
		{dbtype.NewInt(1), dbtype.NewInt(10)},
		{dbtype.NewInt(1), dbtype.NewInt(20)},
	})
	env.run(tx, NewInsert(env.ctx(tx), insertPlan, nil))
	require.NoError(t, env.commit(tx))

	reader := env.txns.Begin(txn.Snapshot)
	scan := NewSeqScan(env.ctx(reader), plans.NewSeqScanPlan(ordersInfo.Schema, ordersInfo.OID, nil))
	outSchema := catalog.NewSchema([]catalog.Column{
		{Name: "user_id", Type: dbtype.TypeID{Kind: dbtype.KindInteger}},
		{Name: "amount", Type: dbtype.TypeID{Kind: dbtype.KindInteger}},
		{Name: "rnk", Type: dbtype.TypeID{Kind: dbtype.KindInteger}},
	})
	winPlan := plans.NewWindowPlan(outSchema, nil,
		[]expressions.Expression{expressions.NewColumnValue(0, 0)},
		[]plans.OrderKey{{Expr: expressions.NewColumnValue(0, 1)}},
		[]plans.WindowFunc{{Op: plans.WinRank}})
	win := NewWindow(env.ctx(reader), winPlan, scan)
	rows, _ := env.run(reader, win)

	require.Len(t, rows, 3)
	assert.Equal(t, int32(1), catalog.GetValue(outSchema, rows[0], 2).AsInt32())
	assert.Equal(t, int32(1), catalog.GetValue(outSchema, rows[1], 2).AsInt32())
	assert.Equal(t, int32(3), catalog.GetValue(outSchema, rows[2], 2).AsInt32(), "the rank after a two-way tie must jump by the tie size")
}

func TestUpdate_PrimaryKeyChangeDoesDeleteThenInsert(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()

	info, err := env.cat.CreateTable("users", usersSchema())
	require.NoError(t, err)
	tx := env.txns.Begin(txn.Snapshot)
	insertPlan := plans.NewRawInsertPlan(CountSchema(), info.OID, [][]dbtype.Value{{dbtype.NewInt(1), dbtype.NewVarchar("ada", 16)}})
	env.run(tx, NewInsert(env.ctx(tx), insertPlan, nil))
	require.NoError(t, env.commit(tx))

	updTx := env.txns.Begin(txn.Snapshot)
	scan := NewSeqScan(env.ctx(updTx), plans.NewSeqScanPlan(info.Schema, info.OID, nil))
	updPlan := plans.NewUpdatePlan(CountSchema(), info.OID, nil,
		[]expressions.Expression{expressions.NewConstant(dbtype.NewInt(9)), expressions.NewColumnValue(0, 1)},
		[]int{0})
	upd := NewUpdate(env.ctx(updTx), updPlan, scan)
	env.run(updTx, upd)
	require.NoError(t, env.commit(updTx))

	final := env.txns.Begin(txn.Snapshot)
	rows, _ := env.run(final, NewSeqScan(env.ctx(final), plans.NewSeqScanPlan(info.Schema, info.OID, nil)))
	require.Len(t, rows, 1)
	assert.Equal(t, int32(9), catalog.GetValue(info.Schema, rows[0], 0).AsInt32())
	assert.Equal(t, "ada", catalog.GetValue(info.Schema, rows[0], 1).AsString())
}
