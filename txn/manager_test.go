package txn

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corundb/table"
)

func discardLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestManager_Begin_AssignsIncreasingIDsAndSnapshot(t *testing.T) {
	mgr := NewManager(discardLogger())

	t1 := mgr.Begin(Snapshot)
	t2 := mgr.Begin(Snapshot)

	assert.NotEqual(t, t1.ID, t2.ID)
	assert.Equal(t, int64(0), t1.ReadTs)
	assert.Equal(t, int64(0), t2.ReadTs)
	assert.Equal(t, Running, t1.State)
}

func TestManager_Commit_AssignsCommitTsAndAdvancesSnapshot(t *testing.T) {
	mgr := NewManager(discardLogger())

	t1 := mgr.Begin(Snapshot)
	require.NoError(t, mgr.Commit(t1, func(commitTs int64) error { return nil }))
	assert.Equal(t, Committed, t1.State)
	assert.Equal(t, int64(1), t1.CommitTs)

	t2 := mgr.Begin(Snapshot)
	assert.Equal(t, int64(1), t2.ReadTs, "a new transaction's snapshot must see the prior commit")
}

func TestManager_Commit_TaintsOnApplyError(t *testing.T) {
	mgr := NewManager(discardLogger())
	tx := mgr.Begin(Snapshot)

	err := mgr.Commit(tx, func(int64) error { return assert.AnError })
	assert.Error(t, err)
	assert.Equal(t, Tainted, tx.State)
}

func TestManager_Commit_RejectsNonRunningTransaction(t *testing.T) {
	mgr := NewManager(discardLogger())
	tx := mgr.Begin(Snapshot)
	require.NoError(t, mgr.Commit(tx, func(int64) error { return nil }))

	err := mgr.Commit(tx, func(int64) error { return nil })
	assert.Error(t, err)
}

func TestManager_Abort_ReleasesInProgressFlag(t *testing.T) {
	mgr := NewManager(discardLogger())
	tx := mgr.Begin(Snapshot)

	key := VersionKey{TableOID: 1, RID: table.RID{PageID: 0, Slot: 0}}
	ok := mgr.UpdateVersionLink(key, VersionLink{}, false, VersionLink{InProgress: true})
	require.True(t, ok)
	tx.AddToWriteSet(1, table.RID{PageID: 0, Slot: 0})

	require.NoError(t, mgr.Abort(tx))
	assert.Equal(t, Aborted, tx.State)

	link, ok := mgr.GetVersionLink(key)
	require.True(t, ok)
	assert.False(t, link.InProgress)
}

func TestManager_UpdateVersionLink_CompareAndSwap(t *testing.T) {
	mgr := NewManager(discardLogger())
	key := VersionKey{TableOID: 1, RID: table.RID{PageID: 0, Slot: 0}}

	// First install requires oldOK=false.
	assert.True(t, mgr.UpdateVersionLink(key, VersionLink{}, false, VersionLink{InProgress: true}))
	// Installing again with oldOK=false must fail now that a link exists.
	assert.False(t, mgr.UpdateVersionLink(key, VersionLink{}, false, VersionLink{InProgress: true}))

	cur, ok := mgr.GetVersionLink(key)
	require.True(t, ok)

	// A CAS against a stale snapshot of the link must fail.
	stale := VersionLink{InProgress: false}
	assert.False(t, mgr.UpdateVersionLink(key, stale, true, VersionLink{InProgress: false}))

	// A CAS against the current value succeeds.
	assert.True(t, mgr.UpdateVersionLink(key, cur, true, VersionLink{InProgress: false}))
}

func TestManager_Watermark_TracksLowestActiveReadTs(t *testing.T) {
	mgr := NewManager(discardLogger())

	t1 := mgr.Begin(Snapshot)
	require.NoError(t, mgr.Commit(t1, func(int64) error { return nil })) // commit_ts=1

	t2 := mgr.Begin(Snapshot) // read_ts=1, stays active
	t3 := mgr.Begin(Snapshot) // read_ts=1, stays active

	require.NoError(t, mgr.Commit(t3, func(int64) error { return nil })) // commit_ts=2, but t2 still open at read_ts 1

	assert.Equal(t, int64(1), mgr.Watermark())

	require.NoError(t, mgr.Commit(t2, func(int64) error { return nil })) // commit_ts=3
	assert.Equal(t, int64(3), mgr.Watermark(), "once nothing is active, watermark tracks the latest commit")
}

func TestManager_RunGC_CollectsUnreachableFinishedTransactions(t *testing.T) {
	mgr := NewManager(discardLogger())

	writer := mgr.Begin(Snapshot)
	key := VersionKey{TableOID: 1, RID: table.RID{PageID: 0, Slot: 0}}
	link := writer.AppendUndoLog(UndoLog{Ts: 1})
	require.True(t, mgr.UpdateVersionLink(key, VersionLink{}, false, VersionLink{Prev: link}))
	writer.AddToWriteSet(1, table.RID{PageID: 0, Slot: 0})
	require.NoError(t, mgr.Commit(writer, func(int64) error { return nil }))

	// Nothing points at writer's undo log anymore once the link is overwritten
	// by a later, non-chained version: writer becomes unreachable.
	require.True(t, mgr.UpdateVersionLink(key, VersionLink{Prev: link}, true, VersionLink{}))

	// Advance the watermark past writer's commit_ts so the "recent enough to
	// keep regardless" shortcut in RunGC doesn't mask the reachability check.
	dummy := mgr.Begin(Snapshot)
	require.NoError(t, mgr.Commit(dummy, func(int64) error { return nil }))

	collected := mgr.RunGC()
	assert.Equal(t, 1, collected)

	_, ok := mgr.Get(writer.ID)
	assert.False(t, ok)
}

func TestManager_RunGC_KeepsTransactionReachableOnlyThroughChainWalk(t *testing.T) {
	mgr := NewManager(discardLogger())
	key := VersionKey{TableOID: 1, RID: table.RID{PageID: 0, Slot: 0}}

	// writer1 commits the base version's undo log as the chain head.
	writer1 := mgr.Begin(Snapshot)
	link1 := writer1.AppendUndoLog(UndoLog{Ts: 1})
	require.True(t, mgr.UpdateVersionLink(key, VersionLink{}, false, VersionLink{Prev: link1}))
	writer1.AddToWriteSet(1, table.RID{PageID: 0, Slot: 0})
	require.NoError(t, mgr.Commit(writer1, func(int64) error { return nil })) // commit_ts=1

	// writer2 overwrites the row; its own undo log becomes the new head and
	// chains back to writer1's log via Next, per GenerateUndoLog's prev_link.
	writer2 := mgr.Begin(Snapshot)
	link2 := writer2.AppendUndoLog(UndoLog{Ts: 2, Next: link1})
	require.True(t, mgr.UpdateVersionLink(key, VersionLink{Prev: link1}, true, VersionLink{Prev: link2}))
	writer2.AddToWriteSet(1, table.RID{PageID: 0, Slot: 0})
	require.NoError(t, mgr.Commit(writer2, func(int64) error { return nil })) // commit_ts=2

	// Advance the watermark past both commits.
	dummy := mgr.Begin(Snapshot)
	require.NoError(t, mgr.Commit(dummy, func(int64) error { return nil }))

	collected := mgr.RunGC()
	assert.Equal(t, 0, collected,
		"writer1's log is still reachable by walking the chain from the head through writer2's Next link")

	_, ok := mgr.Get(writer1.ID)
	assert.True(t, ok, "writer1 must survive GC even though its log is no longer the head")
	_, ok = mgr.Get(writer2.ID)
	assert.True(t, ok)
}

func TestManager_RunGC_KeepsReachableTransactions(t *testing.T) {
	mgr := NewManager(discardLogger())

	writer := mgr.Begin(Snapshot)
	key := VersionKey{TableOID: 1, RID: table.RID{PageID: 0, Slot: 0}}
	link := writer.AppendUndoLog(UndoLog{Ts: 1})
	require.True(t, mgr.UpdateVersionLink(key, VersionLink{}, false, VersionLink{Prev: link}))
	writer.AddToWriteSet(1, table.RID{PageID: 0, Slot: 0})
	require.NoError(t, mgr.Commit(writer, func(int64) error { return nil }))

	dummy := mgr.Begin(Snapshot)
	require.NoError(t, mgr.Commit(dummy, func(int64) error { return nil }))

	collected := mgr.RunGC()
	assert.Equal(t, 0, collected, "writer's log is still the version chain head, so it must survive GC")

	_, ok := mgr.Get(writer.ID)
	assert.True(t, ok)
}
