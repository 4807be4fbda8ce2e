// Package txn implements the MVCC transaction manager: timestamp
// allocation, per-tuple version-chain bookkeeping (undo logs), and the
// watermark used to garbage-collect versions no longer visible to any
// reader. It deliberately knows nothing about schemas or tuple contents
// beyond opaque bytes; schema-aware reconstruction lives in package mvcc.
package txn

import (
	"sync"

	"corundb/table"
)

type ID int64

// IsolationLevel selects the commit-time validation strategy.
type IsolationLevel int

const (
	Snapshot IsolationLevel = iota
	Serializable
)

type State int

const (
	Running State = iota
	Tainted
	Committed
	Aborted
)

func (s State) String() string {
	switch s {
	case Running:
		return "RUNNING"
	case Tainted:
		return "TAINTED"
	case Committed:
		return "COMMITTED"
	case Aborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// TempTsBase marks the start of the transaction-temporary timestamp range:
// a meta.Ts at or above this value encodes a live writer's transaction id
// rather than a committed commit timestamp. Chosen far above any realistic
// commit_ts so the two ranges never collide.
const TempTsBase int64 = 1 << 62

// TempTs returns the transaction-temporary timestamp a transaction's own
// uncommitted writes are stamped with.
func TempTs(id ID) int64 { return TempTsBase + int64(id) }

// IsTempTs reports whether ts is in the transaction-temporary range.
func IsTempTs(ts int64) bool { return ts >= TempTsBase }

// WriteSetKey names one RID within one table, for the transaction's write
// set.
type WriteSetKey struct {
	TableOID uint32
	RID      table.RID
}

// Transaction is the per-transaction state: its snapshot, its append-only
// undo log vector, and the set of rows it has written (for commit-time
// stamping).
type Transaction struct {
	mu sync.Mutex // guards UndoLogs; only the owning thread appends/updates

	ID             ID
	IsolationLevel IsolationLevel
	ReadTs         int64
	CommitTs       int64
	State          State

	UndoLogs []UndoLog
	WriteSet map[WriteSetKey]struct{}
}

func newTransaction(id ID, level IsolationLevel, readTs int64) *Transaction {
	return &Transaction{
		ID:             id,
		IsolationLevel: level,
		ReadTs:         readTs,
		State:          Running,
		WriteSet:       make(map[WriteSetKey]struct{}),
	}
}

// TempTs returns this transaction's own transaction-temporary timestamp.
func (t *Transaction) TempTs() int64 { return TempTs(t.ID) }

// AppendUndoLog appends log to this transaction's undo vector and returns
// the UndoLink naming it. Only the owning thread calls this.
func (t *Transaction) AppendUndoLog(log UndoLog) UndoLink {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := len(t.UndoLogs)
	t.UndoLogs = append(t.UndoLogs, log)
	return UndoLink{TxnID: t.ID, LogIndex: idx}
}

// UpdateUndoLog overwrites the log at idx (self-modify merges land here).
func (t *Transaction) UpdateUndoLog(idx int, log UndoLog) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.UndoLogs[idx] = log
}

// UndoLogAt returns a copy of the log at idx. Safe for concurrent readers
// (GC, other transactions) as long as the caller holds the manager's txn
// map lock in shared mode, per the spec's concurrency model.
func (t *Transaction) UndoLogAt(idx int) (UndoLog, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx < 0 || idx >= len(t.UndoLogs) {
		return UndoLog{}, false
	}
	return t.UndoLogs[idx], true
}

func (t *Transaction) NumUndoLogs() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.UndoLogs)
}

// AddToWriteSet records that this transaction wrote rid in table.
func (t *Transaction) AddToWriteSet(tableOID uint32, rid table.RID) {
	t.WriteSet[WriteSetKey{TableOID: tableOID, RID: rid}] = struct{}{}
}
