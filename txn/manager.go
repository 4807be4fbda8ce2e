package txn

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/btree"
	"github.com/sirupsen/logrus"

	"corundb/common/corerr"
	"corundb/table"
)

// VersionKey names the version chain of one row.
type VersionKey struct {
	TableOID uint32
	RID      table.RID
}

// watermarkItem is one (read_ts, txn_id) entry in the active-snapshot
// multiset; txn id breaks ties so two transactions sharing a read
// timestamp both get an entry.
type watermarkItem struct {
	ts  int64
	txn ID
}

func watermarkLess(a, b watermarkItem) bool {
	if a.ts != b.ts {
		return a.ts < b.ts
	}
	return a.txn < b.txn
}

// Manager owns transaction lifecycle, version-chain bookkeeping, and the
// watermark that bounds garbage collection, mirroring the teacher's
// locker-manager shape (global map + per-key fine-grained locking) applied
// to MVCC state instead of 2PL locks.
type Manager struct {
	mu   sync.RWMutex
	txns map[ID]*Transaction

	vlMu         sync.Mutex
	versionLinks map[VersionKey]*VersionLink

	commitMu sync.Mutex // serializes the commit critical section

	nextTxnID  atomic.Int64
	lastCommit atomic.Int64 // commit ts of the most recently committed txn; 0 = nothing committed yet

	watermarkMu sync.Mutex
	watermark   *btree.BTreeG[watermarkItem]

	log *logrus.Entry
}

func NewManager(log *logrus.Entry) *Manager {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Manager{
		txns:         make(map[ID]*Transaction),
		versionLinks: make(map[VersionKey]*VersionLink),
		watermark:    btree.NewG(32, watermarkLess),
		log:          log.WithField("component", "txn"),
	}
}

// Begin starts a new transaction with a snapshot at the current commit
// timestamp.
func (m *Manager) Begin(level IsolationLevel) *Transaction {
	id := ID(m.nextTxnID.Add(1))
	readTs := m.lastCommit.Load()
	t := newTransaction(id, level, readTs)

	m.mu.Lock()
	m.txns[id] = t
	m.mu.Unlock()

	m.watermarkMu.Lock()
	m.watermark.ReplaceOrInsert(watermarkItem{ts: readTs, txn: id})
	m.watermarkMu.Unlock()

	m.log.Debugf("begin txn=%d read_ts=%d", id, readTs)
	return t
}

// Get looks up a still-tracked transaction by id (used by readers to
// resolve an undo link to the transaction that owns its undo log).
func (m *Manager) Get(id ID) (*Transaction, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.txns[id]
	return t, ok
}

// GetVersionLink returns a copy of key's version chain head, or the zero
// value if the row has never been modified since the heap page it lives on
// was created.
func (m *Manager) GetVersionLink(key VersionKey) (VersionLink, bool) {
	m.vlMu.Lock()
	defer m.vlMu.Unlock()
	vl, ok := m.versionLinks[key]
	if !ok {
		return VersionLink{}, false
	}
	return *vl, true
}

// UpdateVersionLink compares-and-swaps key's version link: it only applies
// newVal if the chain still equals old (the spec's optimistic
// write-write-conflict detection hinges on this). Pass ok=false for old's
// "not found" case to install the first link for a previously untouched row.
func (m *Manager) UpdateVersionLink(key VersionKey, old VersionLink, oldOK bool, newVal VersionLink) bool {
	m.vlMu.Lock()
	defer m.vlMu.Unlock()
	cur, exists := m.versionLinks[key]
	if oldOK != exists {
		return false
	}
	if exists && *cur != old {
		return false
	}
	nv := newVal
	m.versionLinks[key] = &nv
	return true
}

// Commit assigns the next commit timestamp and invokes apply under the
// manager's commit mutex so the caller (package mvcc) can stamp every
// tuple this transaction wrote with that timestamp before anyone else's
// commit is assigned a higher one. If apply returns an error the
// transaction is left Tainted rather than committed; the caller must still
// call Abort.
func (m *Manager) Commit(t *Transaction, apply func(commitTs int64) error) error {
	if t.State != Running {
		return fmt.Errorf("%w: txn: cannot commit transaction %d in state %s", corerr.ErrTxnState, t.ID, t.State)
	}

	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	commitTs := m.lastCommit.Load() + 1
	if err := apply(commitTs); err != nil {
		t.State = Tainted
		return fmt.Errorf("txn: commit %d: %w", t.ID, err)
	}

	t.CommitTs = commitTs
	t.State = Committed
	m.lastCommit.Store(commitTs)

	m.clearInProgress(t)
	m.retire(t)

	m.log.Debugf("commit txn=%d commit_ts=%d", t.ID, commitTs)
	return nil
}

// Abort marks t aborted. Per the resolved visibility rule, an aborted
// transaction's writes remain physically on their pages but are never
// visible to anyone else (only a transaction's own temp timestamp exposes
// them, and nobody reads as a dead transaction), so abort does not replay
// undo logs — it only releases the in-progress flags it was holding.
func (m *Manager) Abort(t *Transaction) error {
	if t.State != Running && t.State != Tainted {
		return fmt.Errorf("%w: txn: cannot abort transaction %d in state %s", corerr.ErrTxnState, t.ID, t.State)
	}
	t.State = Aborted
	m.clearInProgress(t)
	m.retire(t)
	m.log.Debugf("abort txn=%d", t.ID)
	return nil
}

func (m *Manager) clearInProgress(t *Transaction) {
	for key := range t.WriteSet {
		vk := VersionKey{TableOID: key.TableOID, RID: key.RID}
		m.vlMu.Lock()
		if vl, ok := m.versionLinks[vk]; ok {
			vl.InProgress = false
		}
		m.vlMu.Unlock()
	}
}

func (m *Manager) retire(t *Transaction) {
	m.watermarkMu.Lock()
	m.watermark.Delete(watermarkItem{ts: t.ReadTs, txn: t.ID})
	m.watermarkMu.Unlock()
}

// Watermark returns the lowest read_ts among still-active transactions, or
// the current commit timestamp if none are active (everything committed
// so far is visible to the next reader).
func (m *Manager) Watermark() int64 {
	m.watermarkMu.Lock()
	defer m.watermarkMu.Unlock()
	min, ok := m.watermark.Min()
	if !ok {
		return m.lastCommit.Load()
	}
	return min.ts
}

// RunGC discards undo logs belonging to finished transactions that are no
// longer reachable from any row's version chain and whose commit_ts falls
// below the watermark. It walks every version chain once to build the
// reachable set, then drops unreachable finished transactions wholesale —
// per the resolved design, GC operates at transaction granularity rather
// than truncating individual chains mid-flight.
func (m *Manager) RunGC() int {
	watermark := m.Watermark()

	reachable := make(map[ID]bool)
	m.vlMu.Lock()
	for _, vl := range m.versionLinks {
		link := vl.Prev
		for link.Valid() {
			if reachable[link.TxnID] {
				break
			}
			reachable[link.TxnID] = true
			m.mu.RLock()
			owner, ok := m.txns[link.TxnID]
			m.mu.RUnlock()
			if !ok {
				break
			}
			log, ok := owner.UndoLogAt(link.LogIndex)
			if !ok {
				break
			}
			link = log.Next
		}
	}
	m.vlMu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	collected := 0
	for id, t := range m.txns {
		if t.State == Running || t.State == Tainted {
			continue
		}
		if reachable[id] {
			continue
		}
		if t.State == Committed && t.CommitTs >= watermark {
			continue
		}
		delete(m.txns, id)
		collected++
	}
	if collected > 0 {
		m.log.Debugf("gc collected %d transactions, watermark=%d", collected, watermark)
	}
	return collected
}
