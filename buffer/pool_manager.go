// Package buffer implements the buffer pool manager: it caches fixed-size
// disk pages in a bounded set of frames, arbitrates reuse via an LRU-K
// replacer, and serializes disk I/O through a disk scheduler, following the
// shape of the teacher's buffer.BufferPool but replacing its WAL-coupled
// clock replacer with the LRU-K design the spec requires.
package buffer

import (
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"corundb/common/corerr"
	"corundb/storage/disk"
	"corundb/storage/page"
)

// PoolManager owns a fixed array of frames, a free-frame list, a page table
// mapping page ids to frame indexes, an LRU-K replacer, and a disk
// scheduler. A single pool-wide mutex serializes page-table and free-list
// mutations; once a guard is held, the page's own latch arbitrates payload
// access.
type PoolManager struct {
	mu        sync.Mutex
	poolSize  int
	frames    []*page.Page
	free      []int
	pageTable map[page.ID]int
	replacer  *LRUKReplacer
	dm        *disk.Manager
	sched     *disk.Scheduler
	log       *logrus.Entry

	hits   uint64
	misses uint64
}

// NewPoolManager constructs a pool of poolSize frames, backed by dm/sched.
// replacerK is the K used by the LRU-K replacer.
func NewPoolManager(poolSize, replacerK int, dm *disk.Manager, sched *disk.Scheduler, log *logrus.Entry) *PoolManager {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("component", "buffer_pool")

	free := make([]int, poolSize)
	for i := range free {
		free[i] = i
	}

	log.Infof("buffer pool starting: %d frames (%s)", poolSize, humanize.Bytes(uint64(poolSize*page.Size)))

	return &PoolManager{
		poolSize:  poolSize,
		frames:    make([]*page.Page, poolSize),
		free:      free,
		pageTable: make(map[page.ID]int),
		replacer:  NewLRUKReplacer(poolSize, replacerK),
		dm:        dm,
		sched:     sched,
		log:       log,
	}
}

// NewPage allocates a fresh page id, pins a frame for it (free list first,
// else eviction), and returns a basic guard over the new page. Returns
// ErrOutOfMemory if every frame is pinned.
func (p *PoolManager) NewPage() (*BasicGuard, error) {
	p.mu.Lock()

	frameIdx, reused, err := p.acquireFrameLocked()
	if err != nil {
		p.mu.Unlock()
		return nil, err
	}

	id := p.dm.AllocatePage()
	pg := p.claimFrame(frameIdx, reused, id)
	p.pageTable[id] = frameIdx
	p.pin(frameIdx)
	p.mu.Unlock()

	return newBasicGuard(p, pg), nil
}

// claimFrame installs id's page into frameIdx, reusing reused's Page (via
// Reset) when the frame came from eviction rather than the free list.
func (p *PoolManager) claimFrame(frameIdx int, reused *page.Page, id page.ID) *page.Page {
	var pg *page.Page
	if reused != nil {
		reused.Reset(id)
		pg = reused
	} else {
		pg = page.New(id)
	}
	p.frames[frameIdx] = pg
	return pg
}

// FetchPage returns a guard over id, reading it from disk if it is not
// already resident.
func (p *PoolManager) FetchPage(id page.ID) (*BasicGuard, error) {
	p.mu.Lock()

	if frameIdx, ok := p.pageTable[id]; ok {
		p.hits++
		p.pin(frameIdx)
		pg := p.frames[frameIdx]
		p.mu.Unlock()
		return newBasicGuard(p, pg), nil
	}
	p.misses++

	frameIdx, reused, err := p.acquireFrameLocked()
	if err != nil {
		p.mu.Unlock()
		return nil, err
	}

	pg := p.claimFrame(frameIdx, reused, id)
	p.pageTable[id] = frameIdx
	p.pin(frameIdx)
	p.mu.Unlock()

	if ok := p.sched.ReadSync(id, pg.Data()); !ok {
		p.mu.Lock()
		delete(p.pageTable, id)
		pg.DecrPin()
		p.replacer.SetEvictable(frameIdx, true)
		p.free = append(p.free, frameIdx)
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: read failed for page %d", corerr.ErrInvalidPage, id)
	}

	return newBasicGuard(p, pg), nil
}

// FetchPageRead fetches id and returns it behind a read guard.
func (p *PoolManager) FetchPageRead(id page.ID) (*ReadGuard, error) {
	g, err := p.FetchPage(id)
	if err != nil {
		return nil, err
	}
	g.dropped = true // ownership transfers into the read guard
	return newReadGuard(p, g.pg), nil
}

// FetchPageWrite fetches id and returns it behind a write guard.
func (p *PoolManager) FetchPageWrite(id page.ID) (*WriteGuard, error) {
	g, err := p.FetchPage(id)
	if err != nil {
		return nil, err
	}
	g.dropped = true
	return g.Upgrade(), nil
}

// pin increments the page's pin count and marks its frame non-evictable.
// Called only while mu is held.
func (p *PoolManager) pin(frameIdx int) {
	p.frames[frameIdx].IncrPin()
	p.replacer.RecordAccess(frameIdx)
	p.replacer.SetEvictable(frameIdx, false)
}

// unpin is the shared implementation behind guard drops and UnpinPage.
func (p *PoolManager) unpin(id page.ID, isDirty bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	frameIdx, ok := p.pageTable[id]
	if !ok {
		return false
	}
	return p.unpinFrameLocked(frameIdx, isDirty)
}

func (p *PoolManager) unpinFrameLocked(frameIdx int, isDirty bool) bool {
	pg := p.frames[frameIdx]
	if isDirty {
		pg.MarkDirty()
	}
	if pg.PinCount() <= 0 {
		return false
	}
	pg.DecrPin()
	if pg.PinCount() == 0 {
		p.replacer.SetEvictable(frameIdx, true)
	}
	return true
}

// UnpinPage decrements id's pin count directly, for callers that are not
// using the guard API. Returns false if the page was already unpinned.
func (p *PoolManager) UnpinPage(id page.ID, isDirty bool) bool {
	return p.unpin(id, isDirty)
}

// FlushPage writes id's page to disk unconditionally and clears its dirty
// flag.
func (p *PoolManager) FlushPage(id page.ID) error {
	p.mu.Lock()
	frameIdx, ok := p.pageTable[id]
	if !ok {
		p.mu.Unlock()
		return fmt.Errorf("%w: %d", corerr.ErrInvalidPage, id)
	}
	pg := p.frames[frameIdx]
	p.mu.Unlock()

	if ok := p.sched.WriteSync(id, pg.Data()); !ok {
		p.log.WithField("page_id", id).Warn("flush failed")
		return fmt.Errorf("disk write failed for page %d", id)
	}
	pg.MarkClean()
	return nil
}

// FlushAllPages flushes every resident page.
func (p *PoolManager) FlushAllPages() error {
	p.mu.Lock()
	ids := make([]page.ID, 0, len(p.pageTable))
	for id := range p.pageTable {
		ids = append(ids, id)
	}
	p.mu.Unlock()

	for _, id := range ids {
		if err := p.FlushPage(id); err != nil {
			return err
		}
	}
	return nil
}

// DeletePage removes id from the pool. Vacuously succeeds if id is not
// resident; fails with ErrPinViolation if it is pinned.
func (p *PoolManager) DeletePage(id page.ID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	frameIdx, ok := p.pageTable[id]
	if !ok {
		return nil
	}

	pg := p.frames[frameIdx]
	if pg.PinCount() > 0 {
		return corerr.ErrPinViolation
	}

	if err := p.replacer.Remove(frameIdx); err != nil {
		return err
	}
	delete(p.pageTable, id)
	p.frames[frameIdx] = nil
	p.free = append(p.free, frameIdx)
	return nil
}

// acquireFrameLocked obtains a frame index: free list first, else eviction
// of the replacer's chosen victim (flushing it first if dirty). Must be
// called while mu is held; may release and reacquire mu while flushing.
// The returned *page.Page is the evicted victim's, for the caller to
// recycle via Reset, or nil when the frame came from the free list.
func (p *PoolManager) acquireFrameLocked() (int, *page.Page, error) {
	if len(p.free) > 0 {
		idx := p.free[len(p.free)-1]
		p.free = p.free[:len(p.free)-1]
		return idx, nil, nil
	}

	frameIdx, ok := p.replacer.Evict()
	if !ok {
		p.log.Error("no frame available: pool exhausted")
		return 0, nil, corerr.ErrOutOfMemory
	}

	victim := p.frames[frameIdx]
	victimID := victim.ID()

	if victim.IsDirty() {
		p.mu.Unlock()
		ok := p.sched.WriteSync(victimID, victim.Data())
		p.mu.Lock()
		if !ok {
			// Best-effort: log and still treat the frame as reclaimable,
			// since the replacer already chose to evict it; the page's
			// prior contents are lost only in this already-lossy (no-WAL)
			// configuration, matching the Non-goals.
			p.log.WithField("page_id", victimID).Error("eviction flush failed, data may be lost")
		}
	}

	delete(p.pageTable, victimID)
	return frameIdx, victim, nil
}

// Stats reports pool occupancy and hit/miss counters.
type Stats struct {
	PoolSize  int
	InUse     int
	Hits      uint64
	Misses    uint64
	Evictable int
}

func (p *PoolManager) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		PoolSize:  p.poolSize,
		InUse:     len(p.pageTable),
		Hits:      p.hits,
		Misses:    p.misses,
		Evictable: p.replacer.Size(),
	}
}
