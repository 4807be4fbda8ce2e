package buffer

import (
	"container/list"
	"sync"

	"corundb/common/corerr"
)

// node tracks one frame's access history, bounded to the K most recent
// accesses, per the LRU-K replacer design.
type node struct {
	frameID   int
	history   *list.List // back = most recent access timestamp (int64)
	evictable bool
}

// LRUKReplacer chooses which evictable frame to reclaim by backward
// k-distance: the gap between now and the k-th most recent access, or +Inf
// for frames touched fewer than k times. Ties among +Inf frames go to the
// earliest oldest-access timestamp (classic LRU).
type LRUKReplacer struct {
	mu        sync.Mutex
	k         int
	nodes     map[int]*node
	evictable int
	clock     int64 // monotonic counter, incremented on every RecordAccess
	numFrames int
}

func NewLRUKReplacer(numFrames, k int) *LRUKReplacer {
	return &LRUKReplacer{
		k:         k,
		nodes:     make(map[int]*node),
		numFrames: numFrames,
	}
}

// RecordAccess appends the current timestamp to frameID's history, creating
// the node on first touch. Frame ids outside [0, numFrames) are silently
// ignored, per the spec's "total interface" requirement.
func (r *LRUKReplacer) RecordAccess(frameID int) {
	if frameID < 0 || frameID >= r.numFrames {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clock++
	n, ok := r.nodes[frameID]
	if !ok {
		n = &node{frameID: frameID, history: list.New()}
		r.nodes[frameID] = n
	}
	n.history.PushBack(r.clock)
	if n.history.Len() > r.k {
		n.history.Remove(n.history.Front())
	}
}

// SetEvictable flips a frame's evictable flag and keeps the evictable count
// in sync.
func (r *LRUKReplacer) SetEvictable(frameID int, evictable bool) {
	if frameID < 0 || frameID >= r.numFrames {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[frameID]
	if !ok {
		return
	}
	if n.evictable == evictable {
		return
	}
	n.evictable = evictable
	if evictable {
		r.evictable++
	} else {
		r.evictable--
	}
}

// Evict selects the evictable frame with the largest backward k-distance and
// removes its node. Returns false if no frame is evictable.
func (r *LRUKReplacer) Evict() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		victim      *node
		victimDist  int64 = -1
		victimOldTs int64
		foundInf    bool
	)

	for _, n := range r.nodes {
		if !n.evictable {
			continue
		}

		if n.history.Len() < r.k {
			oldest := n.history.Front().Value.(int64)
			if !foundInf || oldest < victimOldTs {
				foundInf = true
				victim = n
				victimOldTs = oldest
			}
			continue
		}
		if foundInf {
			continue // any +Inf-distance frame beats a finite-distance one
		}

		kth := r.kthMostRecent(n)
		dist := r.clock - kth
		if victim == nil || dist > victimDist {
			victim = n
			victimDist = dist
		}
	}

	if victim == nil {
		return 0, false
	}

	delete(r.nodes, victim.frameID)
	r.evictable--
	return victim.frameID, true
}

// kthMostRecent returns the k-th most recent access timestamp in n's
// history, i.e. the front of the bounded deque once it has k entries.
func (r *LRUKReplacer) kthMostRecent(n *node) int64 {
	return n.history.Front().Value.(int64)
}

// Remove forces removal of frameID's node. Returns ErrPinViolation if the
// frame is tracked but not evictable.
func (r *LRUKReplacer) Remove(frameID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[frameID]
	if !ok {
		return nil
	}
	if !n.evictable {
		return corerr.ErrPinViolation
	}
	delete(r.nodes, frameID)
	r.evictable--
	return nil
}

// Size returns the number of currently evictable frames.
func (r *LRUKReplacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evictable
}
