package replacer

import (
	"EmberDB/types"

	"github.com/pkg/errors"
)

/*
This is the eviction policy of the bufferpool.

Every access to a frame is stamped with a logical timestamp. A frame with
fewer than K recorded accesses has backward K-distance +inf and is evicted
before any frame with K or more; ties among +inf frames break by earliest
first access (plain FIFO). Frames with K or more accesses are evicted in
order of their K-th most recent access, oldest first.

The replacer never evicts a frame the bufferpool has not marked evictable.
*/

// NewLRUKReplacer creates a replacer tracking at most numFrames frames with
// a history depth of k accesses.
func NewLRUKReplacer(numFrames int, k int) *LRUKReplacer {
	return &LRUKReplacer{
		nodes:       make(map[types.FrameID]*lrukNode, numFrames),
		historyList: make([]types.FrameID, 0, numFrames),
		cacheList:   make([]types.FrameID, 0, numFrames),
		numFrames:   numFrames,
		k:           k,
	}
}

// RecordAccess stamps frameID with the next logical timestamp. A frame seen
// for the first time starts non-evictable.
func (r *LRUKReplacer) RecordAccess(frameID types.FrameID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if frameID < 0 || int(frameID) >= r.numFrames {
		return errors.Wrapf(ErrInvalidFrame, "frame %d, capacity %d", frameID, r.numFrames)
	}

	r.timestamp++
	node, exists := r.nodes[frameID]
	if !exists {
		node = &lrukNode{fid: frameID, history: make([]uint64, 0, r.k)}
		node.history = append(node.history, r.timestamp)
		r.nodes[frameID] = node
		if len(node.history) >= r.k {
			// K=1: the first access already reaches the threshold
			r.cacheList = r.insertByKthAccess(r.cacheList, node)
		} else {
			r.historyList = append(r.historyList, frameID)
		}
		return nil
	}

	hadK := len(node.history) >= r.k
	node.history = append(node.history, r.timestamp)
	if len(node.history) > r.k {
		node.history = node.history[1:]
	}

	if len(node.history) < r.k {
		// still in the history set, FIFO position unchanged
		return nil
	}

	if !hadK {
		// crossed the K threshold: history set -> cache set
		r.historyList = removeFrame(r.historyList, frameID)
	} else {
		r.cacheList = removeFrame(r.cacheList, frameID)
	}
	r.cacheList = r.insertByKthAccess(r.cacheList, node)
	return nil
}

// SetEvictable flips the evictable flag and adjusts Size. Unknown frames are
// a no-op.
func (r *LRUKReplacer) SetEvictable(frameID types.FrameID, evictable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	node, exists := r.nodes[frameID]
	if !exists {
		return
	}
	if node.evictable == evictable {
		return
	}
	node.evictable = evictable
	if evictable {
		r.curSize++
	} else {
		r.curSize--
	}
}

// Evict returns the frame with the greatest backward K-distance and drops it
// from tracking. Returns false when no frame is evictable.
func (r *LRUKReplacer) Evict() (types.FrameID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, fid := range r.historyList {
		if r.nodes[fid].evictable {
			r.dropLocked(fid)
			return fid, true
		}
	}
	for _, fid := range r.cacheList {
		if r.nodes[fid].evictable {
			r.dropLocked(fid)
			return fid, true
		}
	}
	return 0, false
}

// Remove drops a tracked frame entirely. Unknown frames are a no-op;
// removing a non-evictable frame is a caller bug.
func (r *LRUKReplacer) Remove(frameID types.FrameID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	node, exists := r.nodes[frameID]
	if !exists {
		return nil
	}
	if !node.evictable {
		return errors.Wrapf(ErrFrameNotEvictable, "frame %d", frameID)
	}
	r.dropLocked(frameID)
	return nil
}

// Size returns the number of evictable tracked frames.
func (r *LRUKReplacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.curSize
}

// dropLocked removes frameID from whichever ordered set holds it. Assumes
// the latch is held and the frame is tracked and evictable.
func (r *LRUKReplacer) dropLocked(frameID types.FrameID) {
	node := r.nodes[frameID]
	if len(node.history) < r.k {
		r.historyList = removeFrame(r.historyList, frameID)
	} else {
		r.cacheList = removeFrame(r.cacheList, frameID)
	}
	delete(r.nodes, frameID)
	r.curSize--
}

// insertByKthAccess places node into list keeping it sorted ascending by the
// K-th most recent access timestamp, so the front is the eviction victim.
func (r *LRUKReplacer) insertByKthAccess(list []types.FrameID, node *lrukNode) []types.FrameID {
	kth := node.history[0]
	pos := len(list)
	for i, fid := range list {
		if r.nodes[fid].history[0] > kth {
			pos = i
			break
		}
	}
	list = append(list, 0)
	copy(list[pos+1:], list[pos:])
	list[pos] = node.fid
	return list
}

func removeFrame(list []types.FrameID, frameID types.FrameID) []types.FrameID {
	for i, fid := range list {
		if fid == frameID {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
