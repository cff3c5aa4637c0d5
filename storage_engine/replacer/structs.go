package replacer

import (
	"sync"

	"EmberDB/types"

	"github.com/pkg/errors"
)

// ############################################# LRU-K REPLACER ###########################################

var (
	// ErrInvalidFrame is returned when a frame id is outside [0, numFrames).
	ErrInvalidFrame = errors.New("frame id is invalid")
	// ErrFrameNotEvictable is returned by Remove on a tracked frame that is
	// still pinned by the buffer pool.
	ErrFrameNotEvictable = errors.New("remove called on a non-evictable frame")
)

// lrukNode tracks one frame: the timestamps of its last K accesses and
// whether the buffer pool currently allows it to be evicted.
type lrukNode struct {
	fid       types.FrameID
	history   []uint64 // at most k entries, oldest first
	evictable bool
}

// LRUKReplacer picks eviction victims by backward K-distance. Frames with
// fewer than K recorded accesses live in historyList (FIFO by first access)
// and are always preferred; frames with K or more live in cacheList, ordered
// by the timestamp of their K-th most recent access.
type LRUKReplacer struct {
	nodes       map[types.FrameID]*lrukNode
	historyList []types.FrameID
	cacheList   []types.FrameID
	numFrames   int
	k           int
	curSize     int    // evictable frames only
	timestamp   uint64 // logical clock, bumped per RecordAccess
	mu          sync.Mutex
}
