package bufferpool

import (
	"sync"

	diskmanager "EmberDB/storage_engine/disk_manager"
	"EmberDB/storage_engine/page"
	"EmberDB/storage_engine/replacer"
	"EmberDB/types"

	"github.com/phuslu/log"
	"github.com/pkg/errors"
)

// ############################################# BUFFER POOL #############################################

var (
	// ErrPoolExhausted means every frame is pinned and no victim exists.
	ErrPoolExhausted = errors.New("buffer pool exhausted: all frames pinned")
	// ErrPageNotResident means the page is not currently in any frame.
	ErrPageNotResident = errors.New("page not resident in buffer pool")
	// ErrPagePinned means the page cannot be deleted while pinned.
	ErrPagePinned = errors.New("page is pinned")
)

// BufferPool manages a fixed arena of page frames backed by the disk manager.
// Victim selection is delegated to an LRU-K replacer; frames with a nonzero
// pin count are never candidates. Works with both heap file pages and B+ tree
// index pages.
type BufferPool struct {
	frames      []*page.Page // frame arena, index = FrameID
	pageTable   map[types.PageID]types.FrameID
	freeList    []types.FrameID
	replacer    *replacer.LRUKReplacer
	diskManager *diskmanager.DiskManager
	walManager  WALFlushedLSNGetter
	nextPageID  types.PageID // monotonic allocator, never reused
	logger      log.Logger
	mu          sync.Mutex
}

// BufferPoolStats is a point-in-time snapshot of pool occupancy.
type BufferPoolStats struct {
	TotalPages  int
	PinnedPages int
	DirtyPages  int
	Capacity    int
}

// small interface so bufferpool doesn't import the whole wal package
type WALFlushedLSNGetter interface {
	GetFlushedLSN() uint64
}
