package bufferpool

import (
	"EmberDB/types"
)

/*
This file holds helper functions for the bufferpool
*/

// GetStats returns current buffer pool statistics
func (bp *BufferPool) GetStats() BufferPoolStats {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	stats := BufferPoolStats{
		TotalPages: len(bp.pageTable),
		Capacity:   len(bp.frames),
	}

	for _, fid := range bp.pageTable {
		pg := bp.frames[fid]
		if pg.PinCount > 0 {
			stats.PinnedPages++
		}
		if pg.IsDirty {
			stats.DirtyPages++
		}
	}

	return stats
}

// Size returns the number of pages currently resident.
func (bp *BufferPool) Size() int {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return len(bp.pageTable)
}

// Capacity returns the number of frames in the pool.
func (bp *BufferPool) Capacity() int {
	return len(bp.frames)
}

// PinCount reports the pin count of a resident page. The second return is
// false when the page is not in the pool.
func (bp *BufferPool) PinCount(pageID types.PageID) (int32, bool) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	fid, ok := bp.pageTable[pageID]
	if !ok {
		return 0, false
	}
	return bp.frames[fid].PinCount, true
}
