package bufferpool

import (
	diskmanager "EmberDB/storage_engine/disk_manager"
	"EmberDB/storage_engine/page"
	"EmberDB/storage_engine/replacer"
	"EmberDB/types"

	"github.com/phuslu/log"
	"github.com/pkg/errors"
)

/*
This file is the main file of the bufferpool
The buffer pool owns a fixed arena of frames and maps disk pages into them
on demand. Victim selection runs through an LRU-K replacer; the disk manager
loads pages on a miss and receives dirty victims on eviction.

Pages are identified by PageID, frames by FrameID. A page is resident in at
most one frame at a time.
*/

// NewBufferPool creates a pool with poolSize frames, all initially free.
// replacerK is the K of the backing LRU-K replacer.
func NewBufferPool(poolSize int, diskManager *diskmanager.DiskManager, replacerK int) *BufferPool {
	frames := make([]*page.Page, poolSize)
	freeList := make([]types.FrameID, 0, poolSize)
	for i := range frames {
		frames[i] = page.NewPage()
		freeList = append(freeList, types.FrameID(i))
	}

	return &BufferPool{
		frames:      frames,
		pageTable:   make(map[types.PageID]types.FrameID, poolSize),
		freeList:    freeList,
		replacer:    replacer.NewLRUKReplacer(poolSize, replacerK),
		diskManager: diskManager,
		nextPageID:  types.PageID(diskManager.NumPages()),
		logger: log.Logger{
			Level:   log.InfoLevel,
			Context: log.NewContext(nil).Str("component", "bufferpool").Value(),
		},
	}
}

func (bp *BufferPool) SetWALManager(wal WALFlushedLSNGetter) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	bp.walManager = wal
}

// NewPage allocates a fresh page id, binds it to a frame and returns the
// frame pinned once. The caller owns the pin and must UnpinPage eventually.
// Returns ErrPoolExhausted when every frame is pinned.
func (bp *BufferPool) NewPage() (types.PageID, *page.Page, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	fid, err := bp.allocFrame()
	if err != nil {
		return types.InvalidPageID, nil, err
	}

	pageID := bp.nextPageID
	bp.nextPageID++

	pg := bp.frames[fid]
	pg.Reset()
	pg.ID = pageID
	pg.PinCount = 1

	bp.pageTable[pageID] = fid
	bp.replacer.RecordAccess(fid)
	bp.replacer.SetEvictable(fid, false)

	bp.logger.Debug().Int64("page_id", int64(pageID)).Int("frame_id", int(fid)).Msg("new page")
	return pageID, pg, nil
}

// FetchPage returns the frame holding pageID, pinning it. On a hit the
// resident frame is returned directly; on a miss a frame is claimed (free
// list first, then eviction) and the page is read from disk.
func (bp *BufferPool) FetchPage(pageID types.PageID) (*page.Page, error) {
	if pageID < 0 {
		return nil, errors.Errorf("invalid page id %d", pageID)
	}

	bp.mu.Lock()
	defer bp.mu.Unlock()

	if fid, ok := bp.pageTable[pageID]; ok {
		pg := bp.frames[fid]
		pg.PinCount++
		bp.replacer.RecordAccess(fid)
		bp.replacer.SetEvictable(fid, false)
		return pg, nil
	}

	fid, err := bp.allocFrame()
	if err != nil {
		return nil, err
	}

	pg := bp.frames[fid]
	pg.Reset()
	if err := bp.diskManager.ReadPage(pageID, pg.Data); err != nil {
		// Frame stays free; nothing was bound.
		bp.freeList = append(bp.freeList, fid)
		return nil, errors.Wrapf(err, "failed to load page %d", pageID)
	}
	pg.ID = pageID
	pg.PinCount = 1

	bp.pageTable[pageID] = fid
	bp.replacer.RecordAccess(fid)
	bp.replacer.SetEvictable(fid, false)

	return pg, nil
}

// UnpinPage drops one pin from pageID's frame and ORs in the dirty flag.
// Returns false if the page is not resident or its pin count is already zero.
// When the last pin is released the frame becomes evictable.
func (bp *BufferPool) UnpinPage(pageID types.PageID, isDirty bool) bool {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	fid, ok := bp.pageTable[pageID]
	if !ok {
		return false
	}
	pg := bp.frames[fid]
	if pg.PinCount <= 0 {
		return false
	}

	pg.PinCount--
	if isDirty {
		pg.IsDirty = true
	}
	if pg.PinCount == 0 {
		bp.replacer.SetEvictable(fid, true)
	}
	return true
}

// FlushPage writes pageID's frame to disk regardless of its dirty flag and
// clears the flag. Returns ErrPageNotResident if the page is not in the pool.
func (bp *BufferPool) FlushPage(pageID types.PageID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return bp.flushLocked(pageID)
}

// FlushAllPages flushes every resident page.
func (bp *BufferPool) FlushAllPages() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	for pageID := range bp.pageTable {
		if err := bp.flushLocked(pageID); err != nil {
			return err
		}
	}
	return nil
}

func (bp *BufferPool) flushLocked(pageID types.PageID) error {
	fid, ok := bp.pageTable[pageID]
	if !ok {
		return errors.Wrapf(ErrPageNotResident, "page %d", pageID)
	}
	pg := bp.frames[fid]

	if bp.walManager != nil && pg.LSN > bp.walManager.GetFlushedLSN() {
		return errors.Errorf("cannot flush page %d: page lsn %d ahead of wal flushed lsn %d",
			pageID, pg.LSN, bp.walManager.GetFlushedLSN())
	}

	if err := bp.diskManager.WritePage(pageID, pg.Data); err != nil {
		return errors.Wrapf(err, "failed to flush page %d", pageID)
	}
	pg.IsDirty = false
	return nil
}

// DeletePage unbinds pageID's frame and returns it to the free list. A page
// that is not resident is a no-op. Returns ErrPagePinned while pinned.
// The page id itself is never reused.
func (bp *BufferPool) DeletePage(pageID types.PageID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	fid, ok := bp.pageTable[pageID]
	if !ok {
		return nil
	}
	pg := bp.frames[fid]
	if pg.PinCount > 0 {
		return errors.Wrapf(ErrPagePinned, "page %d pin count %d", pageID, pg.PinCount)
	}

	bp.replacer.SetEvictable(fid, true)
	if err := bp.replacer.Remove(fid); err != nil {
		return errors.Wrapf(err, "failed to untrack frame %d", fid)
	}
	delete(bp.pageTable, pageID)
	pg.Reset()
	bp.freeList = append(bp.freeList, fid)

	bp.logger.Debug().Int64("page_id", int64(pageID)).Int("frame_id", int(fid)).Msg("page deleted")
	return nil
}

// allocFrame claims a frame for a new binding: free list first, then a
// replacer victim. Dirty victims are written back before the frame is
// handed out. Assumes bp.mu is held.
func (bp *BufferPool) allocFrame() (types.FrameID, error) {
	if n := len(bp.freeList); n > 0 {
		fid := bp.freeList[n-1]
		bp.freeList = bp.freeList[:n-1]
		return fid, nil
	}

	fid, ok := bp.replacer.Evict()
	if !ok {
		return 0, errors.WithStack(ErrPoolExhausted)
	}

	victim := bp.frames[fid]
	if victim.IsDirty {
		bp.logger.Debug().Int64("page_id", int64(victim.ID)).Msg("writing back dirty victim")
		if err := bp.diskManager.WritePage(victim.ID, victim.Data); err != nil {
			return 0, errors.Wrapf(err, "failed to write back victim page %d", victim.ID)
		}
	}
	delete(bp.pageTable, victim.ID)
	victim.Reset()

	return fid, nil
}
