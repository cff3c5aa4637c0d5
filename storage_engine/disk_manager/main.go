package diskmanager

import (
	"io"
	"os"

	"EmberDB/types"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/phuslu/log"
	"github.com/pkg/errors"
)

/*
This is main file for the disk manager
It owns:
The database file descriptor (os.File)
Reading/writing raw bytes at page-aligned offsets (ReadAt, WriteAt)
The block cache for read traffic

Page offsets are deterministic: offset = pageID * PageSize. Reads of pages
that were never written return all zeros, matching a file that was extended
but not yet flushed.
*/

const (
	// blockCacheCost is the cost charged per cached page; MaxCost below then
	// bounds the cache to ~2048 resident pages (8 MiB).
	blockCacheCost  = types.PageSize
	blockCacheMaxSz = 2048 * types.PageSize
	blockCacheCtrs  = 10 * 2048
	blockCacheBufSz = 64
)

// NewDiskManager opens or creates the database file at filePath.
func NewDiskManager(filePath string) (*DiskManager, error) {
	file, err := os.OpenFile(filePath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db file %s", filePath)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, "failed to stat db file")
	}

	cache, err := ristretto.NewCache(&ristretto.Config[int64, []byte]{
		NumCounters: blockCacheCtrs,
		MaxCost:     blockCacheMaxSz,
		BufferItems: blockCacheBufSz,
	})
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, "failed to build block cache")
	}

	return &DiskManager{
		file:       file,
		filePath:   filePath,
		numPages:   stat.Size() / types.PageSize,
		blockCache: cache,
		logger: log.Logger{
			Level:   log.InfoLevel,
			Context: log.NewContext(nil).Str("component", "disk_manager").Value(),
		},
	}, nil
}

// ReadPage fills buf with the last-written bytes for pageID. Pages that were
// never written yield zeros; partial reads at the end of the file are padded.
func (dm *DiskManager) ReadPage(pageID types.PageID, buf []byte) error {
	if pageID < 0 {
		return errors.Errorf("invalid page id %d", pageID)
	}
	if len(buf) != types.PageSize {
		return errors.Errorf("read buffer size %d does not match page size %d", len(buf), types.PageSize)
	}

	if cached, ok := dm.blockCache.Get(int64(pageID)); ok {
		copy(buf, cached)
		return nil
	}

	dm.mu.RLock()
	defer dm.mu.RUnlock()

	if dm.file == nil {
		return errors.New("disk manager is closed")
	}

	offset := int64(pageID) * types.PageSize
	n, err := dm.file.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return errors.Wrapf(err, "failed to read page %d", pageID)
	}

	// Pad with zeros on partial or empty read
	for i := n; i < types.PageSize; i++ {
		buf[i] = 0
	}

	cached := make([]byte, types.PageSize)
	copy(cached, buf)
	dm.blockCache.Set(int64(pageID), cached, blockCacheCost)

	return nil
}

// WritePage writes data at pageID's offset and refreshes the block cache so
// subsequent reads observe exactly these bytes.
func (dm *DiskManager) WritePage(pageID types.PageID, data []byte) error {
	if pageID < 0 {
		return errors.Errorf("invalid page id %d", pageID)
	}
	if len(data) != types.PageSize {
		return errors.Errorf("page data size %d does not match page size %d", len(data), types.PageSize)
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.file == nil {
		return errors.New("disk manager is closed")
	}

	offset := int64(pageID) * types.PageSize
	if _, err := dm.file.WriteAt(data, offset); err != nil {
		// A failed write may have clobbered the cached copy's validity.
		dm.blockCache.Del(int64(pageID))
		return errors.Wrapf(err, "failed to write page %d", pageID)
	}

	if int64(pageID) >= dm.numPages {
		dm.numPages = int64(pageID) + 1
	}

	cached := make([]byte, types.PageSize)
	copy(cached, data)
	dm.blockCache.Del(int64(pageID))
	dm.blockCache.Set(int64(pageID), cached, blockCacheCost)
	// Sets are buffered; wait so a read that follows this write can never
	// observe the overwritten bytes.
	dm.blockCache.Wait()

	return nil
}

// NumPages returns the number of pages physically present in the file.
func (dm *DiskManager) NumPages() int64 {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.numPages
}

// Sync flushes the file buffers to stable storage.
func (dm *DiskManager) Sync() error {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	if dm.file == nil {
		return errors.New("disk manager is closed")
	}
	if err := dm.file.Sync(); err != nil {
		return errors.Wrap(err, "failed to sync db file")
	}
	return nil
}

// Close syncs and closes the database file. Further reads and writes fail.
func (dm *DiskManager) Close() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.file == nil {
		return nil
	}

	if err := dm.file.Sync(); err != nil {
		dm.logger.Warn().Err(err).Msg("sync before close failed")
	}
	if err := dm.file.Close(); err != nil {
		return errors.Wrap(err, "failed to close db file")
	}
	dm.file = nil
	dm.blockCache.Close()
	return nil
}
