package indexfile

import (
	bplus "EmberDB/storage_engine/access/indexfile_manager/bplustree"
	"EmberDB/storage_engine/bufferpool"
	diskmanager "EmberDB/storage_engine/disk_manager"
	"EmberDB/types"
	"os"
	"path/filepath"

	"github.com/phuslu/log"
	"github.com/pkg/errors"
)

/*
This file is the main file for the Index File Manager that deals with named
B+ tree index files under one base directory.

Each index lives in its own <name>.idx file with its own disk manager and
buffer pool. Trees are cached by name; the cache is cleared and file handles
closed on CloseIndex / CloseAll.
*/

func NewIndexFileManager(baseDir string, poolSize, replacerK int) (*IndexFileManager, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create indexes directory %s", baseDir)
	}

	return &IndexFileManager{
		baseDir:   baseDir,
		poolSize:  poolSize,
		replacerK: replacerK,
		indexes:   make(map[string]*openIndex),
		logger: log.Logger{
			Level:   log.InfoLevel,
			Context: log.NewContext(nil).Str("component", "indexfile_manager").Value(),
		},
	}, nil
}

// SetWALManager installs the flushed-LSN gate on every pool opened from now
// on. Indexes already open keep their current setting.
func (ifm *IndexFileManager) SetWALManager(wal bufferpool.WALFlushedLSNGetter) {
	ifm.mu.Lock()
	defer ifm.mu.Unlock()
	ifm.walManager = wal
}

// GetOrCreateIndex returns the cached B+ tree for name, opening or creating
// the backing file on first use.
func (ifm *IndexFileManager) GetOrCreateIndex(name string) (*bplus.BPlusTree, error) {
	ifm.mu.RLock()
	idx, exists := ifm.indexes[name]
	ifm.mu.RUnlock()

	if exists {
		return idx.tree, nil
	}

	ifm.mu.Lock()
	defer ifm.mu.Unlock()

	// Double-check after acquiring the write lock (another goroutine may have
	// opened it while we were waiting).
	if idx, exists := ifm.indexes[name]; exists {
		return idx.tree, nil
	}

	idx, err := ifm.openIndexFile(name)
	if err != nil {
		return nil, err
	}

	ifm.indexes[name] = idx
	return idx.tree, nil
}

// LoadIndex opens an existing index file and caches it. Unlike
// GetOrCreateIndex it refuses to create a missing file.
func (ifm *IndexFileManager) LoadIndex(name string) error {
	ifm.mu.Lock()
	defer ifm.mu.Unlock()

	if _, exists := ifm.indexes[name]; exists {
		return nil
	}

	path := ifm.indexPath(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return errors.Errorf("index file for '%s' not found at %s", name, path)
	}

	idx, err := ifm.openIndexFile(name)
	if err != nil {
		return err
	}

	ifm.indexes[name] = idx
	return nil
}

// CloseIndex flushes and closes the index for name and drops it from the
// cache. Closing an index that is not open is a no-op.
func (ifm *IndexFileManager) CloseIndex(name string) error {
	ifm.mu.Lock()
	defer ifm.mu.Unlock()

	idx, exists := ifm.indexes[name]
	if !exists {
		return nil
	}

	if err := ifm.closeOpenIndex(idx); err != nil {
		return errors.Wrapf(err, "failed to close index '%s'", name)
	}

	delete(ifm.indexes, name)
	return nil
}

// CloseAll flushes and closes every cached index.
func (ifm *IndexFileManager) CloseAll() error {
	ifm.mu.Lock()
	defer ifm.mu.Unlock()

	var lastErr error
	for name, idx := range ifm.indexes {
		if err := ifm.closeOpenIndex(idx); err != nil {
			lastErr = errors.Wrapf(err, "failed to close index '%s'", name)
		}
		delete(ifm.indexes, name)
	}

	return lastErr
}

func (ifm *IndexFileManager) indexPath(name string) string {
	return filepath.Join(ifm.baseDir, name+".idx")
}

// openIndexFile builds the per-file stack: disk manager, buffer pool, header
// page, tree. A fresh file gets its header allocated on page 0.
func (ifm *IndexFileManager) openIndexFile(name string) (*openIndex, error) {
	dm, err := diskmanager.NewDiskManager(ifm.indexPath(name))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open index file for '%s'", name)
	}

	pool := bufferpool.NewBufferPool(ifm.poolSize, dm, ifm.replacerK)
	if ifm.walManager != nil {
		pool.SetWALManager(ifm.walManager)
	}

	if dm.NumPages() == 0 {
		pageID, _, err := pool.NewPage()
		if err != nil {
			dm.Close()
			return nil, errors.Wrapf(err, "failed to allocate header page for '%s'", name)
		}
		pool.UnpinPage(pageID, false)
	}

	tree, err := bplus.NewBPlusTree(pool, headerPageID, types.CompareKeys, defaultLeafMaxSize, defaultInternalMaxSize)
	if err != nil {
		dm.Close()
		return nil, errors.Wrapf(err, "failed to open B+ tree for '%s'", name)
	}

	ifm.logger.Info().Str("index", name).Int64("pages", dm.NumPages()).Msg("index opened")

	return &openIndex{diskManager: dm, bufferPool: pool, tree: tree}, nil
}

func (ifm *IndexFileManager) closeOpenIndex(idx *openIndex) error {
	if err := idx.bufferPool.FlushAllPages(); err != nil {
		return err
	}
	return idx.diskManager.Close()
}
