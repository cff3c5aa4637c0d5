package indexfile

import (
	bplus "EmberDB/storage_engine/access/indexfile_manager/bplustree"
	"EmberDB/storage_engine/bufferpool"
	diskmanager "EmberDB/storage_engine/disk_manager"
	"sync"

	"github.com/phuslu/log"
)

const (
	headerPageID = 0 // header always lands on page 0 of a fresh index file

	defaultLeafMaxSize     = 128
	defaultInternalMaxSize = 128
)

// IndexFileManager opens and caches B+ tree index files under a base
// directory. Each index gets its own file, disk manager and buffer pool; the
// pool size and replacer K are fixed at construction.
type IndexFileManager struct {
	baseDir    string
	poolSize   int
	replacerK  int
	walManager bufferpool.WALFlushedLSNGetter
	indexes    map[string]*openIndex
	logger     log.Logger
	mu         sync.RWMutex
}

// openIndex bundles the per-file stack behind a cached tree.
type openIndex struct {
	diskManager *diskmanager.DiskManager
	bufferPool  *bufferpool.BufferPool
	tree        *bplus.BPlusTree
}
