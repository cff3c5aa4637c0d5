// Seed program: creates database file "databases/ember.db" with a primary key
// index and N sequential keys.
// Run: go run ./cmd/seed [N]
// Then inspect: go run ./cmd/inspect_idx databases/ember.db
package main

import (
	bplus "EmberDB/storage_engine/access/indexfile_manager/bplustree"
	"EmberDB/storage_engine/bufferpool"
	diskmanager "EmberDB/storage_engine/disk_manager"
	"EmberDB/types"
	"EmberDB/wal_manager"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
)

const (
	dbFile = "databases/ember.db"
	walDir = "databases/logs"

	poolSize  = 64
	replacerK = 2

	leafMaxSize     = 32
	internalMaxSize = 32
)

func main() {
	n := 1000
	if len(os.Args) > 1 {
		parsed, err := strconv.Atoi(os.Args[1])
		if err != nil || parsed <= 0 {
			log.Fatalf("invalid key count %q", os.Args[1])
		}
		n = parsed
	}

	if err := os.MkdirAll(filepath.Dir(dbFile), 0755); err != nil {
		log.Fatalf("mkdir: %v", err)
	}
	// start from an empty file so the header lands on page 0
	if err := os.Remove(dbFile); err != nil && !os.IsNotExist(err) {
		log.Fatalf("remove previous database: %v", err)
	}

	walManager, err := wal_manager.OpenWAL(walDir)
	if err != nil {
		log.Fatalf("open WAL: %v", err)
	}
	defer walManager.Close()

	dm, err := diskmanager.NewDiskManager(dbFile)
	if err != nil {
		log.Fatalf("open database file: %v", err)
	}
	defer dm.Close()

	pool := bufferpool.NewBufferPool(poolSize, dm, replacerK)
	pool.SetWALManager(walManager)

	headerPageID, err := allocHeaderPage(pool)
	if err != nil {
		log.Fatalf("allocate header page: %v", err)
	}

	tree, err := bplus.NewBPlusTree(pool, headerPageID, types.CompareKeys, leafMaxSize, internalMaxSize)
	if err != nil {
		log.Fatalf("open index: %v", err)
	}

	fmt.Printf("Seeding %d sequential keys into %s...\n", n, dbFile)

	record := make([]byte, 16)
	for i := 1; i <= n; i++ {
		key := types.Key(i)
		rid := types.RID{PageID: types.PageID(i), SlotNum: uint32(i % 8)}

		if _, err := walManager.Append(record); err != nil {
			log.Fatalf("wal append key %d: %v", i, err)
		}
		inserted, err := tree.Insert(key, rid)
		if err != nil {
			log.Fatalf("insert key %d: %v", i, err)
		}
		if !inserted {
			log.Fatalf("key %d already present", i)
		}
	}

	if err := walManager.Sync(); err != nil {
		log.Fatalf("wal sync: %v", err)
	}
	if err := pool.FlushAllPages(); err != nil {
		log.Fatalf("flush pages: %v", err)
	}

	stats := pool.GetStats()
	fmt.Println("\nDone.")
	fmt.Printf("  Pages resident: %d / %d frames\n", stats.TotalPages, stats.Capacity)
	fmt.Printf("  Pinned pages:   %d\n", stats.PinnedPages)
	fmt.Printf("  Dirty pages:    %d\n", stats.DirtyPages)
	fmt.Printf("  Pages on disk:  %d\n", dm.NumPages())
	fmt.Printf("  Flushed LSN:    %d\n", walManager.GetFlushedLSN())
	fmt.Println("\nInspect with: go run ./cmd/inspect_idx", dbFile)
}

// allocHeaderPage allocates the index header page. The file is empty at this
// point so NewPage hands out page 0.
func allocHeaderPage(pool *bufferpool.BufferPool) (types.PageID, error) {
	pageID, _, err := pool.NewPage()
	if err != nil {
		return types.InvalidPageID, err
	}
	pool.UnpinPage(pageID, false)
	return pageID, nil
}
