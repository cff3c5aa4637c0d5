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
)

const (
	dbFile = "databases/demo.db"
	walDir = "databases/demo_logs"
)

func main() {
	if err := os.MkdirAll(filepath.Dir(dbFile), 0755); err != nil {
		log.Fatalf("mkdir: %v", err)
	}
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

	pool := bufferpool.NewBufferPool(64, dm, 2)
	pool.SetWALManager(walManager)

	headerPageID, _, err := pool.NewPage()
	if err != nil {
		log.Fatalf("allocate header page: %v", err)
	}
	pool.UnpinPage(headerPageID, false)

	tree, err := bplus.NewBPlusTree(pool, headerPageID, types.CompareKeys, 4, 4)
	if err != nil {
		log.Fatalf("open index: %v", err)
	}

	// Insert
	fmt.Println("=== Insert keys 1..10 ===")
	for i := 1; i <= 10; i++ {
		rid := types.RID{PageID: types.PageID(100 + i), SlotNum: uint32(i)}
		if _, err := tree.Insert(types.Key(i), rid); err != nil {
			log.Fatalf("insert %d: %v", i, err)
		}
	}
	out, err := tree.DrawBPlusTree()
	if err != nil {
		log.Fatalf("draw: %v", err)
	}
	fmt.Print(out)

	// Point lookup
	fmt.Println("\n=== Point lookup ===")
	for _, k := range []types.Key{3, 7, 42} {
		var rids []types.RID
		found, err := tree.GetValue(k, &rids)
		if err != nil {
			log.Fatalf("lookup %d: %v", k, err)
		}
		if found {
			fmt.Printf("key %d -> page %d slot %d\n", k, rids[0].PageID, rids[0].SlotNum)
		} else {
			fmt.Printf("key %d not found\n", k)
		}
	}

	// Range scan
	fmt.Println("\n=== Range scan from key 5 ===")
	it, err := tree.BeginAt(5)
	if err != nil {
		log.Fatalf("scan: %v", err)
	}
	for !it.IsEnd() {
		fmt.Printf("key %d -> page %d slot %d\n", it.Key(), it.RID().PageID, it.RID().SlotNum)
		if err := it.Next(); err != nil {
			log.Fatalf("scan next: %v", err)
		}
	}
	it.Close()

	// Remove
	fmt.Println("\n=== Remove keys 1..5 ===")
	for i := 1; i <= 5; i++ {
		if err := tree.Remove(types.Key(i)); err != nil {
			log.Fatalf("remove %d: %v", i, err)
		}
	}
	out, err = tree.DrawBPlusTree()
	if err != nil {
		log.Fatalf("draw: %v", err)
	}
	fmt.Print(out)

	if err := walManager.Sync(); err != nil {
		log.Fatalf("wal sync: %v", err)
	}
	if err := pool.FlushAllPages(); err != nil {
		log.Fatalf("flush pages: %v", err)
	}
	fmt.Println("\nflushed, pages on disk:", dm.NumPages())
}
