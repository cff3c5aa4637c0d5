// Inspect a B+ tree index database file.
// Usage: go run ./cmd/inspect_idx <path-to-db> [dot-output]
// Example: go run ./cmd/inspect_idx databases/ember.db tree.dot
package main

import (
	"fmt"
	"os"

	bplus "EmberDB/storage_engine/access/indexfile_manager/bplustree"
	"EmberDB/storage_engine/bufferpool"
	diskmanager "EmberDB/storage_engine/disk_manager"
	"EmberDB/types"
)

const (
	headerPageID = types.PageID(0)

	poolSize  = 64
	replacerK = 2

	leafMaxSize     = 32
	internalMaxSize = 32
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <database-file> [dot-output]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Example: %s databases/ember.db tree.dot\n", os.Args[0])
		os.Exit(1)
	}
	path := os.Args[1]

	dm, err := diskmanager.NewDiskManager(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer dm.Close()

	pool := bufferpool.NewBufferPool(poolSize, dm, replacerK)

	tree, err := bplus.NewBPlusTree(pool, headerPageID, types.CompareKeys, leafMaxSize, internalMaxSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	out, err := tree.DrawBPlusTree()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(out)

	if len(os.Args) > 2 {
		dotPath := os.Args[2]
		if err := tree.Draw(dotPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("dot graph written to", dotPath)
	}
}
