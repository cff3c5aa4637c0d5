// dump_sample hex-dumps one page of a database file.
// Usage: go run ./cmd/dump_sample <path-to-db> [page-id]
// Example: go run ./cmd/dump_sample databases/ember.db 1
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"

	diskmanager "EmberDB/storage_engine/disk_manager"
	"EmberDB/types"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <database-file> [page-id]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Example: %s databases/ember.db 1\n", os.Args[0])
		os.Exit(1)
	}
	path := os.Args[1]

	pageID := types.PageID(0)
	if len(os.Args) > 2 {
		parsed, err := strconv.ParseInt(os.Args[2], 10, 64)
		if err != nil || parsed < 0 {
			fmt.Fprintf(os.Stderr, "invalid page id %q\n", os.Args[2])
			os.Exit(1)
		}
		pageID = types.PageID(parsed)
	}

	dm, err := diskmanager.NewDiskManager(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer dm.Close()

	if pageID >= types.PageID(dm.NumPages()) {
		fmt.Fprintf(os.Stderr, "page %d out of range, file has %d pages\n", pageID, dm.NumPages())
		os.Exit(1)
	}

	buf := make([]byte, types.PageSize)
	if err := dm.ReadPage(pageID, buf); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("page %d of %s (%d bytes)\n\n", pageID, path, types.PageSize)
	fmt.Print(hex.Dump(buf))
}
