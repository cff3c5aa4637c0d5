package diskmanager

import (
	"os"
	"sync"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/phuslu/log"
)

// ############################################# DISK MANAGER #############################################

// DiskManager owns the database file and serves fixed-size page reads and
// writes at pageID * PageSize offsets. A ristretto block cache sits in front
// of reads so that pages flushed and later re-fetched skip the syscall; it is
// write-through, so it can never serve bytes older than the last WritePage.
type DiskManager struct {
	file       *os.File
	filePath   string
	numPages   int64 // pages physically present in the file
	blockCache *ristretto.Cache[int64, []byte]
	logger     log.Logger
	mu         sync.RWMutex
}
