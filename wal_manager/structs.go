package wal_manager

import (
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/phuslu/log"
)

const (
	RecordHeaderSize = 16
	PayloadIDSize    = 8 // snowflake id prefixed to every payload
	SegmentSize      = 16 * 1024 * 1024
)

// WALManager is the write-ahead log collaborator the buffer pool consults
// before flushing pages. Records are appended to fixed-size segment files;
// FlushedLSN trails CurrentLSN and advances only on Sync.
type WALManager struct {
	Directory   string
	CurrentLSN  uint64
	FlushedLSN  uint64
	currSegment *segment
	segments    map[uint64]*segment
	idGen       *snowflake.Node
	logger      log.Logger
	mu          sync.RWMutex
}

type WALRecord struct {
	LSN  uint64
	Data []byte
	CRC  uint32
}
