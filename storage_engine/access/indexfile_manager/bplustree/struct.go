// Structure of B+ Tree
/*
Tree
 ├── Internal Node (separator keys + child page ids)
 │      └── Child Internal Nodes ...
 │             └── Leaf Nodes (keys + record ids + next pointer)


- keys: sorted ascending order
- internal nodes: size counts children; the slot 0 key is unused
- leaf nodes: size counts (key, rid) pairs
- leaf nodes linked with nextPageID for fast range scans
- all leaf nodes at same depth

Nodes live inside buffer pool frames as serialized pages; every access goes
through a page guard, never through a long-lived in-memory node object.
*/
package bplus

import (
	"EmberDB/storage_engine/bufferpool"
	"EmberDB/types"

	"github.com/phuslu/log"
	"github.com/pkg/errors"
)

const (
	leafHeaderSize     = 20 // pageType u32, size u32, maxSize u32, nextPageID i64
	internalHeaderSize = 12 // pageType u32, size u32, maxSize u32
	leafEntrySize      = 24 // key i64, rid (pageID i64, slot u32, pad u32)
	internalEntrySize  = 16 // key i64, child i64

	// LeafMaxCapacity and InternalMaxCapacity are the largest max sizes for
	// which the serialized entry arrays still fit in one page.
	LeafMaxCapacity     = (types.PageSize - leafHeaderSize) / leafEntrySize
	InternalMaxCapacity = (types.PageSize - internalHeaderSize) / internalEntrySize
)

var (
	// ErrTreePoolExhausted means the buffer pool refused a page the tree needs.
	ErrTreePoolExhausted = errors.New("index out of memory: buffer pool refused a page")
)

// BPlusTree is an ordered key to record-id map layered on the buffer pool.
// Concurrent callers are safe: descents use latch coupling and the header
// page's latch doubles as the tree latch for root changes.
type BPlusTree struct {
	bpm             *bufferpool.BufferPool
	headerPageID    types.PageID
	cmp             types.Comparator
	leafMaxSize     int
	internalMaxSize int
	logger          log.Logger
}

// opContext carries the write guards an insert or remove descent still
// holds: the header guard (tree latch) plus the ancestor chain root-down.
// Each ancestor remembers which child slot the descent followed.
type opContext struct {
	header    *bufferpool.WriteGuard
	ancestors []ancestorFrame
}

type ancestorFrame struct {
	guard    *bufferpool.WriteGuard
	childIdx int
}

// releaseAncestors drops every ancestor guard and the header guard. Called
// when the operation finishes or fails; the early release at a safe child is
// done inline by descendForWrite.
func (c *opContext) releaseAncestors() {
	for i := range c.ancestors {
		c.ancestors[i].guard.Drop()
	}
	c.ancestors = c.ancestors[:0]
	if c.header != nil {
		c.header.Drop()
		c.header = nil
	}
}
