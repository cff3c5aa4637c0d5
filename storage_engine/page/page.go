package page

import (
	"sync"

	"EmberDB/types"
)

/*
One Page is one frame's worth of bytes plus the in-memory metadata the
bufferpool needs: the resident page id, a pin count, a dirty flag and a
reader/writer latch.

Ownership rules:
- Data may be mutated only while holding the write latch
- PinCount and IsDirty belong to the bufferpool and change only under the
  pool latch
*/

type Page struct {
	ID       types.PageID
	Data     []byte
	LSN      uint64
	IsDirty  bool
	PinCount int32
	mu       sync.RWMutex
}

// NewPage returns an empty frame slot, bound to no page.
func NewPage() *Page {
	return &Page{
		ID:   types.InvalidPageID,
		Data: make([]byte, types.PageSize),
	}
}

// Reset unbinds the frame: zeroes the data and clears all metadata.
func (p *Page) Reset() {
	for i := range p.Data {
		p.Data[i] = 0
	}
	p.ID = types.InvalidPageID
	p.LSN = 0
	p.IsDirty = false
	p.PinCount = 0
}

func (p *Page) WLatch() {
	p.mu.Lock()
}

func (p *Page) WUnlatch() {
	p.mu.Unlock()
}

func (p *Page) RLatch() {
	p.mu.RLock()
}

func (p *Page) RUnlatch() {
	p.mu.RUnlock()
}
