package bufferpool

import (
	"EmberDB/storage_engine/page"
	"EmberDB/types"
)

/*
Page guards tie a pin (and optionally a latch) to a value whose Drop method
releases everything in the right order. Callers that fetch through a guard
cannot leak pins or unlatch in the wrong order.

Release order is always: latch first, then unpin. Drop is idempotent; a
moved-from guard is empty and Drop on it is a no-op.
*/

// ############################################# BASIC GUARD #############################################

// PageGuard holds a pin on a page with no latch.
type PageGuard struct {
	bp      *BufferPool
	pg      *page.Page
	pageID  types.PageID
	isDirty bool
}

// FetchPageGuarded fetches pageID and wraps the pin in a guard.
func (bp *BufferPool) FetchPageGuarded(pageID types.PageID) (*PageGuard, error) {
	pg, err := bp.FetchPage(pageID)
	if err != nil {
		return nil, err
	}
	return &PageGuard{bp: bp, pg: pg, pageID: pageID}, nil
}

// NewPageGuarded allocates a fresh page and wraps the pin in a guard.
func (bp *BufferPool) NewPageGuarded() (*PageGuard, error) {
	pageID, pg, err := bp.NewPage()
	if err != nil {
		return nil, err
	}
	return &PageGuard{bp: bp, pg: pg, pageID: pageID}, nil
}

// PageID returns the guarded page's id.
func (g *PageGuard) PageID() types.PageID {
	return g.pageID
}

// Data exposes the page bytes. The caller must not write through it; use a
// write guard for mutation.
func (g *PageGuard) Data() []byte {
	return g.pg.Data
}

// SetDirty records that the page was mutated, to be passed on at Drop.
func (g *PageGuard) SetDirty() {
	g.isDirty = true
}

// Drop releases the pin. Safe to call more than once.
func (g *PageGuard) Drop() {
	if g.bp == nil {
		return
	}
	g.bp.UnpinPage(g.pageID, g.isDirty)
	g.bp = nil
	g.pg = nil
}

// Move transfers ownership into a fresh guard and empties the receiver.
func (g *PageGuard) Move() *PageGuard {
	moved := &PageGuard{bp: g.bp, pg: g.pg, pageID: g.pageID, isDirty: g.isDirty}
	g.bp = nil
	g.pg = nil
	return moved
}

// UpgradeRead takes the read latch and converts into a read guard. The
// receiver is emptied.
func (g *PageGuard) UpgradeRead() *ReadGuard {
	g.pg.RLatch()
	rg := &ReadGuard{bp: g.bp, pg: g.pg, pageID: g.pageID}
	g.bp = nil
	g.pg = nil
	return rg
}

// UpgradeWrite takes the write latch and converts into a write guard. The
// receiver is emptied.
func (g *PageGuard) UpgradeWrite() *WriteGuard {
	g.pg.WLatch()
	wg := &WriteGuard{bp: g.bp, pg: g.pg, pageID: g.pageID}
	g.bp = nil
	g.pg = nil
	return wg
}

// ############################################# READ GUARD #############################################

// ReadGuard holds a pin plus the shared latch.
type ReadGuard struct {
	bp     *BufferPool
	pg     *page.Page
	pageID types.PageID
}

// FetchPageRead fetches pageID, takes the read latch and wraps both.
func (bp *BufferPool) FetchPageRead(pageID types.PageID) (*ReadGuard, error) {
	pg, err := bp.FetchPage(pageID)
	if err != nil {
		return nil, err
	}
	pg.RLatch()
	return &ReadGuard{bp: bp, pg: pg, pageID: pageID}, nil
}

func (g *ReadGuard) PageID() types.PageID {
	return g.pageID
}

func (g *ReadGuard) Data() []byte {
	return g.pg.Data
}

// Drop unlatches then unpins. Safe to call more than once.
func (g *ReadGuard) Drop() {
	if g.bp == nil {
		return
	}
	g.pg.RUnlatch()
	g.bp.UnpinPage(g.pageID, false)
	g.bp = nil
	g.pg = nil
}

// Move transfers ownership into a fresh guard and empties the receiver.
func (g *ReadGuard) Move() *ReadGuard {
	moved := &ReadGuard{bp: g.bp, pg: g.pg, pageID: g.pageID}
	g.bp = nil
	g.pg = nil
	return moved
}

// ############################################# WRITE GUARD #############################################

// WriteGuard holds a pin plus the exclusive latch. Dropping a write guard
// always reports the page dirty.
type WriteGuard struct {
	bp     *BufferPool
	pg     *page.Page
	pageID types.PageID
}

// FetchPageWrite fetches pageID, takes the write latch and wraps both.
func (bp *BufferPool) FetchPageWrite(pageID types.PageID) (*WriteGuard, error) {
	pg, err := bp.FetchPage(pageID)
	if err != nil {
		return nil, err
	}
	pg.WLatch()
	return &WriteGuard{bp: bp, pg: pg, pageID: pageID}, nil
}

// NewPageWrite allocates a fresh page, takes the write latch and wraps both.
func (bp *BufferPool) NewPageWrite() (*WriteGuard, error) {
	pageID, pg, err := bp.NewPage()
	if err != nil {
		return nil, err
	}
	pg.WLatch()
	return &WriteGuard{bp: bp, pg: pg, pageID: pageID}, nil
}

func (g *WriteGuard) PageID() types.PageID {
	return g.pageID
}

// Data exposes the page bytes for mutation.
func (g *WriteGuard) Data() []byte {
	return g.pg.Data
}

// Drop unlatches then unpins, reporting the page dirty. Safe to call more
// than once.
func (g *WriteGuard) Drop() {
	if g.bp == nil {
		return
	}
	g.pg.WUnlatch()
	g.bp.UnpinPage(g.pageID, true)
	g.bp = nil
	g.pg = nil
}

// Move transfers ownership into a fresh guard and empties the receiver.
func (g *WriteGuard) Move() *WriteGuard {
	moved := &WriteGuard{bp: g.bp, pg: g.pg, pageID: g.pageID}
	g.bp = nil
	g.pg = nil
	return moved
}
