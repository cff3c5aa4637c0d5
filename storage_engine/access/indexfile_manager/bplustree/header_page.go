package bplus

import (
	"encoding/binary"

	"EmberDB/types"
)

/*
The header page is one ordinary buffer pool page holding only the root page
id at offset 0. Its page latch is the tree latch.

A freshly allocated header page is all zeros. Since the header itself is a
page, no root can ever live at the header's own id, so a stored root equal
to the header id marks a brand-new tree and is rewritten to InvalidPageID.
A zeroed page stores root 0, so this check recognises a fresh header only
when the header is page 0.
*/

const headerRootOffset = 0

type headerPage struct {
	data []byte
}

func (h headerPage) rootPageID() types.PageID {
	return types.PageID(int64(binary.LittleEndian.Uint64(h.data[headerRootOffset:])))
}

func (h headerPage) setRootPageID(id types.PageID) {
	binary.LittleEndian.PutUint64(h.data[headerRootOffset:], uint64(id))
}
