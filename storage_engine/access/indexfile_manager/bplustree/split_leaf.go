package bplus

import (
	"EmberDB/storage_engine/bufferpool"

	"github.com/pkg/errors"
)

// splitLeaf splits a full leaf: the upper half of the entries moves into a
// freshly allocated right sibling and the sibling's first key climbs into
// the parent. leafG is consumed.
func (t *BPlusTree) splitLeaf(ctx *opContext, leafG *bufferpool.WriteGuard) error {
	sibG, err := t.bpm.NewPageWrite()
	if err != nil {
		leafG.Drop()
		if errors.Is(err, bufferpool.ErrPoolExhausted) {
			return errors.Wrap(ErrTreePoolExhausted, "allocating leaf sibling")
		}
		return err
	}

	lp := asLeaf(leafG.Data())
	sp := asLeaf(sibG.Data())
	sp.init(lp.maxSize())

	splitAt := (lp.maxSize() + 1) / 2
	moved := lp.size() - splitAt
	for i := 0; i < moved; i++ {
		sp.setEntryAt(i, lp.keyAt(splitAt+i), lp.ridAt(splitAt+i))
	}
	sp.setSize(moved)
	lp.setSize(splitAt)

	sp.setNextPageID(lp.nextPageID())
	lp.setNextPageID(sibG.PageID())

	sepKey := sp.keyAt(0)
	leftID, rightID := leafG.PageID(), sibG.PageID()
	leafG.Drop()
	sibG.Drop()

	return t.insertIntoParent(ctx, leftID, sepKey, rightID)
}
