package bplus

import (
	"EmberDB/storage_engine/bufferpool"
	"EmberDB/types"

	"github.com/pkg/errors"
)

// insertIntoParent climbs one level after a split: the separator key and the
// new right child go into the popped ancestor, splitting it in turn when
// full. With no ancestor left, the split node was the root and a new root is
// allocated under the header guard.
func (t *BPlusTree) insertIntoParent(ctx *opContext, leftID types.PageID, key types.Key, rightID types.PageID) error {
	if len(ctx.ancestors) == 0 {
		rootG, err := t.bpm.NewPageWrite()
		if err != nil {
			if errors.Is(err, bufferpool.ErrPoolExhausted) {
				return errors.Wrap(ErrTreePoolExhausted, "allocating new root")
			}
			return err
		}
		rp := asInternal(rootG.Data())
		rp.init(t.internalMaxSize)
		rp.setEntryAt(0, 0, leftID)
		rp.setEntryAt(1, key, rightID)
		rp.setSize(2)
		headerPage{data: ctx.header.Data()}.setRootPageID(rootG.PageID())
		t.logger.Debug().Int64("root", int64(rootG.PageID())).Msg("tree grew a level")
		rootG.Drop()
		return nil
	}

	n := len(ctx.ancestors) - 1
	parent := ctx.ancestors[n]
	ctx.ancestors = ctx.ancestors[:n]

	ip := asInternal(parent.guard.Data())
	if ip.size() < ip.maxSize() {
		ip.insertAt(parent.childIdx+1, key, rightID)
		parent.guard.Drop()
		return nil
	}

	promoted, newRightID, err := t.splitInternal(parent.guard, parent.childIdx, key, rightID)
	if err != nil {
		parent.guard.Drop()
		return err
	}
	parentID := parent.guard.PageID()
	parent.guard.Drop()
	return t.insertIntoParent(ctx, parentID, promoted, newRightID)
}
