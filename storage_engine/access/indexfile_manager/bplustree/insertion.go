package bplus

import (
	"EmberDB/storage_engine/bufferpool"
	"EmberDB/types"

	"github.com/pkg/errors"
)

// Insert adds (key, rid) to the tree. Returns false without mutating when
// the key is already present. The descent takes write guards with latch
// coupling, keeping ancestors only while a split could still reach them.
func (t *BPlusTree) Insert(key types.Key, rid types.RID) (bool, error) {
	ctx, leafG, err := t.descendForWrite(key, modeInsert)
	if err != nil {
		return false, err
	}

	// empty tree: first key becomes a one-entry root leaf
	if leafG == nil {
		ng, err := t.bpm.NewPageWrite()
		if err != nil {
			ctx.releaseAncestors()
			if errors.Is(err, bufferpool.ErrPoolExhausted) {
				return false, errors.Wrap(ErrTreePoolExhausted, "allocating root leaf")
			}
			return false, err
		}
		lp := asLeaf(ng.Data())
		lp.init(t.leafMaxSize)
		lp.insertAt(0, key, rid)
		headerPage{data: ctx.header.Data()}.setRootPageID(ng.PageID())
		t.logger.Debug().Int64("root", int64(ng.PageID())).Msg("tree root created")
		ng.Drop()
		ctx.releaseAncestors()
		return true, nil
	}

	lp := asLeaf(leafG.Data())
	if lp.find(key, t.cmp) >= 0 {
		leafG.Drop()
		ctx.releaseAncestors()
		return false, nil
	}

	lp.insertAt(lp.lowerBound(key, t.cmp), key, rid)
	if lp.size() < lp.maxSize() {
		leafG.Drop()
		ctx.releaseAncestors()
		return true, nil
	}

	if err := t.splitLeaf(ctx, leafG); err != nil {
		ctx.releaseAncestors()
		return false, err
	}
	ctx.releaseAncestors()
	return true, nil
}
