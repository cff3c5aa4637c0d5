package bplus

import (
	"EmberDB/storage_engine/bufferpool"
	"EmberDB/types"

	"github.com/pkg/errors"
)

// Remove deletes key from the tree. A missing key is a no-op. Underfull
// leaves borrow from or merge with a sibling; merges may climb, shrinking
// the tree by a level when the root is left with one child.
func (t *BPlusTree) Remove(key types.Key) error {
	ctx, leafG, err := t.descendForWrite(key, modeDelete)
	if err != nil {
		return err
	}
	if leafG == nil {
		ctx.releaseAncestors()
		return nil
	}

	lp := asLeaf(leafG.Data())
	i := lp.find(key, t.cmp)
	if i < 0 {
		leafG.Drop()
		ctx.releaseAncestors()
		return nil
	}
	lp.removeAt(i)

	// deleting the first key invalidates the parent's separator copy,
	// except for the leftmost child whose slot 0 separator is unused
	if i == 0 && lp.size() > 0 && len(ctx.ancestors) > 0 {
		parent := ctx.ancestors[len(ctx.ancestors)-1]
		if parent.childIdx > 0 {
			asInternal(parent.guard.Data()).setKeyAt(parent.childIdx, lp.keyAt(0))
		}
	}

	if len(ctx.ancestors) == 0 {
		// root leaf: empty tree when the last key goes
		if lp.size() == 0 {
			headerPage{data: ctx.header.Data()}.setRootPageID(types.InvalidPageID)
			t.freePage(leafG)
			ctx.releaseAncestors()
			return nil
		}
		leafG.Drop()
		ctx.releaseAncestors()
		return nil
	}

	if lp.size() >= lp.minSize() {
		leafG.Drop()
		ctx.releaseAncestors()
		return nil
	}

	if err := t.fixLeafUnderflow(ctx, leafG); err != nil {
		ctx.releaseAncestors()
		return err
	}
	ctx.releaseAncestors()
	return nil
}

// fixLeafUnderflow rebalances an underfull leaf against one sibling: the
// left one when it exists, else the right one. Consumes leafG.
func (t *BPlusTree) fixLeafUnderflow(ctx *opContext, leafG *bufferpool.WriteGuard) error {
	n := len(ctx.ancestors) - 1
	parent := ctx.ancestors[n]
	ctx.ancestors = ctx.ancestors[:n]

	pp := asInternal(parent.guard.Data())
	lp := asLeaf(leafG.Data())
	idx := parent.childIdx

	if idx > 0 {
		sibG, err := t.bpm.FetchPageWrite(pp.childAt(idx - 1))
		if err != nil {
			leafG.Drop()
			parent.guard.Drop()
			return errors.Wrap(err, "failed to fetch left leaf sibling")
		}
		sp := asLeaf(sibG.Data())

		if sp.size() > sp.minSize() {
			// borrow the left sibling's last entry
			last := sp.size() - 1
			lp.insertAt(0, sp.keyAt(last), sp.ridAt(last))
			sp.setSize(last)
			pp.setKeyAt(idx, lp.keyAt(0))
			sibG.Drop()
			leafG.Drop()
			parent.guard.Drop()
			return nil
		}

		// merge into the left sibling, leaf is the right half
		t.mergeLeaves(sp, lp)
		pp.removeAt(idx)
		sibG.Drop()
		t.freePage(leafG)
		return t.fixParentAfterMerge(ctx, parent.guard)
	}

	sibG, err := t.bpm.FetchPageWrite(pp.childAt(idx + 1))
	if err != nil {
		leafG.Drop()
		parent.guard.Drop()
		return errors.Wrap(err, "failed to fetch right leaf sibling")
	}
	sp := asLeaf(sibG.Data())

	if sp.size() > sp.minSize() {
		// borrow the right sibling's first entry
		lp.insertAt(lp.size(), sp.keyAt(0), sp.ridAt(0))
		sp.removeAt(0)
		pp.setKeyAt(idx+1, sp.keyAt(0))
		sibG.Drop()
		leafG.Drop()
		parent.guard.Drop()
		return nil
	}

	// merge the right sibling into the leaf
	t.mergeLeaves(lp, sp)
	pp.removeAt(idx + 1)
	leafG.Drop()
	t.freePage(sibG)
	return t.fixParentAfterMerge(ctx, parent.guard)
}

// mergeLeaves appends right's entries to left and relinks the leaf chain.
func (t *BPlusTree) mergeLeaves(left, right leafPage) {
	base := left.size()
	for i := 0; i < right.size(); i++ {
		left.setEntryAt(base+i, right.keyAt(i), right.ridAt(i))
	}
	left.setSize(base + right.size())
	left.setNextPageID(right.nextPageID())
}

// fixParentAfterMerge handles the aftermath of removing a separator from
// nodeG: root collapse, underflow recursion, or nothing. Consumes nodeG.
func (t *BPlusTree) fixParentAfterMerge(ctx *opContext, nodeG *bufferpool.WriteGuard) error {
	ip := asInternal(nodeG.Data())

	if len(ctx.ancestors) == 0 {
		// node is the root; one remaining child becomes the new root
		if ip.size() == 1 {
			headerPage{data: ctx.header.Data()}.setRootPageID(ip.childAt(0))
			t.logger.Debug().Msg("tree shrank a level")
			t.freePage(nodeG)
			return nil
		}
		nodeG.Drop()
		return nil
	}

	if ip.size() >= ip.minSize() {
		nodeG.Drop()
		return nil
	}
	return t.fixInternalUnderflow(ctx, nodeG)
}

// fixInternalUnderflow rebalances an underfull internal node against one
// sibling, rotating separators through the parent. Consumes nodeG.
func (t *BPlusTree) fixInternalUnderflow(ctx *opContext, nodeG *bufferpool.WriteGuard) error {
	n := len(ctx.ancestors) - 1
	parent := ctx.ancestors[n]
	ctx.ancestors = ctx.ancestors[:n]

	pp := asInternal(parent.guard.Data())
	np := asInternal(nodeG.Data())
	idx := parent.childIdx

	if idx > 0 {
		sibG, err := t.bpm.FetchPageWrite(pp.childAt(idx - 1))
		if err != nil {
			nodeG.Drop()
			parent.guard.Drop()
			return errors.Wrap(err, "failed to fetch left internal sibling")
		}
		sp := asInternal(sibG.Data())

		if sp.size() > sp.minSize() {
			// rotate: left's last child moves in front, the separator key
			// comes down and left's last key goes up
			last := sp.size() - 1
			np.insertAt(0, 0, sp.childAt(last))
			np.setKeyAt(1, pp.keyAt(idx))
			pp.setKeyAt(idx, sp.keyAt(last))
			sp.setSize(last)
			sibG.Drop()
			nodeG.Drop()
			parent.guard.Drop()
			return nil
		}

		t.mergeInternals(sp, np, pp.keyAt(idx))
		pp.removeAt(idx)
		sibG.Drop()
		t.freePage(nodeG)
		return t.fixParentAfterMerge(ctx, parent.guard)
	}

	sibG, err := t.bpm.FetchPageWrite(pp.childAt(idx + 1))
	if err != nil {
		nodeG.Drop()
		parent.guard.Drop()
		return errors.Wrap(err, "failed to fetch right internal sibling")
	}
	sp := asInternal(sibG.Data())

	if sp.size() > sp.minSize() {
		// rotate: right's first child appends, the separator comes down and
		// right's next key goes up
		np.insertAt(np.size(), pp.keyAt(idx+1), sp.childAt(0))
		newSep := sp.keyAt(1)
		sp.removeAt(0)
		pp.setKeyAt(idx+1, newSep)
		sibG.Drop()
		nodeG.Drop()
		parent.guard.Drop()
		return nil
	}

	t.mergeInternals(np, sp, pp.keyAt(idx+1))
	pp.removeAt(idx + 1)
	nodeG.Drop()
	t.freePage(sibG)
	return t.fixParentAfterMerge(ctx, parent.guard)
}

// mergeInternals appends right's entries to left; the parent separator
// becomes the key over right's first child.
func (t *BPlusTree) mergeInternals(left, right internalPage, separator types.Key) {
	base := left.size()
	left.setEntryAt(base, separator, right.childAt(0))
	for i := 1; i < right.size(); i++ {
		left.setEntryAt(base+i, right.keyAt(i), right.childAt(i))
	}
	left.setSize(base + right.size())
}

// freePage zeroes a merged-out page and hands it back to the buffer pool.
// A page some iterator still pins simply stays resident until unpinned.
func (t *BPlusTree) freePage(g *bufferpool.WriteGuard) {
	data := g.Data()
	for i := range data {
		data[i] = 0
	}
	id := g.PageID()
	g.Drop()
	if err := t.bpm.DeletePage(id); err != nil && !errors.Is(err, bufferpool.ErrPagePinned) {
		t.logger.Warn().Err(err).Int64("page_id", int64(id)).Msg("failed to reclaim page")
	}
}
