package bplus

import (
	"EmberDB/storage_engine/bufferpool"
	"EmberDB/types"

	"github.com/pkg/errors"
)

type opMode int

const (
	modeInsert opMode = iota
	modeDelete
)

// nodeSafe reports whether a structural change below this node can never
// reach above it: an insert-safe node absorbs a child split without
// splitting itself, a delete-safe node absorbs a child merge without going
// underfull.
func (t *BPlusTree) nodeSafe(data []byte, mode opMode, isRoot bool) bool {
	if isLeaf(data) {
		lp := asLeaf(data)
		if mode == modeInsert {
			return lp.size() < lp.maxSize()-1
		}
		if isRoot {
			return lp.size() > 1
		}
		return lp.size() > lp.minSize()
	}
	ip := asInternal(data)
	if mode == modeInsert {
		return ip.size() < ip.maxSize()
	}
	if isRoot {
		return ip.size() > 2
	}
	return ip.size() > ip.minSize()
}

// descendForWrite walks header to leaf taking write guards. The returned
// context holds whatever guards the operation may still need: the header
// while the root can change, ancestors while a split or merge can climb.
// For deletes the direct parent is always retained so separators can be
// patched. A nil leaf guard means the tree is empty; the header guard is
// still held in that case.
func (t *BPlusTree) descendForWrite(key types.Key, mode opMode) (*opContext, *bufferpool.WriteGuard, error) {
	hg, err := t.bpm.FetchPageWrite(t.headerPageID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to fetch header page")
	}
	ctx := &opContext{header: hg}

	root := headerPage{data: hg.Data()}.rootPageID()
	if root == types.InvalidPageID {
		return ctx, nil, nil
	}

	cur, err := t.bpm.FetchPageWrite(root)
	if err != nil {
		ctx.releaseAncestors()
		return nil, nil, errors.Wrapf(err, "failed to fetch root page %d", root)
	}
	if t.nodeSafe(cur.Data(), mode, true) {
		// root id cannot change below a safe root
		ctx.header.Drop()
		ctx.header = nil
	}

	for !isLeaf(cur.Data()) {
		ip := asInternal(cur.Data())
		idx := ip.childIndexFor(key, t.cmp)
		child, err := t.bpm.FetchPageWrite(ip.childAt(idx))
		if err != nil {
			cur.Drop()
			ctx.releaseAncestors()
			return nil, nil, errors.Wrapf(err, "failed to fetch page %d", ip.childAt(idx))
		}

		if t.nodeSafe(child.Data(), mode, false) {
			for i := range ctx.ancestors {
				ctx.ancestors[i].guard.Drop()
			}
			ctx.ancestors = ctx.ancestors[:0]
			if ctx.header != nil {
				ctx.header.Drop()
				ctx.header = nil
			}
			if mode == modeInsert {
				// a safe child never pushes anything into cur
				cur.Drop()
			} else {
				// deletes still patch separators in the direct parent
				ctx.ancestors = append(ctx.ancestors, ancestorFrame{guard: cur, childIdx: idx})
			}
		} else {
			ctx.ancestors = append(ctx.ancestors, ancestorFrame{guard: cur, childIdx: idx})
		}
		cur = child
	}

	return ctx, cur, nil
}
