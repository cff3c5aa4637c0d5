package bplus

import (
	"EmberDB/storage_engine/bufferpool"
	"EmberDB/types"

	"github.com/pkg/errors"
)

/*
The iterator walks the leaf chain left to right. It pins the current leaf
through a basic guard and carries an index into it; crossing a leaf boundary
swaps the guard for the next leaf's. An iterator whose page id is
InvalidPageID is the end sentinel.
*/

type Iterator struct {
	t      *BPlusTree
	guard  *bufferpool.PageGuard
	pageID types.PageID
	idx    int
}

// End returns the past-the-last sentinel.
func (t *BPlusTree) End() *Iterator {
	return &Iterator{t: t, pageID: types.InvalidPageID}
}

// Begin positions at the first key of the leftmost leaf, or End when the
// tree is empty.
func (t *BPlusTree) Begin() (*Iterator, error) {
	leafID, err := t.descendToLeaf(nil)
	if err != nil {
		return nil, err
	}
	if leafID == types.InvalidPageID {
		return t.End(), nil
	}
	it := &Iterator{t: t, pageID: leafID}
	if err := it.acquire(); err != nil {
		return nil, err
	}
	return it, it.skipExhausted()
}

// BeginAt positions at key, or at the next greater key when absent.
func (t *BPlusTree) BeginAt(key types.Key) (*Iterator, error) {
	leafID, err := t.descendToLeaf(&key)
	if err != nil {
		return nil, err
	}
	if leafID == types.InvalidPageID {
		return t.End(), nil
	}
	it := &Iterator{t: t, pageID: leafID}
	if err := it.acquire(); err != nil {
		return nil, err
	}
	it.idx = asLeaf(it.guard.Data()).lowerBound(key, t.cmp)
	return it, it.skipExhausted()
}

// descendToLeaf read-couples down to a leaf: the leftmost one when key is
// nil, else the leaf covering key. Returns InvalidPageID on an empty tree.
func (t *BPlusTree) descendToLeaf(key *types.Key) (types.PageID, error) {
	hg, err := t.bpm.FetchPageRead(t.headerPageID)
	if err != nil {
		return types.InvalidPageID, errors.Wrap(err, "failed to fetch header page")
	}
	root := headerPage{data: hg.Data()}.rootPageID()
	if root == types.InvalidPageID {
		hg.Drop()
		return types.InvalidPageID, nil
	}

	cur, err := t.bpm.FetchPageRead(root)
	hg.Drop()
	if err != nil {
		return types.InvalidPageID, errors.Wrapf(err, "failed to fetch root page %d", root)
	}
	for !isLeaf(cur.Data()) {
		ip := asInternal(cur.Data())
		idx := 0
		if key != nil {
			idx = ip.childIndexFor(*key, t.cmp)
		}
		childID := ip.childAt(idx)
		child, err := t.bpm.FetchPageRead(childID)
		cur.Drop()
		if err != nil {
			return types.InvalidPageID, errors.Wrapf(err, "failed to fetch page %d", childID)
		}
		cur = child
	}
	leafID := cur.PageID()
	cur.Drop()
	return leafID, nil
}

func (it *Iterator) acquire() error {
	g, err := it.t.bpm.FetchPageGuarded(it.pageID)
	if err != nil {
		return errors.Wrapf(err, "failed to fetch leaf %d", it.pageID)
	}
	it.guard = g
	return nil
}

// skipExhausted advances across empty tails so that a live iterator always
// points at an entry.
func (it *Iterator) skipExhausted() error {
	for !it.IsEnd() && it.idx >= asLeaf(it.guard.Data()).size() {
		next := asLeaf(it.guard.Data()).nextPageID()
		it.guard.Drop()
		it.guard = nil
		it.pageID = next
		it.idx = 0
		if next == types.InvalidPageID {
			return nil
		}
		if err := it.acquire(); err != nil {
			return err
		}
	}
	return nil
}

// IsEnd reports whether the iterator is past the last entry.
func (it *Iterator) IsEnd() bool {
	return it.pageID == types.InvalidPageID
}

// Key returns the key at the current position.
func (it *Iterator) Key() types.Key {
	return asLeaf(it.guard.Data()).keyAt(it.idx)
}

// RID returns the record id at the current position.
func (it *Iterator) RID() types.RID {
	return asLeaf(it.guard.Data()).ridAt(it.idx)
}

// Next advances one entry, following the leaf chain as needed.
func (it *Iterator) Next() error {
	if it.IsEnd() {
		return errors.New("iterator advanced past the end")
	}
	it.idx++
	return it.skipExhausted()
}

// Close releases the pinned leaf. Safe on the end sentinel and after a
// previous Close.
func (it *Iterator) Close() {
	if it.guard != nil {
		it.guard.Drop()
		it.guard = nil
	}
}
