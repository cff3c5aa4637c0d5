package bplus

import (
	"EmberDB/types"

	"github.com/pkg/errors"
)

// GetValue looks key up and appends its record id to result. Returns false
// when the key is absent. Descent is read-latched with latch coupling: the
// parent's guard is held until the child's is taken.
func (t *BPlusTree) GetValue(key types.Key, result *[]types.RID) (bool, error) {
	hg, err := t.bpm.FetchPageRead(t.headerPageID)
	if err != nil {
		return false, errors.Wrap(err, "failed to fetch header page")
	}
	root := headerPage{data: hg.Data()}.rootPageID()
	if root == types.InvalidPageID {
		hg.Drop()
		return false, nil
	}

	cur, err := t.bpm.FetchPageRead(root)
	hg.Drop()
	if err != nil {
		return false, errors.Wrapf(err, "failed to fetch root page %d", root)
	}

	for !isLeaf(cur.Data()) {
		ip := asInternal(cur.Data())
		childID := ip.childAt(ip.childIndexFor(key, t.cmp))
		child, err := t.bpm.FetchPageRead(childID)
		cur.Drop()
		if err != nil {
			return false, errors.Wrapf(err, "failed to fetch page %d", childID)
		}
		cur = child
	}
	defer cur.Drop()

	lp := asLeaf(cur.Data())
	i := lp.find(key, t.cmp)
	if i < 0 {
		return false, nil
	}
	*result = append(*result, lp.ridAt(i))
	return true, nil
}
