package bplus

import (
	"EmberDB/storage_engine/bufferpool"
	"EmberDB/types"

	"github.com/pkg/errors"
)

type internalEntry struct {
	key   types.Key
	child types.PageID
}

// splitInternal splits a full internal node that must additionally absorb
// (key, rightID) after slot childIdx. The maxSize+1 entries are materialized
// in an overflow buffer, then dealt back into the node and a new right
// sibling. Returns the promoted separator and the sibling's page id. The
// node's guard stays with the caller.
func (t *BPlusTree) splitInternal(nodeG *bufferpool.WriteGuard, childIdx int, key types.Key, rightID types.PageID) (types.Key, types.PageID, error) {
	ip := asInternal(nodeG.Data())

	overflow := make([]internalEntry, 0, ip.maxSize()+1)
	for i := 0; i < ip.size(); i++ {
		overflow = append(overflow, internalEntry{key: ip.keyAt(i), child: ip.childAt(i)})
	}
	overflow = append(overflow, internalEntry{})
	copy(overflow[childIdx+2:], overflow[childIdx+1:])
	overflow[childIdx+1] = internalEntry{key: key, child: rightID}

	sibG, err := t.bpm.NewPageWrite()
	if err != nil {
		if errors.Is(err, bufferpool.ErrPoolExhausted) {
			return 0, 0, errors.Wrap(ErrTreePoolExhausted, "allocating internal sibling")
		}
		return 0, 0, err
	}
	sp := asInternal(sibG.Data())
	sp.init(ip.maxSize())

	splitAt := (len(overflow) + 1) / 2
	for i, e := range overflow[:splitAt] {
		ip.setEntryAt(i, e.key, e.child)
	}
	ip.setSize(splitAt)
	for i, e := range overflow[splitAt:] {
		sp.setEntryAt(i, e.key, e.child)
	}
	sp.setSize(len(overflow) - splitAt)

	// the first key of the right half is the promoted separator; its slot 0
	// copy is simply never consulted again
	promoted := overflow[splitAt].key
	sibID := sibG.PageID()
	sibG.Drop()
	return promoted, sibID, nil
}
