package bplus

import (
	"EmberDB/storage_engine/bufferpool"
	"EmberDB/types"

	"github.com/phuslu/log"
	"github.com/pkg/errors"
)

// NewBPlusTree opens the tree whose header lives at headerPageID, which the
// caller must have allocated through the same buffer pool. A header whose
// stored root equals headerPageID is initialized to an empty tree; for a
// header on page 0 this covers a page that was never written (all zeros).
// A zeroed header on any other page reads as a tree rooted at page 0. Any
// other header keeps its stored root.
func NewBPlusTree(bpm *bufferpool.BufferPool, headerPageID types.PageID, cmp types.Comparator, leafMaxSize, internalMaxSize int) (*BPlusTree, error) {
	if leafMaxSize < 2 || leafMaxSize > LeafMaxCapacity {
		return nil, errors.Errorf("leaf max size %d outside [2, %d]", leafMaxSize, LeafMaxCapacity)
	}
	if internalMaxSize < 3 || internalMaxSize > InternalMaxCapacity {
		return nil, errors.Errorf("internal max size %d outside [3, %d]", internalMaxSize, InternalMaxCapacity)
	}

	t := &BPlusTree{
		bpm:             bpm,
		headerPageID:    headerPageID,
		cmp:             cmp,
		leafMaxSize:     leafMaxSize,
		internalMaxSize: internalMaxSize,
		logger: log.Logger{
			Level:   log.InfoLevel,
			Context: log.NewContext(nil).Str("component", "bplustree").Value(),
		},
	}

	hg, err := bpm.FetchPageWrite(headerPageID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch header page %d", headerPageID)
	}
	hp := headerPage{data: hg.Data()}
	if hp.rootPageID() == headerPageID {
		// zeroed page, never initialized
		hp.setRootPageID(types.InvalidPageID)
	}
	hg.Drop()

	return t, nil
}

// GetRootPageId returns the current root page id, InvalidPageID when empty.
func (t *BPlusTree) GetRootPageId() (types.PageID, error) {
	hg, err := t.bpm.FetchPageRead(t.headerPageID)
	if err != nil {
		return types.InvalidPageID, errors.Wrap(err, "failed to fetch header page")
	}
	defer hg.Drop()
	return headerPage{data: hg.Data()}.rootPageID(), nil
}

// IsEmpty reports whether the tree holds no keys.
func (t *BPlusTree) IsEmpty() (bool, error) {
	root, err := t.GetRootPageId()
	if err != nil {
		return false, err
	}
	return root == types.InvalidPageID, nil
}
