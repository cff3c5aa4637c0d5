package bplus

import (
	"encoding/binary"

	"EmberDB/types"
)

/*
Leaf page layout, little endian:

  offset 0   pageType   u32
  offset 4   size       u32    number of (key, rid) pairs
  offset 8   maxSize    u32
  offset 12  nextPageID i64    right sibling, InvalidPageID at the end
  offset 20  entries    size × 24 bytes

One entry is key i64, rid.pageID i64, rid.slot u32, 4 bytes pad.
*/

type leafPage struct {
	data []byte
}

func asLeaf(data []byte) leafPage { return leafPage{data: data} }

func isLeaf(data []byte) bool {
	return types.PageType(binary.LittleEndian.Uint32(data[0:])) == types.PageTypeIndexLeaf
}

func (p leafPage) init(maxSize int) {
	binary.LittleEndian.PutUint32(p.data[0:], uint32(types.PageTypeIndexLeaf))
	binary.LittleEndian.PutUint32(p.data[4:], 0)
	binary.LittleEndian.PutUint32(p.data[8:], uint32(maxSize))
	p.setNextPageID(types.InvalidPageID)
}

func (p leafPage) size() int        { return int(binary.LittleEndian.Uint32(p.data[4:])) }
func (p leafPage) setSize(n int)    { binary.LittleEndian.PutUint32(p.data[4:], uint32(n)) }
func (p leafPage) maxSize() int     { return int(binary.LittleEndian.Uint32(p.data[8:])) }
func (p leafPage) minSize() int     { return p.maxSize() / 2 }

func (p leafPage) nextPageID() types.PageID {
	return types.PageID(int64(binary.LittleEndian.Uint64(p.data[12:])))
}

func (p leafPage) setNextPageID(id types.PageID) {
	binary.LittleEndian.PutUint64(p.data[12:], uint64(id))
}

func (p leafPage) entryOffset(i int) int { return leafHeaderSize + i*leafEntrySize }

func (p leafPage) keyAt(i int) types.Key {
	off := p.entryOffset(i)
	return types.Key(int64(binary.LittleEndian.Uint64(p.data[off:])))
}

func (p leafPage) ridAt(i int) types.RID {
	off := p.entryOffset(i)
	return types.RID{
		PageID:  types.PageID(int64(binary.LittleEndian.Uint64(p.data[off+8:]))),
		SlotNum: binary.LittleEndian.Uint32(p.data[off+16:]),
	}
}

func (p leafPage) setEntryAt(i int, key types.Key, rid types.RID) {
	off := p.entryOffset(i)
	binary.LittleEndian.PutUint64(p.data[off:], uint64(key))
	binary.LittleEndian.PutUint64(p.data[off+8:], uint64(rid.PageID))
	binary.LittleEndian.PutUint32(p.data[off+16:], rid.SlotNum)
	binary.LittleEndian.PutUint32(p.data[off+20:], 0)
}

// insertAt shifts entries right and writes the new pair at position i.
func (p leafPage) insertAt(i int, key types.Key, rid types.RID) {
	n := p.size()
	start := p.entryOffset(i)
	end := p.entryOffset(n)
	copy(p.data[start+leafEntrySize:end+leafEntrySize], p.data[start:end])
	p.setEntryAt(i, key, rid)
	p.setSize(n + 1)
}

// removeAt shifts entries left over position i.
func (p leafPage) removeAt(i int) {
	n := p.size()
	start := p.entryOffset(i)
	end := p.entryOffset(n)
	copy(p.data[start:], p.data[start+leafEntrySize:end])
	p.setSize(n - 1)
}

// lowerBound returns the first position whose key is >= target, or size()
// when every key is smaller.
func (p leafPage) lowerBound(target types.Key, cmp types.Comparator) int {
	lo, hi := 0, p.size()
	for lo < hi {
		mid := lo + (hi-lo)/2
		if cmp(p.keyAt(mid), target) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// find returns the position of target, or -1.
func (p leafPage) find(target types.Key, cmp types.Comparator) int {
	i := p.lowerBound(target, cmp)
	if i < p.size() && cmp(p.keyAt(i), target) == 0 {
		return i
	}
	return -1
}
