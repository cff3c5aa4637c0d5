package bplus

import (
	"encoding/binary"

	"EmberDB/types"
)

/*
Internal page layout, little endian:

  offset 0   pageType u32
  offset 4   size     u32    number of children
  offset 8   maxSize  u32
  offset 12  entries  size × 16 bytes

One entry is key i64, child i64. The slot 0 key is never consulted; child i
covers keys in [key(i), key(i+1)).
*/

type internalPage struct {
	data []byte
}

func asInternal(data []byte) internalPage { return internalPage{data: data} }

func (p internalPage) init(maxSize int) {
	binary.LittleEndian.PutUint32(p.data[0:], uint32(types.PageTypeIndexInternal))
	binary.LittleEndian.PutUint32(p.data[4:], 0)
	binary.LittleEndian.PutUint32(p.data[8:], uint32(maxSize))
}

func (p internalPage) size() int     { return int(binary.LittleEndian.Uint32(p.data[4:])) }
func (p internalPage) setSize(n int) { binary.LittleEndian.PutUint32(p.data[4:], uint32(n)) }
func (p internalPage) maxSize() int  { return int(binary.LittleEndian.Uint32(p.data[8:])) }
func (p internalPage) minSize() int  { return (p.maxSize() + 1) / 2 }

func (p internalPage) entryOffset(i int) int { return internalHeaderSize + i*internalEntrySize }

func (p internalPage) keyAt(i int) types.Key {
	off := p.entryOffset(i)
	return types.Key(int64(binary.LittleEndian.Uint64(p.data[off:])))
}

func (p internalPage) setKeyAt(i int, key types.Key) {
	off := p.entryOffset(i)
	binary.LittleEndian.PutUint64(p.data[off:], uint64(key))
}

func (p internalPage) childAt(i int) types.PageID {
	off := p.entryOffset(i)
	return types.PageID(int64(binary.LittleEndian.Uint64(p.data[off+8:])))
}

func (p internalPage) setChildAt(i int, id types.PageID) {
	off := p.entryOffset(i)
	binary.LittleEndian.PutUint64(p.data[off+8:], uint64(id))
}

func (p internalPage) setEntryAt(i int, key types.Key, child types.PageID) {
	p.setKeyAt(i, key)
	p.setChildAt(i, child)
}

// insertAt shifts entries right and writes (key, child) at position i.
func (p internalPage) insertAt(i int, key types.Key, child types.PageID) {
	n := p.size()
	start := p.entryOffset(i)
	end := p.entryOffset(n)
	copy(p.data[start+internalEntrySize:end+internalEntrySize], p.data[start:end])
	p.setEntryAt(i, key, child)
	p.setSize(n + 1)
}

// removeAt shifts entries left over position i.
func (p internalPage) removeAt(i int) {
	n := p.size()
	start := p.entryOffset(i)
	end := p.entryOffset(n)
	copy(p.data[start:], p.data[start+internalEntrySize:end])
	p.setSize(n - 1)
}

// childIndexFor returns the slot whose subtree covers target: the greatest
// i with key(i) <= target, or 0 when even key(1) exceeds it.
func (p internalPage) childIndexFor(target types.Key, cmp types.Comparator) int {
	lo, hi := 1, p.size()
	for lo < hi {
		mid := lo + (hi-lo)/2
		if cmp(p.keyAt(mid), target) <= 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo - 1
}

// indexOfChild returns the slot holding child, or -1.
func (p internalPage) indexOfChild(child types.PageID) int {
	for i := 0; i < p.size(); i++ {
		if p.childAt(i) == child {
			return i
		}
	}
	return -1
}
