package bplus

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"EmberDB/storage_engine/bufferpool"
	diskmanager "EmberDB/storage_engine/disk_manager"
	"EmberDB/types"
)

func newTestTree(t *testing.T, leafMax, internalMax, poolSize int) *BPlusTree {
	t.Helper()
	dir := t.TempDir()
	dm, err := diskmanager.NewDiskManager(filepath.Join(dir, "index.db"))
	if err != nil {
		t.Fatalf("NewDiskManager: %v", err)
	}
	t.Cleanup(func() { dm.Close() })
	bpm := bufferpool.NewBufferPool(poolSize, dm, 2)

	headerID, _, err := bpm.NewPage()
	if err != nil {
		t.Fatalf("NewPage for header: %v", err)
	}
	bpm.UnpinPage(headerID, true)

	tree, err := NewBPlusTree(bpm, headerID, types.CompareKeys, leafMax, internalMax)
	if err != nil {
		t.Fatalf("NewBPlusTree: %v", err)
	}
	return tree
}

func ridFor(k types.Key) types.RID {
	return types.RID{PageID: types.PageID(k * 10), SlotNum: uint32(k)}
}

func mustInsert(t *testing.T, tree *BPlusTree, k types.Key) {
	t.Helper()
	ok, err := tree.Insert(k, ridFor(k))
	if err != nil {
		t.Fatalf("Insert(%d): %v", k, err)
	}
	if !ok {
		t.Fatalf("Insert(%d) returned false", k)
	}
}

func scanAll(t *testing.T, tree *BPlusTree) []types.Key {
	t.Helper()
	it, err := tree.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer it.Close()
	var keys []types.Key
	for !it.IsEnd() {
		keys = append(keys, it.Key())
		if got, want := it.RID(), ridFor(it.Key()); got != want {
			t.Fatalf("RID for key %d = %+v, want %+v", it.Key(), got, want)
		}
		if err := it.Next(); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}
	return keys
}

// treeDepth walks leftmost children and counts levels above the leaves.
func treeDepth(t *testing.T, tree *BPlusTree) int {
	t.Helper()
	root, err := tree.GetRootPageId()
	if err != nil {
		t.Fatalf("GetRootPageId: %v", err)
	}
	if root == types.InvalidPageID {
		return -1
	}
	depth := 0
	cur := root
	for {
		g, err := tree.bpm.FetchPageRead(cur)
		if err != nil {
			t.Fatalf("FetchPageRead(%d): %v", cur, err)
		}
		if isLeaf(g.Data()) {
			g.Drop()
			return depth
		}
		next := asInternal(g.Data()).childAt(0)
		g.Drop()
		cur = next
		depth++
	}
}

func TestEmptyTree(t *testing.T) {
	tree := newTestTree(t, 4, 4, 16)

	empty, err := tree.IsEmpty()
	if err != nil {
		t.Fatalf("IsEmpty: %v", err)
	}
	if !empty {
		t.Fatal("fresh tree is not empty")
	}

	var result []types.RID
	found, err := tree.GetValue(1, &result)
	if err != nil {
		t.Fatalf("GetValue: %v", err)
	}
	if found || len(result) != 0 {
		t.Error("GetValue on empty tree found something")
	}

	if err := tree.Remove(1); err != nil {
		t.Errorf("Remove on empty tree: %v", err)
	}

	it, err := tree.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if !it.IsEnd() {
		t.Error("Begin on empty tree is not End")
	}
	it.Close()
}

// TestSequentialInsert follows the canonical shape: with leaf and internal
// max sizes of 4, keys 1..10 produce a two-level tree with chained leaves.
func TestSequentialInsert(t *testing.T) {
	tree := newTestTree(t, 4, 4, 16)

	for k := types.Key(1); k <= 4; k++ {
		mustInsert(t, tree, k)
	}
	// the fourth insert split the root leaf
	if d := treeDepth(t, tree); d != 1 {
		t.Fatalf("depth after 4 inserts = %d, want 1", d)
	}

	for k := types.Key(5); k <= 10; k++ {
		mustInsert(t, tree, k)
	}
	if d := treeDepth(t, tree); d != 2 {
		t.Fatalf("depth after 10 inserts = %d, want 2", d)
	}

	got := scanAll(t, tree)
	if len(got) != 10 {
		t.Fatalf("scan yielded %d keys, want 10", len(got))
	}
	for i, k := range got {
		if k != types.Key(i+1) {
			t.Fatalf("scan[%d] = %d, want %d", i, k, i+1)
		}
	}

	for k := types.Key(1); k <= 10; k++ {
		var result []types.RID
		found, err := tree.GetValue(k, &result)
		if err != nil {
			t.Fatalf("GetValue(%d): %v", k, err)
		}
		if !found || len(result) != 1 || result[0] != ridFor(k) {
			t.Fatalf("GetValue(%d) = %v found=%v", k, result, found)
		}
	}
}

// TestDeleteWithMerge removes the low keys from the ten-key tree; leaves
// rebalance, an internal merge collapses the tree back to depth 1 and the
// survivors scan in order.
func TestDeleteWithMerge(t *testing.T) {
	tree := newTestTree(t, 4, 4, 16)
	for k := types.Key(1); k <= 10; k++ {
		mustInsert(t, tree, k)
	}

	for k := types.Key(1); k <= 5; k++ {
		if err := tree.Remove(k); err != nil {
			t.Fatalf("Remove(%d): %v", k, err)
		}
	}

	if d := treeDepth(t, tree); d != 1 {
		t.Fatalf("depth after removing 1..5 = %d, want 1", d)
	}
	got := scanAll(t, tree)
	want := []types.Key{6, 7, 8, 9, 10}
	if len(got) != len(want) {
		t.Fatalf("scan yielded %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("scan = %v, want %v", got, want)
		}
	}
	for k := types.Key(1); k <= 5; k++ {
		var result []types.RID
		if found, _ := tree.GetValue(k, &result); found {
			t.Errorf("removed key %d still found", k)
		}
	}
}

func TestRemoveIdempotent(t *testing.T) {
	tree := newTestTree(t, 4, 4, 16)
	for k := types.Key(1); k <= 6; k++ {
		mustInsert(t, tree, k)
	}
	if err := tree.Remove(3); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := tree.Remove(3); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
	got := scanAll(t, tree)
	want := []types.Key{1, 2, 4, 5, 6}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("scan = %v, want %v", got, want)
		}
	}
}

func TestRemoveAllEmptiesTree(t *testing.T) {
	tree := newTestTree(t, 4, 4, 16)
	for k := types.Key(1); k <= 10; k++ {
		mustInsert(t, tree, k)
	}
	for k := types.Key(10); k >= 1; k-- {
		if err := tree.Remove(k); err != nil {
			t.Fatalf("Remove(%d): %v", k, err)
		}
	}
	empty, err := tree.IsEmpty()
	if err != nil {
		t.Fatalf("IsEmpty: %v", err)
	}
	if !empty {
		t.Fatal("tree not empty after removing everything")
	}

	// the tree is usable again after emptying
	mustInsert(t, tree, 42)
	var result []types.RID
	found, err := tree.GetValue(42, &result)
	if err != nil || !found {
		t.Fatalf("GetValue after reinsert: found=%v err=%v", found, err)
	}
}

func TestDuplicateInsert(t *testing.T) {
	tree := newTestTree(t, 4, 4, 16)
	mustInsert(t, tree, 7)

	ok, err := tree.Insert(7, types.RID{PageID: 999, SlotNum: 999})
	if err != nil {
		t.Fatalf("duplicate Insert: %v", err)
	}
	if ok {
		t.Fatal("duplicate Insert returned true")
	}

	var result []types.RID
	found, err := tree.GetValue(7, &result)
	if err != nil {
		t.Fatalf("GetValue: %v", err)
	}
	if !found || result[0] != ridFor(7) {
		t.Fatalf("GetValue(7) = %v, want original rid", result)
	}
}

func TestBeginAt(t *testing.T) {
	tree := newTestTree(t, 4, 4, 16)
	for _, k := range []types.Key{2, 4, 6, 8, 10, 12} {
		mustInsert(t, tree, k)
	}

	// exact hit
	it, err := tree.BeginAt(6)
	if err != nil {
		t.Fatalf("BeginAt(6): %v", err)
	}
	if it.IsEnd() || it.Key() != 6 {
		t.Fatalf("BeginAt(6) points at %v", it.Key())
	}
	it.Close()

	// absent key lands on the next greater
	it, err = tree.BeginAt(7)
	if err != nil {
		t.Fatalf("BeginAt(7): %v", err)
	}
	if it.IsEnd() || it.Key() != 8 {
		t.Fatalf("BeginAt(7) points at %v, want 8", it.Key())
	}
	it.Close()

	// past the maximum key
	it, err = tree.BeginAt(100)
	if err != nil {
		t.Fatalf("BeginAt(100): %v", err)
	}
	if !it.IsEnd() {
		t.Fatal("BeginAt past max is not End")
	}
	it.Close()
}

func TestRandomizedInsertRemove(t *testing.T) {
	tree := newTestTree(t, 4, 4, 32)

	// interleaved shuffle without a fixed pattern of splits
	keys := []types.Key{13, 5, 21, 1, 34, 8, 2, 55, 3, 89, 144, 7, 11, 6, 17, 29, 4, 9, 10, 12}
	for _, k := range keys {
		mustInsert(t, tree, k)
	}

	got := scanAll(t, tree)
	if len(got) != len(keys) {
		t.Fatalf("scan yielded %d keys, want %d", len(got), len(keys))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1] >= got[i] {
			t.Fatalf("scan not strictly increasing at %d: %v", i, got)
		}
	}

	for _, k := range []types.Key{13, 1, 144, 8, 29} {
		if err := tree.Remove(k); err != nil {
			t.Fatalf("Remove(%d): %v", k, err)
		}
	}
	got = scanAll(t, tree)
	if len(got) != len(keys)-5 {
		t.Fatalf("scan after removes yielded %d keys, want %d", len(got), len(keys)-5)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1] >= got[i] {
			t.Fatalf("scan not strictly increasing after removes: %v", got)
		}
	}
}

// TestConcurrentInsertAndRead drives disjoint key ranges from several
// goroutines with readers mixed in, then checks the full ordered scan.
func TestConcurrentInsertAndRead(t *testing.T) {
	tree := newTestTree(t, 8, 8, 64)

	const (
		workers      = 4
		keysPerRange = 50
	)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(base types.Key) {
			defer wg.Done()
			for i := types.Key(0); i < keysPerRange; i++ {
				k := base + i
				ok, err := tree.Insert(k, ridFor(k))
				if err != nil {
					t.Errorf("Insert(%d): %v", k, err)
					return
				}
				if !ok {
					t.Errorf("Insert(%d) returned false", k)
					return
				}
				var result []types.RID
				if found, err := tree.GetValue(k, &result); err != nil || !found {
					t.Errorf("GetValue(%d) after insert: found=%v err=%v", k, found, err)
					return
				}
			}
		}(types.Key(w * 1000))
	}
	wg.Wait()

	got := scanAll(t, tree)
	if len(got) != workers*keysPerRange {
		t.Fatalf("scan yielded %d keys, want %d", len(got), workers*keysPerRange)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1] >= got[i] {
			t.Fatalf("scan not strictly increasing at %d", i)
		}
	}
}

func TestConcurrentRemove(t *testing.T) {
	tree := newTestTree(t, 8, 8, 64)

	const total = 120
	for k := types.Key(0); k < total; k++ {
		mustInsert(t, tree, k)
	}

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(offset types.Key) {
			defer wg.Done()
			// each worker removes its own residue class
			for k := offset; k < total; k += 4 {
				if k%8 < 4 {
					continue
				}
				if err := tree.Remove(k); err != nil {
					t.Errorf("Remove(%d): %v", k, err)
					return
				}
			}
		}(types.Key(w))
	}
	wg.Wait()

	got := scanAll(t, tree)
	for _, k := range got {
		if k%8 >= 4 {
			t.Fatalf("key %d should have been removed", k)
		}
	}
	if len(got) != total/2 {
		t.Fatalf("scan yielded %d keys, want %d", len(got), total/2)
	}
}

func TestDrawOutputs(t *testing.T) {
	tree := newTestTree(t, 4, 4, 16)
	for k := types.Key(1); k <= 10; k++ {
		mustInsert(t, tree, k)
	}

	s, err := tree.DrawBPlusTree()
	if err != nil {
		t.Fatalf("DrawBPlusTree: %v", err)
	}
	if !strings.Contains(s, "leaf") || !strings.Contains(s, "internal") {
		t.Errorf("pretty print missing node lines:\n%s", s)
	}

	path := filepath.Join(t.TempDir(), "tree.dot")
	if err := tree.Draw(path); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	dot, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading dot file: %v", err)
	}
	if !strings.Contains(string(dot), "digraph") {
		t.Error("dot file missing digraph header")
	}
}
