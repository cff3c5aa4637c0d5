package bufferpool

import (
	"sync"
	"testing"
)

func TestBasicGuardDropReleasesPin(t *testing.T) {
	bp := newTestPool(t, 2, 2)

	g, err := bp.NewPageGuarded()
	if err != nil {
		t.Fatalf("NewPageGuarded: %v", err)
	}
	id := g.PageID()
	if pc, _ := bp.PinCount(id); pc != 1 {
		t.Fatalf("PinCount = %d, want 1", pc)
	}

	g.Drop()
	if pc, _ := bp.PinCount(id); pc != 0 {
		t.Fatalf("PinCount after drop = %d, want 0", pc)
	}

	// second drop is a no-op, not a double unpin
	g.Drop()
	if pc, _ := bp.PinCount(id); pc != 0 {
		t.Errorf("PinCount after double drop = %d, want 0", pc)
	}
}

func TestGuardMoveTransfersOwnership(t *testing.T) {
	bp := newTestPool(t, 2, 2)

	g, err := bp.NewPageGuarded()
	if err != nil {
		t.Fatalf("NewPageGuarded: %v", err)
	}
	id := g.PageID()

	moved := g.Move()
	g.Drop() // moved-from guard releases nothing
	if pc, _ := bp.PinCount(id); pc != 1 {
		t.Fatalf("PinCount after dropping moved-from guard = %d, want 1", pc)
	}

	moved.Drop()
	if pc, _ := bp.PinCount(id); pc != 0 {
		t.Errorf("PinCount after dropping moved-to guard = %d, want 0", pc)
	}
}

func TestWriteGuardMarksDirty(t *testing.T) {
	bp := newTestPool(t, 2, 2)

	wg, err := bp.NewPageWrite()
	if err != nil {
		t.Fatalf("NewPageWrite: %v", err)
	}
	id := wg.PageID()
	wg.Data()[0] = 0x99
	wg.Drop()

	stats := bp.GetStats()
	if stats.DirtyPages != 1 {
		t.Errorf("DirtyPages = %d, want 1", stats.DirtyPages)
	}

	// bytes are visible to the next reader
	rg, err := bp.FetchPageRead(id)
	if err != nil {
		t.Fatalf("FetchPageRead: %v", err)
	}
	if rg.Data()[0] != 0x99 {
		t.Errorf("read %#x, want 0x99", rg.Data()[0])
	}
	rg.Drop()
}

// TestReadGuardsShareWriteGuardExcludes proves latch semantics: many read
// guards coexist, a write guard waits for all of them.
func TestReadGuardsShareWriteGuardExcludes(t *testing.T) {
	bp := newTestPool(t, 2, 2)

	g, err := bp.NewPageGuarded()
	if err != nil {
		t.Fatalf("NewPageGuarded: %v", err)
	}
	id := g.PageID()
	g.Drop()

	r1, err := bp.FetchPageRead(id)
	if err != nil {
		t.Fatalf("FetchPageRead: %v", err)
	}
	r2, err := bp.FetchPageRead(id)
	if err != nil {
		t.Fatalf("second FetchPageRead: %v", err)
	}

	acquired := make(chan struct{})
	var wgroup sync.WaitGroup
	wgroup.Add(1)
	go func() {
		defer wgroup.Done()
		w, err := bp.FetchPageWrite(id)
		if err != nil {
			t.Errorf("FetchPageWrite: %v", err)
			return
		}
		close(acquired)
		w.Drop()
	}()

	select {
	case <-acquired:
		t.Fatal("write guard acquired while read guards held")
	default:
	}

	r1.Drop()
	select {
	case <-acquired:
		t.Fatal("write guard acquired while one read guard held")
	default:
	}

	r2.Drop()
	wgroup.Wait()
	select {
	case <-acquired:
	default:
		t.Fatal("write guard never acquired")
	}
}

func TestUpgradeFromBasicGuard(t *testing.T) {
	bp := newTestPool(t, 2, 2)

	g, err := bp.NewPageGuarded()
	if err != nil {
		t.Fatalf("NewPageGuarded: %v", err)
	}
	id := g.PageID()

	w := g.UpgradeWrite()
	w.Data()[0] = 0x07
	w.Drop()
	g.Drop() // emptied by the upgrade, no-op

	g2, err := bp.FetchPageGuarded(id)
	if err != nil {
		t.Fatalf("FetchPageGuarded: %v", err)
	}
	r := g2.UpgradeRead()
	if r.Data()[0] != 0x07 {
		t.Errorf("read %#x, want 0x07", r.Data()[0])
	}
	r.Drop()

	if pc, _ := bp.PinCount(id); pc != 0 {
		t.Errorf("PinCount after all drops = %d, want 0", pc)
	}
}
