package vmm

import (
	"testing"

	"rvkernel/kernel/mem"
	"rvkernel/kernel/mem/pmm"
)

func TestMapRejectsOutOfRangeVirtualAddress(t *testing.T) {
	root := newRoot(t)
	pa, _ := pmm.Alloc(1)

	va := uintptr(1) << mem.VirtAddrBits
	if err := Map(root, va, pa, FlagRead); err != ErrVirtAddrTooWide {
		t.Fatalf("expected ErrVirtAddrTooWide, got %v", err)
	}
}

func TestMapRejectsOutOfRangePhysicalAddress(t *testing.T) {
	root := newRoot(t)

	pa := uintptr(1) << mem.PhysAddrBits
	if err := Map(root, 0x1000, pa, FlagRead); err != ErrPhysAddrTooWide {
		t.Fatalf("expected ErrPhysAddrTooWide, got %v", err)
	}
}

func TestMapRejectsInvalidAccessMap(t *testing.T) {
	root := newRoot(t)
	pa, _ := pmm.Alloc(1)

	if err := Map(root, 0x1000, pa, 0); err != ErrInvalidAccessMap {
		t.Fatalf("expected ErrInvalidAccessMap for an empty access map, got %v", err)
	}
	if err := Map(root, 0x1000, pa, Entry(0b0111111)); err != ErrInvalidAccessMap {
		t.Fatalf("expected ErrInvalidAccessMap for non-RWX bits, got %v", err)
	}
	if err := Map(root, 0x1000, pa, FlagValid|FlagRead); err != ErrInvalidAccessMap {
		t.Fatalf("expected ErrInvalidAccessMap when the caller sets V itself, got %v", err)
	}
}

func TestTranslateRejectsBranchAtLeafLevel(t *testing.T) {
	root := newRoot(t)
	pa, _ := pmm.Alloc(1)

	// Map the va normally to grow the intermediate tables, then corrupt
	// the terminal slot into a branch entry (valid, no R/W/X).
	if err := Map(root, 0x7000, pa, FlagRead); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	leafTable, idx, err := walkTo(root, 0x7000, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	leafTable.entries[idx] = MakeEntry(pa, 0)

	if _, _, err := Translate(root, 0x7000); err != ErrBranchAtLeafLevel {
		t.Fatalf("expected ErrBranchAtLeafLevel, got %v", err)
	}
}

func TestTranslateRejectsOutOfRangeVirtualAddress(t *testing.T) {
	root := newRoot(t)

	if _, _, err := Translate(root, uintptr(1)<<mem.VirtAddrBits); err != ErrVirtAddrTooWide {
		t.Fatalf("expected ErrVirtAddrTooWide, got %v", err)
	}
}

// TestReleaseReturnsEveryPage maps a handful of pages (consuming leaf target
// frames plus intermediate table frames), tears the tree down, and verifies
// the allocator is back to a fully-free heap by allocating every page it
// manages in a single contiguous run.
func TestReleaseReturnsEveryPage(t *testing.T) {
	root := newRoot(t)

	// Spread the mappings across distinct vpn2/vpn1 values so the tree
	// grows more than one intermediate table.
	vas := []uintptr{0x1000, 0x200000, 0x40000000}
	for _, va := range vas {
		pa, err := pmm.Alloc(1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := Map(root, va, pa, FlagRead|FlagWrite); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if err := Release(root); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	total := pmm.NumPages()
	addr, err := pmm.Alloc(total)
	if err != nil {
		t.Fatalf("expected the whole heap to be free after Release, got %v", err)
	}
	if addr != pmm.AllocStart() {
		t.Fatalf("expected the post-Release heap to start allocating at %#x, got %#x", pmm.AllocStart(), addr)
	}
}
