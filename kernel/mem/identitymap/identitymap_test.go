package identitymap

import (
	"testing"
	"unsafe"

	"rvkernel/kernel/link"
	"rvkernel/kernel/mem"
	"rvkernel/kernel/mem/pmm"
	"rvkernel/kernel/mem/vmm"
)

// testBounds builds a plausible set of linker section bounds: the usual QEMU
// virt RAM base with consecutive sections, none of which the test ever
// dereferences (only page tables are written, and those live in the fake
// heap below).
func testBounds() link.Bounds {
	const ramBase = uintptr(0x8000_0000)
	return link.Bounds{
		TextStart: ramBase, TextEnd: ramBase + 0x3fff,
		RodataStart: ramBase + 0x4000, RodataEnd: ramBase + 0x5fff,
		DataStart: ramBase + 0x6000, DataEnd: ramBase + 0x7fff,
		BSSStart: ramBase + 0x8000, BSSEnd: ramBase + 0x9fff,
		KernelStackStart: ramBase + 0xa000, KernelStackEnd: ramBase + 0x1_1fff,
		HeapStart: ramBase + 0x1_2000, HeapEnd: ramBase + 0x11_1fff,
	}
}

func newRoot(t *testing.T) *vmm.Table {
	t.Helper()
	buf := make([]byte, 128*int(mem.PageSize))
	start := uintptr(unsafe.Pointer(&buf[0]))
	pmm.InitMemory(start, start+uintptr(len(buf))-1)

	root, err := vmm.NewTable()
	if err != nil {
		t.Fatalf("failed to allocate root table: %v", err)
	}
	return root
}

func TestIdentityMapKernelMapsEverySectionToItself(t *testing.T) {
	root := newRoot(t)
	bounds := testBounds()

	if err := IdentityMapKernel(root, bounds); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	checks := []struct {
		name  string
		va    uintptr
		flags vmm.Entry
	}{
		{"text", bounds.TextStart, vmm.FlagRead | vmm.FlagExec},
		{"rodata", bounds.RodataStart, vmm.FlagRead | vmm.FlagExec},
		{"data", bounds.DataStart, vmm.FlagRead | vmm.FlagWrite},
		{"bss", bounds.BSSStart, vmm.FlagRead | vmm.FlagWrite},
		{"stack", bounds.KernelStackEnd &^ (uintptr(mem.PageSize) - 1), vmm.FlagRead | vmm.FlagWrite},
		{"heap", bounds.HeapStart + uintptr(mem.PageSize), vmm.FlagRead | vmm.FlagWrite},
		{"uart", uartBase, vmm.FlagRead | vmm.FlagWrite},
		{"plic priority", plicPriorityStart, vmm.FlagRead | vmm.FlagWrite},
		{"plic claim", plicThresholdStart + 0x4, vmm.FlagRead | vmm.FlagWrite},
		{"clint mtimecmp", clintMtimecmpBase, vmm.FlagRead | vmm.FlagWrite},
		{"clint mtime", clintMtimeBase + 0xff8, vmm.FlagRead | vmm.FlagWrite},
	}

	for _, c := range checks {
		pa, flags, err := vmm.Translate(root, c.va)
		if err != nil {
			t.Fatalf("%s: expected %#x to be mapped, got %v", c.name, c.va, err)
		}
		if pa != c.va {
			t.Fatalf("%s: expected identity translation of %#x, got %#x", c.name, c.va, pa)
		}
		if flags&c.flags != c.flags {
			t.Fatalf("%s: expected flags %#x to be set, got %#x", c.name, c.flags, flags)
		}
	}
}

func TestIdentityMapKernelLeavesOtherAddressesUnmapped(t *testing.T) {
	root := newRoot(t)

	if err := IdentityMapKernel(root, testBounds()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, _, err := vmm.Translate(root, 0x2000_0000); err != vmm.ErrNotMapped {
		t.Fatalf("expected an address outside every section to stay unmapped, got %v", err)
	}
}

func TestMapRangeCoversPartialPagesAtBothEnds(t *testing.T) {
	root := newRoot(t)

	// A range starting and ending mid-page must still map both pages it
	// overlaps.
	start := uintptr(0x8020_0800)
	end := uintptr(0x8020_1010)
	if err := mapRange(root, start, end, vmm.FlagRead); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, va := range []uintptr{0x8020_0000, 0x8020_1000} {
		if pa, _, err := vmm.Translate(root, va); err != nil || pa != va {
			t.Fatalf("expected %#x to be identity-mapped, got %#x, %v", va, pa, err)
		}
	}
	if _, _, err := vmm.Translate(root, 0x8020_2000); err != vmm.ErrNotMapped {
		t.Fatalf("expected the page past the range to stay unmapped, got %v", err)
	}
}
