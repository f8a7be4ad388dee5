package vmm

import (
	"rvkernel/kernel/mem"
	"rvkernel/kernel/mem/pmm"
	"rvkernel/kernel/riscv"
)

// vpn returns the 9-bit virtual page number field at the given shift.
func vpn(va uintptr, shift uint) int {
	return int((va >> shift) & mem.VPNMask)
}

// canonicalize sign-extends bit 38 of a 39-bit Sv39 virtual address across
// bits 63:39, as required by the architecture for any address actually
// loaded into a CPU register.
func canonicalize(va uintptr) uintptr {
	const signBit = uintptr(1) << (mem.VirtAddrBits - 1)
	if va&signBit != 0 {
		return va | ^(signBit<<1 - 1)
	}
	var allOnes uintptr = ^uintptr(0)
	return va &^ (allOnes << mem.VirtAddrBits)
}

// walkTo descends from root to the level-0 table that would hold va's leaf
// entry, allocating intermediate tables as it goes when alloc is true.
// It returns the level-0 table and the index of va's entry within it.
func walkTo(root *Table, va uintptr, alloc bool) (*Table, int, error) {
	table := root
	for _, shift := range []uint{mem.VPN2Shift, mem.VPN1Shift} {
		idx := vpn(va, shift)
		entry := table.entries[idx]

		switch {
		case !entry.Valid() && alloc:
			frame, err := pmm.Alloc(1)
			if err != nil {
				return nil, 0, ErrTableAllocFailed
			}
			table.entries[idx] = MakeEntry(frame, 0)
			table = TableAt(frame)

		case !entry.Valid():
			return nil, 0, ErrNotMapped

		case entry.IsLeaf():
			return nil, 0, ErrIntermediateIsLeaf

		default:
			table = TableAt(entry.PhysAddr())
		}
	}

	return table, vpn(va, mem.VPN0Shift), nil
}

// Map installs a leaf mapping from va to pa in the tree rooted at root,
// allocating any intermediate tables that do not yet exist. va and pa must
// both be page-aligned and fit their respective Sv39 address widths. flags
// must include at least one of FlagRead, FlagWrite or FlagExec and no other
// bit; FlagValid is owned by the engine and set automatically.
//
// Mapping an already-mapped va overwrites its leaf entry silently; callers
// that care whether a va was previously mapped must check with Translate
// first.
func Map(root *Table, va, pa uintptr, flags Entry) error {
	if va>>mem.VirtAddrBits != 0 {
		return ErrVirtAddrTooWide
	}
	if pa>>mem.PhysAddrBits != 0 {
		return ErrPhysAddrTooWide
	}
	if va%uintptr(mem.PageSize) != 0 || pa%uintptr(mem.PageSize) != 0 {
		return ErrMisalignedAddress
	}
	if flags == 0 || flags&^(FlagRead|FlagWrite|FlagExec) != 0 {
		return ErrInvalidAccessMap
	}

	leafTable, idx, err := walkTo(root, va, true)
	if err != nil {
		return err
	}

	leafTable.entries[idx] = MakeEntry(pa, flags|FlagValid)
	riscv.SfenceVMA()
	return nil
}

// Translate walks the tree rooted at root and returns the physical address
// va maps to, along with the leaf entry's flags.
func Translate(root *Table, va uintptr) (uintptr, Entry, error) {
	if va>>mem.VirtAddrBits != 0 {
		return 0, 0, ErrVirtAddrTooWide
	}

	leafTable, idx, err := walkTo(root, va, false)
	if err != nil {
		return 0, 0, err
	}

	entry := leafTable.entries[idx]
	if !entry.Valid() {
		return 0, 0, ErrNotMapped
	}
	if !entry.IsLeaf() {
		// A branch at the last level points at a table, not a frame;
		// treating its PPN as a translation target would hand the
		// caller a table's own address.
		return 0, 0, ErrBranchAtLeafLevel
	}

	offset := uintptr(va) & (uintptr(mem.PageSize) - 1)
	return entry.PhysAddr() | offset, entry.Flags(), nil
}

// Unmap clears the leaf entry for va, if one exists. It does not reclaim the
// intermediate tables that led to it; a kernel with no per-process address
// spaces never needs to, since every table it ever allocates stays resident
// for the life of the system.
func Unmap(root *Table, va uintptr) error {
	leafTable, idx, err := walkTo(root, va, false)
	if err != nil {
		return err
	}

	if !leafTable.entries[idx].Valid() {
		return ErrNotMapped
	}

	leafTable.entries[idx] = 0
	riscv.SfenceVMA()
	return nil
}

// Mapping describes one leaf entry discovered by ShowMappings.
type Mapping struct {
	VirtAddr uintptr
	PhysAddr uintptr
	Flags    Entry
}

// ShowMappings walks every entry of the tree rooted at root and returns one
// Mapping per leaf entry it finds, in ascending virtual address order. The
// returned slice is grown through the ordinary Go allocator, whose heap
// arenas package goruntime backs with pmm pages; callers needing to print it
// do so through the kernel's own console formatter.
func ShowMappings(root *Table) []Mapping {
	var mappings []Mapping
	walkLevel(root, 0, mem.VPN2Shift, &mappings)
	return mappings
}

// Release tears down the entire tree rooted at root in post-order: the
// target page of every leaf entry first, then each leaf-level table once its
// entries are done, then each middle table, and finally the root itself.
// Every frame is handed back to pmm, making Release the exact inverse of the
// Map calls (and their implied table allocations) that built the tree.
//
// Leaf targets that did not come from pmm — MMIO windows, pages interior to
// a longer allocation — are skipped rather than treated as failures, since
// the allocator is the authority on what it handed out. Table frames, on the
// other hand, are always single pmm pages, so failing to free one of those
// is a real error.
func Release(root *Table) error {
	for _, entry := range root.entries {
		if !entry.Valid() || entry.IsLeaf() {
			continue
		}

		middle := TableAt(entry.PhysAddr())
		for _, midEntry := range middle.entries {
			if !midEntry.Valid() || midEntry.IsLeaf() {
				continue
			}

			leaf := TableAt(midEntry.PhysAddr())
			for _, leafEntry := range leaf.entries {
				if leafEntry.Valid() && leafEntry.IsLeaf() {
					pmm.Dealloc(leafEntry.PhysAddr())
				}
			}
			if err := pmm.Dealloc(leaf.Addr()); err != nil {
				return err
			}
		}
		if err := pmm.Dealloc(middle.Addr()); err != nil {
			return err
		}
	}

	if err := pmm.Dealloc(root.Addr()); err != nil {
		return err
	}
	riscv.SfenceVMA()
	return nil
}

func walkLevel(table *Table, vaPrefix uintptr, shift uint, mappings *[]Mapping) {
	for i, entry := range table.entries {
		if !entry.Valid() {
			continue
		}

		va := vaPrefix | uintptr(i)<<shift

		if entry.IsLeaf() {
			*mappings = append(*mappings, Mapping{
				VirtAddr: canonicalize(va),
				PhysAddr: entry.PhysAddr(),
				Flags:    entry.Flags(),
			})
			continue
		}

		walkLevel(TableAt(entry.PhysAddr()), va, shift-mem.VPNBits, mappings)
	}
}
