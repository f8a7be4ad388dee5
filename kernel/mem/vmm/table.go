package vmm

import (
	"unsafe"

	"rvkernel/kernel/mem/pmm"
)

// entriesPerTable is fixed by Sv39: 4 KiB tables of 8-byte entries.
const entriesPerTable = 512

// Table is a single Sv39 page table level: 512 entries occupying exactly one
// physical page. Because this kernel identity-maps all of RAM (see
// identitymap.IdentityMapKernel), any physical address a Table lives at is
// also a valid pointer to dereference it from Go.
type Table struct {
	entries [entriesPerTable]Entry
}

// TableAt reinterprets the physical address phys, which must be a
// page-aligned address returned by the physical page allocator, as a Table.
func TableAt(phys uintptr) *Table {
	return (*Table)(unsafe.Pointer(phys))
}

// Addr returns the physical address of the table itself.
func (t *Table) Addr() uintptr {
	return uintptr(unsafe.Pointer(t))
}

// NewTable allocates a fresh, zeroed page from pmm and returns it as a root
// (or any other level) Sv39 table. pmm.Alloc already zero-fills the page it
// hands back, so every entry starts out invalid.
func NewTable() (*Table, error) {
	phys, err := pmm.Alloc(1)
	if err != nil {
		return nil, err
	}
	return TableAt(phys), nil
}

// satpMode is the 4-bit MODE field value that selects Sv39 translation.
const satpMode = uint64(8)

// Satp computes the satp CSR value that activates root as the Sv39 root
// table for ASID 0: MODE in bits [63:60], ASID (always 0, this kernel has no
// per-process address spaces) in bits [59:44], and the root table's PPN in
// bits [43:0].
func Satp(root *Table) uint64 {
	return satpMode<<60 | uint64(root.Addr())>>12
}
