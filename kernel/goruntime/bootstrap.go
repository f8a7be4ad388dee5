// Package goruntime bootstraps Go runtime features that need kernel
// support, namely the memory allocator hooks the runtime calls before any
// application code runs.
//
// The wiring is kernel-only: every allocation comes from the kernel's single
// pmm heap and balloc pool, with no separation per address space.
package goruntime

import (
	"unsafe"

	"rvkernel/kernel/mem"
	"rvkernel/kernel/mem/balloc"
	"rvkernel/kernel/mem/pmm"
)

var (
	pageAllocFn = pmm.Alloc
	kmallocFn   = balloc.Kmalloc
)

//go:linkname mSysStatInc runtime.mSysStatInc
func mSysStatInc(*uint64, uintptr)

func pagesFor(size uintptr) int {
	regionSize := (mem.Size(size) + mem.PageSize - 1) &^ (mem.PageSize - 1)
	return int(regionSize / mem.PageSize)
}

// sysReserve reserves address space for the Go allocator's arenas. On a
// hosted target this would reserve virtual address space without backing it
// with real memory; here, because the kernel identity-maps every physical
// page it owns, "reserved" and "backed" are the same thing, so this takes
// whole pages from the physical allocator outright.
//
// This function replaces runtime.sysReserve and is required for
// initializing the Go allocator.
//
//go:redirect-from runtime.sysReserve
//go:nosplit
func sysReserve(_ unsafe.Pointer, size uintptr, reserved *bool) unsafe.Pointer {
	addr, err := pageAllocFn(pagesFor(size))
	if err != nil {
		panic(err)
	}

	*reserved = true
	return unsafe.Pointer(addr)
}

// sysMap establishes a mapping for a region previously reserved via
// sysReserve. sysReserve already committed real physical pages for that
// region, so there is no further mapping step; this only updates the
// runtime's memory-stats counter.
//
// This function replaces runtime.sysMap and is required for initializing
// the Go allocator.
//
//go:redirect-from runtime.sysMap
//go:nosplit
func sysMap(virtAddr unsafe.Pointer, size uintptr, reserved bool, sysStat *uint64) unsafe.Pointer {
	if !reserved {
		panic("sysMap should only be called with reserved=true")
	}

	mSysStatInc(sysStat, size)
	return virtAddr
}

// sysAlloc satisfies an off-heap runtime allocation out of the byte
// allocator's pool, which kinit.Kinit wires up before the first piece of
// allocating Go code runs. A pool that cannot satisfy the request has no
// fallback — the failure is escalated straight to a kernel panic rather than
// returned as a nil the runtime would dereference.
//
// This function replaces runtime.sysAlloc and is required for initializing
// the Go allocator.
//
//go:redirect-from runtime.sysAlloc
//go:nosplit
func sysAlloc(size uintptr, sysStat *uint64) unsafe.Pointer {
	addr, err := kmallocFn(uint64(size))
	if err != nil {
		panic(err)
	}

	mSysStatInc(sysStat, size)
	return unsafe.Pointer(addr)
}
