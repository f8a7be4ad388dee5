// Package identitymap installs the kernel's own identity map: every RAM
// section the linker exports and every MMIO region a driver in this tree
// talks to, each mapped to the physical address it already lives at. This is
// what lets every physical address handed out by package pmm (a freshly
// allocated page table frame, a device's MMIO base) be dereferenced directly
// from Go without a separate "temporarily map this frame" step.
package identitymap

import (
	"rvkernel/kernel/link"
	"rvkernel/kernel/mem"
	"rvkernel/kernel/mem/pmm"
	"rvkernel/kernel/mem/vmm"
)

// QEMU virt machine MMIO base addresses. See
// https://github.com/qemu/qemu/blob/master/hw/riscv/virt.c for the layout
// these are taken from.
const (
	uartBase = 0x1000_0000
	uartEnd  = 0x1000_0000 + uintptr(mem.PageSize) - 1

	plicPriorityStart = 0x0c00_0000
	plicPriorityEnd   = 0x0c00_2000

	plicThresholdStart = 0x0c20_0000
	plicThresholdEnd   = 0x0c20_8000

	// clintMsipBase, clintMtimecmpBase and clintMtimeBase are the
	// page-aligned bases of the three CLINT register windows this
	// kernel touches: msip (software interrupt, hart 0, at CLINT+0x0000),
	// mtimecmp (hart 0, at CLINT+0x4000) and mtime (at CLINT+0xbff8,
	// which falls in the page starting at CLINT+0xb000).
	clintMsipBase     = 0x0200_0000
	clintMtimecmpBase = 0x0200_4000
	clintMtimeBase    = 0x0200_b000
)

// IdentityMapKernel installs every mapping the kernel needs into the table
// rooted at root: the RAM sections recorded in bounds with permissions
// matching their contents, and the UART/PLIC/CLINT MMIO windows with
// read-write permission.
func IdentityMapKernel(root *vmm.Table, bounds link.Bounds) error {
	ramSections := []struct {
		start, end uintptr
		flags      vmm.Entry
	}{
		{bounds.TextStart, bounds.TextEnd, vmm.FlagRead | vmm.FlagExec},
		{bounds.RodataStart, bounds.RodataEnd, vmm.FlagRead | vmm.FlagExec},
		{bounds.DataStart, bounds.DataEnd, vmm.FlagRead | vmm.FlagWrite},
		{bounds.BSSStart, bounds.BSSEnd, vmm.FlagRead | vmm.FlagWrite},
		{bounds.KernelStackStart, bounds.KernelStackEnd, vmm.FlagRead | vmm.FlagWrite},
		{bounds.HeapStart, bounds.HeapEnd, vmm.FlagRead | vmm.FlagWrite},
	}

	for _, s := range ramSections {
		if err := mapRange(root, s.start, s.end, s.flags); err != nil {
			return err
		}
	}

	return mapMMIO(root)
}

func mapMMIO(root *vmm.Table) error {
	mmioSections := []struct {
		start, end uintptr
	}{
		{uartBase, uartEnd},
		{plicPriorityStart, plicPriorityEnd},
		{plicThresholdStart, plicThresholdEnd},
		{clintMsipBase, clintMsipBase + uintptr(mem.PageSize) - 1},
		{clintMtimecmpBase, clintMtimecmpBase + uintptr(mem.PageSize) - 1},
		{clintMtimeBase, clintMtimeBase + uintptr(mem.PageSize) - 1},
	}

	for _, s := range mmioSections {
		if err := mapRange(root, s.start, s.end, vmm.FlagRead|vmm.FlagWrite); err != nil {
			return err
		}
	}
	return nil
}

// mapRange maps every page overlapping [start, end]: start is rounded down
// to its page boundary and end up to the next one, so a range that straddles
// page boundaries covers the partial pages at both ends. A zero-length range
// (end == start-1, as for an empty linker section) is a no-op when start is
// page-aligned; an unaligned start still maps the page containing it.
func mapRange(root *vmm.Table, start, end uintptr, flags vmm.Entry) error {
	alignedStart := start &^ (uintptr(mem.PageSize) - 1)
	alignedEnd := pmm.Align(end+1, mem.PageShift)

	for addr := alignedStart; addr < alignedEnd; addr += uintptr(mem.PageSize) {
		if err := vmm.Map(root, addr, addr, flags); err != nil {
			return err
		}
	}
	return nil
}
