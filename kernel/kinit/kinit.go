// Package kinit sequences machine-mode kernel initialization and performs
// the single machine-to-supervisor transition this kernel ever makes. It
// owns no logic of its own: every step is a call into the subsystem that
// implements it, in the one order their initialization dependencies allow.
package kinit

import (
	"rvkernel/kernel"
	"rvkernel/kernel/driver/clint"
	"rvkernel/kernel/driver/plic"
	"rvkernel/kernel/driver/uart"
	"rvkernel/kernel/driver/virtioblk"
	"rvkernel/kernel/kfmt"
	"rvkernel/kernel/link"
	"rvkernel/kernel/mem/balloc"
	"rvkernel/kernel/mem/identitymap"
	"rvkernel/kernel/mem/pmm"
	"rvkernel/kernel/mem/vmm"
	"rvkernel/kernel/riscv"
	"rvkernel/kernel/trap"
)

// ByteAllocatorPages is the fixed number of pages handed to balloc as its
// pool. 2 MiB comfortably covers every map/slice the kernel itself creates.
const ByteAllocatorPages = 512

// mstatus fields involved in the privilege switch: MPP holds the privilege
// level mret drops to, MPIE the interrupt-enable state it restores.
const (
	mstatusMPPMask       = uint64(3) << 11
	mstatusMPPSupervisor = uint64(1) << 11
	mstatusMPIE          = uint64(1) << 7
)

// mie bits for the three interrupt classes this kernel services.
const (
	mieMSIE = uint64(1) << 3
	mieMTIE = uint64(1) << 7
	mieMEIE = uint64(1) << 11
)

// Kernel-lifetime singletons, written once here and read-only afterwards.
var (
	rootTable *vmm.Table
	satpValue uint64

	// processTable is the page-table skeleton set aside for the first
	// non-kernel address space. Nothing populates it yet; it exists so
	// the byte-allocator init step leaves behind a table that future
	// process support can fill in without re-entering the page allocator
	// at a point where that is no longer safe.
	processTable *vmm.Table

	blockDevice *virtioblk.Device
)

// Kinit runs in machine mode with paging off. It installs the trap frame,
// brings up the console and interrupt hardware, lays out physical memory,
// builds the kernel's identity map, and seeds the byte allocator. It
// returns the satp value that EnterSupervisor must activate; paging is NOT
// yet enabled when Kinit returns.
func Kinit() uint64 {
	trap.InstallFrame()

	uart.Init()
	kfmt.SetOutputSink(uart.Writer{})
	plic.Init()
	clint.Init()

	bounds := link.Get()
	pmm.InitMemory(bounds.HeapStart, bounds.HeapEnd)

	root, err := vmm.NewTable()
	if err != nil {
		kernel.Panic(err)
	}
	rootTable = root
	satpValue = vmm.Satp(root)

	if err = identitymap.IdentityMapKernel(root, bounds); err != nil {
		kernel.Panic(err)
	}

	if err = balloc.Init(ByteAllocatorPages); err != nil {
		kernel.Panic(err)
	}
	if processTable, err = vmm.NewTable(); err != nil {
		kernel.Panic(err)
	}

	enableInterruptSources()

	return satpValue
}

// enableInterruptSources wires up every external interrupt source the kernel
// services and unmasks the three interrupt classes in mie. The UART is
// always present on the virt machine; a block device may or may not be.
func enableInterruptSources() {
	plic.SetPriority(uart.PLICSource, 1)
	plic.Enable(uart.PLICSource)

	if dev, err := virtioblk.Probe(); err == nil {
		blockDevice = dev
		trap.RegisterExternalHandler(dev.SourceID(), dev.HandleInterrupt)
		plic.SetPriority(dev.SourceID(), 1)
		plic.Enable(dev.SourceID())
	}

	riscv.WriteMie(mieMSIE | mieMTIE | mieMEIE)
}

// BlockDevice returns the block device found during initialization, or nil
// if the bus had none.
func BlockDevice() *virtioblk.Device {
	return blockDevice
}
