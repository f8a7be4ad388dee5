package kinit

import (
	"unsafe"

	"rvkernel/kernel/kfmt"
	"rvkernel/kernel/mem/pmm"
	"rvkernel/kernel/riscv"
)

// EnterSupervisor performs the one privilege transition of this kernel's
// lifetime: it points mepc at Kmain, selects supervisor as the target
// privilege level, activates the satp value Kinit computed, and executes
// mret. It never returns.
//
// Writing satp here is safe even though the very next instructions are
// fetched from machine mode: translation only takes effect below machine
// mode, so the first translated fetch is Kmain's first instruction after
// mret — by which point the identity map covers it. Enabling translation
// any earlier than the mret boundary is how a kernel page-faults on its own
// next instruction.
func EnterSupervisor(satp uint64) {
	status := riscv.ReadMstatus()
	status = status&^mstatusMPPMask | mstatusMPPSupervisor | mstatusMPIE
	riscv.WriteMstatus(status)

	riscv.WriteMepc(kmainPC())
	riscv.WriteSatp(satp)
	riscv.SfenceVMA()
	riscv.Mret()
}

// kmainPC returns the entry PC of Kmain by peeking through the func value's
// code pointer, the only way to name a Go function's address without an
// assembly shim.
func kmainPC() uint64 {
	fn := Kmain
	return uint64(**(**uintptr)(unsafe.Pointer(&fn)))
}

// Kmain is the supervisor-mode entrypoint, entered by EnterSupervisor's mret
// with paging active. With no scheduler or processes to run, its steady
// state is idling between interrupts: the timer keeps rearming itself and
// UART input drains through the trap path.
func Kmain() {
	kfmt.Printf("\r\n")
	kfmt.Printf("rvkernel: supervisor mode, Sv39 paging active\r\n")
	kfmt.Printf("rvkernel: managing %d pages from %x\r\n", pmm.NumPages(), pmm.AllocStart())

	for {
		riscv.WFI()
	}
}
