package trap

import (
	"unsafe"

	"rvkernel/kernel"
	"rvkernel/kernel/kfmt"
	"rvkernel/kernel/riscv"
)

// kernelFrame is the singleton trap frame for the one hart this kernel runs
// on. The trap entry stub finds it through mscratch and overwrites it on
// every trap; between traps it holds the context of whatever was last
// interrupted.
var kernelFrame Frame

var (
	// shutdownFn is mocked by tests and is automatically inlined by the
	// compiler.
	shutdownFn = riscv.Shutdown

	writeMscratchFn = riscv.WriteMscratch
)

// InstallFrame parks the address of the kernel trap frame in mscratch, where
// the trap entry stub expects to find it on the first instruction of every
// trap. kinit.Kinit calls this before enabling any interrupt source.
func InstallFrame() {
	writeMscratchFn(uint64(uintptr(unsafe.Pointer(&kernelFrame))))
}

// Dispatch is the high-level trap handler the entry stub calls once it has
// spilled the interrupted context into f. Its return value is the PC the
// stub loads into mepc before mret: the saved PC for interrupts (the
// interrupted instruction is resumed), or the address past the trapping
// instruction for the few recoverable exceptions.
//
// Dispatch does not return for unrecoverable exceptions: those log a
// diagnostic and halt the hart.
func Dispatch(f *Frame) uint64 {
	if f.IsInterrupt() {
		handleInterrupt(f)
		return f.Mepc
	}

	nextPC, err := handleException(f)
	if err == nil {
		return nextPC
	}

	fatal(f, err)
	return 0
}

// fatal logs a structured diagnostic for an exception this kernel cannot
// recover from and halts the hart.
func fatal(f *Frame, err error) {
	message := "unknown cause"
	if kerr, ok := err.(*kernel.Error); ok {
		message = kerr.Message
	}

	kfmt.Printf("\n[trap] fatal exception: %s\n", message)
	kfmt.Printf("[trap] mcause = %16x mepc = %16x\n", f.Mcause, f.Mepc)
	kfmt.Printf("[trap] mtval  = %16x satp = %16x\n", f.Mtval, f.Satp)
	kfmt.Printf("[trap] halting\n")

	shutdownFn()
}
