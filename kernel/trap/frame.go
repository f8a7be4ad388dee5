// Package trap is the trap/exception dispatch core: it saves and restores
// hart context around a trap, classifies the cause, and dispatches to the
// exception or interrupt handler that corresponds to it. The actual trap
// entry/exit stub (the few instructions that run between the hardware trap
// and the call into Dispatch, and between Dispatch's return and mret) is
// assembly out of scope for this repository; this package only covers what
// runs once Go code is reachable.
package trap

// Frame is the saved hart context, laid out to match the C ABI the
// out-of-scope trap entry stub uses to spill registers here. Its field
// order and sizes must never change without updating that stub in lockstep.
type Frame struct {
	Regs  [32]uint64 // integer registers x0-x31, saved verbatim
	FRegs [32]uint64 // floating point registers f0-f31

	Satp    uint64
	Mstatus uint64
	Mepc    uint64
	Mie     uint64
	Mcause  uint64
	Mtval   uint64

	// TrapStack gives the handler a small scratch area that survives
	// across the trap without touching the interrupted task's own
	// stack, which may not be valid yet (e.g. during early boot).
	TrapStack [10]uint64
}

// interruptBit is mcause's top bit: set for interrupts, clear for
// exceptions.
const interruptBit = uint64(1) << 63

// IsInterrupt reports whether the frame's Mcause indicates an asynchronous
// interrupt rather than a synchronous exception. It reads Mcause, not Satp:
// an earlier revision of this dispatch logic read the wrong register here,
// which silently misclassified every trap.
func (f *Frame) IsInterrupt() bool {
	return f.Mcause&interruptBit != 0
}

// Cause returns Mcause with the interrupt bit masked off.
func (f *Frame) Cause() uint64 {
	return f.Mcause &^ interruptBit
}
