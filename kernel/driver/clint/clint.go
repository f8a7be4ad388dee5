// Package clint drives the core-local interruptor: the timer (mtime,
// mtimecmp) and the software-interrupt (msip) registers for the single
// hart this kernel runs on.
package clint

import "unsafe"

// MMIO register addresses, hart 0, QEMU virt machine layout.
const (
	msipBase     = 0x0200_0000
	mtimecmpBase = 0x0200_4000
	mtimeBase    = 0x0200_bff8
)

// DefaultInterval is the number of mtime ticks between timer interrupts,
// roughly one second at the virt machine's 10 MHz timebase.
const DefaultInterval = 10_000_000

func reg64(addr uintptr) *uint64 {
	return (*uint64)(unsafe.Pointer(addr))
}

// Init arms the first timer interrupt DefaultInterval ticks from now.
func Init() {
	RearmTimer(DefaultInterval)
}

// ReadMtime returns the current value of the free-running 64-bit mtime
// counter.
func ReadMtime() uint64 {
	return *reg64(mtimeBase)
}

// ReadMtimecmp returns the hart's current timer comparator value.
func ReadMtimecmp() uint64 {
	return *reg64(mtimecmpBase)
}

// WriteMtimecmp sets the hart's timer comparator; a timer interrupt fires
// once mtime reaches or passes this value.
func WriteMtimecmp(v uint64) {
	*reg64(mtimecmpBase) = v
}

// RearmTimer schedules the next timer interrupt interval ticks after the
// current value of mtime. The timer trap handler calls this on every timer
// interrupt to keep the clock running.
func RearmTimer(interval uint64) {
	WriteMtimecmp(ReadMtime() + interval)
}

// SendSoftwareInterrupt raises hart 0's software interrupt line.
func SendSoftwareInterrupt() {
	*(*uint32)(unsafe.Pointer(uintptr(msipBase))) = 1
}

// ClearSoftwareInterrupt acknowledges hart 0's software interrupt.
func ClearSoftwareInterrupt() {
	*(*uint32)(unsafe.Pointer(uintptr(msipBase))) = 0
}
