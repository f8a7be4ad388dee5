package trap

import (
	"rvkernel/kernel"
	"rvkernel/kernel/driver/clint"
	"rvkernel/kernel/driver/plic"
	"rvkernel/kernel/driver/uart"
	"rvkernel/kernel/kfmt"
)

// Asynchronous interrupt causes, as encoded in mcause with the interrupt bit
// set.
const (
	IntUserSoftware       = 0
	IntSupervisorSoftware = 1
	IntMachineSoftware    = 3
	IntUserTimer          = 4
	IntSupervisorTimer    = 5
	IntMachineTimer       = 7
	IntUserExternal       = 8
	IntSupervisorExternal = 9
	IntMachineExternal    = 11
)

// The virtio-mmio slots occupy PLIC sources 1 through 8 on the QEMU virt
// machine; their handlers are registered per-slot as each device is probed.
const (
	firstVirtioSource = uint32(1)
	lastVirtioSource  = uint32(8)
)

var ErrInvalidExternalSource = &kernel.Error{Module: "trap", Message: "external source ID has no handler slot"}

// externalHandlers routes claimed virtio source IDs to their device's
// completion handler. Index 0 is unused (source 0 means "no interrupt").
var externalHandlers [lastVirtioSource + 1]func()

// Function indirections for every driver primitive the interrupt path
// touches, so dispatch can be exercised by tests without real MMIO behind it.
var (
	rearmTimerFn       = rearmTimer
	claimFn            = plic.Claim
	completeFn         = plic.Complete
	clearSoftwareIRQFn = clint.ClearSoftwareInterrupt
	uartInterruptFn    = uart.HandleInterrupt
)

func rearmTimer() {
	clint.RearmTimer(clint.DefaultInterval)
}

// RegisterExternalHandler routes future external interrupts claimed for the
// given virtio source ID to fn. kinit.Kinit calls this for the block device
// it probes (the first one found, if any), before enabling the source at
// the PLIC.
func RegisterExternalHandler(source uint32, fn func()) error {
	if source < firstVirtioSource || source > lastVirtioSource {
		return ErrInvalidExternalSource
	}
	externalHandlers[source] = fn
	return nil
}

// handleInterrupt services an asynchronous interrupt. Interrupts never change
// the return PC: the interrupted instruction is resumed once the cause is
// serviced.
func handleInterrupt(f *Frame) {
	switch f.Cause() {
	case IntSupervisorTimer, IntMachineTimer:
		rearmTimerFn()

	case IntUserExternal, IntSupervisorExternal, IntMachineExternal:
		dispatchExternal()

	case IntUserSoftware, IntSupervisorSoftware, IntMachineSoftware:
		kfmt.Printf("[trap] software interrupt (cause %d)\n", f.Cause())
		clearSoftwareIRQFn()

	default:
		kfmt.Printf("[trap] unhandled interrupt cause %d\n", f.Cause())
	}
}

// dispatchExternal resolves an external interrupt through the PLIC: claim the
// source ID, route it to the owning driver, and complete the ID so the PLIC
// can present the source again.
func dispatchExternal() {
	source := claimFn()
	if source == 0 {
		// No source was pending at claim time; nothing to complete.
		return
	}

	switch {
	case source == uart.PLICSource:
		uartInterruptFn()

	case source >= firstVirtioSource && source <= lastVirtioSource:
		if handler := externalHandlers[source]; handler != nil {
			handler()
		} else {
			kfmt.Printf("[trap] interrupt from virtio source %d with no registered handler\n", source)
		}

	default:
		kfmt.Printf("[trap] spurious external interrupt from source %d\n", source)
	}

	completeFn(source)
}
