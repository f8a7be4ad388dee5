// Package plic drives the platform-level interrupt controller that
// aggregates every external interrupt source (UART, virtio devices) onto
// the single hart's external interrupt line.
package plic

import "unsafe"

// MMIO register windows, QEMU virt machine layout. This kernel only ever
// operates hart 0's machine-mode context (context 0); contexts for other
// harts or privilege levels are out of scope (single-hart kernel).
const (
	priorityBase      = 0x0c00_0000
	pendingBase       = 0x0c00_1000
	enableBase        = 0x0c00_2000
	thresholdBase     = 0x0c20_0000
	claimCompleteBase = 0x0c20_0004
)

// maxInterruptID bounds the source IDs this kernel is prepared to see: the
// UART (10) and the eight virtio-mmio slots (1..8), rounded up generously
// since a few spare slots cost nothing. Source 0 is reserved by the PLIC
// spec to mean "no interrupt".
const maxInterruptID = 63

// maxThreshold and maxPriority are the PLIC's 3-bit priority range.
const (
	maxThreshold = 7
	maxPriority  = 7
)

func reg32(addr uintptr) *uint32 {
	return (*uint32)(unsafe.Pointer(addr))
}

// Init sets the machine-mode threshold to 0 so that any source with a
// nonzero priority can interrupt the hart; per-source priority and enable
// bits are configured individually as each device driver initializes.
func Init() {
	*reg32(thresholdBase) = 0
}

// SetThreshold sets the minimum priority a pending interrupt must have to
// be presented to the hart.
func SetThreshold(t uint32) error {
	if t > maxThreshold {
		return ErrInvalidThresholdValue
	}
	*reg32(thresholdBase) = t
	return nil
}

// Threshold returns the currently configured priority threshold.
func Threshold() uint32 {
	return *reg32(thresholdBase)
}

// SetPriority sets the priority of interrupt source id.
func SetPriority(id, priority uint32) error {
	if id == 0 || id > maxInterruptID {
		return ErrInvalidInterruptID
	}
	if priority > maxPriority {
		return ErrInvalidPriorityValue
	}
	*reg32(priorityBase+uintptr(id)*4) = priority
	return nil
}

// Priority returns the configured priority of interrupt source id.
func Priority(id uint32) (uint32, error) {
	if id == 0 || id > maxInterruptID {
		return 0, ErrInvalidInterruptID
	}
	return *reg32(priorityBase + uintptr(id)*4), nil
}

// Enable unmasks interrupt source id for the hart's machine-mode context.
func Enable(id uint32) error {
	if id == 0 || id > maxInterruptID {
		return ErrInvalidInterruptID
	}
	word, bit := id/32, id%32
	addr := reg32(enableBase + uintptr(word)*4)
	*addr |= 1 << bit
	return nil
}

// Pending reports whether interrupt source id currently has a pending,
// unclaimed interrupt.
func Pending(id uint32) (bool, error) {
	if id == 0 || id > maxInterruptID {
		return false, ErrInvalidInterruptID
	}
	word, bit := id/32, id%32
	return *reg32(pendingBase+uintptr(word)*4)&(1<<bit) != 0, nil
}

// Claim reads the claim/complete register, returning the ID of the
// highest-priority pending source (0 if none) and marking it in-service.
func Claim() uint32 {
	return *reg32(claimCompleteBase)
}

// Complete signals that the hart has finished servicing interrupt id,
// allowing the PLIC to present it again the next time it is asserted.
func Complete(id uint32) {
	*reg32(claimCompleteBase) = id
}
