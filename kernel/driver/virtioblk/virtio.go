// Package virtioblk drives a legacy-MMIO-transport virtio-block device: the
// disk QEMU's virt machine exposes as one of eight virtio-mmio slots. The
// core only requires a synchronous Read/Write and an interrupt-completion
// hook; there is no block cache or request scheduler here, since nothing
// above this package exists yet to need one.
package virtioblk

import (
	"unsafe"

	"rvkernel/kernel/mem"
	"rvkernel/kernel/mem/pmm"
)

// MMIO bus layout, QEMU virt machine: eight fixed virtio-mmio slots, probed
// in order until a block device (or nothing) is found.
const (
	busStart  = uintptr(0x1000_1000)
	busEnd    = uintptr(0x1000_8000)
	busStride = uintptr(0x1000)
)

// Register offsets within a single virtio-mmio slot (legacy, version 1).
const (
	offMagicValue     = 0x000
	offVersion        = 0x004
	offDeviceID       = 0x008
	offVendorID       = 0x00c
	offHostFeatures   = 0x010
	offGuestFeatures  = 0x020
	offGuestPageSize  = 0x028
	offQueueSel       = 0x030
	offQueueNumMax    = 0x034
	offQueueNum       = 0x038
	offQueueAlign     = 0x03c
	offQueuePFN       = 0x040
	offQueueNotify    = 0x050
	offInterruptState = 0x060
	offInterruptAck   = 0x064
	offStatus         = 0x070
)

const magicValue = 0x7472_6976 // "virt"

// deviceIDBlock is the virtio device-type ID for a block device.
const deviceIDBlock = 2

// Status register bits (virtio spec §2.1).
const (
	statusAcknowledge = 1 << 0
	statusDriver      = 1 << 1
	statusDriverOK    = 1 << 2
	statusFeaturesOK  = 1 << 3
	statusFailed      = 1 << 7
)

// Request header types, carried in the first descriptor of every chain.
const (
	reqTypeIn  = 0 // read from the device
	reqTypeOut = 1 // write to the device
)

const (
	statusOK     = 0
	statusIOErr  = 1
	statusUnsupp = 2
)

func reg32(addr uintptr) *uint32 { return (*uint32)(unsafe.Pointer(addr)) }

// Device is one probed and initialized virtio-block slot.
type Device struct {
	base  uintptr
	queue *Queue
}

// Probe scans the eight virtio-mmio slots for a block device and returns
// the first one found, fully initialized and ready for Read/Write. Slots
// that are absent (magic mismatch) or host a different device type are
// skipped.
func Probe() (*Device, error) {
	for base := busStart; base < busEnd; base += busStride {
		if *reg32(base+offMagicValue) != magicValue {
			continue
		}
		if *reg32(base+offDeviceID) != deviceIDBlock {
			continue
		}
		return initDevice(base)
	}
	return nil, ErrNoDevice
}

// initDevice runs the standard virtio device-initialization handshake
// (virtio spec §3.1) against the slot at base and sets up its single
// request queue.
func initDevice(base uintptr) (*Device, error) {
	// Reset, then step through the handshake's status bits one at a
	// time; a real device refuses to progress out of order.
	*reg32(base+offStatus) = 0
	*reg32(base+offStatus) |= statusAcknowledge
	*reg32(base+offStatus) |= statusDriver

	_ = *reg32(base + offHostFeatures) // no optional features are negotiated
	*reg32(base+offGuestFeatures) = 0
	*reg32(base+offStatus) |= statusFeaturesOK

	if *reg32(base+offStatus)&statusFailed != 0 {
		return nil, ErrFailed
	}

	*reg32(base+offGuestPageSize) = uint32(mem.PageSize)

	*reg32(base+offQueueSel) = 0
	queueNumMax := *reg32(base + offQueueNumMax)
	if queueNumMax == 0 || queueNumMax < RingSize {
		return nil, ErrBadQueue
	}
	*reg32(base+offQueueNum) = RingSize
	*reg32(base+offQueueAlign) = uint32(mem.PageSize)

	pages := queuePageCount(int(mem.PageSize))
	qAddr, err := allocQueuePages(pages)
	if err != nil {
		return nil, err
	}
	q := newQueueAt(qAddr, int(mem.PageSize))
	*reg32(base+offQueuePFN) = q.pfn(int(mem.PageSize))

	*reg32(base+offStatus) |= statusDriverOK

	return &Device{base: base, queue: q}, nil
}

// allocQueuePages is a package-level variable so tests can substitute a
// plain heap buffer in place of pmm.Alloc, which dereferences real physical
// addresses.
var allocQueuePages = defaultAllocQueuePages

func defaultAllocQueuePages(pages int) (uintptr, error) {
	return pmm.Alloc(pages)
}

// SectorSize is the fixed virtio-blk transfer granularity. Requests address
// the device in sectors regardless of the backing image's geometry.
const SectorSize = 512

// SourceID returns the PLIC interrupt source ID for this device's bus slot:
// the QEMU virt machine wires slot i (counting from the first virtio-mmio
// base address) to PLIC source i+1.
func (d *Device) SourceID() uint32 {
	return uint32((d.base-busStart)/busStride) + 1
}

// request is the fixed 16-byte header every virtio-blk command starts
// with, followed by the data buffer and a single trailing status byte.
type request struct {
	typ      uint32
	reserved uint32
	sector   uint64
}

// ReadSector reads one 512-byte sector at the given LBA into buf, which
// must be exactly 512 bytes.
func (d *Device) ReadSector(lba uint64, buf []byte) error {
	return d.doRequest(lba, buf, reqTypeIn)
}

// WriteSector writes buf, which must be exactly 512 bytes, to the given
// LBA.
func (d *Device) WriteSector(lba uint64, buf []byte) error {
	return d.doRequest(lba, buf, reqTypeOut)
}

// Read fills buf from the device starting at byte offset off. Both len(buf)
// and off must be sector multiples; the request is issued one sector at a
// time since a single-request queue gains nothing from batching.
func (d *Device) Read(buf []byte, off uint64) error {
	return d.transfer(buf, off, (*Device).ReadSector)
}

// Write stores buf to the device starting at byte offset off. The same
// alignment rules as Read apply.
func (d *Device) Write(buf []byte, off uint64) error {
	return d.transfer(buf, off, (*Device).WriteSector)
}

func (d *Device) transfer(buf []byte, off uint64, op func(*Device, uint64, []byte) error) error {
	if len(buf)%SectorSize != 0 || off%SectorSize != 0 {
		return ErrUnalignedRequest
	}

	lba := off / SectorSize
	for i := 0; i < len(buf); i += SectorSize {
		if err := op(d, lba, buf[i:i+SectorSize]); err != nil {
			return err
		}
		lba++
	}
	return nil
}

func (d *Device) doRequest(lba uint64, buf []byte, typ uint32) error {
	if len(buf) != 512 {
		return ErrBadQueue
	}

	hdr := &request{typ: typ, sector: lba}
	var status byte

	headerAddr := uint64(uintptr(unsafe.Pointer(hdr)))
	dataAddr := uint64(uintptr(unsafe.Pointer(&buf[0])))
	statusAddr := uint64(uintptr(unsafe.Pointer(&status)))

	head := d.queue.buildChain(headerAddr, uint64(unsafe.Sizeof(request{})), dataAddr, uint64(len(buf)), statusAddr, typ == reqTypeIn)
	d.queue.publish(head)

	*reg32(d.base+offQueueNotify) = 0

	for !d.queue.completed() {
		// Busy-poll: there is no scheduler to park a waiting goroutine
		// against, so this loop watches the used ring until the device
		// advances it; the interrupt handler below only acknowledges.
	}
	d.queue.ackCompletion()

	ack := *reg32(d.base + offInterruptState)
	if ack != 0 {
		*reg32(d.base+offInterruptAck) = ack
	}

	switch status {
	case statusOK:
		return nil
	case statusUnsupp:
		return ErrBadQueue
	default:
		return ErrIOError
	}
}

// HandleInterrupt is invoked by the trap dispatcher's external-interrupt
// path when the PLIC claims a source ID belonging to one of the virtio-mmio
// slots. It simply acknowledges the device's interrupt-status register;
// doRequest's busy-poll loop observes the used-ring update directly.
func (d *Device) HandleInterrupt() {
	ack := *reg32(d.base + offInterruptState)
	if ack != 0 {
		*reg32(d.base+offInterruptAck) = ack
	}
}
