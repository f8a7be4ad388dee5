// Package uart drives the 16550-compatible UART QEMU's virt machine exposes
// at a fixed MMIO address. It is the kernel's only console device and the
// sink kernel/kfmt writes diagnostics to once Init has run.
package uart

import "unsafe"

// Base is the UART's MMIO base address on the QEMU virt machine.
const Base = uintptr(0x1000_0000)

// Register offsets, in the DLAB=0 view of the 16550 register file.
const (
	bufferOffset = 0 // receiver/transmitter holding register
	ierOffset    = 1 // interrupt enable register
	isrFcrOffset = 2 // interrupt status register (read) / FIFO control (write)
	lcrOffset    = 3 // line control register
	lsrOffset    = 5 // line status register
)

const (
	lsrDataReady = 1 << 0

	lcrWordLength8 = 0b0000_0011
	fcrEnableFIFOs = 0b0000_0001
	ierDataReady   = 0b0000_0001
)

func reg(offset uintptr) *byte {
	return (*byte)(unsafe.Pointer(Base + offset))
}

// SetDataBits8 configures the line control register for 8 data bits, no
// parity, one stop bit: the only framing this kernel ever uses.
func SetDataBits8() {
	*reg(lcrOffset) = lcrWordLength8
}

// EnableFIFO turns on the transmit/receive FIFOs.
func EnableFIFO() {
	*reg(isrFcrOffset) = fcrEnableFIFOs
}

// EnableInterrupts unmasks the data-ready interrupt and leaves every other
// UART interrupt source masked. HandleInterrupt also recognizes the
// transmitter-empty and character-timeout status values.
func EnableInterrupts() {
	*reg(ierOffset) = ierDataReady
}

// Init brings the UART up for 8-bit framing with FIFOs and the data-ready
// interrupt enabled. kinit.Kinit calls this before anything else touches
// the device.
func Init() {
	SetDataBits8()
	EnableFIFO()
	EnableInterrupts()
}

// CheckReadReady reports whether a byte is waiting in the receive buffer.
func CheckReadReady() bool {
	return *reg(lsrOffset)&lsrDataReady != 0
}

// ReadByte returns the next received byte and true, or false if none is
// waiting: the non-blocking, Option-of-byte read the core requires.
func ReadByte() (byte, bool) {
	if !CheckReadReady() {
		return 0, false
	}
	return *reg(bufferOffset), true
}

// WriteByte transmits a single byte.
func WriteByte(b byte) {
	*reg(bufferOffset) = b
}

// InterruptStatus reads the interrupt status/FIFO control register.
func InterruptStatus() byte {
	return *reg(isrFcrOffset)
}

// Writer adapts the UART's byte-write primitive to io.Writer so kernel/kfmt
// can use it as an output sink. It performs no line-ending translation or
// buffering; that belongs to the out-of-scope console formatting layer.
type Writer struct{}

// Write transmits every byte of p and always reports success: a UART
// transmit cannot fail from the CPU's point of view, short of the hart
// itself being reset.
func (Writer) Write(p []byte) (int, error) {
	for _, b := range p {
		WriteByte(b)
	}
	return len(p), nil
}
