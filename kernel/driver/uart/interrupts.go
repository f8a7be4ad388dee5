package uart

// PLICSource is the PLIC interrupt source ID the QEMU virt machine wires the
// UART to.
const PLICSource = uint32(10)

// Interrupt-status values in the low nibble of the ISR, read after the PLIC
// claims the UART's source ID. Reading the ISR also acknowledges the
// condition it reports.
const (
	isrMask             = 0x0f
	isrTransmitterEmpty = 0x02
	isrDataReady        = 0x04
	isrCharacterTimeout = 0x0c
)

// receiveSink receives every byte drained from the RX FIFO. The line-input
// layer above this driver registers itself here; until it does, received
// bytes are dropped.
var receiveSink func(byte)

// SetReceiveSink registers fn as the consumer of received bytes. fn runs in
// interrupt context and must not allocate or block.
func SetReceiveSink(fn func(byte)) {
	receiveSink = fn
}

// HandleInterrupt services a claimed UART interrupt: it reads the interrupt
// status register to find out what the UART wants, and drains the receive
// FIFO when data is the reason. A transmitter-empty interrupt needs no work
// beyond the acknowledging ISR read, because WriteByte transmits
// synchronously and nothing is ever queued behind it.
func HandleInterrupt() {
	switch InterruptStatus() & isrMask {
	case isrTransmitterEmpty:
	case isrDataReady, isrCharacterTimeout:
		drainReceiveFIFO()
	}
}

func drainReceiveFIFO() {
	for {
		b, ok := ReadByte()
		if !ok {
			return
		}
		if receiveSink != nil {
			receiveSink(b)
		}
	}
}
