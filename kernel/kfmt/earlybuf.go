package kfmt

import "io"

// earlyBufferSize is one page worth of diagnostics. Everything the kernel
// has to say between entry and the UART coming up fits comfortably; if it
// ever does not, the oldest output is the right thing to lose.
const earlyBufferSize = 4096

// earlyBuffer holds Printf output produced before a console sink exists. It
// tracks the oldest buffered byte and a fill count rather than a pair of
// read/write cursors, overwriting from the front once full so the most
// recent diagnostics are the ones that survive to be replayed.
type earlyBuffer struct {
	data  [earlyBufferSize]byte
	start int
	count int
}

// Write buffers p in its entirety, evicting the oldest bytes if the buffer
// is full. It never fails.
func (b *earlyBuffer) Write(p []byte) (int, error) {
	for _, c := range p {
		at := b.start + b.count
		if at >= len(b.data) {
			at -= len(b.data)
		}
		b.data[at] = c

		if b.count < len(b.data) {
			b.count++
			continue
		}
		// Full: the byte just stored replaced the oldest one.
		b.start++
		if b.start == len(b.data) {
			b.start = 0
		}
	}
	return len(p), nil
}

// Read drains up to len(p) buffered bytes into p, crossing the wrap point
// in a single call, and reports io.EOF once the buffer is empty.
func (b *earlyBuffer) Read(p []byte) (int, error) {
	if b.count == 0 {
		return 0, io.EOF
	}

	n := 0
	for n < len(p) && b.count > 0 {
		p[n] = b.data[b.start]
		n++
		b.start++
		if b.start == len(b.data) {
			b.start = 0
		}
		b.count--
	}
	return n, nil
}
