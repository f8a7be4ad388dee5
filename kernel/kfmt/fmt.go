// Package kfmt provides the kernel's diagnostic formatter: a tiny Printf
// that works before the Go allocator is backed by package balloc and inside
// trap handlers. It understands only the verbs kernel diagnostics actually
// use, and it stages every write through package-level buffers so that
// formatting never touches the heap.
package kfmt

import "io"

// Marker strings for formatting mistakes, close enough to the fmt package's
// conventions to be recognizable in a log.
const (
	markMissing   = "(MISSING)"
	markExtra     = "%!(EXTRA)"
	markNoVerb    = "%!(NOVERB)"
	markWrongType = "%!(WRONGTYPE)"
)

var (
	// outputSink is where formatted bytes go once kinit.Kinit has a
	// console up. While it is nil, output accumulates in earlyOutput and
	// is replayed by SetOutputSink.
	outputSink io.Writer

	earlyOutput earlyBuffer

	// chunk stages literal text and padding on the way to the sink. The
	// sink only ever sees slices of this package-level array, which the
	// compiler can prove do not escape; that is what keeps Printf
	// allocation-free without any escape-analysis games.
	chunk [64]byte

	// numBuf is filled back to front by emitInt. 23 bytes fit a 64-bit
	// magnitude in the widest base (octal, 22 digits) plus a sign.
	numBuf [23]byte
)

// SetOutputSink routes future Printf output to w and replays everything
// buffered so far into it. kinit.Kinit calls this once the UART driver is
// initialized, passing a uart.Writer.
func SetOutputSink(w io.Writer) {
	outputSink = w
	if w != nil {
		io.Copy(w, &earlyOutput)
	}
}

// Printf formats to the configured sink. Supported verbs:
//
//	%s  string or []byte       space-padded
//	%d  integers, base 10      space-padded
//	%x  integers, base 16      zero-padded, lower-case
//	%o  integers, base 8       zero-padded
//	%t  booleans
//
// An optional decimal width before the verb left-pads the value. %p and the
// float verbs are deliberately absent: both would pull reflect into the
// kernel, and with it allocation.
func Printf(format string, args ...interface{}) {
	Fprintf(outputSink, format, args...)
}

// Fprintf is Printf writing to w instead of the configured sink.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	next := 0

	for i := 0; i < len(format); {
		if format[i] != '%' {
			lit := i
			for i < len(format) && format[i] != '%' {
				i++
			}
			emitString(w, format[lit:i])
			continue
		}

		i++ // past '%'
		width := 0
		for i < len(format) && format[i] >= '0' && format[i] <= '9' {
			width = width*10 + int(format[i]-'0')
			i++
		}
		if i == len(format) {
			emitString(w, markNoVerb)
			break
		}

		verb := format[i]
		i++

		if verb == '%' {
			emitString(w, "%")
			continue
		}
		switch verb {
		case 'd', 'x', 'o', 's', 't':
		default:
			emitString(w, markNoVerb)
			continue
		}
		if next >= len(args) {
			emitString(w, markMissing)
			continue
		}

		arg := args[next]
		next++
		switch verb {
		case 'd':
			emitInt(w, arg, 10, width, ' ')
		case 'x':
			emitInt(w, arg, 16, width, '0')
		case 'o':
			emitInt(w, arg, 8, width, '0')
		case 's':
			emitText(w, arg, width)
		case 't':
			emitBool(w, arg)
		}
	}

	for ; next < len(args); next++ {
		emitString(w, markExtra)
	}
}

func emitBool(w io.Writer, v interface{}) {
	b, ok := v.(bool)
	switch {
	case !ok:
		emitString(w, markWrongType)
	case b:
		emitString(w, "true")
	default:
		emitString(w, "false")
	}
}

func emitText(w io.Writer, v interface{}, width int) {
	switch s := v.(type) {
	case string:
		emitPadding(w, ' ', width-len(s))
		emitString(w, s)
	case []byte:
		emitPadding(w, ' ', width-len(s))
		write(w, s)
	default:
		emitString(w, markWrongType)
	}
}

// emitInt prints an integer value in the given base, left-padded to width.
// The digit buffer fills from its far end so no reversal pass is needed;
// padding goes out separately, ahead of the digits.
func emitInt(w io.Writer, v interface{}, base uint64, width int, padCh byte) {
	u, negative, ok := intValue(v)
	if !ok {
		emitString(w, markWrongType)
		return
	}

	pos := len(numBuf)
	for {
		pos--
		digit := byte(u % base)
		if digit < 10 {
			numBuf[pos] = '0' + digit
		} else {
			numBuf[pos] = 'a' + digit - 10
		}
		u /= base
		if u == 0 {
			break
		}
	}
	if negative {
		pos--
		numBuf[pos] = '-'
	}

	emitPadding(w, padCh, width-(len(numBuf)-pos))
	write(w, numBuf[pos:])
}

// intValue widens v to a uint64 magnitude plus sign. Every integer type the
// kernel formats is listed; anything else is the caller reaching for a verb
// this formatter does not serve.
func intValue(v interface{}) (u uint64, negative bool, ok bool) {
	var s int64

	switch t := v.(type) {
	case uint8:
		return uint64(t), false, true
	case uint16:
		return uint64(t), false, true
	case uint32:
		return uint64(t), false, true
	case uint64:
		return t, false, true
	case uintptr:
		return uint64(t), false, true
	case int8:
		s = int64(t)
	case int16:
		s = int64(t)
	case int32:
		s = int64(t)
	case int64:
		s = t
	case int:
		s = int64(t)
	default:
		return 0, false, false
	}

	if s < 0 {
		return uint64(-s), true, true
	}
	return uint64(s), false, true
}

// emitString copies s to the sink through chunk, piecewise for strings
// longer than the staging buffer. Copying looks wasteful next to writing
// the string's bytes directly, but a string-to-slice conversion allocates
// and a slice of chunk does not.
func emitString(w io.Writer, s string) {
	for len(s) > 0 {
		n := copy(chunk[:], s)
		write(w, chunk[:n])
		s = s[n:]
	}
}

func emitPadding(w io.Writer, ch byte, n int) {
	if n <= 0 {
		return
	}
	for i := range chunk {
		chunk[i] = ch
	}
	for ; n > len(chunk); n -= len(chunk) {
		write(w, chunk[:])
	}
	write(w, chunk[:n])
}

func write(w io.Writer, p []byte) {
	if w == nil {
		earlyOutput.Write(p)
		return
	}
	w.Write(p)
}
