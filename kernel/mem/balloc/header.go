package balloc

import "unsafe"

// header is a boundary tag sitting immediately before every block in the
// pool, free or taken. Its size field counts the whole block: the header
// itself plus the payload that follows it, which is what lets Kmalloc and
// Coalesce step from one block directly to the next.
type header struct {
	flagsSize uint64
}

const takenFlag = uint64(1) << 63

// headerSize is the number of bytes a header occupies in the pool.
const headerSize = unsafe.Sizeof(header{})

func headerAt(addr uintptr) *header {
	return (*header)(unsafe.Pointer(addr))
}

func (h *header) addr() uintptr {
	return uintptr(unsafe.Pointer(h))
}

func (h *header) isTaken() bool {
	return h.flagsSize&takenFlag != 0
}

func (h *header) isFree() bool {
	return !h.isTaken()
}

func (h *header) setTaken() {
	h.flagsSize |= takenFlag
}

func (h *header) setFree() {
	h.flagsSize &^= takenFlag
}

// size returns the total size of the block, header included.
func (h *header) size() uint64 {
	return h.flagsSize &^ takenFlag
}

// setSize sets the total block size, header included, preserving the taken
// bit.
func (h *header) setSize(sz uint64) {
	taken := h.isTaken()
	h.flagsSize = sz &^ takenFlag
	if taken {
		h.flagsSize |= takenFlag
	}
}
