package virtioblk

import "unsafe"

// RingSize is the number of descriptor/avail/used ring slots per queue,
// forced to a power of two as the legacy virtio transport requires.
const RingSize = 1 << 7

// Descriptor flags.
const (
	descFlagNext  = uint16(1)
	descFlagWrite = uint16(2)
)

// descriptor is one entry of the split-ring descriptor table. addr is a
// physical address, not a virtual one; because this kernel identity-maps
// all of RAM, the two coincide and no translation step is needed before
// handing the address to the device.
type descriptor struct {
	addr  uint64
	len   uint32
	flags uint16
	next  uint16
}

type usedElem struct {
	id  uint32
	len uint32
}

// available is the driver-written ring the device polls for new requests.
type available struct {
	flags uint16
	idx   uint16
	ring  [RingSize]uint16
	event uint16
}

// used is the device-written ring the driver polls for completions. The
// legacy transport requires it to start on its own page boundary, which
// queuePageCount and newQueueAt account for by rounding the descriptor+avail
// region up to a full page before placing used.
type used struct {
	flags uint16
	idx   uint16
	ring  [RingSize]usedElem
	event uint16
}

const (
	descTableSize = int(unsafe.Sizeof(descriptor{})) * RingSize
	availSize     = int(unsafe.Sizeof(available{}))
	usedSize      = int(unsafe.Sizeof(used{}))
)

// Queue is a single split virtqueue: the descriptor table, the available
// ring, and the used ring, all carved out of a single run of physical pages
// obtained from pmm. There is no scheduler to overlap requests, so a Queue
// only ever has one request in flight: Device.doRequest blocks the caller
// until the device marks it complete.
type Queue struct {
	base uintptr

	desc  *[RingSize]descriptor
	avail *available
	used  *used

	// freeHead is the index of the next unused descriptor-table slot.
	// Descriptors are consumed in chains of 3 (header, data, status) and
	// never individually freed mid-flight since only one request is ever
	// outstanding; freeHead simply advances by 3 modulo RingSize after
	// each chain and is not reset when a request completes.
	freeHead   uint16
	lastUsed   uint16
	queueAlign uint32
}

// queuePageCount returns how many 4 KiB pages a queue needs: the descriptor
// table and available ring share the first page(s), and the used ring is
// rounded up to start on its own page boundary.
func queuePageCount(pageSize int) int {
	usedOffset := roundUp(descTableSize+availSize, pageSize)
	total := usedOffset + usedSize
	return (total + pageSize - 1) / pageSize
}

func roundUp(v, align int) int {
	return (v + align - 1) &^ (align - 1)
}

// newQueueAt lays out a Queue over the page(s) starting at base, which must
// already be zeroed (pmm.Alloc guarantees this) and must span at least
// queuePageCount(pageSize) pages.
func newQueueAt(base uintptr, pageSize int) *Queue {
	usedOffset := roundUp(descTableSize+availSize, pageSize)

	q := &Queue{
		base:       base,
		desc:       (*[RingSize]descriptor)(unsafe.Pointer(base)),
		avail:      (*available)(unsafe.Pointer(base + uintptr(descTableSize))),
		used:       (*used)(unsafe.Pointer(base + uintptr(usedOffset))),
		queueAlign: uint32(pageSize),
	}
	return q
}

// pfn returns the physical page frame number the legacy QueuePfn register
// expects: the queue's base address divided by the page size.
func (q *Queue) pfn(pageSize int) uint32 {
	return uint32(q.base / uintptr(pageSize))
}

// buildChain writes a 3-descriptor chain (header, data, status) rooted at
// freeHead and returns the head index to publish in the avail ring. write
// reports whether the data buffer is the device writing into guest memory
// (a block read) as opposed to the driver writing into the device (a block
// write).
func (q *Queue) buildChain(headerAddr, headerLen, dataAddr, dataLen, statusAddr uint64, write bool) uint16 {
	head := q.freeHead
	i0, i1, i2 := head, (head+1)%RingSize, (head+2)%RingSize

	dataFlags := descFlagNext
	if write {
		dataFlags |= descFlagWrite
	}

	q.desc[i0] = descriptor{addr: headerAddr, len: uint32(headerLen), flags: descFlagNext, next: i1}
	q.desc[i1] = descriptor{addr: dataAddr, len: uint32(dataLen), flags: dataFlags, next: i2}
	q.desc[i2] = descriptor{addr: statusAddr, len: 1, flags: descFlagWrite, next: 0}

	q.freeHead = (head + 3) % RingSize
	return head
}

// publish appends head to the avail ring and returns the new avail index,
// i.e. what the driver must write before notifying the device.
func (q *Queue) publish(head uint16) uint16 {
	slot := q.avail.idx % RingSize
	q.avail.ring[slot] = head
	q.avail.idx++
	return q.avail.idx
}

// completed reports whether the used ring has advanced past lastUsed, i.e.
// the device has finished the most recently submitted request.
func (q *Queue) completed() bool {
	return q.used.idx != q.lastUsed
}

// ackCompletion records that the caller has observed the latest used-ring
// entry, advancing lastUsed so the next completed() call blocks for the
// next request.
func (q *Queue) ackCompletion() {
	q.lastUsed = q.used.idx
}
