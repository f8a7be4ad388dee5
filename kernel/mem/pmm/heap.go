// Package pmm is the physical page allocator: a descriptor-indexed,
// first-fit, contiguous-page allocator over a single contiguous span of RAM
// (the "heap"). It hands out whole 4 KiB pages; sub-page allocation is the
// job of package balloc, which is itself a client of this allocator.
package pmm

import (
	"reflect"
	"unsafe"

	"rvkernel/kernel/mem"
)

// heap is the package-level singleton layout. Like the rest of this tree,
// there is exactly one physical heap and one hart, so a package-level
// variable is preferable to threading a receiver through every call.
var heap struct {
	start, end uintptr // heap bounds, inclusive
	allocStart uintptr // first byte of the page array

	descriptors    []Descriptor
	descriptorsHdr reflect.SliceHeader
}

// Align rounds v up to the next multiple of 1<<order. Already-aligned values
// are returned unchanged.
func Align(v uintptr, order uint) uintptr {
	mask := uintptr(1)<<order - 1
	return (v + mask) &^ mask
}

// InitMemory lays out the physical heap spanning [start, end] (both
// inclusive addresses) and prepares it for allocation. The descriptor array
// is carved out of the front of the heap itself: a byte array big enough to
// describe every page that ultimately fits, a few bytes of alignment
// padding, and then the page array proper. Every byte of the heap is zeroed
// first since neither the descriptor array nor the pages it describes can
// be trusted to start zero.
//
// The heap-size computation follows the reading of the original allocator
// that is internally consistent: a page candidate count is derived first
// (each page "costs" 4096 bytes of storage plus one descriptor byte), the
// start of the page array is aligned up from that candidate, and the final
// page count is then derived from the space that is actually left after
// alignment, capped at the candidate count. The descriptor array is sized to
// that final count, so it always fits in the space reserved for it.
func InitMemory(start, end uintptr) {
	mem.Memset(start, 0, mem.Size(end-start+1))

	heapSize := uintptr(end - start + 1)
	candidateNumPages := heapSize / (uintptr(mem.PageSize) + 1)

	allocStart := Align(start+candidateNumPages, mem.PageShift)
	numPages := uintptr(0)
	if end+1 > allocStart {
		numPages = (end + 1 - allocStart) / uintptr(mem.PageSize)
	}
	if numPages > candidateNumPages {
		numPages = candidateNumPages
	}

	heap.start = start
	heap.end = end
	heap.allocStart = allocStart

	heap.descriptorsHdr.Len = int(numPages)
	heap.descriptorsHdr.Cap = int(numPages)
	heap.descriptorsHdr.Data = start
	heap.descriptors = *(*[]Descriptor)(unsafe.Pointer(&heap.descriptorsHdr))
}

// NumPages returns the number of pages the heap was laid out to manage.
func NumPages() int {
	return len(heap.descriptors)
}

// AllocStart returns the address of the first page in the page array.
func AllocStart() uintptr {
	return heap.allocStart
}

func pageAddr(index int) uintptr {
	return heap.allocStart + uintptr(index)*uintptr(mem.PageSize)
}
