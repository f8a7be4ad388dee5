// Package balloc is the sub-page allocator: a first-fit boundary-tag free
// list carved out of a pool of whole pages obtained from package pmm. It
// serves allocations too small to justify handing out a full page, and also
// backs the Go runtime's own allocator once kinit.Kinit wires it in (see
// package goruntime).
package balloc

import (
	"rvkernel/kernel/mem"
	"rvkernel/kernel/mem/pmm"
)

// pool is the package-level singleton free list, spanning [head, tail).
var pool struct {
	head uintptr
	tail uintptr
}

// alignUp rounds sz up to a multiple of 1<<order. Every allocation this
// package hands out is aligned to an 8-byte boundary (order 3), which is
// large enough for any scalar type this kernel's Go code manipulates.
func alignUp(sz uint64, order uint) uint64 {
	mask := uint64(1)<<order - 1
	return (sz + mask) &^ mask
}

// Init obtains numPages pages from pmm and turns them into a single free
// block spanning the whole pool. It must run once, after pmm.InitMemory, and
// before the first call to Kmalloc.
func Init(numPages int) error {
	addr, err := pmm.Alloc(numPages)
	if err != nil {
		return err
	}

	pool.head = addr
	pool.tail = addr + uintptr(numPages)*uintptr(mem.PageSize)

	h := headerAt(pool.head)
	h.setFree()
	h.setSize(uint64(pool.tail - pool.head))
	return nil
}

// Kmalloc returns a pointer to a free block of at least sz bytes, splitting
// the first sufficiently large free block it finds. It does not zero the
// returned memory; use Kzmalloc when that matters.
func Kmalloc(sz uint64) (uintptr, error) {
	needed := alignUp(sz, 3) + uint64(headerSize)

	for addr := pool.head; addr < pool.tail; {
		h := headerAt(addr)
		blockSize := h.size()
		if blockSize == 0 {
			break
		}

		if h.isFree() && blockSize >= needed {
			remaining := blockSize - needed
			h.setTaken()

			if remaining > uint64(headerSize) {
				next := headerAt(addr + uintptr(needed))
				next.setFree()
				next.setSize(remaining)
				h.setSize(needed)
			} else {
				h.setSize(blockSize)
			}

			return addr + uintptr(headerSize), nil
		}

		addr += uintptr(blockSize)
	}

	return 0, ErrOutOfMemory
}

// Kzmalloc is Kmalloc followed by zeroing the requested number of bytes
// rounded up to the 8-byte allocation granularity.
func Kzmalloc(sz uint64) (uintptr, error) {
	aligned := alignUp(sz, 3)
	ptr, err := Kmalloc(sz)
	if err != nil {
		return 0, err
	}
	mem.Memset(ptr, 0, mem.Size(aligned))
	return ptr, nil
}

// Kfree returns the block at ptr, which must be a pointer previously
// returned by Kmalloc or Kzmalloc, to the free list and coalesces adjacent
// free blocks. Freeing the zero pointer is a no-op.
func Kfree(ptr uintptr) error {
	if ptr == 0 {
		return nil
	}

	h := headerAt(ptr - uintptr(headerSize))
	if h.isFree() {
		return ErrDoubleFree
	}
	h.setFree()
	Coalesce()
	return nil
}

// Coalesce merges every run of adjacent free blocks in the pool into a
// single block. Kfree calls this after every free; it is exported so tests
// and diagnostics can invoke it directly.
func Coalesce() {
	addr := pool.head
	for addr < pool.tail {
		h := headerAt(addr)
		size := h.size()
		if size == 0 {
			break
		}

		nextAddr := addr + uintptr(size)
		if nextAddr >= pool.tail {
			break
		}

		next := headerAt(nextAddr)
		if h.isFree() && next.isFree() {
			h.setSize(size + next.size())
			continue
		}

		addr = nextAddr
	}
}
