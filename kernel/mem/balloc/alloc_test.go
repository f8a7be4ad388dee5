package balloc

import (
	"testing"
	"unsafe"

	"rvkernel/kernel/mem"
	"rvkernel/kernel/mem/pmm"
)

func testPool(t *testing.T, numPages int) {
	t.Helper()
	buf := make([]byte, (numPages+4)*int(mem.PageSize))
	start := uintptr(unsafe.Pointer(&buf[0]))
	pmm.InitMemory(start, start+uintptr(len(buf))-1)

	if err := Init(numPages); err != nil {
		t.Fatalf("unexpected error initializing pool: %v", err)
	}
}

func TestKmallocReturnsDistinctBlocks(t *testing.T) {
	testPool(t, 2)

	a, err := Kmalloc(32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Kmalloc(32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct allocations to return distinct addresses")
	}
	if b < a+32 {
		t.Fatalf("expected second allocation to not overlap the first: a=%#x b=%#x", a, b)
	}
}

func TestKmallocAlignsTo8Bytes(t *testing.T) {
	testPool(t, 2)

	ptr, err := Kmalloc(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := Kmalloc(8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if second-ptr < 8 {
		t.Fatalf("expected at least 8 aligned bytes between allocations, got %d", second-ptr)
	}
}

func TestKzmallocZeroesMemory(t *testing.T) {
	testPool(t, 2)

	ptr, err := Kmalloc(64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mem.Memset(ptr, 0xAA, 64)
	if err := Kfree(ptr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	zptr, err := Kzmalloc(64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	target := *(*[64]byte)(unsafe.Pointer(zptr))
	for i, b := range target {
		if b != 0 {
			t.Fatalf("byte %d: expected zero, got %#x", i, b)
		}
	}
}

func TestKfreeThenReallocateReusesSpace(t *testing.T) {
	testPool(t, 1)

	first, err := Kmalloc(128)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Kfree(first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := Kmalloc(128)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second != first {
		t.Fatalf("expected freed block to be reused at %#x, got %#x", first, second)
	}
}

func TestKfreeRejectsDoubleFree(t *testing.T) {
	testPool(t, 1)

	ptr, err := Kmalloc(16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Kfree(ptr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Kfree(ptr); err != ErrDoubleFree {
		t.Fatalf("expected ErrDoubleFree, got %v", err)
	}
}

func TestKfreeNilIsNoOp(t *testing.T) {
	testPool(t, 1)

	if err := Kfree(0); err != nil {
		t.Fatalf("expected freeing the zero pointer to be a no-op, got %v", err)
	}
}

func TestCoalesceMergesAdjacentFreeBlocks(t *testing.T) {
	testPool(t, 1)

	a, err := Kmalloc(64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Kmalloc(64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := Kfree(a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Kfree(b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	big, err := Kmalloc(64 + 64 + 16)
	if err != nil {
		t.Fatalf("expected coalesced free space to satisfy a larger allocation, got error: %v", err)
	}
	if big != a {
		t.Fatalf("expected the coalesced block to start at %#x, got %#x", a, big)
	}
}

func TestKmallocExhaustsPool(t *testing.T) {
	testPool(t, 1)

	if _, err := Kmalloc(uint64(mem.PageSize) * 2); err != ErrOutOfMemory {
		t.Fatalf("expected ErrOutOfMemory for an allocation larger than the pool, got %v", err)
	}
}
