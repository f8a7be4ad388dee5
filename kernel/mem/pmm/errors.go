package pmm

import "rvkernel/kernel"

// Allocation failures. Every kind is a distinct *kernel.Error value so
// callers (and tests) can compare by identity, the same convention the
// rest of this tree uses for typed kernel errors.
var (
	ErrZeroPagesRequested    = &kernel.Error{Module: "pmm", Message: "zero pages requested"}
	ErrNoFreeContiguousSpace = &kernel.Error{Module: "pmm", Message: "no free contiguous space"}
)

// Deallocation failures.
var (
	ErrNonHeapAddress       = &kernel.Error{Module: "pmm", Message: "address is not within the heap"}
	ErrNonPageAddress       = &kernel.Error{Module: "pmm", Message: "address is not page-aligned"}
	ErrPageNotLeading       = &kernel.Error{Module: "pmm", Message: "address does not point to the start of an allocation"}
	ErrCorruptDescriptorRun = &kernel.Error{Module: "pmm", Message: "descriptor run is not well-formed"}
)
