package vmm

import "rvkernel/kernel"

// Mapping failures.
var (
	ErrTableAllocFailed  = &kernel.Error{Module: "vmm", Message: "failed to allocate a page table frame"}
	ErrMisalignedAddress = &kernel.Error{Module: "vmm", Message: "address is not page-aligned"}
	ErrVirtAddrTooWide   = &kernel.Error{Module: "vmm", Message: "virtual address does not fit in the 39-bit Sv39 range"}
	ErrPhysAddrTooWide   = &kernel.Error{Module: "vmm", Message: "physical address does not fit in the 56-bit Sv39 range"}
	ErrInvalidAccessMap  = &kernel.Error{Module: "vmm", Message: "access map must set at least one of R, W, X and nothing else"}
)

// Translation/unmap failures.
var (
	ErrNotMapped          = &kernel.Error{Module: "vmm", Message: "virtual address has no mapping"}
	ErrIntermediateIsLeaf = &kernel.Error{Module: "vmm", Message: "walk encountered a leaf entry before the final level"}
	ErrBranchAtLeafLevel  = &kernel.Error{Module: "vmm", Message: "terminal entry is a branch, not a physical mapping"}
)
