package balloc

import "rvkernel/kernel"

// ErrOutOfMemory is returned by Kmalloc/Kzmalloc when no free block in the
// pool is large enough to satisfy the request.
var ErrOutOfMemory = &kernel.Error{Module: "balloc", Message: "no free block large enough for this allocation"}

// ErrDoubleFree is returned by Kfree when ptr points at a block that is
// already free.
var ErrDoubleFree = &kernel.Error{Module: "balloc", Message: "block is already free"}
