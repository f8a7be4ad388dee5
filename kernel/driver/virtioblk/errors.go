package virtioblk

import "rvkernel/kernel"

var (
	ErrNoDevice = &kernel.Error{Module: "virtioblk", Message: "no block device found on the bus"}
	ErrBadMagic = &kernel.Error{Module: "virtioblk", Message: "bad magic value at probed address"}
	ErrBadQueue = &kernel.Error{Module: "virtioblk", Message: "device rejected the requested queue size"}
	ErrFailed   = &kernel.Error{Module: "virtioblk", Message: "device reported itself failed"}
	ErrIOError  = &kernel.Error{Module: "virtioblk", Message: "device returned an IO error status"}

	ErrUnalignedRequest = &kernel.Error{Module: "virtioblk", Message: "request length and offset must be sector multiples"}
)
