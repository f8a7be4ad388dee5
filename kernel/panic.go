package kernel

import (
	"rvkernel/kernel/kfmt"
	"rvkernel/kernel/riscv"
)

// haltFn is mocked by tests; the compiler inlines the real thing.
var haltFn = riscv.Shutdown

// Panic reports an unrecoverable error on the kernel console and halts the
// hart; it never returns. It is also the redirect target for calls to
// panic() (resolved via runtime.gopanic): with no unwinder and no recover()
// in this kernel, a Go panic can only ever mean "halt", never "propagate".
//
//go:redirect-from runtime.gopanic
func Panic(e interface{}) {
	kfmt.Printf("\npanic: ")

	switch t := e.(type) {
	case *Error:
		kfmt.Printf("[%s] %s", t.Module, t.Message)
	case string:
		kfmt.Printf("%s", t)
	case error:
		kfmt.Printf("%s", t.Error())
	default:
		kfmt.Printf("unknown cause")
	}

	kfmt.Printf("\npanic: hart halted\n")
	haltFn()
}
