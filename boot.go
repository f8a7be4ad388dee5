package main

import "rvkernel/kernel/kinit"

// main is the only Go symbol that is visible (exported) from the rt0
// initialization code. This function works as a trampoline for calling the
// actual kernel entrypoint (kinit.Kinit) and is intentionally defined to
// prevent the Go compiler from optimizing away the actual kernel code since
// it has no visibility into the boot assembly that calls it.
//
// main is invoked by the boot stub once it has entered machine mode and
// carved out a stack inside the linker-exported KERNEL_STACK region. The
// stub arranges for the linker-exported section bounds to already be
// visible via the kernel/link package before main runs.
//
// main is not expected to return. If it does, the boot stub halts the hart.
func main() {
	satp := kinit.Kinit()
	kinit.EnterSupervisor(satp)
}
